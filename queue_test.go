/*
Copyright 2025 Fedsub Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fedsub

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/fedsubhq/fedsub/config"
	"github.com/fedsubhq/fedsub/internal/search"
	"github.com/fedsubhq/fedsub/model"
)

func TestQueueIndexDataEnqueues(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	mockConfig := &config.Configuration{
		Redis:     config.RedisConfig{Dns: mr.Addr()},
		TypeSense: config.TypeSenseConfig{Dns: "http://typesense:8108"},
		Queue:     config.QueueConfig{IndexQueue: "fedsub:index"},
	}
	config.MockConfig(mockConfig)

	queue := NewQueue(mockConfig)
	err = queue.queueIndexData("dir_1", search.CollectionDirectories, activeDirectory("dir_1"))

	assert.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}

func TestQueueIndexDataSkipsWithoutSearch(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	mockConfig := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
		Queue: config.QueueConfig{IndexQueue: "fedsub:index"},
	}
	config.MockConfig(mockConfig)

	queue := NewQueue(mockConfig)
	err = queue.queueIndexData("sub_123", search.CollectionSubmissions, &model.FederatedSubmission{SubmissionID: "sub_123"})

	assert.NoError(t, err)
	assert.Empty(t, mr.Keys())
}
