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
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsubhq/fedsub/config"
)

func newTestCache(t *testing.T) Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	c, err := NewCache()
	require.NoError(t, err)
	return c
}

func TestSet(t *testing.T) {
	ctx := context.Background()
	mockCache := newTestCache(t)

	key := "testKey"
	value := "testValue"

	err := mockCache.Set(ctx, key, value, 10*time.Minute)
	assert.NoError(t, err)

	// zero TTL is accepted as "no expiry"
	err = mockCache.Set(ctx, key, value, 0)
	assert.NoError(t, err)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	mockCache := newTestCache(t)

	key := "testKey"
	setValue := map[string]string{"hello": "world"}
	err := mockCache.Set(ctx, key, setValue, 10*time.Minute)
	assert.NoError(t, err)

	var getValue map[string]string
	err = mockCache.Get(ctx, key, &getValue)
	assert.NoError(t, err)
	assert.Equal(t, setValue, getValue)

	// a miss is not an error, data is left untouched
	var getValue1 map[string]string
	err = mockCache.Get(ctx, "nonExistentKey", &getValue1)
	assert.NoError(t, err)
	assert.Empty(t, getValue1)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	mockCache := newTestCache(t)

	key := "testKey"
	value := "testValue"
	err := mockCache.Set(ctx, key, value, 10*time.Minute)
	assert.NoError(t, err)

	err = mockCache.Delete(ctx, key)
	assert.NoError(t, err)

	var getValue string
	err = mockCache.Get(ctx, key, &getValue)
	assert.NoError(t, err)
	assert.Empty(t, getValue)
}
