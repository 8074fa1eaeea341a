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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fedsubhq/fedsub/config"
	"github.com/fedsubhq/fedsub/database"
	"github.com/fedsubhq/fedsub/internal/hooks"
	redis_db "github.com/fedsubhq/fedsub/internal/redis-db"
)

// Fedsub represents the main struct for the Fedsub application.
type Fedsub struct {
	queue      *Queue
	search     *TypesenseClient
	redis      redis.UniversalClient
	datasource database.IDataSource
	payments   PaymentVerifier
	rates      RateConverter
	deliverer  Deliverer
	Hooks      hooks.HookManager
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewFedsub initializes a new instance of Fedsub with the provided database datasource.
// It fetches the configuration and initializes the Redis client, queue, and search client.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Fedsub: A pointer to the newly created Fedsub instance.
// - error: An error if any of the initialization steps fail.
func NewFedsub(db database.IDataSource) (*Fedsub, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	newSearch := NewTypesenseClient(configuration.TypeSenseKey, []string{configuration.TypeSense.Dns})
	newFedsub := &Fedsub{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		search:     newSearch,
		payments:   NewPaymentVerifier(configuration, db),
		rates:      NewRateConverter(configuration),
		deliverer:  NewDirectoryClient(configuration),
		Hooks:      hooks.NewHookManager(redisClient.Client()),
	}
	return newFedsub, nil
}

// GetSearchClient exposes the Typesense client for the reindex service.
func (l *Fedsub) GetSearchClient() *TypesenseClient {
	return l.search
}

// GetDataSource exposes the datasource for the reindex service.
func (l *Fedsub) GetDataSource() database.IDataSource {
	return l.datasource
}

// GetQueue exposes the background queue so the reindex endpoint can check for
// pending incremental index work before starting a full rebuild.
func (l *Fedsub) GetQueue() *Queue {
	return l.queue
}
