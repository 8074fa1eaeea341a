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
	"context"

	"github.com/typesense/typesense-go/typesense/api"

	"github.com/fedsubhq/fedsub/internal/search"
)

// TypesenseClient is the search client used across the service. The heavy
// lifting (schemas, normalization, reindexing) lives in internal/search.
type TypesenseClient = search.TypesenseClient

// NewTypesenseClient builds a search client for the given API key and hosts.
func NewTypesenseClient(apiKey string, hosts []string) *TypesenseClient {
	return search.NewTypesenseClient(apiKey, hosts)
}

// Search performs a search on the specified collection using the provided query parameters.
//
// Parameters:
// - collection string: The name of the collection to search.
// - query *api.SearchCollectionParams: The search query parameters.
//
// Returns:
// - *api.SearchResult: The search results.
// - error: An error if the search operation fails.
func (l *Fedsub) Search(collection string, query *api.SearchCollectionParams) (interface{}, error) {
	return l.search.Search(context.Background(), collection, query)
}

// MultiSearch performs a multi-search operation across collections.
func (l *Fedsub) MultiSearch(searchParams *api.MultiSearchSearchesParameter) (*api.MultiSearchResult, error) {
	return l.search.MultiSearch(context.Background(), *searchParams)
}
