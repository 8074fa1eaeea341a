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

package search

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsubhq/fedsub/model"
)

func TestInstanceSchemaSortsByTrustScore(t *testing.T) {
	schema := getInstanceSchema()

	require.NotNil(t, schema.DefaultSortingField)
	assert.Equal(t, "trust_score", *schema.DefaultSortingField)

	var foundTrustScore bool
	var trustScoreType string
	for _, field := range schema.Fields {
		if field.Name == "trust_score" {
			foundTrustScore = true
			trustScoreType = field.Type
			break
		}
	}

	assert.True(t, foundTrustScore, "instance schema should include trust_score")
	assert.Equal(t, "float", trustScoreType)
}

func TestInstanceCollectionConfigTimeFields(t *testing.T) {
	config, ok := collectionConfigs[CollectionInstances]
	require.True(t, ok, "instance collection config should exist")

	expectedTimeFields := []string{"created_at", "last_seen_at"}
	for _, expected := range expectedTimeFields {
		var found bool
		for _, actual := range config.TimeFields {
			if actual == expected {
				found = true
				break
			}
		}
		assert.True(t, found, "TimeFields should include %s", expected)
	}
}

func TestSubmissionConfigConvertsTotalCost(t *testing.T) {
	config, ok := collectionConfigs[CollectionSubmissions]
	require.True(t, ok)
	assert.Contains(t, config.DecimalFields, "total_cost")

	client := &TypesenseClient{}
	data := map[string]interface{}{"total_cost": decimal.RequireFromString("49.99")}
	client.convertDecimalFields(config, data)
	assert.Equal(t, "49.99", data["total_cost"])

	data = map[string]interface{}{"total_cost": float64(12.5)}
	client.convertDecimalFields(config, data)
	assert.Equal(t, "12.5", data["total_cost"])
}

func TestNormalizeTimeFieldsHandlesAllShapes(t *testing.T) {
	client := &TypesenseClient{}
	config := collectionConfigs[CollectionDirectories]

	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	data := map[string]interface{}{"created_at": created}
	client.normalizeTimeFields(config, data)
	assert.Equal(t, created.Unix(), data["created_at"])

	data = map[string]interface{}{"created_at": created.Format(time.RFC3339)}
	client.normalizeTimeFields(config, data)
	assert.Equal(t, created.Unix(), data["created_at"])

	data = map[string]interface{}{"created_at": created.Unix()}
	client.normalizeTimeFields(config, data)
	assert.Equal(t, created.Unix(), data["created_at"])
}

func TestToMapUsesJSONTags(t *testing.T) {
	directory := &model.Directory{
		DirectoryID: "dir_123",
		Name:        "Launch Radar",
		Category:    "startup-tools",
		Status:      model.DirectoryStatusActive,
		FeeSchedule: model.FeeSchedule{Model: model.PricingFlat, Amount: decimal.RequireFromString("19.00"), Currency: "USD"},
	}

	data, err := toMap(directory)
	require.NoError(t, err)

	assert.Equal(t, "dir_123", data["directory_id"])
	assert.Equal(t, "Launch Radar", data["name"])
	assert.Equal(t, "startup-tools", data["category"])

	feeSchedule, ok := data["fee_schedule"].(map[string]interface{})
	require.True(t, ok, "fee_schedule should flatten to a nested map")
	assert.Equal(t, model.PricingFlat, feeSchedule["model"])
}

func TestEnsureSchemaFieldsFillsRequiredDefaults(t *testing.T) {
	client := &TypesenseClient{}
	config := collectionConfigs[CollectionDirectories]

	data := map[string]interface{}{
		"directory_id": "dir_123",
		"name":         "Launch Radar",
	}
	client.ensureSchemaFields(config, data)

	assert.Equal(t, "", data["category"])
	assert.Equal(t, int64(0), data["submission_count"])
	assert.Equal(t, false, data["accepts_crypto"])
	// optional fields are not fabricated
	_, hasMeta := data["meta_data"]
	assert.False(t, hasMeta)
}
