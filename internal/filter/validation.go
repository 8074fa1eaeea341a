package filter

import (
	"fmt"
	"regexp"
	"strings"
)

var jsonKeyRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

func Validate(filters *QueryFilterSet, table string) error {
	if filters == nil {
		return nil
	}

	validFields := GetValidFieldsForTable(table)
	if len(validFields) == 0 {
		return fmt.Errorf("unsupported table for advanced filtering: %s", table)
	}

	for _, f := range filters.Filters {
		if strings.HasPrefix(f.Field, "meta_data.") && validFields["meta_data"] {
			jsonKey := strings.TrimPrefix(f.Field, "meta_data.")
			if !jsonKeyRegex.MatchString(jsonKey) {
				return fmt.Errorf("invalid JSON key '%s' in field '%s': must match pattern ^[a-zA-Z][a-zA-Z0-9_]*$", jsonKey, f.Field)
			}
			continue
		}

		if !validFields[f.Field] {
			return fmt.Errorf("invalid field '%s' for table '%s'", f.Field, table)
		}
	}

	return nil
}

func GetValidFieldsForTable(table string) map[string]bool {
	switch table {
	case "submissions":
		return map[string]bool{
			"submission_id":    true,
			"owner_id":         true,
			"launch_name":      true,
			"launch_url":       true,
			"description":      true,
			"category":         true,
			"directory_id":     true,
			"target_state":     true,
			"total_cost":       true,
			"currency":         true,
			"crypto_supported": true,
			"payment_status":   true,
			"payment_ref":      true,
			"created_at":       true,
			"meta_data":        true,
		}
	case "submission_targets":
		return map[string]bool{
			"target_id":       true,
			"submission_id":   true,
			"directory_id":    true,
			"state":           true,
			"attempt_count":   true,
			"last_attempt_at": true,
			"remote_ack_id":   true,
			"error_class":     true,
			"error_detail":    true,
			"fee":             true,
			"fee_currency":    true,
			"created_at":      true,
		}
	case "directories":
		return map[string]bool{
			"directory_id":     true,
			"name":             true,
			"category":         true,
			"status":           true,
			"accepts_crypto":   true,
			"submission_count": true,
			"submit_url":       true,
			"instance_id":      true,
			"created_at":       true,
			"meta_data":        true,
		}
	case "instances":
		return map[string]bool{
			"instance_id":  true,
			"name":         true,
			"base_url":     true,
			"status":       true,
			"trust_score":  true,
			"last_seen_at": true,
			"created_at":   true,
			"meta_data":    true,
		}
	default:
		return map[string]bool{}
	}
}

// GetSortableFieldsForTable returns fields that can be sorted.
// All filterable fields are sortable. For optimal performance on large datasets,
// consider adding indexes for frequently sorted fields.
func GetSortableFieldsForTable(table string) map[string]bool {
	return GetValidFieldsForTable(table)
}

// ValidateSortField validates that the sort field is allowed for the table.
func ValidateSortField(sortBy, table string) error {
	if sortBy == "" {
		return nil
	}

	sortableFields := GetSortableFieldsForTable(table)
	if len(sortableFields) == 0 {
		return fmt.Errorf("sorting not supported for table: %s", table)
	}

	if !sortableFields[sortBy] {
		return fmt.Errorf("cannot sort by '%s' for table '%s': field is not filterable", sortBy, table)
	}

	return nil
}

// ValidateSortByForTable normalizes opts.SortBy to lowercase in place and
// checks it against the table's sortable fields.
func ValidateSortByForTable(opts *QueryOptions, table string) error {
	if opts == nil || opts.SortBy == "" {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(opts.SortBy))
	if err := ValidateSortField(normalized, table); err != nil {
		return err
	}
	opts.SortBy = normalized
	return nil
}

// GetDefaultSortField returns the default sort field for a table.
func GetDefaultSortField(table string) string {
	return "created_at"
}
