package repository

import (
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// Shared parsing helpers for SurrealDB result shapes. The driver hands
// back loosely-typed maps whose value types vary with the codec (CBOR
// record IDs, CustomDateTime wrappers, float64 numbers), so every
// repository funnels raw results through these before building models.

// isUniqueConstraintError reports whether err is a unique index
// violation. SurrealDB surfaces these as plain query errors, so we match
// on the message; repositories translate a hit into database.ErrDuplicate
// (duplicate email on signup, double RSVP, repeated group join).
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unique") ||
		strings.Contains(errStr, "duplicate") ||
		strings.Contains(errStr, "already exists")
}

// parseTime accepts the datetime shapes SurrealDB may return for fields
// like created_on and session dates. Zero time means unparseable.
func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t != nil {
			return t.Time
		}
	}
	return time.Time{}
}

// extractQueryResults unwraps a Database.Query response into the inner
// record array. Handles both the {status, result} wrapper and a direct
// array.
func extractQueryResults(result interface{}) ([]interface{}, bool) {
	if results, ok := result.([]interface{}); ok {
		if len(results) > 0 {
			if firstResult, ok := results[0].(map[string]interface{}); ok {
				if resultArray, ok := firstResult["result"].([]interface{}); ok {
					return resultArray, true
				}
			}
			// Direct array format
			return results, true
		}
	}
	return nil, false
}

// extractCount unwraps a `SELECT count() ... GROUP ALL` result. Missing
// or malformed results read as zero, which is what the stats endpoints
// want for empty tables.
func extractCount(result interface{}) int {
	if resp, ok := result.(map[string]interface{}); ok {
		if status, ok := resp["status"].(string); ok && status == "OK" {
			if resultData, ok := resp["result"].([]interface{}); ok && len(resultData) > 0 {
				if data, ok := resultData[0].(map[string]interface{}); ok {
					return extractCountValue(data["count"])
				}
			}
		}
		// Direct access
		return extractCountValue(resp["count"])
	}
	return 0
}

func extractCountValue(v interface{}) int {
	switch c := v.(type) {
	case float64:
		return int(c)
	case float32:
		return int(c)
	case int:
		return c
	case int64:
		return int(c)
	case uint64:
		return int(c)
	}
	return 0
}

// getString extracts a string field, empty when absent or mistyped.
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Note: convertSurrealID and extractCreatedRecord are defined in user.go
// with more comprehensive handling.
