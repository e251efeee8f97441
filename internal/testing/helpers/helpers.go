// Package helpers provides SurrealDB record assertions for the
// repository integration tests. It checks existence directly against
// the database so a test can verify what a repository wrote without
// going back through the repository under test.
package helpers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/studysphere/api/internal/database"
)

const queryTimeout = 5 * time.Second

// AssertRecordExists fails the test unless table:id exists. The id may
// be a bare record id or a full thing id like "study_group:abc123".
func AssertRecordExists(t *testing.T, db database.Database, table, id string) {
	t.Helper()

	found, err := recordExists(db, table, id)
	if err != nil {
		t.Fatalf("failed to query for record: %v", err)
	}
	if !found {
		t.Errorf("expected record %s:%s to exist, but it doesn't", table, bareID(id))
	}
}

// AssertRecordNotExists fails the test if table:id still exists, which
// is how the integration tests verify deletes and cascade cleanup.
func AssertRecordNotExists(t *testing.T, db database.Database, table, id string) {
	t.Helper()

	found, err := recordExists(db, table, id)
	if err != nil {
		// A lookup error on a deleted record is the outcome we want.
		return
	}
	if found {
		t.Errorf("expected record %s:%s to not exist, but it does", table, bareID(id))
	}
}

func recordExists(db database.Database, table, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	results, err := db.Query(ctx, "SELECT * FROM type::record($table, $id)", map[string]interface{}{
		"table": table,
		"id":    bareID(id),
	})
	if err != nil {
		return false, err
	}
	return hasResults(results), nil
}

// bareID strips the table prefix from a thing id.
func bareID(id string) string {
	if _, rest, ok := strings.Cut(id, ":"); ok {
		return rest
	}
	return id
}

// hasResults reports whether a SurrealDB query response carries rows.
func hasResults(results []interface{}) bool {
	if len(results) == 0 {
		return false
	}

	resp, ok := results[0].(map[string]interface{})
	if !ok {
		return false
	}

	switch v := resp["result"].(type) {
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return true
	case nil:
		return false
	default:
		return v != nil
	}
}
