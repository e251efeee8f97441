package database

// Transaction utilities for multi-statement writes.
//
// SurrealDB transactions over this driver are batch-based: statements
// accumulate in memory and execute together inside one
// BEGIN TRANSACTION block. There is no isolation between Add calls and
// no reading your own uncommitted writes.
//
// Repositories use AtomicBatch for writes that must land together, such
// as creating a study group with its creator membership, or deleting a
// session along with its RSVPs, messages, and resources:
//
//	batch := NewAtomicBatch()
//	batch.Add(deleteSessionQuery, vars)
//	batch.Add(deleteRSVPsQuery, vars)
//	batch.Execute(ctx, db) // all or nothing
//
// TxBuilder sits underneath and handles variable namespacing, so two
// statements that both bind $id do not collide.

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// TxBuilder accumulates statements into a single transaction query,
// renaming bound variables so queries from different call sites can be
// combined safely ($id becomes $v1_id, $v2_id, ...).
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
	varCounter uint64
}

func NewTxBuilder() *TxBuilder {
	return &TxBuilder{
		statements: make([]string, 0),
		vars:       make(map[string]interface{}),
	}
}

// Add appends a statement, namespacing its variables. Returns the
// original-to-namespaced variable mapping for callers that need to
// reference the rewritten names.
func (tb *TxBuilder) Add(query string, vars map[string]interface{}) map[string]string {
	varMapping := make(map[string]string)
	newQuery := query

	for varName, varValue := range vars {
		counter := atomic.AddUint64(&tb.varCounter, 1)
		newVarName := fmt.Sprintf("v%d_%s", counter, varName)

		newQuery = strings.ReplaceAll(newQuery, "$"+varName, "$"+newVarName)

		tb.vars[newVarName] = varValue
		varMapping[varName] = newVarName
	}

	tb.statements = append(tb.statements, newQuery)
	return varMapping
}

// AddRaw appends a statement without variable substitution.
func (tb *TxBuilder) AddRaw(query string) {
	tb.statements = append(tb.statements, query)
}

// Build returns the complete transaction query and merged variables.
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(stmt)
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), tb.vars
}

// ExecuteTransaction runs a transaction built with TxBuilder. An empty
// builder is a no-op.
func ExecuteTransaction(ctx context.Context, db Database, tb *TxBuilder) ([]interface{}, error) {
	query, vars := tb.Build()
	if query == "" {
		return nil, nil
	}

	return db.Query(ctx, query, vars)
}

// AtomicBatch is the fluent surface repositories use for grouped writes.
type AtomicBatch struct {
	queries []batchQuery
}

type batchQuery struct {
	query string
	vars  map[string]interface{}
}

func NewAtomicBatch() *AtomicBatch {
	return &AtomicBatch{
		queries: make([]batchQuery, 0),
	}
}

// Add appends a query to the batch.
func (ab *AtomicBatch) Add(query string, vars map[string]interface{}) *AtomicBatch {
	ab.queries = append(ab.queries, batchQuery{query: query, vars: vars})
	return ab
}

// Execute runs all queries as a single transaction.
func (ab *AtomicBatch) Execute(ctx context.Context, db Database) error {
	if len(ab.queries) == 0 {
		return nil
	}

	tb := NewTxBuilder()
	for _, q := range ab.queries {
		tb.Add(q.query, q.vars)
	}

	_, err := ExecuteTransaction(ctx, db, tb)
	return err
}

// Len returns the number of queries in the batch.
func (ab *AtomicBatch) Len() int {
	return len(ab.queries)
}
