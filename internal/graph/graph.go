// Package graph defines the minimal contract the chatbot core has with the
// organizational graph store: parameterized read queries returning row-shaped
// records. The core depends only on this interface; the Neo4j-backed
// implementation lives in neo4j.go and tests substitute fakes.
package graph

import "context"

// Querier executes a parameterized read query and returns the result rows.
type Querier interface {
	Run(ctx context.Context, query string, params map[string]any) ([]Record, error)
}

// Record is one result row. Field values may be scalars, lists, or nested
// maps depending on the query shape.
type Record map[string]any

// String returns the named field as a string, or "" when absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the named field as an int64, handling the numeric types the
// driver may produce. Returns 0 when absent or non-numeric.
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float returns the named field as a float64, or 0 when absent or non-numeric.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// StringList returns the named field as a list of strings. Non-string
// elements are skipped.
func (r Record) StringList(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Map returns the named field as a nested map, or nil.
func (r Record) Map(key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}
