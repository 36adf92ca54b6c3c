package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// queryTimeout bounds every graph round trip so the pipeline cannot hang
// indefinitely on an unreachable store.
const queryTimeout = 15 * time.Second

// Compile-time check that Client implements Querier.
var _ Querier = (*Client)(nil)

// Client is the Neo4j-backed Querier implementation.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// Connect creates a Client and verifies connectivity.
func Connect(ctx context.Context, uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	return &Client{driver: driver, database: database}, nil
}

// Close releases the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Run executes a parameterized read query and collects all result rows.
func (c *Client) Run(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var records []Record
		for res.Next(ctx) {
			rec := res.Record()
			row := make(Record, len(rec.Keys))
			for _, key := range rec.Keys {
				val, _ := rec.Get(key)
				row[key] = normalize(val)
			}
			records = append(records, row)
		}
		return records, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("running graph query: %w", err)
	}

	records, _ := result.([]Record)
	return records, nil
}

// normalize converts driver node/relationship values into plain maps so the
// rest of the code never touches driver types.
func normalize(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return map[string]any(val.Props)
	case neo4j.Relationship:
		return map[string]any(val.Props)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
