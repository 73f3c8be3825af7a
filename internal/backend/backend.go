// Package backend defines the capability interface every triple store
// implements.
//
// Batching, reads and the gateway are written once against Backend. Two
// families of implementations exist:
//   - graph.Graph: in-process evaluation over memory or SQLite storage
//   - remote.Client: a SPARQL 1.1 Protocol endpoint over HTTP
package backend

import (
	"context"
	"errors"

	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("backend closed")

// Backend is a store that evaluates the sparql IR.
//
// Update applies its statements in order as one request. Implementations
// that can do so apply them atomically; the remote endpoint is atomic per
// request at best.
type Backend interface {
	// Ask reports whether the pattern has a solution.
	Ask(ctx context.Context, q sparql.Ask) (bool, error)
	// Select returns the solutions of q.
	Select(ctx context.Context, q sparql.Select) ([]sparql.Solution, error)
	// Query runs caller-supplied SELECT text.
	Query(ctx context.Context, text string) ([]sparql.Solution, error)
	// Update applies the statements in order.
	Update(ctx context.Context, us ...sparql.Update) (Report, error)
	// Snapshot returns every triple of the working graph.
	Snapshot(ctx context.Context) ([]rdf.Triple, error)
	// Clear removes every triple of the working graph.
	Clear(ctx context.Context) (Report, error)
	// Close releases the connection.
	Close() error
}

// Report counts the triples an update removed and added.
//
// Available is false when the backend applied the update but could not
// say how many triples changed.
type Report struct {
	Deleted   int  `json:"deleted"`
	Inserted  int  `json:"inserted"`
	Available bool `json:"available"`
}

// Add sums two reports. The sum is available only if both are.
func (r Report) Add(o Report) Report {
	return Report{
		Deleted:   r.Deleted + o.Deleted,
		Inserted:  r.Inserted + o.Inserted,
		Available: r.Available && o.Available,
	}
}

// Changed reports whether any triple was removed or added.
func (r Report) Changed() bool {
	return r.Deleted > 0 || r.Inserted > 0
}
