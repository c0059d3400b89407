// Package workflow orchestrates schema comparisons between endpoints.
//
// An endpoint reference is either a database URL (sqlite://, postgres://,
// mysql://) or a path to a JSON snapshot file produced by a previous run.
// The workflow resolves both references, reads their schemas and produces a
// ComparisonResult that the planner and generator layers consume.
package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kverlan/seshat/config"
	"github.com/kverlan/seshat/dbschema"
	"github.com/kverlan/seshat/dbschema/types"
	"github.com/kverlan/seshat/migration/schemadiff"
	difftypes "github.com/kverlan/seshat/migration/schemadiff/types"
)

// Endpoint holds a resolved comparison endpoint: its identity plus the
// schemas read from it. For live connections the underlying database handle
// stays open until Close is called.
type Endpoint struct {
	Info    difftypes.Endpoint
	Schemas []types.SchemaInfo

	conn *dbschema.Connection
}

// Close releases the endpoint's database connection, if any.
func (e *Endpoint) Close() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// Dialect returns the database dialect of a live endpoint, or "" for
// snapshot endpoints.
func (e *Endpoint) Dialect() string {
	if e.conn == nil {
		return ""
	}
	return e.conn.Info().Dialect
}

// Workflow resolves endpoints and runs schema comparisons.
type Workflow struct {
	logger *slog.Logger
}

// New creates a workflow with the default logger.
func New() *Workflow {
	return &Workflow{logger: slog.Default()}
}

// WithLogger sets the logger for the workflow.
func (w *Workflow) WithLogger(l *slog.Logger) *Workflow {
	tmp := *w
	tmp.logger = l
	return &tmp
}

// ResolveEndpoint resolves an endpoint reference into schemas. References
// ending in .json are loaded as snapshot files, everything else is treated
// as a database URL.
func (w *Workflow) ResolveEndpoint(ref string) (*Endpoint, error) {
	if strings.HasSuffix(ref, ".json") {
		schemas, err := dbschema.LoadSnapshot(ref)
		if err != nil {
			return nil, err
		}
		w.logger.Debug("Loaded snapshot endpoint", "path", ref, "schemas", len(schemas))
		return &Endpoint{
			Info: difftypes.Endpoint{
				ID:   uuid.NewString(),
				Name: ref,
				Type: difftypes.EndpointTypeSnapshot,
			},
			Schemas: schemas,
		}, nil
	}

	conn, err := dbschema.Connect(ref)
	if err != nil {
		return nil, err
	}

	schemas, err := conn.Reader().ReadSchema()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read schema from %s: %w", ref, err)
	}

	w.logger.Debug("Resolved connection endpoint", "url", ref, "dialect", conn.Info().Dialect)
	return &Endpoint{
		Info: difftypes.Endpoint{
			ID:   uuid.NewString(),
			Name: ref,
			Type: difftypes.EndpointTypeConnection,
		},
		Schemas: schemas,
		conn:    conn,
	}, nil
}

// Compare resolves both endpoint references and compares their schemas.
// The source endpoint represents the current state, the target endpoint the
// desired state.
func (w *Workflow) Compare(sourceRef, targetRef string, opts *config.CompareOptions) (*difftypes.ComparisonResult, error) {
	source, err := w.ResolveEndpoint(sourceRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source endpoint: %w", err)
	}
	defer source.Close()

	target, err := w.ResolveEndpoint(targetRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target endpoint: %w", err)
	}
	defer target.Close()

	return w.CompareEndpoints(source, target, opts)
}

// CompareEndpoints compares two already resolved endpoints.
func (w *Workflow) CompareEndpoints(source, target *Endpoint, opts *config.CompareOptions) (*difftypes.ComparisonResult, error) {
	result := schemadiff.CompareWithOptions(source.Schemas, target.Schemas, source.Info, target.Info, opts)

	w.logger.Info("Schema comparison complete",
		"source", source.Info.Name,
		"target", target.Info.Name,
		"tablesModified", result.Summary.TablesModified,
		"hasChanges", result.HasChanges())

	return result, nil
}
