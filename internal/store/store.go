// Package store archives reconciliation runs: the audit report and the
// published parcel rows. The pipeline never reads from it.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-cli/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the run archive.
type Store interface {
	// SaveRun inserts a run, assigning ID and CreatedAt when unset.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// SavePublishedParcels replaces the archived parcel rows of a run.
	SavePublishedParcels(ctx context.Context, runID string, parcels []model.Parcel) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open returns the Store for driver, or nil for DriverNone.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverNone:
		return nil, nil
	case DriverSQLite, "":
		if dsn == "" {
			return nil, eris.New("store: sqlite requires a database path")
		}
		return NewSQLite(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, eris.New("store: postgres requires a database_url")
		}
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func prepareRun(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.StatusFor(run.Report)
	}
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
