package store

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/sciradar/pkg/analysis"
)

// ErrNotFound is returned by stores when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore persists opaque artifacts (graph snapshots, analysis reports)
// under flat string keys. Keys may contain spaces and dashes but no path
// separators.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// ReportStore persists the analysis report of one dataset and network type.
type ReportStore interface {
	SaveReport(ctx context.Context, dataset string, network string, result analysis.Result) error
	GetReport(ctx context.Context, dataset string, network string) (analysis.Result, error)
}
