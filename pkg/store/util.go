package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/sciradar/pkg/analysis"
)

// ReportKey names the report artifact of a dataset and network type.
func ReportKey(dataset, network string) string {
	return fmt.Sprintf("%s_%s_analysis", dataset, network)
}

// ValidKey reports whether key can be used with every BlobStore backend.
func ValidKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && key != "." && key != ".."
}

// BlobReportStore keeps reports as JSON blobs in a BlobStore.
type BlobReportStore struct {
	blobs BlobStore
}

func NewBlobReportStore(blobs BlobStore) *BlobReportStore {
	return &BlobReportStore{blobs: blobs}
}

func (s *BlobReportStore) SaveReport(ctx context.Context, dataset string, network string, result analysis.Result) error {
	var buf bytes.Buffer
	if err := analysis.WriteReport(&buf, result); err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, ReportKey(dataset, network), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (s *BlobReportStore) GetReport(ctx context.Context, dataset string, network string) (analysis.Result, error) {
	data, err := s.blobs.Get(ctx, ReportKey(dataset, network))
	if err != nil {
		return nil, err
	}
	return analysis.ReadReport(bytes.NewReader(data))
}

// MultiReportStore saves to every store and reads from the first one that
// has the report.
type MultiReportStore []ReportStore

func (m MultiReportStore) SaveReport(ctx context.Context, dataset string, network string, result analysis.Result) error {
	for _, s := range m {
		if err := s.SaveReport(ctx, dataset, network, result); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiReportStore) GetReport(ctx context.Context, dataset string, network string) (analysis.Result, error) {
	for _, s := range m {
		res, err := s.GetReport(ctx, dataset, network)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
