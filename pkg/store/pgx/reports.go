package pgx

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/sciradar/pkg/analysis"
	"github.com/OFFIS-RIT/sciradar/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const upsertReport = `
INSERT INTO analysis_reports (dataset, network, report, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (dataset, network) DO UPDATE
SET report = EXCLUDED.report, updated_at = now()`

const selectReport = `SELECT report FROM analysis_reports WHERE dataset = $1 AND network = $2`

// ReportStore keeps analysis reports in the analysis_reports table.
type ReportStore struct {
	conn pgxIConn
}

func NewReportStore(conn pgxIConn) *ReportStore {
	return &ReportStore{conn: conn}
}

func (s *ReportStore) SaveReport(ctx context.Context, dataset string, network string, result analysis.Result) error {
	var buf bytes.Buffer
	if err := analysis.WriteReport(&buf, result); err != nil {
		return err
	}
	if _, err := s.conn.Exec(ctx, upsertReport, dataset, network, buf.String()); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *ReportStore) GetReport(ctx context.Context, dataset string, network string) (analysis.Result, error) {
	var data []byte
	err := s.conn.QueryRow(ctx, selectReport, dataset, network).Scan(&data)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return analysis.ReadReport(bytes.NewReader(data))
}
