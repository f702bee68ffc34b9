package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/loader"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
	"github.com/OFFIS-RIT/sciradar/pkg/window"

	pgxv5 "github.com/jackc/pgx/v5"
)

const dateLayout = "2006-01-02T15:04:05"

const selectPublications = `
SELECT p.id, p.published_at, p.title, p.authors, p.annotations,
       COALESCE(array_agg(r.reference_id ORDER BY r.position) FILTER (WHERE r.reference_id IS NOT NULL), '{}')
FROM publications p
LEFT JOIN publication_references r ON r.dataset = p.dataset AND r.publication_id = p.id
WHERE p.dataset = $1 AND p.published_at >= $2 AND p.published_at < $3
GROUP BY p.dataset, p.id
ORDER BY p.published_at, p.id`

const selectReferences = `
SELECT r.publication_id, r.reference_id, r.annotations, r.keywords
FROM publication_references r
JOIN publications p ON p.dataset = r.dataset AND p.id = r.publication_id
WHERE r.dataset = $1 AND p.published_at >= $2 AND p.published_at < $3
ORDER BY p.published_at, r.publication_id, r.position`

const upsertPublication = `
INSERT INTO publications (dataset, id, published_at, title, authors, annotations)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (dataset, id) DO UPDATE
SET published_at = EXCLUDED.published_at,
    title = EXCLUDED.title,
    authors = EXCLUDED.authors,
    annotations = EXCLUDED.annotations`

const deleteReferences = `DELETE FROM publication_references WHERE dataset = $1 AND publication_id = $2`

const insertReference = `
INSERT INTO publication_references (dataset, publication_id, reference_id, position, annotations, keywords)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (dataset, publication_id, reference_id) DO NOTHING`

// PublicationStore loads the records of one dataset from PostgreSQL.
type PublicationStore struct {
	conn    pgxIConn
	dataset string
}

func NewPublicationStore(conn pgxIConn, dataset string) *PublicationStore {
	return &PublicationStore{conn: conn, dataset: dataset}
}

func bounds(r window.Range) (time.Time, time.Time) {
	return r.Start.Time(), r.End.Time()
}

func (s *PublicationStore) LoadPublications(ctx context.Context, r window.Range) ([]common.Publication, error) {
	from, to := bounds(r)
	rows, err := s.conn.Query(ctx, selectPublications, s.dataset, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query publications: %w", err)
	}
	defer rows.Close()

	var records []loader.Record
	for rows.Next() {
		var (
			rec         loader.Record
			publishedAt time.Time
			refIDs      []string
		)
		if err := rows.Scan(&rec.ID, &publishedAt, &rec.Title, &rec.Authors, &rec.Annotations, &refIDs); err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		rec.Date = publishedAt.UTC().Format(dateLayout)
		for _, id := range refIDs {
			rec.References = append(rec.References, loader.Reference{ID: id})
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read publications: %w", err)
	}

	logger.Debug("[Store] Loaded publications", "dataset", s.dataset, "window", r.Label(), "count", len(records))
	return loader.Publications(records), nil
}

type referenceRow struct {
	PublicationID string
	Reference     loader.Reference
}

// groupReferences rebuilds per-record reference lists from rows ordered by
// publication.
func groupReferences(rows []referenceRow) []loader.Record {
	var records []loader.Record
	for _, row := range rows {
		if n := len(records); n == 0 || records[n-1].ID != row.PublicationID {
			records = append(records, loader.Record{ID: row.PublicationID})
		}
		last := &records[len(records)-1]
		last.References = append(last.References, row.Reference)
	}
	return records
}

func (s *PublicationStore) LoadDescriptors(ctx context.Context, r window.Range) (map[string]common.Descriptor, error) {
	from, to := bounds(r)
	rows, err := s.conn.Query(ctx, selectReferences, s.dataset, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var refs []referenceRow
	for rows.Next() {
		var row referenceRow
		if err := rows.Scan(&row.PublicationID, &row.Reference.ID, &row.Reference.Annotations, &row.Reference.Keywords); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read references: %w", err)
	}

	return loader.AggregateDescriptors(groupReferences(refs)), nil
}

// SavePublications upserts records in one transaction. Records without a
// parseable date are skipped and counted.
func (s *PublicationStore) SavePublications(ctx context.Context, records []loader.Record) (int, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgxv5.Batch{}
	skipped := 0
	for _, rec := range records {
		publishedAt, err := common.ParseDate(rec.Date)
		if err != nil || rec.ID == "" {
			skipped++
			continue
		}
		batch.Queue(upsertPublication, s.dataset, rec.ID, publishedAt, rec.Title, nonNil(rec.Authors), nonNil(rec.Annotations))
		batch.Queue(deleteReferences, s.dataset, rec.ID)
		for pos, ref := range rec.References {
			if ref.ID == "" {
				continue
			}
			batch.Queue(insertReference, s.dataset, rec.ID, ref.ID, pos, nonNil(ref.Annotations), nonNil(ref.Keywords))
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to store publications: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit publications: %w", err)
	}

	if skipped > 0 {
		logger.Warn("[Store] Skipped records without id or date", "dataset", s.dataset, "count", skipped)
	}
	return len(records) - skipped, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
