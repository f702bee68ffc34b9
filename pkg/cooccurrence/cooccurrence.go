package cooccurrence

import (
	"context"
	"runtime"
	"slices"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Options configures a co-occurrence computation.
//
// Workers bounds the number of goroutines computing pair rows; values <= 0
// fall back to GOMAXPROCS. TrackDates sets each edge's Date to the date of
// the earliest record (lowest index) the pair occurs in, which requires the
// records to be in chronological order.
type Options struct {
	Workers    int
	TrackDates bool
}

// posting is the ascending list of record indices a value occurs in.
type posting []int

// Index maps every membership value to the records containing it.
type Index struct {
	values   []string
	postings []posting
}

// BuildIndex creates the inverted index of field over records. Values are
// deduplicated per record and sorted lexicographically.
func BuildIndex(records []common.Publication, field common.Field) *Index {
	byValue := make(map[string]posting)
	for i, record := range records {
		for _, v := range field.Values(record) {
			p := byValue[v]
			// records are visited in index order, so a repeat within the
			// same record can only be the last element
			if len(p) > 0 && p[len(p)-1] == i {
				continue
			}
			byValue[v] = append(p, i)
		}
	}

	values := make([]string, 0, len(byValue))
	for v := range byValue {
		values = append(values, v)
	}
	slices.Sort(values)

	postings := make([]posting, len(values))
	for i, v := range values {
		postings[i] = byValue[v]
	}

	return &Index{values: values, postings: postings}
}

// Len returns the number of distinct values.
func (x *Index) Len() int {
	return len(x.values)
}

// Compute returns one edge for every unordered pair of values of field that
// co-occur in at least one record. Each pair is produced exactly once, so
// the result is a set regardless of worker scheduling, and it is ordered by
// (A, B).
func Compute(
	ctx context.Context,
	records []common.Publication,
	field common.Field,
	opts Options,
) ([]common.CoOccurrenceEdge, error) {
	index := BuildIndex(records, field)
	n := index.Len()
	if n < 2 {
		return nil, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger.Debug("[Cooccurrence] Computing pairs", "field", field, "records", len(records), "values", n, "workers", workers)

	// every row owns its slot, so workers never share a slice
	rows := make([][]common.CoOccurrenceEdge, n)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n-1; i++ {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				rows[i] = computeRow(i, index, records, opts.TrackDates)
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, row := range rows {
		total += len(row)
	}
	edges := make([]common.CoOccurrenceEdge, 0, total)
	for _, row := range rows {
		edges = append(edges, row...)
	}

	logger.Debug("[Cooccurrence] Pairs computed", "field", field, "edges", len(edges))

	return edges, nil
}

func computeRow(i int, index *Index, records []common.Publication, trackDates bool) []common.CoOccurrenceEdge {
	var row []common.CoOccurrenceEdge
	a := index.postings[i]
	for j := i + 1; j < len(index.values); j++ {
		weight, first := intersect(a, index.postings[j])
		if weight == 0 {
			continue
		}
		edge := common.CoOccurrenceEdge{
			A:      index.values[i],
			B:      index.values[j],
			Weight: weight,
		}
		if trackDates {
			edge.Date = records[first].Date
		}
		row = append(row, edge)
	}
	return row
}

// intersect returns the size of the intersection of two ascending postings
// and its smallest element (-1 when empty).
func intersect(a, b posting) (int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, -1
	}
	if a[len(a)-1] < b[0] || b[len(b)-1] < a[0] {
		return 0, -1
	}

	count, first := 0, -1
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			if count == 0 {
				first = a[i]
			}
			count++
			i++
			j++
		}
	}
	return count, first
}
