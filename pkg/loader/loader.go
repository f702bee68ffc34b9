package loader

import (
	"context"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/sciradar/internal/util"
	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/window"
)

// PublicationLoader supplies the records and reference descriptors of a
// dataset. Implementations may read from files, a database, or a remote
// harvester.
type PublicationLoader interface {
	// LoadPublications returns the records issued inside r, ordered by date.
	LoadPublications(ctx context.Context, r window.Range) ([]common.Publication, error)
	// LoadDescriptors aggregates the references cited by records issued
	// inside r, keyed by normalized reference id.
	LoadDescriptors(ctx context.Context, r window.Range) (map[string]common.Descriptor, error)
}

// Reference is a cited work as attached to a harvested record.
type Reference struct {
	ID          string   `json:"id"`
	Annotations []string `json:"annotations,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Record is a harvested publication before normalization.
type Record struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Title       string      `json:"title,omitempty"`
	Authors     []string    `json:"authors,omitempty"`
	Annotations []string    `json:"annotations,omitempty"`
	References  []Reference `json:"references,omitempty"`
}

// NormalizeAuthor turns "Jane Doe-Smith" into "JANE_DOE_SMITH".
func NormalizeAuthor(name string) string {
	fields := strings.Fields(util.SanitizePostgresText(name))
	upper := strings.ToUpper(strings.Join(fields, " "))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(upper)
}

// NormalizeTerm upper-cases and trims an annotation, keyword or reference id.
func NormalizeTerm(term string) string {
	return strings.ToUpper(strings.TrimSpace(util.SanitizePostgresText(term)))
}

// normalizeAll applies fn to values, dropping empty results and duplicates
// while keeping first-seen order.
func normalizeAll(values []string, fn func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := fn(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Publication converts the record into its normalized form.
func (r Record) Publication() common.Publication {
	refs := make([]string, 0, len(r.References))
	for _, ref := range r.References {
		refs = append(refs, ref.ID)
	}
	return common.Publication{
		ID:          r.ID,
		Date:        r.Date,
		Title:       util.SanitizePostgresText(r.Title),
		Authors:     normalizeAll(r.Authors, NormalizeAuthor),
		Annotations: normalizeAll(r.Annotations, NormalizeTerm),
		References:  normalizeAll(refs, NormalizeTerm),
	}
}

// AggregateDescriptors folds the references of records into per-reference
// descriptors. citedByCount counts citing records, not citations.
func AggregateDescriptors(records []Record) map[string]common.Descriptor {
	out := make(map[string]common.Descriptor)
	for _, rec := range records {
		cited := make(map[string]struct{})
		for _, ref := range rec.References {
			id := NormalizeTerm(ref.ID)
			if id == "" {
				continue
			}
			d := out[id]
			d.Annotations = append(d.Annotations, ref.Annotations...)
			d.Keywords = append(d.Keywords, ref.Keywords...)
			if _, ok := cited[id]; !ok {
				cited[id] = struct{}{}
				d.CitedByCount++
			}
			out[id] = d
		}
	}
	for id, d := range out {
		d.Annotations = sortedTerms(d.Annotations)
		d.Keywords = sortedTerms(d.Keywords)
		out[id] = d
	}
	return out
}

func sortedTerms(values []string) []string {
	out := normalizeAll(values, NormalizeTerm)
	if out == nil {
		return []string{}
	}
	slices.Sort(out)
	return out
}

// SelectRange returns the records dated inside r, stably sorted by date.
// Records whose date cannot be parsed are returned separately.
func SelectRange(records []Record, r window.Range) (selected []Record, undated []Record) {
	type dated struct {
		rec  Record
		unix int64
	}
	var in []dated
	for _, rec := range records {
		t, err := common.ParseDate(rec.Date)
		if err != nil {
			undated = append(undated, rec)
			continue
		}
		if r.Contains(t) {
			in = append(in, dated{rec: rec, unix: t.Unix()})
		}
	}
	slices.SortStableFunc(in, func(a, b dated) int {
		switch {
		case a.unix < b.unix:
			return -1
		case a.unix > b.unix:
			return 1
		}
		return 0
	})
	selected = make([]Record, len(in))
	for i, d := range in {
		selected[i] = d.rec
	}
	return selected, undated
}

// Publications normalizes every record.
func Publications(records []Record) []common.Publication {
	out := make([]common.Publication, len(records))
	for i, rec := range records {
		out[i] = rec.Publication()
	}
	return out
}
