package common

import (
	"fmt"
	"time"
)

// Publication is a bibliographic record as supplied by a harvester or
// annotator. Membership lists (authors, annotations, references) are
// normalized upstream and treated as opaque comparable strings.
//
// Date is the ISO-8601 issue date, usually "2006-01-02T15:04:05".
type Publication struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Title       string   `json:"title,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	References  []string `json:"references,omitempty"`
}

// CoOccurrenceEdge is an undirected weighted link between two membership
// values that appear together in at least one record. A is always
// lexicographically smaller than B.
//
// Date is set only when the edge was computed with date tracking and holds
// the date of the earliest record the pair occurs in.
type CoOccurrenceEdge struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
	Date   string `json:"date,omitempty"`
}

// Descriptor aggregates what is known about a cited reference across the
// citing records of a window.
type Descriptor struct {
	Annotations  []string `json:"annotations"`
	Keywords     []string `json:"keywords"`
	CitedByCount int      `json:"citedByCount"`
}

// Field selects one membership list of a Publication.
type Field string

const (
	FieldAuthors     Field = "authors"
	FieldAnnotations Field = "annotations"
	FieldReferences  Field = "references"
)

// Values returns the membership list selected by f.
func (f Field) Values(p Publication) []string {
	switch f {
	case FieldAuthors:
		return p.Authors
	case FieldAnnotations:
		return p.Annotations
	case FieldReferences:
		return p.References
	default:
		return nil
	}
}

// NetworkType names one of the co-occurrence networks built per dataset.
type NetworkType string

const (
	NetworkAuthorship   NetworkType = "authorship"
	NetworkCoOccurrence NetworkType = "co_occurrence"
	NetworkCoCitation   NetworkType = "co_citation"
)

// NetworkTypes lists all supported networks in generation order.
var NetworkTypes = []NetworkType{NetworkAuthorship, NetworkCoOccurrence, NetworkCoCitation}

// ParseNetworkType validates s as a NetworkType.
func ParseNetworkType(s string) (NetworkType, error) {
	for _, n := range NetworkTypes {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown network type %q", s)
}

// Field returns the membership list the network is built from.
func (n NetworkType) Field() Field {
	switch n {
	case NetworkAuthorship:
		return FieldAuthors
	case NetworkCoCitation:
		return FieldReferences
	default:
		return FieldAnnotations
	}
}

// TracksDates reports whether vertices of this network carry first-seen dates.
func (n NetworkType) TracksDates() bool {
	return n == NetworkAuthorship
}

// UsesDescriptors reports whether vertices of this network carry reference descriptors.
func (n NetworkType) UsesDescriptors() bool {
	return n == NetworkCoCitation
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ParseDate parses a record date in any of the formats harvesters emit.
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
