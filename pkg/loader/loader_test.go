package loader

import (
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/sciradar/pkg/window"
)

func TestNormalizeAuthor(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Jane Doe", want: "JANE_DOE"},
		{input: "  jean-luc   picard ", want: "JEAN_LUC_PICARD"},
		{input: "Ana\x00 Lima", want: "ANA_LIMA"},
		{input: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeAuthor(tt.input); got != tt.want {
				t.Fatalf("NormalizeAuthor(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRecordPublication(t *testing.T) {
	rec := Record{
		ID:          "P1",
		Date:        "2016-01-10T00:00:00",
		Authors:     []string{"Jane Doe", "jane doe", "John Roe"},
		Annotations: []string{" zika virus", "ZIKA VIRUS", "fever"},
		References:  []Reference{{ID: "pmid1"}, {ID: ""}, {ID: "PMID1"}, {ID: "pmid2"}},
	}
	p := rec.Publication()
	if !reflect.DeepEqual(p.Authors, []string{"JANE_DOE", "JOHN_ROE"}) {
		t.Fatalf("unexpected authors %v", p.Authors)
	}
	if !reflect.DeepEqual(p.Annotations, []string{"ZIKA VIRUS", "FEVER"}) {
		t.Fatalf("unexpected annotations %v", p.Annotations)
	}
	if !reflect.DeepEqual(p.References, []string{"PMID1", "PMID2"}) {
		t.Fatalf("unexpected references %v", p.References)
	}
}

func TestAggregateDescriptors(t *testing.T) {
	records := []Record{
		{ID: "P1", References: []Reference{
			{ID: "r1", Annotations: []string{"fever"}, Keywords: []string{"zika"}},
			{ID: "R1", Keywords: []string{"ZIKA", "mosquito"}},
		}},
		{ID: "P2", References: []Reference{
			{ID: "r1", Annotations: []string{"Fever", "rash"}},
			{ID: "r2"},
		}},
	}
	got := AggregateDescriptors(records)

	r1 := got["R1"]
	if r1.CitedByCount != 2 {
		t.Fatalf("expected R1 cited by 2 records, got %d", r1.CitedByCount)
	}
	if !reflect.DeepEqual(r1.Annotations, []string{"FEVER", "RASH"}) {
		t.Fatalf("unexpected annotations %v", r1.Annotations)
	}
	if !reflect.DeepEqual(r1.Keywords, []string{"MOSQUITO", "ZIKA"}) {
		t.Fatalf("unexpected keywords %v", r1.Keywords)
	}

	r2 := got["R2"]
	if r2.CitedByCount != 1 || len(r2.Annotations) != 0 || r2.Keywords == nil {
		t.Fatalf("unexpected R2 descriptor %+v", r2)
	}
}

func TestSelectRange(t *testing.T) {
	records := []Record{
		{ID: "late", Date: "2016-02-03T00:00:00"},
		{ID: "before", Date: "2015-12-31T23:59:59"},
		{ID: "early", Date: "2016-01-01T00:00:00"},
		{ID: "end", Date: "2016-03-01T00:00:00"},
		{ID: "broken", Date: "yesterday"},
	}
	r := window.Range{Start: window.Month{Year: 2016, Month: 1}, End: window.Month{Year: 2016, Month: 3}}

	selected, undated := SelectRange(records, r)
	var ids []string
	for _, rec := range selected {
		ids = append(ids, rec.ID)
	}
	if !reflect.DeepEqual(ids, []string{"early", "late"}) {
		t.Fatalf("unexpected selection %v", ids)
	}
	if len(undated) != 1 || undated[0].ID != "broken" {
		t.Fatalf("unexpected undated records %v", undated)
	}
}
