package source

import "testing"

// TestAggregatedSearchOrdering reproduces scenario 7 from §8: two
// Available sources each return three matches at ranks {Exact/Id,
// Exact/Name, CaseInsensitive/Id} for the same package identity.
// Fusion only ever correlates an Installed entry with Available
// entries (§4.2) — two Available sources carrying the same package
// never fuse with each other, so all six matches stay distinct: without
// MaximumResults the six interleave by rank then source-insertion
// order; with MaximumResults=3 only the first three come back and
// Truncated is true.
func TestAggregatedSearchOrdering(t *testing.T) {
	mkSource := func(id string) *StaticSource {
		return NewStaticSource(id, []StaticEntry{
			{Id: "widget", Name: "Widget"},
		})
	}

	src1 := mkSource("src1")
	src2 := mkSource("src2")

	composite := &CompositeSource{Available: []Source{src1, src2}}

	req := SearchRequest{
		Filters: []MatchFilter{
			{Field: FieldId, MatchType: MatchExact, Value: "widget"},
			{Field: FieldName, MatchType: MatchExact, Value: "Widget"},
			{Field: FieldId, MatchType: MatchCaseInsensitive, Value: "WIDGET"},
		},
	}

	result, err := composite.Search(req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(result.Matches) != 6 {
		t.Fatalf("expected 6 matches, got %d: %+v", len(result.Matches), result.Matches)
	}
	if result.Truncated {
		t.Errorf("expected Truncated=false without MaximumResults")
	}
	for _, m := range result.Matches {
		if m.Composite != nil {
			t.Errorf("Available+Available matches must not fuse, got Composite %+v", m.Composite)
		}
	}
	// Exact/Id ranks ahead of Exact/Name, which ranks ahead of
	// CaseInsensitive/Id; ties within a rank keep source-insertion order.
	wantRanks := []int{
		matchRank(FieldId, MatchExact), matchRank(FieldId, MatchExact),
		matchRank(FieldName, MatchExact), matchRank(FieldName, MatchExact),
		matchRank(FieldId, MatchCaseInsensitive), matchRank(FieldId, MatchCaseInsensitive),
	}
	for i, want := range wantRanks {
		if got := matchRank(result.Matches[i].MatchFilter.Field, result.Matches[i].MatchFilter.MatchType); got != want {
			t.Errorf("match %d rank = %d, want %d", i, got, want)
		}
	}

	req.MaximumResults = 3
	truncResult, err := composite.Search(req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(truncResult.Matches) != 3 {
		t.Errorf("expected 3 matches with MaximumResults=3, got %d", len(truncResult.Matches))
	}
	if !truncResult.Truncated {
		t.Errorf("expected Truncated=true with MaximumResults=3")
	}
}

// TestCompositeFusesInstalledWithAvailable reproduces §4.2's correlation
// rule on the other axis: an Installed entry fuses with a correlating
// Available entry (here by ProductCode, not Id), producing a single
// ranked result whose Composite carries both views.
func TestCompositeFusesInstalledWithAvailable(t *testing.T) {
	installed := NewStaticSource("installed", []StaticEntry{
		{Id: "Contoso.WidgetPro", Name: "Widget Pro", ProductCode: "{SAME-CODE}"},
	})
	available := NewStaticSource("winget", []StaticEntry{
		{Id: "Contoso.WidgetPro.Store", Name: "Widget Pro", ProductCode: "{same-code}"},
	})

	composite := &CompositeSource{Installed: installed, Available: []Source{available}}

	// An empty request matches everything (IsForEverything): the two
	// sources' entries correlate by ProductCode despite their Ids
	// differing, which is what this test exercises.
	result, err := composite.Search(SearchRequest{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected fused single match, got %d: %+v", len(result.Matches), result.Matches)
	}
	m := result.Matches[0]
	if m.Composite == nil {
		t.Fatalf("expected Composite to be set")
	}
	if m.Composite.Installed == nil || m.Composite.Installed.Id != "Contoso.WidgetPro" {
		t.Errorf("Composite.Installed = %+v", m.Composite.Installed)
	}
	if len(m.Composite.Available) != 1 || m.Composite.Available[0].Id != "Contoso.WidgetPro.Store" {
		t.Errorf("Composite.Available = %+v", m.Composite.Available)
	}
}

func TestAggregatedSearchOrderingDistinctIds(t *testing.T) {
	src1 := NewStaticSource("src1", []StaticEntry{{Id: "alpha"}, {Id: "Alphabet"}})
	src2 := NewStaticSource("src2", []StaticEntry{{Id: "beta"}, {Id: "Alphabet"}})

	composite := &CompositeSource{Available: []Source{src1, src2}}

	req := SearchRequest{
		Filters: []MatchFilter{
			{Field: FieldId, MatchType: MatchExact, Value: "alpha"},
			{Field: FieldId, MatchType: MatchCaseInsensitive, Value: "alphabet"},
		},
	}

	result, err := composite.Search(req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(result.Matches) < 2 {
		t.Fatalf("expected at least 2 matches, got %d: %+v", len(result.Matches), result.Matches)
	}
	// Exact/Id ("alpha") must rank ahead of CaseInsensitive/Id ("Alphabet").
	if result.Matches[0].Package.Id != "alpha" {
		t.Errorf("expected Exact match to rank first, got %+v", result.Matches[0])
	}
}

func TestSearchTruncation(t *testing.T) {
	src := NewStaticSource("src1", []StaticEntry{{Id: "a"}, {Id: "b"}, {Id: "c"}, {Id: "d"}})
	req := SearchRequest{MaximumResults: 2}
	result, err := src.Search(req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.Truncated {
		t.Errorf("expected Truncated=true")
	}
	if len(result.Matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(result.Matches))
	}
}

func TestIsForEverything(t *testing.T) {
	var req SearchRequest
	if !req.IsForEverything() {
		t.Errorf("zero-value SearchRequest should be IsForEverything")
	}
	req.Filters = []MatchFilter{{Field: FieldId, MatchType: MatchExact, Value: "x"}}
	if req.IsForEverything() {
		t.Errorf("request with filters should not be IsForEverything")
	}
}
