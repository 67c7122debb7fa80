package source

import "strings"

// StaticEntry is one package version a StaticSource serves.
type StaticEntry struct {
	Id                string
	Name              string
	Version           string
	Publisher         string
	PackageFamilyName string
	ProductCode       string
	UpgradeCode       string
}

// StaticSource is a fixed, in-memory Source implementation used for
// tests and for the "Installed" view over a known snapshot. It matches
// directly against its entries rather than delegating to an external
// index. Only Id and Name are matched as such: a filter on any other
// PackageMatchField is compared against the entry's Id, and MatchFuzzy
// never matches.
type StaticSource struct {
	details Details
	entries []StaticEntry
}

// NewStaticSource builds a StaticSource identified by identifier,
// serving entries.
func NewStaticSource(identifier string, entries []StaticEntry) *StaticSource {
	return &StaticSource{
		details: Details{Name: identifier, Identifier: identifier, Type: "static", Origin: OriginPredefined},
		entries: entries,
	}
}

func (s *StaticSource) Details() Details    { return s.details }
func (s *StaticSource) Identifier() string  { return s.details.Identifier }
func (s *StaticSource) IsComposite() bool   { return false }

// VersionsOf returns every version string this source holds for
// packageIdentifier, satisfying manifest.DependencySource for dependency
// shape validation (§4.1 step 4).
func (s *StaticSource) VersionsOf(packageIdentifier string) []string {
	var out []string
	for _, e := range s.entries {
		if e.Id == packageIdentifier {
			out = append(out, e.Version)
		}
	}
	return out
}

// Search implements the Source interface's matching contract for the
// fixed entry set.
func (s *StaticSource) Search(req SearchRequest) (SearchResult, error) {
	var all []SearchResultEntry
	order := 0

	for _, e := range s.entries {
		filters := req.Filters
		if req.Query != nil {
			filters = append(filters, MatchFilter{Field: FieldId, MatchType: req.Query.MatchType, Value: req.Query.Value})
		}
		if len(filters) == 0 && !req.IsForEverything() {
			continue
		}

		for _, f := range filters {
			if matched, mf := matchEntry(e, f); matched {
				all = append(all, SearchResultEntry{
					Package:     toPackage(e, s.details.Identifier),
					MatchFilter: mf,
					rank:        matchRank(mf.Field, mf.MatchType),
					sourceOrder: order,
				})
				order++
			}
		}
		if req.IsForEverything() {
			all = append(all, SearchResultEntry{
				Package:     toPackage(e, s.details.Identifier),
				MatchFilter: MatchFilter{Field: FieldId, MatchType: MatchExact, Value: e.Id},
				rank:        matchRank(FieldId, MatchExact),
				sourceOrder: order,
			})
			order++
		}
	}

	return orderAndTruncate(all, req.MaximumResults), nil
}

func toPackage(e StaticEntry, sourceID string) Package {
	return Package{
		Id:                e.Id,
		SourceID:          sourceID,
		Versions:          []PackageVersionKey{{Version: e.Version, SourceID: sourceID}},
		PackageFamilyName: e.PackageFamilyName,
		ProductCode:       e.ProductCode,
		UpgradeCode:       e.UpgradeCode,
	}
}

func matchEntry(e StaticEntry, f MatchFilter) (bool, MatchFilter) {
	var field string
	switch f.Field {
	case FieldId:
		field = e.Id
	case FieldName:
		field = e.Name
	default:
		field = e.Id
	}

	switch f.MatchType {
	case MatchExact:
		return field == f.Value, f
	case MatchCaseInsensitive:
		return strings.EqualFold(field, f.Value), f
	case MatchStartsWith:
		return strings.HasPrefix(strings.ToLower(field), strings.ToLower(f.Value)), f
	case MatchSubstring:
		return strings.Contains(strings.ToLower(field), strings.ToLower(f.Value)), f
	case MatchWildcard:
		return wildcardMatch(field, f.Value), f
	default:
		return false, f
	}
}

func wildcardMatch(value, pattern string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return value == pattern
	}
	pos := 0
	for i, p := range parts {
		if p == "" {
			continue
		}
		idx := strings.Index(value[pos:], p)
		if idx == -1 {
			return false
		}
		if i == 0 && idx != 0 {
			return false
		}
		pos += idx + len(p)
	}
	if last := parts[len(parts)-1]; last != "" {
		return strings.HasSuffix(value, last)
	}
	return true
}
