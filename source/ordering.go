package source

import (
	"sort"

	"github.com/wpkg/core/internal/version"
)

// versionLess compares two dotted version strings using the shared
// Version total order, falling back to a lexical compare if either
// fails to parse (defensive only; Package.Versions are always populated
// from validated PackageVersion values).
func versionLess(a, b string) bool {
	va, errA := version.Parse(a)
	vb, errB := version.Parse(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

// orderAndTruncate takes a source's already-matched entries (produced
// by the Source implementation) and only applies the global ordering
// and truncation rules from §4.2, shared by both a single Source and
// the composite aggregator.
func orderAndTruncate(entries []SearchResultEntry, maximumResults int) SearchResult {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].rank != entries[j].rank {
			return entries[i].rank < entries[j].rank
		}
		return entries[i].sourceOrder < entries[j].sourceOrder
	})

	truncated := false
	if maximumResults > 0 && len(entries) > maximumResults {
		entries = entries[:maximumResults]
		truncated = true
	}
	return SearchResult{Matches: entries, Truncated: truncated}
}
