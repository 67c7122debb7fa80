package arp

import (
	"github.com/wpkg/core/internal/normalize"
)

// CandidateManifest is the narrow (AppName, AppPublisher) projection a
// ConfidenceAlgorithm compares against ARP entries (§9's design note:
// "expose as a single function of (candidate_manifest, arp_entries) ->
// Option<&arp_entry>").
type CandidateManifest struct {
	AppName      string
	AppPublisher string
}

// ConfidenceAlgorithm is the pluggable correlation strategy (§4.4, §9).
type ConfidenceAlgorithm interface {
	// Match returns the index into entries of the best match, or ok=false
	// if none meets the algorithm's threshold.
	Match(candidate CandidateManifest, entries []Entry) (index int, ok bool)
	// MatchAll returns every entry meeting the threshold, for the
	// "multiple candidates" case (§4.4).
	MatchAll(candidate CandidateManifest, entries []Entry) []int
}

// EmptyMatchConfidenceAlgorithm always abstains; used by tests that want
// to force the "low confidence" path deterministically (§9).
type EmptyMatchConfidenceAlgorithm struct{}

func (EmptyMatchConfidenceAlgorithm) Match(CandidateManifest, []Entry) (int, bool) { return 0, false }
func (EmptyMatchConfidenceAlgorithm) MatchAll(CandidateManifest, []Entry) []int    { return nil }

// EditDistanceMatchConfidenceAlgorithm is the default implementation:
// normalized edit-distance similarity over (name, publisher), requiring
// both to clear threshold (§4.4: "requiring both name and publisher
// similarity"). SPEC_FULL fixes the default threshold at 0.75 on a
// [0,1] normalized-similarity scale (1 = identical), recovered from
// original_source/src/AppInstallerCLITests/Correlation.cpp's
// parameterized cases.
type EditDistanceMatchConfidenceAlgorithm struct {
	Threshold float64
}

// NewEditDistanceMatchConfidenceAlgorithm returns the algorithm with the
// SPEC_FULL default threshold (0.75). Callers that load a
// Configuration should pass cfg.CorrelationThreshold instead.
func NewEditDistanceMatchConfidenceAlgorithm() EditDistanceMatchConfidenceAlgorithm {
	return EditDistanceMatchConfidenceAlgorithm{Threshold: 0.75}
}

func (a EditDistanceMatchConfidenceAlgorithm) similarity(candidate CandidateManifest, e Entry) float64 {
	nameScore := normalizedSimilarity(candidate.AppName, e.DisplayName)
	publisherScore := normalizedSimilarity(candidate.AppPublisher, e.Publisher)
	if nameScore < a.threshold() || publisherScore < a.threshold() {
		return 0
	}
	// Both clear threshold independently; report the lower of the two as
	// the pair's combined confidence.
	if nameScore < publisherScore {
		return nameScore
	}
	return publisherScore
}

func (a EditDistanceMatchConfidenceAlgorithm) threshold() float64 {
	if a.Threshold <= 0 {
		return 0.75
	}
	return a.Threshold
}

func (a EditDistanceMatchConfidenceAlgorithm) Match(candidate CandidateManifest, entries []Entry) (int, bool) {
	bestIdx := -1
	bestScore := 0.0
	for i, e := range entries {
		score := a.similarity(candidate, e)
		if score > 0 && score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, false
	}
	return bestIdx, true
}

func (a EditDistanceMatchConfidenceAlgorithm) MatchAll(candidate CandidateManifest, entries []Entry) []int {
	var out []int
	for i, e := range entries {
		if a.similarity(candidate, e) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// normalizedSimilarity returns 1 - (levenshtein distance / max length)
// on the normalized (trimmed, case-folded) forms of a and b; identical
// strings score 1, completely disjoint strings of length n score
// 1-(n/n) == 0 in the worst case.
func normalizedSimilarity(a, b string) float64 {
	na := string(normalize.Normalize(a))
	nb := string(normalize.Normalize(b))
	if na == "" && nb == "" {
		return 1
	}
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(na, nb)
	score := 1 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// levenshtein computes the classic edit distance with a two-row
// dynamic-programming table.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost
			curr[j] = min3(deletion, insertion, substitution)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// CorrelationResult bundles the three derived sets described in §4.4.
type CorrelationResult struct {
	ChangesToARP   []Entry
	MatchesInARP   []Entry
	Overlap        []Entry
	LowConfidence  bool
	MultipleCandidates bool
}

// Correlate implements §4.4's correlation step given a submitted
// candidate and two snapshots. MSIX installers bypass correlation
// entirely (§4.4): callers pass isMSIX=true to get an empty, synthesized
// result whose Overlap always has exactly the synthesized entry.
func Correlate(candidate CandidateManifest, before, after Snapshot, algo ConfidenceAlgorithm, isMSIX bool, synthesized *Entry) CorrelationResult {
	if isMSIX {
		result := CorrelationResult{}
		if synthesized != nil {
			result.Overlap = []Entry{*synthesized}
		}
		return result
	}

	changes := Diff(before, after)

	var afterEntries []Entry
	for _, e := range after.Entries {
		afterEntries = append(afterEntries, e)
	}
	matchIdxs := algo.MatchAll(candidate, afterEntries)
	var matches []Entry
	for _, i := range matchIdxs {
		matches = append(matches, afterEntries[i])
	}

	overlap := intersectByID(changes, matches)

	result := CorrelationResult{ChangesToARP: changes, MatchesInARP: matches, Overlap: overlap}
	switch len(overlap) {
	case 0:
		result.LowConfidence = true
	case 1:
		// exactly one: the correlated record.
	default:
		result.MultipleCandidates = true
		sortEntriesByID(overlap)
	}
	return result
}

func intersectByID(a, b []Entry) []Entry {
	bIDs := map[string]bool{}
	for _, e := range b {
		bIDs[e.Id] = true
	}
	var out []Entry
	for _, e := range a {
		if bIDs[e.Id] {
			out = append(out, e)
		}
	}
	return out
}

// sortEntriesByID applies the ARPChanges tiebreak rule recovered from
// original_source/ (§4.4 SUPPLEMENTED FEATURES: "selects deterministically
// by ARP registry key name (Id) ascending").
func sortEntriesByID(entries []Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Id < entries[j-1].Id; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// Selected returns the entry chosen for emission from a CorrelationResult
// carrying multiple candidates or exactly one overlap entry (§4.4: "the
// first in deterministic order is selected for emission, all candidates
// preserved").
func (r CorrelationResult) Selected() (Entry, bool) {
	if len(r.Overlap) == 0 {
		return Entry{}, false
	}
	return r.Overlap[0], true
}
