package arp

import (
	"sort"

	"github.com/wpkg/core/manifest"
)

// Submission is the caller-supplied half of an accumulation step: the
// installer hash identifying the InstallerMetadataMap slot, the
// submission round this hash belongs to, the scope the install ran
// under, and everything observed for it (§4.4 "Accumulation rules").
// SubmissionIdentifier is independent of InstallerHash — the same
// submission round can cover several installer hashes (e.g. per-
// architecture variants), and a later round reusing an old hash is
// still a new submission if its identifier doesn't match.
type Submission struct {
	InstallerHash          string
	SubmissionIdentifier   string
	Scope                  manifest.Scope
	ProductVersion         string
	AppsAndFeaturesEntries []AppsAndFeaturesEntry
	InstallationFiles      *InstallationFiles
	StartupLinks           []StartupLink
	Icons                  []Icon
}

// Accumulate folds one Submission into md, implementing §4.4's
// accumulation rules:
//   - no entry for InstallerHash, and SubmissionIdentifier matches some
//     existing entry's identifier: add a new InstallerMetadataMap entry
//     alongside the others (e.g. a sibling architecture variant).
//   - no entry for InstallerHash, and SubmissionIdentifier matches
//     nothing on file: this is a new submission round — archive every
//     existing entry into HistoricalMetadataList, reset the map, and
//     insert only the new entry.
//   - an entry already exists for InstallerHash: resubmission replaces
//     it, archiving the superseded entry first if it actually differs
//     (content or SubmissionIdentifier).
//   - ProductVersionMin/Max expand to cover the submission's version.
func Accumulate(md *ProductMetadata, sub Submission) {
	if md.InstallerMetadataMap == nil {
		md.InstallerMetadataMap = map[string]InstallerMetadata{}
	}

	prevMin, prevMax := md.ProductVersionMin, md.ProductVersionMax
	expandVersionRange(md, sub.ProductVersion)

	existing, existed := md.InstallerMetadataMap[sub.InstallerHash]

	newEntry := InstallerMetadata{
		SubmissionIdentifier:   sub.SubmissionIdentifier,
		Scope:                  sub.Scope,
		AppsAndFeaturesEntries: dedupAppsAndFeatures(sub.AppsAndFeaturesEntries),
		InstallationFiles:      sub.InstallationFiles,
		StartupLinks:           dedupStartupLinks(sub.StartupLinks),
		Icons:                  sub.Icons,
	}

	switch {
	case !existed && len(md.InstallerMetadataMap) > 0 && !md.anyEntryHasIdentifier(sub.SubmissionIdentifier):
		// A genuinely new submission round: every prior entry is
		// archived under the version range the product carried before
		// this submission, not the incoming version (§4.4).
		for _, e := range md.InstallerMetadataMap {
			archiveRange(md, prevMin, prevMax, e)
		}
		md.InstallerMetadataMap = map[string]InstallerMetadata{sub.InstallerHash: newEntry}

	case existed && !sameInstallerMetadata(existing, newEntry):
		archiveRange(md, sub.ProductVersion, sub.ProductVersion, existing)
		md.InstallerMetadataMap[sub.InstallerHash] = newEntry

	default:
		md.InstallerMetadataMap[sub.InstallerHash] = newEntry
	}
}

func expandVersionRange(md *ProductMetadata, v string) {
	if v == "" {
		return
	}
	if md.ProductVersionMin == "" || v < md.ProductVersionMin {
		md.ProductVersionMin = v
	}
	if md.ProductVersionMax == "" || v > md.ProductVersionMax {
		md.ProductVersionMax = v
	}
}

// dedupAppsAndFeatures removes entries that are entirely empty and
// collapses exact duplicates, preserving first-seen order. Rows that
// differ in any field are kept whole; no fields are elided.
func dedupAppsAndFeatures(entries []AppsAndFeaturesEntry) []AppsAndFeaturesEntry {
	seen := map[AppsAndFeaturesEntry]bool{}
	var out []AppsAndFeaturesEntry
	for _, e := range entries {
		if e.empty() || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func dedupStartupLinks(links []StartupLink) []StartupLink {
	seen := map[string]bool{}
	var out []StartupLink
	for _, l := range links {
		if seen[l.RelativeFilePath] {
			continue
		}
		seen[l.RelativeFilePath] = true
		out = append(out, l)
	}
	return out
}

func sameInstallerMetadata(a, b InstallerMetadata) bool {
	if a.SubmissionIdentifier != b.SubmissionIdentifier || a.Scope != b.Scope || len(a.AppsAndFeaturesEntries) != len(b.AppsAndFeaturesEntries) {
		return false
	}
	for i := range a.AppsAndFeaturesEntries {
		if a.AppsAndFeaturesEntries[i] != b.AppsAndFeaturesEntries[i] {
			return false
		}
	}
	return true
}

// archiveRange appends the superseded InstallerMetadata to
// HistoricalMetadataList under [min, max], merging into an existing
// range entry whose Names/ProductCodes already match rather than
// creating a duplicate (§4.4).
func archiveRange(md *ProductMetadata, min, max string, superseded InstallerMetadata) {
	names, codes, publishers := fingerprintOf(superseded)

	for i := range md.HistoricalMetadataList {
		h := &md.HistoricalMetadataList[i]
		if sameSlices(h.Names, names) && sameSlices(h.ProductCodes, codes) {
			h.ProductVersionMax = maxVersionString(h.ProductVersionMax, max)
			if h.ProductVersionMin == "" || min < h.ProductVersionMin {
				h.ProductVersionMin = min
			}
			return
		}
	}

	md.HistoricalMetadataList = append(md.HistoricalMetadataList, HistoricalMetadata{
		ProductVersionMin: min,
		ProductVersionMax: max,
		Names:             names,
		ProductCodes:      codes,
		Publishers:        publishers,
	})
}

func fingerprintOf(m InstallerMetadata) (names, codes, publishers []string) {
	nameSet, codeSet, pubSet := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, e := range m.AppsAndFeaturesEntries {
		if e.DisplayName != "" {
			nameSet[e.DisplayName] = true
		}
		if e.ProductCode != "" {
			codeSet[e.ProductCode] = true
		}
		if e.Publisher != "" {
			pubSet[e.Publisher] = true
		}
	}
	names = sortedKeys(nameSet)
	codes = sortedKeys(codeSet)
	publishers = sortedKeys(pubSet)
	return
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func maxVersionString(a, b string) string {
	if a == "" || b > a {
		return b
	}
	return a
}
