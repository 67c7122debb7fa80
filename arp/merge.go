package arp

import (
	"errors"
	"sort"

	"github.com/wpkg/core/manifest"
)

// ErrSubmissionIdentifierMismatch is returned by Merge when the two
// records being merged disagree on which submission owns a given
// installer hash (§4.4 "Merge algorithm": "a submissionIdentifier
// agreement check producing an E_NOT_VALID_STATE-equivalent error").
var ErrSubmissionIdentifierMismatch = errors.New("arp: submission identifier mismatch between merge operands")

// Merge combines b into a (without mutating either), implementing
// §4.4's merge algorithm:
//   - InstallerMetadataMap entries union by key; a key present in both
//     must agree on SubmissionIdentifier or the merge fails.
//   - Scope merges per mergeScope (empty/identical/distinct-sticky-
//     Unknown rules).
//   - InstalledFiles merge by pairwise reduction on RelativeFilePath.
//   - StartupLinks union by RelativeFilePath.
//   - Icons: newest wins, meaning b's icon list replaces a's for a URL
//     already present, while URLs unique to either side are kept.
//   - HistoricalMetadataList entries are deduped by (Names, ProductCodes)
//     range identity, expanding the version range on collision.
//
// Merge is idempotent: Merge(p, p) produces a record equal to p, and
// Merge(p, nil) (no b) returns a copy of p.
func Merge(a, b *ProductMetadata) (*ProductMetadata, error) {
	if a == nil {
		a = NewProductMetadata("1.0")
	}
	out := &ProductMetadata{
		SchemaVersion:        maxSchema(a.SchemaVersion, schemaOf(b)),
		ProductVersionMin:    a.ProductVersionMin,
		ProductVersionMax:    a.ProductVersionMax,
		InstallerMetadataMap: map[string]InstallerMetadata{},
	}
	for k, v := range a.InstallerMetadataMap {
		out.InstallerMetadataMap[k] = v
	}
	out.HistoricalMetadataList = append(out.HistoricalMetadataList, a.HistoricalMetadataList...)

	if b == nil {
		return out, nil
	}

	if b.ProductVersionMin != "" && (out.ProductVersionMin == "" || b.ProductVersionMin < out.ProductVersionMin) {
		out.ProductVersionMin = b.ProductVersionMin
	}
	if b.ProductVersionMax != "" && b.ProductVersionMax > out.ProductVersionMax {
		out.ProductVersionMax = b.ProductVersionMax
	}

	for key, bEntry := range b.InstallerMetadataMap {
		aEntry, existed := out.InstallerMetadataMap[key]
		if !existed {
			out.InstallerMetadataMap[key] = bEntry
			continue
		}
		if aEntry.SubmissionIdentifier != bEntry.SubmissionIdentifier {
			return nil, ErrSubmissionIdentifierMismatch
		}
		merged, err := mergeInstallerMetadata(aEntry, bEntry)
		if err != nil {
			return nil, err
		}
		out.InstallerMetadataMap[key] = merged
	}

	for _, h := range b.HistoricalMetadataList {
		mergeHistoricalEntry(out, h)
	}

	return out, nil
}

func schemaOf(md *ProductMetadata) string {
	if md == nil {
		return ""
	}
	return md.SchemaVersion
}

func maxSchema(a, b string) string {
	if b == "" {
		return a
	}
	if a == "" || b > a {
		return b
	}
	return a
}

func mergeInstallerMetadata(a, b InstallerMetadata) (InstallerMetadata, error) {
	scope, err := mergeScope(a.Scope, b.Scope)
	if err != nil {
		return InstallerMetadata{}, err
	}

	out := InstallerMetadata{
		SubmissionIdentifier:   a.SubmissionIdentifier,
		Scope:                  scope,
		AppsAndFeaturesEntries: dedupAppsAndFeatures(append(append([]AppsAndFeaturesEntry{}, a.AppsAndFeaturesEntries...), b.AppsAndFeaturesEntries...)),
		StartupLinks:           mergeStartupLinks(a.StartupLinks, b.StartupLinks),
		Icons:                  mergeIcons(a.Icons, b.Icons),
	}
	out.InstallationFiles = mergeInstallationFiles(a.InstallationFiles, b.InstallationFiles)
	return out, nil
}

// mergeScope implements §4.4's scope-merge rules: an empty/Unknown
// scope on either side defers to the other; identical scopes pass
// through unchanged; distinct non-empty scopes resolve to Unknown
// ("sticky Unknown" rather than arbitrarily picking a side).
func mergeScope(a, b manifest.Scope) (manifest.Scope, error) {
	if a == manifest.ScopeUnknown {
		return b, nil
	}
	if b == manifest.ScopeUnknown {
		return a, nil
	}
	if a == b {
		return a, nil
	}
	return manifest.ScopeUnknown, nil
}

func mergeStartupLinks(a, b []StartupLink) []StartupLink {
	byPath := map[string]StartupLink{}
	var order []string
	for _, l := range a {
		if _, ok := byPath[l.RelativeFilePath]; !ok {
			order = append(order, l.RelativeFilePath)
		}
		byPath[l.RelativeFilePath] = l
	}
	for _, l := range b {
		if _, ok := byPath[l.RelativeFilePath]; !ok {
			order = append(order, l.RelativeFilePath)
		}
		byPath[l.RelativeFilePath] = l
	}
	out := make([]StartupLink, 0, len(order))
	for _, p := range order {
		out = append(out, byPath[p])
	}
	return out
}

// mergeIcons implements "newest wins": b's entry for a URL replaces a's,
// while URLs unique to either side survive.
func mergeIcons(a, b []Icon) []Icon {
	byURL := map[string]Icon{}
	var order []string
	for _, ic := range a {
		if _, ok := byURL[ic.URL]; !ok {
			order = append(order, ic.URL)
		}
		byURL[ic.URL] = ic
	}
	for _, ic := range b {
		if _, ok := byURL[ic.URL]; !ok {
			order = append(order, ic.URL)
		}
		byURL[ic.URL] = ic
	}
	out := make([]Icon, 0, len(order))
	for _, u := range order {
		out = append(out, byURL[u])
	}
	return out
}

// mergeInstallationFiles applies the InstalledFiles pairwise-reduction
// merge rule (§4.4): files are unioned keyed by RelativeFilePath,
// preferring b's record of a shared path (the more recent submission).
func mergeInstallationFiles(a, b *InstallationFiles) *InstallationFiles {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	byPath := map[string]InstalledFile{}
	var order []string
	for _, f := range a.Files {
		if _, ok := byPath[f.RelativeFilePath]; !ok {
			order = append(order, f.RelativeFilePath)
		}
		byPath[f.RelativeFilePath] = f
	}
	for _, f := range b.Files {
		if _, ok := byPath[f.RelativeFilePath]; !ok {
			order = append(order, f.RelativeFilePath)
		}
		byPath[f.RelativeFilePath] = f
	}
	sort.Strings(order)
	files := make([]InstalledFile, 0, len(order))
	for _, p := range order {
		files = append(files, byPath[p])
	}

	loc := b.DefaultInstallLocation
	if loc == "" {
		loc = a.DefaultInstallLocation
	}
	return &InstallationFiles{Present: true, DefaultInstallLocation: loc, Files: files}
}

func mergeHistoricalEntry(out *ProductMetadata, h HistoricalMetadata) {
	for i := range out.HistoricalMetadataList {
		existing := &out.HistoricalMetadataList[i]
		if sameSlices(existing.Names, h.Names) && sameSlices(existing.ProductCodes, h.ProductCodes) {
			existing.ProductVersionMax = maxVersionString(existing.ProductVersionMax, h.ProductVersionMax)
			if existing.ProductVersionMin == "" || h.ProductVersionMin < existing.ProductVersionMin {
				existing.ProductVersionMin = h.ProductVersionMin
			}
			return
		}
	}
	out.HistoricalMetadataList = append(out.HistoricalMetadataList, h)
}
