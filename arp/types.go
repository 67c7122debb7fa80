// Package arp implements the Add/Remove Programs correlation and
// installer-metadata accumulation engine described in §4.4: snapshotting
// the registry's ARP entries, correlating a submitted Manifest against
// an ARP snapshot delta, and folding submissions into a persisted
// ProductMetadata record via the merge algorithm.
//
// The registry-enumeration shape is grounded on the teacher's
// pkg/pkginfo.go GetInstalledVersion, which walks the Uninstall key
// across HKLM/HKCU and the WOW6432Node 32-bit view; §4.4 generalizes
// that single-value lookup into a full snapshot of every ARP entry.
package arp

import "github.com/wpkg/core/manifest"

// InstallerType mirrors manifest.InstallerType for ARP-observed entries
// (an ARP entry doesn't necessarily correspond to a manifest Installer
// one-to-one, so this is its own small enum rather than an import of
// the manifest type).
type InstallerType string

const (
	InstallerMsi InstallerType = "Msi"
	InstallerExe InstallerType = "Exe"
)

// Entry is one row read from an Uninstall registry key (§4.4).
type Entry struct {
	Id                   string // registry key name
	DisplayName          string
	DisplayVersion       string
	Publisher            string
	Scope                manifest.Scope
	InstallerType        InstallerType
	ProductCode          string
	InstallLocation      string
	UninstallString      string
	QuietUninstallString string
	SystemComponent      bool
}

// ARPEntry pairs an Entry's PackageVersion-shaped projection with an
// isNewlyInstalled marker, synthesized from an Installed-source snapshot
// (§3).
type ARPEntry struct {
	Entry            Entry
	IsNewlyInstalled bool
}

// Snapshot is the full set of ARP entries enumerated at one point in
// time, keyed by Id (§4.4).
type Snapshot struct {
	Entries map[string]Entry
}

// NewSnapshot returns an empty Snapshot ready for population.
func NewSnapshot() Snapshot {
	return Snapshot{Entries: map[string]Entry{}}
}

// Diff returns the entries present in after but not in before, keyed by
// Id (§4.4's changesToARP = after - before).
func Diff(before, after Snapshot) []Entry {
	var out []Entry
	for id, e := range after.Entries {
		if _, existed := before.Entries[id]; !existed {
			out = append(out, e)
		}
	}
	return out
}

// Status is the correlation/session outcome reported in the metadata
// session's JSON output (§4.4, §6).
type Status string

const (
	StatusSuccess      Status = "Success"
	StatusLowConfidence Status = "LowConfidence"
	StatusError        Status = "Error"
)

// AppsAndFeaturesEntry is one ARP-observed row folded into
// InstallerMetadata (§3).
type AppsAndFeaturesEntry struct {
	DisplayName    string
	Publisher      string
	DisplayVersion string
	ProductCode    string
}

// empty reports whether every field is the zero value.
func (e AppsAndFeaturesEntry) empty() bool {
	return e.DisplayName == "" && e.Publisher == "" && e.DisplayVersion == "" && e.ProductCode == ""
}

// InstalledFile mirrors manifest.InstalledFile for the accumulated
// record (§3).
type InstalledFile struct {
	RelativeFilePath    string
	SHA256              string
	FileType            string
	InvocationParameter string
	DisplayName         string
}

// InstallationFiles is the optional installed-files block attached at
// schema 1.2+ (§4.4).
type InstallationFiles struct {
	Present                bool
	DefaultInstallLocation string
	Files                  []InstalledFile
}

// StartupLink is one entry of the optional StartupLinks list (§3).
type StartupLink struct {
	RelativeFilePath    string
	SHA256              string
	InvocationParameter string
}

// Icon is one entry of the Icons list, newest-wins on merge (§4.4).
type Icon struct {
	URL      string
	FileType string
	SHA256   string
}

// InstallerMetadata is one installer hash's accumulated record (§3).
type InstallerMetadata struct {
	SubmissionIdentifier   string
	Scope                  manifest.Scope
	AppsAndFeaturesEntries []AppsAndFeaturesEntry
	InstallationFiles      *InstallationFiles
	StartupLinks           []StartupLink
	Icons                  []Icon
}

// HistoricalMetadata is one archived entry of a ProductMetadata's
// HistoricalMetadataList (§3).
type HistoricalMetadata struct {
	ProductVersionMin string
	ProductVersionMax string
	Names             []string
	ProductCodes      []string
	Publishers        []string
}

// ProductMetadata is the installer-metadata accumulator persisted across
// submissions (§3).
type ProductMetadata struct {
	SchemaVersion         string
	ProductVersionMin     string
	ProductVersionMax     string
	InstallerMetadataMap  map[string]InstallerMetadata
	HistoricalMetadataList []HistoricalMetadata
}

// anyEntryHasIdentifier reports whether some InstallerMetadataMap entry
// already carries submissionIdentifier (§4.4: "submissionIdentifier
// matches any existing entry's identifier").
func (md *ProductMetadata) anyEntryHasIdentifier(submissionIdentifier string) bool {
	for _, e := range md.InstallerMetadataMap {
		if e.SubmissionIdentifier == submissionIdentifier {
			return true
		}
	}
	return false
}

// NewProductMetadata returns an empty accumulator at the given schema
// version.
func NewProductMetadata(schemaVersion string) *ProductMetadata {
	return &ProductMetadata{SchemaVersion: schemaVersion, InstallerMetadataMap: map[string]InstallerMetadata{}}
}
