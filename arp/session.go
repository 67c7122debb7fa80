package arp

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wpkg/core/manifest"
)

// NewSubmissionIdentifier returns a fresh submission identifier for a
// caller that doesn't already have one to tag its submission round
// with (the InstallerMetadataMap itself is keyed by installer hash).
func NewSubmissionIdentifier() string {
	return uuid.NewString()
}

// SessionInput is the metadata-collection input document (§6 JSON
// schema for "installer-metadata-collection input"): what the caller
// submitted plus the before/after ARP snapshots it observed around the
// install.
type SessionInput struct {
	PackageIdentifier    string            `json:"PackageIdentifier"`
	PackageVersion       string            `json:"PackageVersion"`
	InstallerHash        string            `json:"InstallerSHA256"`
	SubmissionIdentifier string            `json:"SubmissionIdentifier"`
	Scope                manifest.Scope    `json:"Scope,omitempty"`
	IsMSIX               bool              `json:"IsMSIX,omitempty"`
	Candidate            CandidateManifest `json:"Candidate"`
	SnapshotBefore       Snapshot          `json:"-"`
	SnapshotAfter        Snapshot          `json:"-"`
}

// snapshotJSON is Snapshot's wire shape: a flat array rather than the
// in-memory map, for stable JSON ordering.
type snapshotJSON struct {
	Entries []Entry `json:"entries"`
}

// MarshalJSON renders a Snapshot as a sorted entry array.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	entries := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, e)
	}
	sortEntriesByID(entries)
	return json.Marshal(snapshotJSON{Entries: entries})
}

// UnmarshalJSON restores a Snapshot from its sorted entry array.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wire snapshotJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.Entries = map[string]Entry{}
	for _, e := range wire.Entries {
		s.Entries[e.Id] = e
	}
	return nil
}

// SessionOutput is the metadata-collection session's JSON output (§4.4
// "Metadata session output", §6): the correlation outcome plus, on
// success, the ProductMetadata as it stands after folding this
// submission in.
type SessionOutput struct {
	Status          Status           `json:"Status"`
	CorrelatedEntry *Entry           `json:"CorrelatedEntry,omitempty"`
	Candidates      []Entry          `json:"Candidates,omitempty"`
	ProductMetadata *ProductMetadata `json:"ProductMetadata,omitempty"`
	Message         string           `json:"Message,omitempty"`
}

// ProcessSession runs one full metadata-collection session: correlate
// the submission against the observed ARP delta, and on success fold it
// into existing via Accumulate. A low-confidence or multiple-candidate
// correlation returns StatusLowConfidence without folding anything and
// without ProductMetadata. existing may be nil for a brand new product.
func ProcessSession(input SessionInput, algo ConfidenceAlgorithm, existing *ProductMetadata, observed Submission) SessionOutput {
	if algo == nil {
		algo = NewEditDistanceMatchConfidenceAlgorithm()
	}
	if observed.SubmissionIdentifier == "" {
		observed.SubmissionIdentifier = input.SubmissionIdentifier
	}

	var synthesized *Entry
	if input.IsMSIX {
		synthesized = &Entry{
			Id:             input.PackageIdentifier,
			DisplayName:    input.Candidate.AppName,
			DisplayVersion: input.PackageVersion,
			Publisher:      input.Candidate.AppPublisher,
			Scope:          input.Scope,
		}
	}

	result := Correlate(input.Candidate, input.SnapshotBefore, input.SnapshotAfter, algo, input.IsMSIX, synthesized)

	switch {
	case result.LowConfidence:
		return SessionOutput{Status: StatusLowConfidence, Message: "no ARP entry correlated with confidence"}
	case result.MultipleCandidates:
		return SessionOutput{Status: StatusLowConfidence, Candidates: result.Overlap, Message: "multiple ARP candidates matched"}
	}

	entry, ok := result.Selected()
	if !ok {
		return SessionOutput{Status: StatusError, Message: "correlation produced no usable entry"}
	}

	if existing == nil {
		existing = NewProductMetadata("1.2")
	}
	merged := *existing
	merged.InstallerMetadataMap = copyInstallerMap(existing.InstallerMetadataMap)
	Accumulate(&merged, observed)

	return SessionOutput{Status: StatusSuccess, CorrelatedEntry: &entry, ProductMetadata: &merged}
}

func copyInstallerMap(m map[string]InstallerMetadata) map[string]InstallerMetadata {
	out := make(map[string]InstallerMetadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EncodeProductMetadata renders a ProductMetadata as the §6
// ProductMetadata JSON document.
func EncodeProductMetadata(md *ProductMetadata) ([]byte, error) {
	if md == nil {
		return nil, fmt.Errorf("arp: cannot encode nil ProductMetadata")
	}
	return json.MarshalIndent(md, "", "  ")
}

// DecodeProductMetadata parses a §6 ProductMetadata JSON document.
func DecodeProductMetadata(data []byte) (*ProductMetadata, error) {
	md := NewProductMetadata("")
	if err := json.Unmarshal(data, md); err != nil {
		return nil, fmt.Errorf("arp: decoding ProductMetadata: %w", err)
	}
	return md, nil
}
