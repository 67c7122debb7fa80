package arp

import (
	"testing"

	"github.com/wpkg/core/manifest"
)

func TestCorrelateHighConfidenceSingleMatch(t *testing.T) {
	before := NewSnapshot()
	after := NewSnapshot()
	after.Entries["{GUID-1}"] = Entry{
		Id:             "{GUID-1}",
		DisplayName:    "Contoso Widget",
		DisplayVersion: "1.0.0",
		Publisher:      "Contoso Corp",
		Scope:          manifest.ScopeMachine,
	}

	candidate := CandidateManifest{AppName: "Contoso Widget", AppPublisher: "Contoso Corp"}
	result := Correlate(candidate, before, after, NewEditDistanceMatchConfidenceAlgorithm(), false, nil)

	if result.LowConfidence || result.MultipleCandidates {
		t.Fatalf("expected a confident single match, got %+v", result)
	}
	entry, ok := result.Selected()
	if !ok || entry.Id != "{GUID-1}" {
		t.Fatalf("expected correlated entry {GUID-1}, got %+v ok=%v", entry, ok)
	}
}

func TestCorrelateLowConfidenceNoOverlap(t *testing.T) {
	before := NewSnapshot()
	after := NewSnapshot()
	after.Entries["{GUID-2}"] = Entry{Id: "{GUID-2}", DisplayName: "Totally Unrelated App", Publisher: "Someone Else"}

	candidate := CandidateManifest{AppName: "Contoso Widget", AppPublisher: "Contoso Corp"}
	result := Correlate(candidate, before, after, NewEditDistanceMatchConfidenceAlgorithm(), false, nil)

	if !result.LowConfidence {
		t.Fatalf("expected low confidence, got %+v", result)
	}
}

func TestCorrelateMSIXBypassesMatching(t *testing.T) {
	synthesized := &Entry{Id: "Contoso.Widget", DisplayName: "Contoso Widget"}
	result := Correlate(CandidateManifest{}, NewSnapshot(), NewSnapshot(), NewEditDistanceMatchConfidenceAlgorithm(), true, synthesized)

	entry, ok := result.Selected()
	if !ok || entry.Id != "Contoso.Widget" {
		t.Fatalf("expected synthesized MSIX entry selected, got %+v ok=%v", entry, ok)
	}
}

// TestMetadataCollectionNewPackage is §8 scenario 5: a first-ever
// submission for a product creates a single InstallerMetadataMap entry
// and no historical records.
func TestMetadataCollectionNewPackage(t *testing.T) {
	input := SessionInput{
		PackageIdentifier: "Contoso.Widget",
		PackageVersion:    "1.0.0",
		InstallerHash:     "hash-a",
		Candidate:         CandidateManifest{AppName: "Contoso Widget", AppPublisher: "Contoso Corp"},
	}
	input.SnapshotBefore = NewSnapshot()
	input.SnapshotAfter = NewSnapshot()
	input.SnapshotAfter.Entries["{GUID-1}"] = Entry{Id: "{GUID-1}", DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.0.0"}

	sub := Submission{
		InstallerHash:        "hash-a",
		SubmissionIdentifier: "1",
		Scope:                manifest.ScopeMachine,
		ProductVersion:       "1.0.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.0.0", ProductCode: "{GUID-1}"},
		},
	}

	out := ProcessSession(input, nil, nil, sub)
	if out.Status != StatusSuccess {
		t.Fatalf("expected StatusSuccess, got %v (%s)", out.Status, out.Message)
	}
	if out.ProductMetadata == nil || len(out.ProductMetadata.InstallerMetadataMap) != 1 {
		t.Fatalf("expected one InstallerMetadataMap entry, got %+v", out.ProductMetadata)
	}
	if len(out.ProductMetadata.HistoricalMetadataList) != 0 {
		t.Fatalf("new package should have no historical records, got %v", out.ProductMetadata.HistoricalMetadataList)
	}
}

// TestMetadataCollectionSameSubmissionNewHash covers §4.4's other
// "no entry exists for installerHash" branch: when the incoming
// submissionIdentifier matches an entry already on file, the new hash
// is added alongside the existing ones (e.g. a sibling architecture
// variant within the same submission round) rather than archiving
// anything.
func TestMetadataCollectionSameSubmissionNewHash(t *testing.T) {
	md := NewProductMetadata("1.2")
	Accumulate(md, Submission{
		InstallerHash:        "hash-a",
		SubmissionIdentifier: "1",
		Scope:                manifest.ScopeMachine,
		ProductVersion:       "1.0.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.0.0", ProductCode: "{GUID-1}"},
		},
	})

	Accumulate(md, Submission{
		InstallerHash:        "hash-b",
		SubmissionIdentifier: "1",
		Scope:                manifest.ScopeMachine,
		ProductVersion:       "1.0.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.0.0", ProductCode: "{GUID-1}"},
		},
	})

	if len(md.InstallerMetadataMap) != 2 {
		t.Fatalf("expected two installer entries under the same submission, got %d", len(md.InstallerMetadataMap))
	}
	if len(md.HistoricalMetadataList) != 0 {
		t.Fatalf("same-submission new hash should not archive anything, got %v", md.HistoricalMetadataList)
	}
}

// TestMetadataCollectionNewSubmission is §8 scenario 6: current metadata
// carries submissionIdentifier "1"; an incoming submission under a
// distinct installerHash and a new submissionIdentifier "1_NEW" must
// archive every existing entry and leave exactly one installer entry —
// the new one.
func TestMetadataCollectionNewSubmission(t *testing.T) {
	md := NewProductMetadata("1.2")
	Accumulate(md, Submission{
		InstallerHash:        "hash-a",
		SubmissionIdentifier: "1",
		Scope:                manifest.ScopeMachine,
		ProductVersion:       "1.3.5",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.3.5", ProductCode: "{GUID-1}"},
		},
	})

	Accumulate(md, Submission{
		InstallerHash:        "hash-b",
		SubmissionIdentifier: "1_NEW",
		Scope:                manifest.ScopeMachine,
		ProductVersion:       "1.4.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.4.0", ProductCode: "{GUID-1}"},
		},
	})

	if len(md.InstallerMetadataMap) != 1 {
		t.Fatalf("expected exactly one installer entry (the new one), got %d: %+v", len(md.InstallerMetadataMap), md.InstallerMetadataMap)
	}
	if _, ok := md.InstallerMetadataMap["hash-b"]; !ok {
		t.Fatalf("expected the surviving entry to be hash-b, got %+v", md.InstallerMetadataMap)
	}
	if len(md.HistoricalMetadataList) != 1 {
		t.Fatalf("expected exactly one historical record, got %v", md.HistoricalMetadataList)
	}
	h := md.HistoricalMetadataList[0]
	if len(h.Names) != 1 || h.Names[0] != "Contoso Widget" {
		t.Errorf("historical Names = %v, want [Contoso Widget]", h.Names)
	}
	if len(h.ProductCodes) != 1 || h.ProductCodes[0] != "{GUID-1}" {
		t.Errorf("historical ProductCodes = %v, want [{GUID-1}]", h.ProductCodes)
	}
	if h.ProductVersionMin != "1.3.5" || h.ProductVersionMax != "1.3.5" {
		t.Errorf("historical version range = [%s, %s], want [1.3.5, 1.3.5] (the archived hash-a entry's own version)", h.ProductVersionMin, h.ProductVersionMax)
	}
	if md.ProductVersionMin != "1.3.5" || md.ProductVersionMax != "1.4.0" {
		t.Fatalf("expected version range [1.3.5, 1.4.0], got [%s, %s]", md.ProductVersionMin, md.ProductVersionMax)
	}
}

// TestMetadataCollectionResubmissionArchivesOnChange covers a
// resubmission under the same installer hash: identical content is a
// no-op, differing content archives the superseded entry first.
func TestMetadataCollectionResubmissionArchivesOnChange(t *testing.T) {
	md := NewProductMetadata("1.2")
	Accumulate(md, Submission{
		InstallerHash:        "hash-a",
		SubmissionIdentifier: "1",
		Scope:                manifest.ScopeMachine,
		ProductVersion:       "1.0.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.0.0", ProductCode: "{GUID-1}"},
		},
	})

	// Resubmitting hash-a with identical content should not create a
	// historical record (nothing actually changed).
	Accumulate(md, Submission{
		InstallerHash:        "hash-a",
		SubmissionIdentifier: "1",
		Scope:                manifest.ScopeMachine,
		ProductVersion:       "1.0.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.0.0", ProductCode: "{GUID-1}"},
		},
	})
	if len(md.HistoricalMetadataList) != 0 {
		t.Fatalf("identical resubmission should not archive, got %v", md.HistoricalMetadataList)
	}

	// Resubmitting hash-a with different content archives the old one.
	Accumulate(md, Submission{
		InstallerHash:        "hash-a",
		SubmissionIdentifier: "1",
		Scope:                manifest.ScopeUser,
		ProductVersion:       "1.0.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget Updated", Publisher: "Contoso Corp", DisplayVersion: "1.0.1", ProductCode: "{GUID-1}"},
		},
	})
	if len(md.HistoricalMetadataList) != 1 {
		t.Fatalf("differing resubmission should archive exactly one record, got %v", md.HistoricalMetadataList)
	}
}

func TestMergeIdempotentSingleOperand(t *testing.T) {
	md := NewProductMetadata("1.2")
	Accumulate(md, Submission{
		InstallerHash:  "hash-a",
		Scope:          manifest.ScopeMachine,
		ProductVersion: "1.0.0",
		AppsAndFeaturesEntries: []AppsAndFeaturesEntry{
			{DisplayName: "Contoso Widget", Publisher: "Contoso Corp", DisplayVersion: "1.0.0", ProductCode: "{GUID-1}"},
		},
	})

	merged, err := Merge(md, md)
	if err != nil {
		t.Fatalf("Merge(p, p): %v", err)
	}
	if merged.ProductVersionMin != md.ProductVersionMin || merged.ProductVersionMax != md.ProductVersionMax {
		t.Fatalf("Merge(p, p) changed version range: %+v vs %+v", merged, md)
	}
	if len(merged.InstallerMetadataMap) != len(md.InstallerMetadataMap) {
		t.Fatalf("Merge(p, p) changed map size: got %d want %d", len(merged.InstallerMetadataMap), len(md.InstallerMetadataMap))
	}

	alone, err := Merge(md, nil)
	if err != nil {
		t.Fatalf("Merge(p, nil): %v", err)
	}
	if alone.ProductVersionMin != md.ProductVersionMin || len(alone.InstallerMetadataMap) != len(md.InstallerMetadataMap) {
		t.Fatalf("Merge(p, nil) should be a copy of p, got %+v", alone)
	}
}

func TestMergeSubmissionIdentifierMismatchRejected(t *testing.T) {
	a := NewProductMetadata("1.2")
	a.InstallerMetadataMap["slot"] = InstallerMetadata{SubmissionIdentifier: "hash-a"}
	b := NewProductMetadata("1.2")
	b.InstallerMetadataMap["slot"] = InstallerMetadata{SubmissionIdentifier: "hash-b"}

	if _, err := Merge(a, b); err != ErrSubmissionIdentifierMismatch {
		t.Fatalf("expected ErrSubmissionIdentifierMismatch, got %v", err)
	}
}
