package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/wpkg/core/arp"
	"github.com/wpkg/core/errorcode"
	"github.com/wpkg/core/manifest"
	"github.com/wpkg/core/pkg/logging"
)

func runCollectMetadata(args []string) errorcode.Code {
	fs := pflag.NewFlagSet("collect-metadata", pflag.ContinueOnError)
	beforePath := fs.String("before", "", "path to the ARP snapshot JSON taken before install")
	afterPath := fs.String("after", "", "path to the ARP snapshot JSON taken after install")
	existingPath := fs.String("existing", "", "path to an existing ProductMetadata JSON document, if any")
	packageID := fs.String("package-id", "", "PackageIdentifier of the submitted manifest")
	appName := fs.String("app-name", "", "candidate AppName to correlate against the ARP delta")
	appPublisher := fs.String("app-publisher", "", "candidate AppPublisher to correlate against the ARP delta")
	installerHash := fs.String("installer-hash", "", "installer SHA-256 keying the accumulated record")
	submissionIdentifier := fs.String("submission-identifier", "", "caller-supplied identifier for this submission round (generated if empty)")
	productVersion := fs.String("product-version", "", "PackageVersion of the submitted installer")
	scopeFlag := fs.String("scope", "", "install scope: User|Machine")
	isMSIX := fs.Bool("msix", false, "treat this submission as an MSIX install (bypasses ARP correlation)")
	out := fs.String("out", "", "path to write the resulting ProductMetadata JSON (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return errorcode.ErrInstallDependencies
	}

	before, err := readSnapshot(*beforePath)
	if err != nil {
		logging.Error("collect-metadata: reading before snapshot", "file", *beforePath, "error", err)
		return errorcode.ErrSourceDataMissing
	}
	after, err := readSnapshot(*afterPath)
	if err != nil {
		logging.Error("collect-metadata: reading after snapshot", "file", *afterPath, "error", err)
		return errorcode.ErrSourceDataMissing
	}

	var existing *arp.ProductMetadata
	if *existingPath != "" {
		raw, err := os.ReadFile(*existingPath)
		if err != nil {
			logging.Error("collect-metadata: reading existing metadata", "file", *existingPath, "error", err)
			return errorcode.ErrSourceDataIntegrityFailure
		}
		existing, err = arp.DecodeProductMetadata(raw)
		if err != nil {
			logging.Error("collect-metadata: decoding existing metadata", "error", err)
			return errorcode.ErrSourceDataIntegrityFailure
		}
	}

	if *submissionIdentifier == "" {
		*submissionIdentifier = arp.NewSubmissionIdentifier()
	}

	input := arp.SessionInput{
		PackageIdentifier:    *packageID,
		InstallerHash:        *installerHash,
		SubmissionIdentifier: *submissionIdentifier,
		PackageVersion:       *productVersion,
		Scope:                manifest.Scope(*scopeFlag),
		IsMSIX:               *isMSIX,
		Candidate:            arp.CandidateManifest{AppName: *appName, AppPublisher: *appPublisher},
		SnapshotBefore:       before,
		SnapshotAfter:        after,
	}

	submission := arp.Submission{
		InstallerHash:        *installerHash,
		SubmissionIdentifier: *submissionIdentifier,
		Scope:                manifest.Scope(*scopeFlag),
		ProductVersion:       *productVersion,
	}

	session := arp.ProcessSession(input, nil, existing, submission)

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		logging.Error("collect-metadata: encoding session output", "error", err)
		return errorcode.ErrSourceDataIntegrityFailure
	}

	if *out == "" {
		fmt.Fprintln(os.Stdout, string(data))
	} else if err := os.WriteFile(*out, data, 0o644); err != nil {
		logging.Error("collect-metadata: writing output", "file", *out, "error", err)
		return errorcode.ErrSourceDataIntegrityFailure
	}

	if session.Status != arp.StatusSuccess {
		return errorcode.ErrSourceDataIntegrityFailure
	}
	return errorcode.Success
}

func readSnapshot(path string) (arp.Snapshot, error) {
	if path == "" {
		return arp.NewSnapshot(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return arp.Snapshot{}, err
	}
	var snap arp.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return arp.Snapshot{}, err
	}
	return snap, nil
}
