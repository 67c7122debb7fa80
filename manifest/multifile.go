package manifest

import "fmt"

// ParseMultiFile ingests one or more YAML documents (one per input
// file, or a single document for singleton manifests) and merges them
// per §4.1: documents must agree on PackageIdentifier, PackageVersion,
// and ManifestVersion; Version/Installer/DefaultLocale must each appear
// exactly once (unless partial parsing is requested); Locale documents
// are unbounded.
func ParseMultiFile(docs [][]byte, opts ParseOptions, allowPartial bool) (*Manifest, *ValidationErrors, error) {
	diags := &ValidationErrors{}
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("manifest: no documents supplied")
	}

	parsed := make([]*Manifest, 0, len(docs))
	for _, raw := range docs {
		m, d, err := ParseDocument(raw, opts)
		if err != nil {
			return nil, nil, err
		}
		diags.Errors = append(diags.Errors, d.Errors...)
		parsed = append(parsed, m)
	}

	if len(parsed) == 1 {
		return parsed[0], diags, nil
	}

	first := parsed[0]
	if first.ManifestVersion.String() == "" {
		diags.add(ValidationError{MessageID: MsgInvalidFieldValue, Context: "ManifestVersion", Level: LevelError})
	}
	// Multi-file is permitted only for manifestVersion >= 1.0.0.
	if manifestMajor(first) < 1 {
		diags.add(ValidationError{MessageID: MsgUnsupportedManifestVersion, Context: "multi-file requires manifestVersion>=1.0.0", Level: LevelError})
	}

	var versionDoc, installerDoc, defaultLocaleDoc *Manifest
	var localeDocs []*Manifest
	counts := map[ManifestType]int{}

	for _, m := range parsed {
		counts[m.ManifestType]++
		switch m.ManifestType {
		case TypeVersion:
			versionDoc = m
		case TypeInstaller:
			installerDoc = m
		case TypeDefaultLocale:
			defaultLocaleDoc = m
		case TypeLocale:
			localeDocs = append(localeDocs, m)
		}
	}

	for _, t := range []ManifestType{TypeVersion, TypeInstaller, TypeDefaultLocale} {
		if counts[t] > 1 {
			diags.add(ValidationError{MessageID: MsgDuplicateMultiFileManifestType, Context: string(t), Level: LevelError})
		}
	}

	if !allowPartial {
		if versionDoc == nil || installerDoc == nil || defaultLocaleDoc == nil {
			diags.add(ValidationError{MessageID: MsgIncompleteMultiFileManifest, Level: LevelError})
			return nil, diags, nil
		}
	}

	for _, m := range parsed {
		if m.PackageIdentifier != first.PackageIdentifier || m.PackageVersion.String() != first.PackageVersion.String() ||
			m.ManifestVersion.String() != first.ManifestVersion.String() {
			diags.add(ValidationError{MessageID: MsgInconsistentMultiFileFieldValue, Level: LevelError})
		}
	}

	if versionDoc != nil && defaultLocaleDoc != nil {
		if versionDoc.DefaultLocalization.PackageLocale != "" &&
			versionDoc.DefaultLocalization.PackageLocale != defaultLocaleDoc.DefaultLocalization.PackageLocale {
			diags.add(ValidationError{MessageID: MsgInconsistentMultiFileFieldValue, Context: "DefaultLocale", Level: LevelError})
		}
	}

	if diags.HasErrors() {
		return nil, diags, nil
	}

	merged := mergeMultiFile(versionDoc, installerDoc, defaultLocaleDoc, localeDocs)
	return merged, diags, nil
}

// mergeMultiFile folds the per-role documents into one Manifest (§4.1
// "Merging"): start from the Installer document; copy DefaultLocale
// document fields (except identity keys); append a Localization
// sequence built from Locale documents; set ManifestType: merged.
func mergeMultiFile(versionDoc, installerDoc, defaultLocaleDoc *Manifest, localeDocs []*Manifest) *Manifest {
	merged := &Manifest{}
	if installerDoc != nil {
		*merged = *installerDoc
	}
	if versionDoc != nil {
		merged.PackageIdentifier = versionDoc.PackageIdentifier
		merged.PackageVersion = versionDoc.PackageVersion
		merged.Channel = versionDoc.Channel
		merged.ManifestVersion = versionDoc.ManifestVersion
		if !versionDoc.Dependencies.IsEmpty() {
			merged.Dependencies = versionDoc.Dependencies
		}
	}
	if defaultLocaleDoc != nil {
		merged.DefaultLocalization = defaultLocaleDoc.DefaultLocalization
		merged.Moniker = defaultLocaleDoc.Moniker
	}
	for _, locDoc := range localeDocs {
		merged.Localizations = append(merged.Localizations, locDoc.DefaultLocalization)
	}
	merged.ManifestType = TypeMerged
	return merged
}
