package manifest

import (
	"regexp"

	"github.com/wpkg/core/internal/version"
)

var (
	packageIdentifierPattern = regexp.MustCompile(`^[^.]+\.[^.]+`)
	sha256Pattern            = regexp.MustCompile(`^[A-Fa-f0-9]{64}$`)
	bcp47Pattern             = regexp.MustCompile(`^[A-Za-z]{2,8}(-[A-Za-z0-9]{1,8})*$`)
)

// validateSchema runs the schema-by-ManifestVersion pass (§4.1 step 2):
// field admissibility and regex shape. Always run, independent of
// FullValidation.
func validateSchema(m *Manifest, diags *ValidationErrors, opts ParseOptions) {
	if m.ManifestVersion.String() != "" {
		major := manifestMajor(m)
		max := opts.MaxSupportedManifestMajor
		if max == 0 {
			max = 1
		}
		if major > max {
			diags.add(ValidationError{MessageID: MsgUnsupportedManifestVersion, Level: LevelError, FileName: opts.FileName})
		}
	}

	if m.PackageIdentifier != "" && !packageIdentifierPattern.MatchString(m.PackageIdentifier) {
		diags.add(ValidationError{MessageID: MsgInvalidFieldValue, Context: "PackageIdentifier", Value: m.PackageIdentifier, Level: LevelError})
	}

	for i, inst := range m.Installers {
		if inst.InstallerSHA256 != "" && !sha256Pattern.MatchString(inst.InstallerSHA256) {
			diags.add(ValidationError{MessageID: MsgInvalidFieldValue, Context: "Installers[].InstallerSha256", Value: inst.InstallerSHA256, Level: LevelError})
		}
		if inst.InstallationMetadata != nil {
			for _, f := range inst.InstallationMetadata.Files {
				if f.SHA256 != "" && !sha256Pattern.MatchString(f.SHA256) {
					diags.add(ValidationError{MessageID: MsgInvalidFieldValue, Context: "InstallationMetadata.Files[].FileSha256", Value: f.SHA256, Level: LevelError})
				}
			}
		}
		_ = i
	}
}

// manifestMajor extracts the integer major component of a ManifestVersion.
func manifestMajor(m *Manifest) int {
	s := m.ManifestVersion.String()
	major := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		major = major*10 + int(c-'0')
	}
	return major
}

// validateSemantic runs the full-validation-only pass (§4.1 step 3).
func validateSemantic(m *Manifest, diags *ValidationErrors) {
	validateDuplicateInstallers(m, diags)
	validateLocaleTags(m, diags)

	for _, inst := range m.Installers {
		if len(inst.Markets.AllowedMarkets) > 0 && len(inst.Markets.ExcludedMarkets) > 0 {
			diags.add(ValidationError{MessageID: MsgMarketsMutuallyExclusive, Level: LevelError})
		}
		if inst.RequireExplicitUpgrade && inst.UpdateBehavior == "uninstallPrevious" {
			diags.add(ValidationError{MessageID: MsgRequireExplicitUpgradeConflict, Level: LevelError})
		}
		validateNestedInstallerFiles(inst, diags)
	}
}

func validateDuplicateInstallers(m *Manifest, diags *ValidationErrors) {
	seen := map[[4]string]bool{}
	for _, inst := range m.Installers {
		key := inst.identityKey()
		if seen[key] {
			diags.add(ValidationError{MessageID: MsgDuplicateInstaller, Context: inst.Architecture + "/" + string(inst.InstallerType), Level: LevelError})
			continue
		}
		seen[key] = true
	}
}

func validateLocaleTags(m *Manifest, diags *ValidationErrors) {
	if m.DefaultLocalization.PackageLocale != "" && !bcp47Pattern.MatchString(m.DefaultLocalization.PackageLocale) {
		diags.add(ValidationError{MessageID: MsgInvalidLocaleTag, Value: m.DefaultLocalization.PackageLocale, Level: LevelError})
	}
	for _, loc := range m.Localizations {
		if loc.PackageLocale != "" && !bcp47Pattern.MatchString(loc.PackageLocale) {
			diags.add(ValidationError{MessageID: MsgInvalidLocaleTag, Value: loc.PackageLocale, Level: LevelError})
		}
	}
}

func validateNestedInstallerFiles(inst Installer, diags *ValidationErrors) {
	seenPaths := map[string]bool{}
	seenAliases := map[string]bool{}
	for _, f := range inst.NestedInstallerFiles {
		if f.RelativeFilePath != "" {
			if seenPaths[f.RelativeFilePath] {
				diags.add(ValidationError{MessageID: MsgDuplicateNestedInstallerFile, Context: "RelativeFilePath", Value: f.RelativeFilePath, Level: LevelError})
			}
			seenPaths[f.RelativeFilePath] = true
		}
		if f.PortableCommandAlias != "" {
			if seenAliases[f.PortableCommandAlias] {
				diags.add(ValidationError{MessageID: MsgDuplicateNestedInstallerFile, Context: "PortableCommandAlias", Value: f.PortableCommandAlias, Level: LevelError})
			}
			seenAliases[f.PortableCommandAlias] = true
		}
	}
}

// DependencySource is the narrow surface the dependency-shape pass (§4.1
// step 4) needs from a package source: looking up known versions of a
// dependency target. A caller that has one (e.g. a CLI driving a real
// source registry) attaches it via ParseOptions.DependencySource; when
// absent, ParseDocument skips step 4 entirely and leaves the check to
// the resolver's own runtime MinVersionError.
type DependencySource interface {
	VersionsOf(packageIdentifier string) []string
}

// ValidateDependencyShape runs §4.1 step 4 against src: it reports
// NoSuitableMinVersionDependency when a PackageDependency's MinVersion
// can't be satisfied by any version src knows about, and leaves loop
// detection to the resolver itself (cycle detection requires walking
// the whole graph, not just this manifest's direct dependency list).
func ValidateDependencyShape(m *Manifest, src DependencySource, diags *ValidationErrors) {
	for _, dep := range allPackageDependencies(m) {
		if dep.MinVersion == nil {
			continue
		}
		if !anySatisfies(src.VersionsOf(dep.PackageIdentifier), *dep.MinVersion) {
			diags.add(ValidationError{MessageID: MsgNoSuitableMinVersionDependency, Context: dep.PackageIdentifier, Value: dep.MinVersion.String(), Level: LevelError})
		}
	}
}

func allPackageDependencies(m *Manifest) []PackageDependency {
	deps := append([]PackageDependency{}, m.Dependencies.PackageDependencies...)
	for _, inst := range m.Installers {
		if !inst.Dependencies.IsEmpty() {
			deps = append(deps, inst.Dependencies.PackageDependencies...)
		}
	}
	return deps
}

// anySatisfies reports whether any of versionStrings parses and
// satisfies min (§4.1 step 4: "MinVersion cannot be satisfied by any
// known version of the target").
func anySatisfies(versionStrings []string, min version.Version) bool {
	for _, raw := range versionStrings {
		v, err := version.Parse(raw)
		if err != nil {
			continue
		}
		if v.SatisfiesMin(min) {
			return true
		}
	}
	return false
}
