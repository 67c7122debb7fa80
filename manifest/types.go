// Package manifest implements the manifest data model, parser, validator,
// and emitter described in §3 and §4.1: a YAML document (or set of
// documents) describing a package version, its localizations, and its
// installers.
//
// The struct shapes below follow the teacher's pkg/catalog.Item /
// pkg/manifest.Item field groupings (identity + installer list + switch
// table), generalized from Cimian's flatter catalog schema to winget's
// fuller Manifest model named in §3.
package manifest

import (
	"github.com/wpkg/core/internal/normalize"
	"github.com/wpkg/core/internal/version"
)

// ManifestType enumerates the document roles a manifest file can
// declare (§3).
type ManifestType string

const (
	TypeSingleton    ManifestType = "singleton"
	TypeVersion      ManifestType = "version"
	TypeInstaller    ManifestType = "installer"
	TypeDefaultLocale ManifestType = "defaultLocale"
	TypeLocale       ManifestType = "locale"
	TypeMerged       ManifestType = "merged"
	TypePreview      ManifestType = "preview"
)

// Scope is an installer's install scope.
type Scope string

const (
	ScopeUnknown Scope = ""
	ScopeUser    Scope = "User"
	ScopeMachine Scope = "Machine"
)

// InstallerType enumerates the supported package technologies.
type InstallerType string

const (
	InstallerExe      InstallerType = "Exe"
	InstallerMsi      InstallerType = "Msi"
	InstallerMsix     InstallerType = "Msix"
	InstallerInno     InstallerType = "Inno"
	InstallerNullsoft InstallerType = "Nullsoft"
	InstallerBurn     InstallerType = "Burn"
	InstallerWix      InstallerType = "Wix"
	InstallerPortable InstallerType = "Portable"
	InstallerZip      InstallerType = "Zip"
)

// SwitchKind enumerates the install-switch table's keys (§3).
type SwitchKind string

const (
	SwitchSilent             SwitchKind = "Silent"
	SwitchSilentWithProgress SwitchKind = "SilentWithProgress"
	SwitchInteractive        SwitchKind = "Interactive"
	SwitchInstallLocation    SwitchKind = "InstallLocation"
	SwitchLog                SwitchKind = "Log"
	SwitchUpgrade            SwitchKind = "Upgrade"
	SwitchCustom             SwitchKind = "Custom"
	SwitchRepair             SwitchKind = "Repair"
	SwitchLanguage           SwitchKind = "Language"
)

// InstalledFileType classifies an entry in InstallationMetadata.Files.
type InstalledFileType string

const (
	InstalledFileLaunch    InstalledFileType = "Launch"
	InstalledFileUninstall InstalledFileType = "Uninstall"
	InstalledFileOther     InstalledFileType = "Other"
	InstalledFileUnknown   InstalledFileType = "Unknown"
)

// DependencyKind enumerates the global Dependencies list's element
// kinds (§3).
type DependencyKind string

const (
	DependencyWindowsFeature DependencyKind = "WindowsFeature"
	DependencyWindowsLibrary DependencyKind = "WindowsLibrary"
	DependencyPackage        DependencyKind = "Package"
	DependencyExternal       DependencyKind = "External"
)

// PackageDependency is a Dependencies-list entry of kind Package: a
// reference to another package, optionally gated by a minimum version.
type PackageDependency struct {
	PackageIdentifier string
	MinVersion        *version.Version
}

// Dependencies bundles every dependency-list shape a manifest or
// installer can declare (§3's "global Dependencies list").
type Dependencies struct {
	WindowsFeatures []string
	WindowsLibraries []string
	PackageDependencies []PackageDependency
	ExternalDependencies []string
}

// IsEmpty reports whether no dependency of any kind is declared.
func (d Dependencies) IsEmpty() bool {
	return len(d.WindowsFeatures) == 0 && len(d.WindowsLibraries) == 0 &&
		len(d.PackageDependencies) == 0 && len(d.ExternalDependencies) == 0
}

// AppsAndFeaturesEntry mirrors one ARP row an installer is expected to
// register (§3).
type AppsAndFeaturesEntry struct {
	DisplayName    string
	DisplayVersion string
	Publisher      string
	ProductCode    string
	UpgradeCode    string
	InstallerType  InstallerType
}

// InstalledFile is one entry of InstallationMetadata.Files (§3).
type InstalledFile struct {
	RelativeFilePath    string
	SHA256              string
	FileType            InstalledFileType
	InvocationParameter string
	DisplayName         string
}

// InstallationMetadata describes where an installer lays files down and
// which of them matter post-install (§3).
type InstallationMetadata struct {
	DefaultInstallLocation string
	Files                  []InstalledFile
}

// Markets restricts an installer to, or excludes it from, a set of
// regions; the two lists are mutually exclusive (§4.1 semantic pass).
type Markets struct {
	AllowedMarkets  []string
	ExcludedMarkets []string
}

// Installer is one entry of Manifest.Installers (§3).
type Installer struct {
	Architecture    string
	InstallerType   InstallerType
	NestedInstallerType InstallerType
	NestedInstallerFiles []NestedInstallerFile

	URL              string
	InstallerSHA256  string
	SignatureSHA256  string
	InstallerLocale  string
	Scope            Scope

	ProductCode       string
	PackageFamilyName string
	UpgradeCode       string

	MinimumOSVersion string
	Platform         []string
	InstallModes     []string

	ExpectedReturnCodes []int
	SuccessCodes        []int

	Switches map[SwitchKind]string

	UnsupportedArguments []string
	Markets              Markets
	Dependencies          Dependencies
	Capabilities          []string

	AppsAndFeaturesEntries []AppsAndFeaturesEntry
	InstallationMetadata   *InstallationMetadata

	UpdateBehavior      string
	RequireExplicitUpgrade bool
}

// NestedInstallerFile names one file extracted from a Zip installer
// (§3's "optional nested-installer type (when the outer is Zip)").
type NestedInstallerFile struct {
	RelativeFilePath string
	PortableCommandAlias string
}

// identityKey returns the tuple used to reject duplicate installers
// (§3: "no two Installers... may have identical (architecture,
// installer type, scope, locale) tuples").
func (i Installer) identityKey() [4]string {
	return [4]string{i.Architecture, string(i.InstallerType), string(i.Scope), i.InstallerLocale}
}

// Localization bundles a PackageLocale with the localizable string
// fields (§3). Fields absent in a non-default Localization are filled
// from DefaultLocalization when read through EffectiveLocalization; the
// stored Localization keeps only what its document declared.
type Localization struct {
	PackageLocale string
	PackageName   string
	Publisher     string
	License       string
	Description   string
	Tags          []string
	Agreements    []string
	Documentations []string
	Icons          []string
	ReleaseNotes   string
}

// normalizedTags exposes Tags normalized for case/whitespace-insensitive
// matching, consumed by the source registry's Tag match field.
func (l Localization) normalizedTags() []normalize.String {
	out := make([]normalize.String, len(l.Tags))
	for i, t := range l.Tags {
		out[i] = normalize.Normalize(t)
	}
	return out
}

// Manifest is the primary entity described in §3.
type Manifest struct {
	PackageIdentifier string
	PackageVersion    version.Version
	Channel           version.Channel
	Moniker           string
	ManifestVersion   version.Version
	ManifestType      ManifestType

	DefaultLocalization Localization
	Localizations       []Localization

	Installers []Installer

	Dependencies Dependencies

	// PackageFamilyName, ProductCode, UpdateBehavior, and Switches are
	// root-level fallbacks an installer inherits when its own field is
	// absent, restricted to installer types that semantically use the
	// attribute (§4.1's installer-inheritance pass, applied by Inherit).
	PackageFamilyName string
	ProductCode       string
	UpdateBehavior    string
	Switches          map[SwitchKind]string
}

// EffectiveLocalization returns the requested locale's localization with
// inherited fields filled in from DefaultLocalization; it never returns
// nil.
func (m *Manifest) EffectiveLocalization(locale string) Localization {
	for _, loc := range m.Localizations {
		if loc.PackageLocale == locale {
			return mergeLocalization(m.DefaultLocalization, loc)
		}
	}
	return m.DefaultLocalization
}

func mergeLocalization(base, override Localization) Localization {
	result := base
	result.PackageLocale = override.PackageLocale
	if override.PackageName != "" {
		result.PackageName = override.PackageName
	}
	if override.Publisher != "" {
		result.Publisher = override.Publisher
	}
	if override.License != "" {
		result.License = override.License
	}
	if override.Description != "" {
		result.Description = override.Description
	}
	if len(override.Tags) > 0 {
		result.Tags = override.Tags
	}
	if len(override.Agreements) > 0 {
		result.Agreements = override.Agreements
	}
	if len(override.Documentations) > 0 {
		result.Documentations = override.Documentations
	}
	if len(override.Icons) > 0 {
		result.Icons = override.Icons
	}
	if override.ReleaseNotes != "" {
		result.ReleaseNotes = override.ReleaseNotes
	}
	return result
}

// EffectiveDependencies returns installer-level dependencies when
// present, otherwise the manifest's root Dependencies — installer-level
// dependencies take precedence over root-level when both are present
// (§4.3, confirmed against ManifestYamlPopulator.cpp's installer
// inheritance pass).
func (m *Manifest) EffectiveDependencies(inst Installer) Dependencies {
	if !inst.Dependencies.IsEmpty() {
		return inst.Dependencies
	}
	return m.Dependencies
}
