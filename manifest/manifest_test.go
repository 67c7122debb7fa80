package manifest

import (
	"strings"
	"testing"
)

const sampleManifest = `
PackageIdentifier: Contoso.WidgetPro
PackageVersion: "1.2.3"
ManifestVersion: "1.0.0"
ManifestType: singleton
PackageName: Widget Pro
Publisher: Contoso
Tags:
  - productivity
  - widgets
Installers:
  - Architecture: x64
    InstallerType: Exe
    InstallerUrl: https://example.com/widgetpro.exe
    InstallerSha256: "AABBCCDDEEFF00112233445566778899AABBCCDDEEFF00112233445566778899"
`

func parseSample(t *testing.T) *Manifest {
	t.Helper()
	m, diags, err := ParseDocument([]byte(sampleManifest), ParseOptions{MaxSupportedManifestMajor: 1, FullValidation: true})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	return m
}

func TestParseBasicFields(t *testing.T) {
	m := parseSample(t)
	if m.PackageIdentifier != "Contoso.WidgetPro" {
		t.Errorf("PackageIdentifier = %q", m.PackageIdentifier)
	}
	if m.PackageVersion.String() != "1.2.3" {
		t.Errorf("PackageVersion = %q", m.PackageVersion.String())
	}
	if len(m.Installers) != 1 {
		t.Fatalf("len(Installers) = %d, want 1", len(m.Installers))
	}
	inst := m.Installers[0]
	if inst.Switches[SwitchSilent] != "" {
		t.Errorf("Exe installer should not get Msi switch defaults, got %q", inst.Switches[SwitchSilent])
	}
}

func TestParseEmitParseFixpoint(t *testing.T) {
	m := parseSample(t)
	out, err := Emit(m, m.Installers[0])
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	reparsed, diags, err := ParseDocument(out, ParseOptions{MaxSupportedManifestMajor: 1})
	if err != nil {
		t.Fatalf("reparsing emitted manifest: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("reparsed manifest has errors: %v", diags)
	}

	if reparsed.PackageIdentifier != m.PackageIdentifier {
		t.Errorf("PackageIdentifier mismatch after round-trip: %q vs %q", reparsed.PackageIdentifier, m.PackageIdentifier)
	}
	if reparsed.PackageVersion.String() != m.PackageVersion.String() {
		t.Errorf("PackageVersion mismatch after round-trip")
	}
	if len(reparsed.Installers) != 1 || reparsed.Installers[0].URL != m.Installers[0].URL {
		t.Errorf("Installer mismatch after round-trip")
	}
}

func TestFieldCasingWarning(t *testing.T) {
	raw := strings.Replace(sampleManifest, "PackageVersion:", "packageversion:", 1)
	_, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	found := false
	for _, d := range diags.Errors {
		if d.MessageID == MsgFieldIsNotPascalCase && d.Level == LevelWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected FieldIsNotPascalCase warning, got %v", diags.Errors)
	}
}

func TestDuplicateMappingKeyRejection(t *testing.T) {
	raw := `
PackageIdentifier: Contoso.WidgetPro
PackageIdentifier: Contoso.WidgetProDuplicate
PackageVersion: "1.0.0"
ManifestVersion: "1.0.0"
`
	_, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	found := false
	for _, d := range diags.Errors {
		if d.MessageID == MsgFieldDuplicate {
			found = true
		}
	}
	if !found {
		t.Errorf("expected FieldDuplicate error for repeated PackageIdentifier, got %v", diags.Errors)
	}
}

func TestMsiDefaultSwitches(t *testing.T) {
	raw := `
PackageIdentifier: Contoso.MsiApp
PackageVersion: "1.0.0"
ManifestVersion: "1.0.0"
Installers:
  - Architecture: x64
    InstallerType: Msi
    InstallerUrl: https://example.com/app.msi
`
	m, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if got := m.Installers[0].Switches[SwitchSilent]; got != "/quiet" {
		t.Errorf("Msi default Silent switch = %q, want /quiet", got)
	}
}

func TestDuplicateInstallerRejected(t *testing.T) {
	raw := `
PackageIdentifier: Contoso.WidgetPro
PackageVersion: "1.0.0"
ManifestVersion: "1.0.0"
Installers:
  - Architecture: x64
    InstallerType: Exe
    InstallerUrl: https://example.com/a.exe
  - Architecture: x64
    InstallerType: Exe
    InstallerUrl: https://example.com/b.exe
`
	m, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1, FullValidation: true})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	_ = m
	found := false
	for _, d := range diags.Errors {
		if d.MessageID == MsgDuplicateInstaller {
			found = true
		}
	}
	if !found {
		t.Errorf("expected DuplicateInstaller error, got %v", diags.Errors)
	}
}

func TestRootFieldInheritance(t *testing.T) {
	raw := `
PackageIdentifier: Contoso.WidgetPro
PackageVersion: "1.0.0"
ManifestVersion: "1.0.0"
PackageFamilyName: Contoso.WidgetPro_8wekyb3d8bbwe
ProductCode: "{12345678-1234-1234-1234-123456789012}"
UpgradeBehavior: install
Installers:
  - Architecture: x64
    InstallerType: Msix
    InstallerUrl: https://example.com/widgetpro.msix
  - Architecture: x64
    InstallerType: Exe
    InstallerUrl: https://example.com/widgetpro.exe
    ProductCode: "{OVERRIDDEN}"
`
	m, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if len(m.Installers) != 2 {
		t.Fatalf("len(Installers) = %d, want 2", len(m.Installers))
	}

	msix := m.Installers[0]
	if msix.PackageFamilyName != "Contoso.WidgetPro_8wekyb3d8bbwe" {
		t.Errorf("Msix installer did not inherit PackageFamilyName, got %q", msix.PackageFamilyName)
	}
	if msix.ProductCode != "{12345678-1234-1234-1234-123456789012}" {
		t.Errorf("Msix installer did not inherit ProductCode, got %q", msix.ProductCode)
	}
	if msix.UpdateBehavior != "install" {
		t.Errorf("Msix installer did not inherit UpdateBehavior, got %q", msix.UpdateBehavior)
	}

	exe := m.Installers[1]
	if exe.PackageFamilyName != "" {
		t.Errorf("Exe installer should not inherit PackageFamilyName (not MSIX-family), got %q", exe.PackageFamilyName)
	}
	if exe.ProductCode != "{OVERRIDDEN}" {
		t.Errorf("Exe installer's own ProductCode should win over inherited value, got %q", exe.ProductCode)
	}
	if exe.UpdateBehavior != "install" {
		t.Errorf("Exe installer did not inherit UpdateBehavior, got %q", exe.UpdateBehavior)
	}
}

func TestRootSwitchesOverrideDefaultsButNotLocal(t *testing.T) {
	raw := `
PackageIdentifier: Contoso.MsiApp
PackageVersion: "1.0.0"
ManifestVersion: "1.0.0"
InstallerSwitches:
  Silent: /S /rootoverride
  Custom: /rootonly
Installers:
  - Architecture: x64
    InstallerType: Msi
    InstallerUrl: https://example.com/app.msi
    InstallerSwitches:
      Silent: /installeronly
`
	m, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags)
	}
	switches := m.Installers[0].Switches
	if switches[SwitchSilent] != "/installeronly" {
		t.Errorf("installer-local Switches should win over root, got %q", switches[SwitchSilent])
	}
	if switches[SwitchCustom] != "/rootonly" {
		t.Errorf("root Switches should fill in when installer-local is absent, got %q", switches[SwitchCustom])
	}
	if switches[SwitchLog] != `/log "<LOGPATH>"` {
		t.Errorf("Msi default Log switch should still apply, got %q", switches[SwitchLog])
	}
}

func TestDuplicateMappingKeyRejectedInsideInstaller(t *testing.T) {
	raw := `
PackageIdentifier: Contoso.WidgetPro
PackageVersion: "1.0.0"
ManifestVersion: "1.0.0"
Installers:
  - Architecture: x64
    InstallerType: Exe
    InstallerUrl: https://example.com/a.exe
    InstallerUrl: https://example.com/b.exe
`
	_, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	found := false
	for _, d := range diags.Errors {
		if d.MessageID == MsgDuplicateMappingKey {
			found = true
		}
	}
	if !found {
		t.Errorf("expected DuplicateMappingKey error for repeated InstallerUrl, got %v", diags.Errors)
	}
}

// fixedVersionSource is a DependencySource test double returning a fixed
// set of version strings for any package identifier.
type fixedVersionSource map[string][]string

func (s fixedVersionSource) VersionsOf(packageIdentifier string) []string {
	return s[packageIdentifier]
}

func TestDependencyShapeValidationAtParseTime(t *testing.T) {
	raw := `
PackageIdentifier: Contoso.WidgetPro
PackageVersion: "1.0.0"
ManifestVersion: "1.0.0"
Dependencies:
  PackageDependencies:
    - PackageIdentifier: Contoso.Library
      MinimumVersion: "2.0.0"
`
	src := fixedVersionSource{"Contoso.Library": {"1.0.0", "1.5.0"}}
	_, diags, err := ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1, DependencySource: src})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	found := false
	for _, d := range diags.Errors {
		if d.MessageID == MsgNoSuitableMinVersionDependency {
			found = true
		}
	}
	if !found {
		t.Errorf("expected NoSuitableMinVersionDependency error, got %v", diags.Errors)
	}

	src["Contoso.Library"] = append(src["Contoso.Library"], "2.1.0")
	_, diags, err = ParseDocument([]byte(raw), ParseOptions{MaxSupportedManifestMajor: 1, DependencySource: src})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	for _, d := range diags.Errors {
		if d.MessageID == MsgNoSuitableMinVersionDependency {
			t.Errorf("did not expect NoSuitableMinVersionDependency once a satisfying version exists, got %v", diags.Errors)
		}
	}
}
