package manifest

import (
	"github.com/wpkg/core/internal/yamldom"
)

// populateFn applies one mapping entry's value onto the manifest being
// built. Diagnostics are appended to diags rather than returned, so a
// single pass can surface every issue instead of stopping at the first
// (§4.1's "parser-layer errors aggregate").
type populateFn func(m *Manifest, value *yamldom.Node, diags *ValidationErrors, mark yamldom.Mark)

// fieldSpec is one entry of the version-parameterized field table
// described in §9's design note: "represent the per-version schema as a
// static table of {name, populate-fn, required, regex?}". SinceMajor
// gates which ManifestVersion the field is admissible at; 0 means
// "always".
type fieldSpec struct {
	populate  populateFn
	required  bool
	sinceMajor int
}

// rootFieldTable is the field table for the document-root mapping,
// covering every ManifestVersion this core supports (major 1). A real
// multi-major schema would hold one table per major version; only one
// major is specified here (§4.1: "ManifestVersion gates available
// fields").
var rootFieldTable = map[string]fieldSpec{
	"PackageIdentifier": {required: true, populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.PackageIdentifier = v.Str()
	}},
	"PackageVersion": {required: true, populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		populateVersion(&m.PackageVersion, v, d, mk)
	}},
	"Channel": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.Channel = stringChannel(v.Str())
	}},
	"Moniker": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.Moniker = v.Str()
	}},
	"ManifestVersion": {required: true, populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		populateVersion(&m.ManifestVersion, v, d, mk)
	}},
	"ManifestType": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.ManifestType = ManifestType(v.Str())
	}},
	"PackageName": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.DefaultLocalization.PackageName = v.Str()
	}},
	"Publisher": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.DefaultLocalization.Publisher = v.Str()
	}},
	"License": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.DefaultLocalization.License = v.Str()
	}},
	"ShortDescription": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.DefaultLocalization.Description = v.Str()
	}},
	"Description": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		if m.DefaultLocalization.Description == "" {
			m.DefaultLocalization.Description = v.Str()
		}
	}},
	"Tags": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.DefaultLocalization.Tags = stringSeq(v)
	}},
	"ReleaseNotes": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.DefaultLocalization.ReleaseNotes = v.Str()
	}},
	"PackageLocale": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.DefaultLocalization.PackageLocale = v.Str()
	}},
	"Dependencies": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.Dependencies = populateDependencies(v, d, mk)
	}},
	"Installers": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.Installers = populateInstallers(v, d, mk)
	}},
	"Localization": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.Localizations = populateLocalizations(v, d, mk)
	}},
	"PackageFamilyName": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.PackageFamilyName = v.Str()
	}},
	"ProductCode": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.ProductCode = v.Str()
	}},
	"UpgradeBehavior": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.UpdateBehavior = v.Str()
	}},
	"InstallerSwitches": {populate: func(m *Manifest, v *yamldom.Node, d *ValidationErrors, mk yamldom.Mark) {
		m.Switches = map[SwitchKind]string{}
		if v == nil || v.Kind != yamldom.Mapping {
			return
		}
		for _, e := range v.Entries() {
			m.Switches[SwitchKind(e.Key)] = e.Value.Str()
		}
	}},
}

// canonicalFieldName performs the case-insensitive lookup used both for
// exact matches and for detecting FieldIsNotPascalCase (§4.1).
func canonicalFieldName(key string) (string, bool) {
	for name := range rootFieldTable {
		if equalFold(name, key) {
			return name, true
		}
	}
	return "", false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
