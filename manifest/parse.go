package manifest

import (
	"fmt"

	"github.com/wpkg/core/internal/version"
	"github.com/wpkg/core/internal/yamldom"
)

// ParseOptions controls a single parse invocation.
type ParseOptions struct {
	// FileName is attached to every diagnostic for error reporting.
	FileName string
	// MaxSupportedManifestMajor gates the first document's declared
	// ManifestVersion (§4.1: "it must be <= max-supported-major").
	MaxSupportedManifestMajor int
	// FullValidation additionally runs the semantic pass (§4.1 step 3);
	// when false, only structural and schema-by-version checks run.
	FullValidation bool
	Policy         ResultPolicy
	// DependencySource, when set, runs the dependency-shape pass (§4.1
	// step 4) during parsing. Callers with no source available (e.g. a
	// standalone manifest lint) leave this nil and rely on the
	// resolver's own runtime check instead.
	DependencySource DependencySource
}

// ParseDocument parses a single YAML document's raw bytes into a
// Manifest, running the structural and schema-by-version passes.
// Multi-document merging is ParseMultiFile's job.
func ParseDocument(raw []byte, opts ParseOptions) (*Manifest, *ValidationErrors, error) {
	root, err := yamldom.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("manifest: %w", err)
	}
	diags := &ValidationErrors{}
	m := populateManifest(root, diags, opts)
	validateSchema(m, diags, opts)
	if opts.FullValidation {
		validateSemantic(m, diags)
	}
	if opts.DependencySource != nil {
		ValidateDependencyShape(m, opts.DependencySource, diags)
	}
	return m, diags, nil
}

func populateManifest(root *yamldom.Node, diags *ValidationErrors, opts ParseOptions) *Manifest {
	m := &Manifest{}
	if root == nil || root.Kind != yamldom.Mapping {
		return m
	}

	seen := map[string]int{}
	for _, entry := range root.Entries() {
		canonical, known := canonicalFieldName(entry.Key)
		if !known {
			diags.add(fieldError(MsgFieldUnknown, entry.Key, entry.Mark, LevelWarning))
			continue
		}
		if canonical != entry.Key {
			diags.add(fieldError(MsgFieldIsNotPascalCase, entry.Key, entry.Mark, LevelWarning))
		}
		seen[canonical]++
		if seen[canonical] > 1 {
			diags.add(fieldError(MsgFieldDuplicate, canonical, entry.Mark, LevelError))
			continue
		}
		rootFieldTable[canonical].populate(m, entry.Value, diags, entry.Mark)
	}

	for name, spec := range rootFieldTable {
		if spec.required && seen[name] == 0 {
			diags.add(ValidationError{MessageID: MsgInvalidFieldValue, Context: name, Level: LevelError, FileName: opts.FileName})
		}
	}

	applySwitchDefaults(m)
	m.Inherit()
	return m
}

func populateVersion(dst *version.Version, v *yamldom.Node, diags *ValidationErrors, mark yamldom.Mark) {
	parsed, err := version.Parse(v.Str())
	if err != nil {
		diags.add(fieldError(MsgInvalidFieldValue, "version", mark, LevelError))
		return
	}
	*dst = parsed
}

func stringChannel(raw string) version.Channel {
	return version.Channel(raw).Normalize()
}

func stringSeq(v *yamldom.Node) []string {
	if v == nil || v.Kind != yamldom.Sequence {
		return nil
	}
	out := make([]string, 0, len(v.Items()))
	for _, item := range v.Items() {
		out = append(out, item.Str())
	}
	return out
}

// mappingLookup returns a lookup closure over n that records a
// DuplicateMappingKey diagnostic when the requested key appeared more
// than once in n, instead of silently discarding
// yamldom.ErrDuplicateMappingKey (§3: "repeated keys inside a single
// mapping are an error at lookup time" — applies at every nested
// mapping a manifest declares, not just the document root).
func mappingLookup(n *yamldom.Node, diags *ValidationErrors) func(string) *yamldom.Node {
	return func(key string) *yamldom.Node {
		v, err := n.Lookup(key)
		if err != nil {
			diags.add(fieldError(MsgDuplicateMappingKey, key, n.Mark, LevelError))
		}
		return v
	}
}

func populateDependencies(v *yamldom.Node, diags *ValidationErrors, mark yamldom.Mark) Dependencies {
	var deps Dependencies
	if v == nil || v.Kind != yamldom.Mapping {
		return deps
	}
	lookup := mappingLookup(v, diags)
	if wf := lookup("WindowsFeatures"); wf.IsValid() {
		deps.WindowsFeatures = stringSeq(wf)
	}
	if wl := lookup("WindowsLibraries"); wl.IsValid() {
		deps.WindowsLibraries = stringSeq(wl)
	}
	if ext := lookup("ExternalDependencies"); ext.IsValid() {
		deps.ExternalDependencies = stringSeq(ext)
	}
	if pkgs := lookup("PackageDependencies"); pkgs.IsValid() {
		for _, item := range pkgs.Items() {
			pd := PackageDependency{}
			itemLookup := mappingLookup(item, diags)
			if idNode := itemLookup("PackageIdentifier"); idNode.IsValid() {
				pd.PackageIdentifier = idNode.Str()
			}
			if mv := itemLookup("MinimumVersion"); mv.IsValid() {
				parsed, perr := version.Parse(mv.Str())
				if perr != nil || parsed.IsApproximate() {
					diags.add(fieldError(MsgInvalidFieldValue, "PackageDependencies.MinimumVersion", mark, LevelError))
				} else {
					pd.MinVersion = &parsed
				}
			}
			deps.PackageDependencies = append(deps.PackageDependencies, pd)
		}
	}
	return deps
}

func populateLocalizations(v *yamldom.Node, diags *ValidationErrors, mark yamldom.Mark) []Localization {
	if v == nil || v.Kind != yamldom.Sequence {
		return nil
	}
	var out []Localization
	for _, item := range v.Items() {
		loc := Localization{}
		lookup := mappingLookup(item, diags)
		loc.PackageLocale = lookup("PackageLocale").Str()
		loc.PackageName = lookup("PackageName").Str()
		loc.Publisher = lookup("Publisher").Str()
		loc.License = lookup("License").Str()
		loc.Description = lookup("Description").Str()
		loc.ReleaseNotes = lookup("ReleaseNotes").Str()
		loc.Tags = stringSeq(lookup("Tags"))
		loc.Agreements = stringSeq(lookup("Agreements"))
		loc.Documentations = stringSeq(lookup("Documentations"))
		loc.Icons = stringSeq(lookup("Icons"))
		out = append(out, loc)
	}
	return out
}

func populateInstallers(v *yamldom.Node, diags *ValidationErrors, mark yamldom.Mark) []Installer {
	if v == nil || v.Kind != yamldom.Sequence {
		return nil
	}
	var out []Installer
	for _, item := range v.Items() {
		out = append(out, populateInstaller(item, diags))
	}
	return out
}

func populateInstaller(item *yamldom.Node, diags *ValidationErrors) Installer {
	inst := Installer{Switches: map[SwitchKind]string{}}
	lookup := mappingLookup(item, diags)

	inst.Architecture = lookup("Architecture").Str()
	inst.InstallerType = InstallerType(lookup("InstallerType").Str())
	inst.NestedInstallerType = InstallerType(lookup("NestedInstallerType").Str())
	inst.URL = lookup("InstallerUrl").Str()
	inst.InstallerSHA256 = lookup("InstallerSha256").Str()
	inst.SignatureSHA256 = lookup("SignatureSha256").Str()
	inst.InstallerLocale = lookup("InstallerLocale").Str()
	inst.Scope = Scope(lookup("Scope").Str())
	inst.ProductCode = lookup("ProductCode").Str()
	inst.PackageFamilyName = lookup("PackageFamilyName").Str()
	inst.UpgradeCode = lookup("UpgradeCode").Str()
	inst.MinimumOSVersion = lookup("MinimumOSVersion").Str()
	inst.Platform = stringSeq(lookup("Platform"))
	inst.InstallModes = stringSeq(lookup("InstallModes"))
	inst.UnsupportedArguments = stringSeq(lookup("UnsupportedArguments"))
	inst.Capabilities = stringSeq(lookup("Capabilities"))
	inst.UpdateBehavior = lookup("UpgradeBehavior").Str()

	if b, ok := lookup("RequireExplicitUpgrade").Bool(); ok {
		inst.RequireExplicitUpgrade = b
	}

	if sw := lookup("InstallerSwitches"); sw.IsValid() && sw.Kind == yamldom.Mapping {
		for _, e := range sw.Entries() {
			inst.Switches[SwitchKind(e.Key)] = e.Value.Str()
		}
	}

	if deps := lookup("Dependencies"); deps.IsValid() {
		inst.Dependencies = populateDependencies(deps, diags, yamldom.Mark{})
	}

	if markets := lookup("Markets"); markets.IsValid() && markets.Kind == yamldom.Mapping {
		marketsLookup := mappingLookup(markets, diags)
		inst.Markets.AllowedMarkets = stringSeq(marketsLookup("AllowedMarkets"))
		inst.Markets.ExcludedMarkets = stringSeq(marketsLookup("ExcludedMarkets"))
	}

	if codes := lookup("ExpectedReturnCodes"); codes.IsValid() {
		for _, c := range codes.Items() {
			if i, ok := c.Int(); ok {
				inst.ExpectedReturnCodes = append(inst.ExpectedReturnCodes, int(i))
			}
		}
	}
	if codes := lookup("InstallerSuccessCodes"); codes.IsValid() {
		for _, c := range codes.Items() {
			if i, ok := c.Int(); ok {
				inst.SuccessCodes = append(inst.SuccessCodes, int(i))
			}
		}
	}

	if afe := lookup("AppsAndFeaturesEntries"); afe.IsValid() {
		for _, e := range afe.Items() {
			entry := AppsAndFeaturesEntry{}
			eLookup := mappingLookup(e, diags)
			entry.DisplayName = eLookup("DisplayName").Str()
			entry.DisplayVersion = eLookup("DisplayVersion").Str()
			entry.Publisher = eLookup("Publisher").Str()
			entry.ProductCode = eLookup("ProductCode").Str()
			entry.UpgradeCode = eLookup("UpgradeCode").Str()
			entry.InstallerType = InstallerType(eLookup("InstallerType").Str())
			inst.AppsAndFeaturesEntries = append(inst.AppsAndFeaturesEntries, entry)
		}
	}

	if im := lookup("InstallationMetadata"); im.IsValid() && im.Kind == yamldom.Mapping {
		meta := &InstallationMetadata{}
		imLookup := mappingLookup(im, diags)
		meta.DefaultInstallLocation = imLookup("DefaultInstallLocation").Str()
		if files := imLookup("Files"); files.IsValid() {
			for _, f := range files.Items() {
				fLookup := mappingLookup(f, diags)
				meta.Files = append(meta.Files, InstalledFile{
					RelativeFilePath:    fLookup("RelativeFilePath").Str(),
					SHA256:              fLookup("FileSha256").Str(),
					FileType:            InstalledFileType(fLookup("FileType").Str()),
					InvocationParameter: fLookup("InvocationParameter").Str(),
					DisplayName:         fLookup("DisplayName").Str(),
				})
			}
		}
		inst.InstallationMetadata = meta
	}

	return inst
}

// applySwitchDefaults injects known-switch defaults per installer type,
// then overrides them with root Switches, then with installer-local
// Switches (§4.1: "Known-switch defaults are injected... then
// overridden by root Switches, then by installer-local Switches").
func applySwitchDefaults(m *Manifest) {
	for idx := range m.Installers {
		inst := &m.Installers[idx]
		defaults := defaultSwitchesFor(inst.InstallerType)
		local := inst.Switches
		merged := make(map[SwitchKind]string, len(defaults)+len(m.Switches)+len(local))
		for k, v := range defaults {
			merged[k] = v
		}
		for k, v := range m.Switches {
			merged[k] = v
		}
		for k, v := range local {
			merged[k] = v
		}
		inst.Switches = merged
	}
}

func isMsixFamily(t InstallerType) bool {
	return t == InstallerMsix
}

func defaultSwitchesFor(t InstallerType) map[SwitchKind]string {
	switch t {
	case InstallerMsi, InstallerWix, InstallerBurn:
		return map[SwitchKind]string{
			SwitchSilent:             `/quiet`,
			SwitchSilentWithProgress: `/passive`,
			SwitchLog:                `/log "<LOGPATH>"`,
			SwitchInstallLocation:    `TARGETDIR="<INSTALLPATH>"`,
			SwitchUpgrade:            `REINSTALL=ALL REINSTALLMODE=vamus`,
		}
	default:
		return map[SwitchKind]string{}
	}
}

// Inherit propagates root-level attributes down to installers that
// don't declare their own value, restricted to installer types that
// semantically use the attribute (§4.1: "PackageFamilyName is only
// inherited by MSIX-family installers"). Switches are handled
// separately by applySwitchDefaults, which already folds root Switches
// in before installer-local ones; called once population of both the
// root scalar fields and the Installers subtree has finished, so
// iteration order over the root mapping doesn't matter.
func (m *Manifest) Inherit() {
	for idx := range m.Installers {
		inst := &m.Installers[idx]
		if inst.PackageFamilyName == "" && isMsixFamily(inst.InstallerType) {
			inst.PackageFamilyName = m.PackageFamilyName
		}
		if inst.ProductCode == "" {
			inst.ProductCode = m.ProductCode
		}
		if inst.UpdateBehavior == "" {
			inst.UpdateBehavior = m.UpdateBehavior
		}
	}
}
