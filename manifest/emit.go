package manifest

import (
	"sort"
	"strconv"

	"github.com/wpkg/core/internal/yamldom"
)

// Emit renders a canonical YAML representation of m combined with a
// single Installer back to text (§4.1's "Emitter"). Absent or
// empty-collection values are omitted; booleans serialize as
// true/false; SHA-256 hashes are lowercased here (the schema pass
// accepts either case).
func Emit(m *Manifest, inst Installer) ([]byte, error) {
	em := yamldom.NewEmitter()
	if err := em.BeginMap(); err != nil {
		return nil, err
	}

	emitStr(em, "PackageIdentifier", m.PackageIdentifier)
	emitStr(em, "PackageVersion", m.PackageVersion.String())
	if m.Channel != "" {
		emitStr(em, "Channel", string(m.Channel))
	}
	if m.Moniker != "" {
		emitStr(em, "Moniker", m.Moniker)
	}
	emitStr(em, "ManifestVersion", m.ManifestVersion.String())
	emitStr(em, "ManifestType", string(m.ManifestType))

	if m.DefaultLocalization.PackageName != "" {
		emitStr(em, "PackageName", m.DefaultLocalization.PackageName)
	}
	if m.DefaultLocalization.Publisher != "" {
		emitStr(em, "Publisher", m.DefaultLocalization.Publisher)
	}
	if m.DefaultLocalization.License != "" {
		emitStr(em, "License", m.DefaultLocalization.License)
	}
	if len(m.DefaultLocalization.Tags) > 0 {
		emitStrSeq(em, "Tags", m.DefaultLocalization.Tags)
	}

	if err := em.Key("Installers"); err != nil {
		return nil, err
	}
	if err := em.BeginSeq(); err != nil {
		return nil, err
	}
	if err := emitInstaller(em, inst); err != nil {
		return nil, err
	}
	if err := em.EndSeq(); err != nil {
		return nil, err
	}

	if err := em.EndMap(); err != nil {
		return nil, err
	}
	return em.Marshal()
}

func emitInstaller(em *yamldom.Emitter, inst Installer) error {
	if err := em.BeginMap(); err != nil {
		return err
	}

	emitStr(em, "Architecture", inst.Architecture)
	emitStr(em, "InstallerType", string(inst.InstallerType))
	if inst.NestedInstallerType != "" {
		emitStr(em, "NestedInstallerType", string(inst.NestedInstallerType))
	}
	emitStr(em, "InstallerUrl", inst.URL)
	if inst.InstallerSHA256 != "" {
		emitStr(em, "InstallerSha256", normalizeHashCase(inst.InstallerSHA256))
	}
	if inst.SignatureSHA256 != "" {
		emitStr(em, "SignatureSha256", normalizeHashCase(inst.SignatureSHA256))
	}
	if inst.InstallerLocale != "" {
		emitStr(em, "InstallerLocale", inst.InstallerLocale)
	}
	if inst.Scope != ScopeUnknown {
		emitStr(em, "Scope", string(inst.Scope))
	}
	if inst.ProductCode != "" {
		emitStr(em, "ProductCode", inst.ProductCode)
	}
	if inst.PackageFamilyName != "" {
		emitStr(em, "PackageFamilyName", inst.PackageFamilyName)
	}
	if inst.MinimumOSVersion != "" {
		emitStr(em, "MinimumOSVersion", inst.MinimumOSVersion)
	}
	if len(inst.Platform) > 0 {
		emitStrSeq(em, "Platform", inst.Platform)
	}
	if len(inst.Switches) > 0 {
		if err := emitSwitches(em, inst.Switches); err != nil {
			return err
		}
	}
	if len(inst.ExpectedReturnCodes) > 0 {
		emitIntSeq(em, "ExpectedReturnCodes", inst.ExpectedReturnCodes)
	}
	if len(inst.SuccessCodes) > 0 {
		emitIntSeq(em, "InstallerSuccessCodes", inst.SuccessCodes)
	}

	return em.EndMap()
}

func emitSwitches(em *yamldom.Emitter, switches map[SwitchKind]string) error {
	if err := em.Key("InstallerSwitches"); err != nil {
		return err
	}
	if err := em.BeginMap(); err != nil {
		return err
	}
	keys := make([]string, 0, len(switches))
	for k := range switches {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		emitStr(em, k, switches[SwitchKind(k)])
	}
	return em.EndMap()
}

func emitStr(em *yamldom.Emitter, key, value string) {
	_ = em.Key(key)
	_ = em.Scalar(value, yamldom.TagStr)
}

func emitStrSeq(em *yamldom.Emitter, key string, values []string) {
	_ = em.Key(key)
	_ = em.BeginSeq()
	for _, v := range values {
		_ = em.Scalar(v, yamldom.TagStr)
	}
	_ = em.EndSeq()
}

func emitIntSeq(em *yamldom.Emitter, key string, values []int) {
	_ = em.Key(key)
	_ = em.BeginSeq()
	for _, v := range values {
		_ = em.Scalar(strconv.Itoa(v), yamldom.TagInt)
	}
	_ = em.EndSeq()
}

func normalizeHashCase(hexDigest string) string {
	out := make([]byte, len(hexDigest))
	for i := 0; i < len(hexDigest); i++ {
		c := hexDigest[i]
		if c >= 'A' && c <= 'F' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
