package arp

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/wpkg/core/manifest"
	"github.com/wpkg/core/pkg/logging"
)

// uninstallKeyPath is the registry subkey every ARP entry lives under.
const uninstallKeyPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`

// hiveView is one (root key, registry access view, Scope) combination
// the snapshot enumerates, matching §4.4's "User and Machine scopes and
// multiple architecture views (native and, when applicable, 32-bit-on-
// 64)". Grounded on the teacher's pkg/pkginfo.go GetInstalledVersion,
// which walks the same set of hive/view combinations for a single-item
// lookup; here the walk is generalized to a full snapshot.
type hiveView struct {
	root   registry.Key
	access uint32
	scope  manifest.Scope
}

func hiveViews() []hiveView {
	return []hiveView{
		{root: registry.LOCAL_MACHINE, access: registry.READ | registry.WOW64_64KEY, scope: manifest.ScopeMachine},
		{root: registry.LOCAL_MACHINE, access: registry.READ | registry.WOW64_32KEY, scope: manifest.ScopeMachine},
		{root: registry.CURRENT_USER, access: registry.READ, scope: manifest.ScopeUser},
	}
}

// TakeSnapshot enumerates every ARP entry currently present across all
// hive/view combinations (§4.4's "Snapshot"). Entries with
// SystemComponent != 0, no DisplayName, or no resolvable version are
// skipped.
func TakeSnapshot() (Snapshot, error) {
	snap := NewSnapshot()

	for _, hv := range hiveViews() {
		key, err := registry.OpenKey(hv.root, uninstallKeyPath, hv.access)
		if err != nil {
			logging.Debug("Skipping unavailable ARP hive/view", "scope", hv.scope, "error", err)
			continue
		}

		names, err := key.ReadSubKeyNames(-1)
		key.Close()
		if err != nil {
			return snap, fmt.Errorf("arp: listing %s subkeys: %w", uninstallKeyPath, err)
		}

		for _, name := range names {
			entry, ok := readEntry(hv, name)
			if !ok {
				continue
			}
			// First writer for a given Id wins; views are enumerated
			// native-then-32-bit-then-user, so the first hit already
			// reflects the most authoritative scope for that Id.
			if _, exists := snap.Entries[entry.Id]; !exists {
				snap.Entries[entry.Id] = entry
			}
		}
	}

	return snap, nil
}

func readEntry(hv hiveView, name string) (Entry, bool) {
	subKeyPath := uninstallKeyPath + `\` + name
	key, err := registry.OpenKey(hv.root, subKeyPath, hv.access)
	if err != nil {
		return Entry{}, false
	}
	defer key.Close()

	if systemComponent, _, err := key.GetIntegerValue("SystemComponent"); err == nil && systemComponent != 0 {
		return Entry{}, false
	}

	displayName, _, err := key.GetStringValue("DisplayName")
	if err != nil || displayName == "" {
		return Entry{}, false
	}

	version := resolveDisplayVersion(key)
	if version == "" {
		return Entry{}, false
	}

	publisher, _, _ := key.GetStringValue("Publisher")
	productCode, _, _ := key.GetStringValue("BundleProviderKey")
	if productCode == "" {
		productCode = name
	}
	installLocation, _, _ := key.GetStringValue("InstallLocation")
	uninstallString, _, _ := key.GetStringValue("UninstallString")
	quietUninstallString, _, _ := key.GetStringValue("QuietUninstallString")

	installerType := InstallerExe
	if windowsInstaller, _, err := key.GetIntegerValue("WindowsInstaller"); err == nil && windowsInstaller == 1 {
		installerType = InstallerMsi
	}

	return Entry{
		Id:                   name,
		DisplayName:          displayName,
		DisplayVersion:       version,
		Publisher:            publisher,
		Scope:                hv.scope,
		InstallerType:        installerType,
		ProductCode:          productCode,
		InstallLocation:      installLocation,
		UninstallString:      uninstallString,
		QuietUninstallString: quietUninstallString,
	}, true
}

// resolveDisplayVersion implements §4.4's priority order: DisplayVersion
// scalar, then packed DWORD Version, then {VersionMajor, VersionMinor}.
func resolveDisplayVersion(key registry.Key) string {
	if dv, _, err := key.GetStringValue("DisplayVersion"); err == nil && dv != "" {
		return dv
	}
	if packed, _, err := key.GetIntegerValue("Version"); err == nil && packed != 0 {
		major := (packed >> 24) & 0xFF
		minor := (packed >> 16) & 0xFF
		build := packed & 0xFFFF
		return fmt.Sprintf("%d.%d.%d", major, minor, build)
	}
	major, errMajor := key.GetIntegerValue("VersionMajor")
	minor, errMinor := key.GetIntegerValue("VersionMinor")
	if errMajor == nil || errMinor == nil {
		return strings.TrimSuffix(fmt.Sprintf("%d.%d", major, minor), ".0")
	}
	return ""
}
