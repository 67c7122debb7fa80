// Package sysinfo supplies host OS facts used to evaluate an
// installer's MinimumOSVersion and architecture applicability checks
// (§4.4, SPEC_FULL DOMAIN STACK). It favors gopsutil's cross-platform
// host facts and fills in the build number gopsutil doesn't expose
// with a direct WMI query of Win32_OperatingSystem, mirroring how the
// teacher's pkg/catalog pairs the two for OS-gated catalog entries.
// Collect does not populate HostInfo.UBR; it stays zero.
package sysinfo

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/yusufpapurcu/wmi"

	"github.com/wpkg/core/pkg/logging"
)

// HostInfo is the subset of host facts installer applicability checks
// need: platform family, kernel/build version, and the Windows-specific
// UBR (update build revision) that distinguishes patch levels within
// the same build.
type HostInfo struct {
	Platform        string
	PlatformVersion string
	KernelVersion   string
	Build           uint32
	UBR             uint32
}

// win32OperatingSystem is the narrow WMI projection this package reads;
// field names must match the WMI class's property names exactly.
type win32OperatingSystem struct {
	BuildNumber string
}

// Collect gathers host facts via gopsutil, then supplements the build
// number with a Win32_OperatingSystem WMI query when running on
// Windows. On any WMI failure the gopsutil-derived facts are still
// returned; installer checks degrade to coarser version comparisons
// rather than failing outright.
func Collect(ctx context.Context) (HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, fmt.Errorf("sysinfo: reading host info: %w", err)
	}

	hi := HostInfo{
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
	}

	var rows []win32OperatingSystem
	if err := wmi.Query("SELECT BuildNumber FROM Win32_OperatingSystem", &rows); err != nil {
		logging.Debug("WMI OS query unavailable, continuing with gopsutil facts only", "error", err)
		return hi, nil
	}
	if len(rows) > 0 {
		var build uint32
		if _, err := fmt.Sscanf(rows[0].BuildNumber, "%d", &build); err == nil {
			hi.Build = build
		}
	}
	return hi, nil
}

// SatisfiesMinimumOSVersion reports whether this host's build meets or
// exceeds a manifest's MinimumOSVersion build number.
func (h HostInfo) SatisfiesMinimumOSVersion(minBuild uint32) bool {
	if minBuild == 0 {
		return true
	}
	return h.Build >= minBuild
}
