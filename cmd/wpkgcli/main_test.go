package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wpkg/core/errorcode"
)

func writeTempManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

const validSample = `
PackageIdentifier: Contoso.Widget
PackageVersion: 1.0.0
ManifestVersion: 1.6.0
ManifestType: singleton
PackageLocale: en-US
Publisher: Contoso Corp
PackageName: Contoso Widget
ShortDescription: A widget.
Installers:
  - Architecture: x64
    InstallerType: exe
    InstallerUrl: https://example.com/widget.exe
    InstallerSha256: 0000000000000000000000000000000000000000000000000000000000000000
`

func TestRunValidateSucceedsOnWellFormedManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeTempManifest(t, dir, "widget.yaml", validSample)

	code := runValidate([]string{"--file", path})
	if code != errorcode.Success {
		t.Fatalf("expected Success, got %v", code)
	}
}

func TestRunValidateFailsOnMissingFile(t *testing.T) {
	code := runValidate([]string{"--file", filepath.Join(t.TempDir(), "missing.yaml")})
	if code != errorcode.ErrManifestFailed {
		t.Fatalf("expected ErrManifestFailed, got %v", code)
	}
}

func TestRunResolveSkipDependenciesSmoke(t *testing.T) {
	dir := t.TempDir()
	path := writeTempManifest(t, dir, "root.yaml", validSample)

	code := runResolve([]string{"--root", path, "--skip-dependencies"})
	if code != errorcode.Success {
		t.Fatalf("expected Success, got %v", code)
	}
}

func TestRunSearchRequiresCatalog(t *testing.T) {
	code := runSearch(nil)
	if code != errorcode.ErrSourceDataMissing {
		t.Fatalf("expected ErrSourceDataMissing, got %v", code)
	}
}
