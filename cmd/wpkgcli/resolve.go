package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/wpkg/core/errorcode"
	"github.com/wpkg/core/internal/version"
	"github.com/wpkg/core/manifest"
	"github.com/wpkg/core/pkg/logging"
	"github.com/wpkg/core/resolver"
)

// fileDependencySource resolves dependency identifiers against a flat
// directory of "<identifier>.yaml" manifest documents, the simplest
// DependencySource a thin CLI can offer without a running source
// registry behind it.
type fileDependencySource struct {
	depsDir   string
	installed map[string]bool
}

// IsInstalled reports whether identifier is in the --installed list.
// That list carries no versions, so min is not checked: every listed
// identifier counts as installed at a satisfying version.
func (f fileDependencySource) IsInstalled(identifier string, min version.Version, hasMin bool) bool {
	return f.installed[identifier]
}

func (f fileDependencySource) ResolveVersion(identifier string, min version.Version, hasMin bool) (*manifest.Manifest, manifest.Installer, bool) {
	path := filepath.Join(f.depsDir, identifier+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, manifest.Installer{}, false
	}
	m, diags, err := manifest.ParseDocument(raw, manifest.ParseOptions{FileName: path, FullValidation: true})
	if err != nil || diags.HasErrors() {
		return nil, manifest.Installer{}, false
	}
	if hasMin && !m.PackageVersion.SatisfiesMin(min) {
		return nil, manifest.Installer{}, false
	}
	var inst manifest.Installer
	if len(m.Installers) > 0 {
		inst = m.Installers[0]
	}
	return m, inst, true
}

func runResolve(args []string) errorcode.Code {
	fs := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
	root := fs.StringP("root", "r", "", "path to the root manifest YAML document")
	depsDir := fs.String("deps-dir", "", "directory of dependency manifests named <identifier>.yaml")
	installedList := fs.String("installed", "", "comma-separated list of identifiers treated as already installed")
	skipDeps := fs.Bool("skip-dependencies", false, "resolve only the root package, ignoring its dependencies")
	if err := fs.Parse(args); err != nil {
		return errorcode.ErrInstallDependencies
	}
	if *root == "" {
		fmt.Fprintln(os.Stderr, "resolve: --root is required")
		return errorcode.ErrInstallDependencies
	}

	raw, err := os.ReadFile(*root)
	if err != nil {
		logging.Error("resolve: reading root manifest", "file", *root, "error", err)
		return errorcode.ErrManifestFailed
	}
	rootManifest, diags, err := manifest.ParseDocument(raw, manifest.ParseOptions{FileName: *root, FullValidation: true})
	if err != nil || diags.HasErrors() {
		fmt.Fprintln(os.Stderr, "resolve: root manifest failed to parse")
		return errorcode.ErrManifestFailed
	}
	var rootInstaller manifest.Installer
	if len(rootManifest.Installers) > 0 {
		rootInstaller = rootManifest.Installers[0]
	}

	installed := map[string]bool{}
	if *installedList != "" {
		for _, id := range strings.Split(*installedList, ",") {
			installed[strings.TrimSpace(id)] = true
		}
	}

	src := fileDependencySource{depsDir: *depsDir, installed: installed}

	plan, err := resolver.Resolve(rootManifest, rootInstaller, src, *skipDeps)
	if err != nil {
		logging.Error("resolve: dependency resolution failed", "error", err)
		return errorcode.Classify(err)
	}

	for i, step := range plan {
		fmt.Fprintf(os.Stdout, "%d: %s %s\n", i+1, step.Identifier, step.Manifest.PackageVersion.String())
	}
	return errorcode.Success
}
