// Package resolver implements the dependency graph resolver described
// in §4.3: a depth-first traversal over a directed graph whose nodes are
// package identifiers, producing a topologically ordered, loop-free
// install plan subject to minimum-version constraints and already-
// installed packages.
//
// The DFS shape and its test fixtures are grounded directly on
// original_source/src/AppInstallerCLITests/DependenciesTestSource.h and
// Dependencies.cpp; the emit-list/active-stack bookkeeping mirrors the
// teacher's pkg/pkginfo.go dependency-install walk (InstallDependencies),
// generalized from Cimian's flat dependency list to a full graph walk.
package resolver

import (
	"fmt"
	"strings"

	"github.com/wpkg/core/internal/version"
	"github.com/wpkg/core/manifest"
)

// DependencySource is the narrow surface the resolver needs from a
// package source (§4.3's "dependency source"): whether an identifier is
// already installed at a satisfying version, and which manifest/
// installer to select for an identifier given a MinVersion constraint.
type DependencySource interface {
	// IsInstalled reports whether identifier is present in the Installed
	// source and, if hasMin, that its installed version satisfies min.
	IsInstalled(identifier string, min version.Version, hasMin bool) bool
	// ResolveVersion selects the lowest version of identifier that is >=
	// min (§4.3 step 3: "pick the lowest version >= MinVersion"); ok is
	// false if no such version exists.
	ResolveVersion(identifier string, min version.Version, hasMin bool) (m *manifest.Manifest, inst manifest.Installer, ok bool)
}

// PackageToInstall is one entry of the resolver's output (§4.3).
type PackageToInstall struct {
	Identifier string
	Manifest   *manifest.Manifest
	Installer  manifest.Installer
}

// CycleError is FoundDependencyLoop (§4.3, §7): the full ordered path
// from the point the node re-enters the active stack, not just the two
// colliding identifiers (confirmed against Dependencies.cpp's
// DependencyAlreadyInStackButNoLoop vs loop cases).
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolver: dependency loop: %s", strings.Join(e.Path, " -> "))
}

// MinVersionError is NoSuitableMinVersionDependency (§4.3, §7).
type MinVersionError struct {
	Identifier string
	MinVersion string
}

func (e *MinVersionError) Error() string {
	return fmt.Sprintf("resolver: no suitable version of %s satisfies minimum version %s", e.Identifier, e.MinVersion)
}

// resolverState carries the DFS bookkeeping for one Resolve call.
type resolverState struct {
	src DependencySource

	active   []string      // the current DFS path, for cycle-path reporting
	onStack  map[string]bool
	emitted  map[string]bool
	plan     []PackageToInstall
}

// Resolve walks root's dependency graph against src and returns an
// ordered, loop-free install plan (§4.3): the dependencies that still
// need installing, dependency-first; root itself is not part of it.
// When skipDependencies is true, no traversal happens and the plan is
// root's own installer alone. If any error is reported, the emit list is
// discarded (§4.3's invariant).
func Resolve(root *manifest.Manifest, rootInstaller manifest.Installer, src DependencySource, skipDependencies bool) ([]PackageToInstall, error) {
	if skipDependencies {
		return []PackageToInstall{{Identifier: root.PackageIdentifier, Manifest: root, Installer: rootInstaller}}, nil
	}

	st := &resolverState{
		src:     src,
		onStack: map[string]bool{},
		emitted: map[string]bool{},
	}

	if err := st.visitRoot(root, rootInstaller); err != nil {
		return nil, err
	}
	return st.plan, nil
}

func (st *resolverState) visitRoot(root *manifest.Manifest, rootInstaller manifest.Installer) error {
	id := root.PackageIdentifier
	st.push(id)
	defer st.pop()

	deps := root.EffectiveDependencies(rootInstaller)
	for _, dep := range deps.PackageDependencies {
		if err := st.visit(dep); err != nil {
			return err
		}
	}
	return nil
}

// visit implements the per-node algorithm of §4.3 steps 1-5.
func (st *resolverState) visit(dep manifest.PackageDependency) error {
	id := dep.PackageIdentifier

	var min version.Version
	hasMin := dep.MinVersion != nil
	if hasMin {
		min = *dep.MinVersion
	}

	// Step 1: already installed -> skip.
	if st.src.IsInstalled(id, min, hasMin) {
		return nil
	}

	// Step 2: already on the active stack -> loop.
	if st.onStack[id] {
		return &CycleError{Path: st.cyclePath(id)}
	}

	// Step 3: push, resolve, choose best version.
	st.push(id)
	defer st.pop()

	m, inst, ok := st.src.ResolveVersion(id, min, hasMin)
	if !ok {
		minStr := "any"
		if hasMin {
			minStr = min.String()
		}
		return &MinVersionError{Identifier: id, MinVersion: minStr}
	}

	// Step 4: recurse into declared dependencies (installer-level take
	// precedence over root-level when both are present).
	deps := m.EffectiveDependencies(inst)
	for _, childDep := range deps.PackageDependencies {
		if err := st.visit(childDep); err != nil {
			return err
		}
	}

	// Step 5: emit if not already emitted.
	st.emit(id, m, inst)
	return nil
}

func (st *resolverState) push(id string) {
	st.active = append(st.active, id)
	st.onStack[id] = true
}

func (st *resolverState) pop() {
	last := st.active[len(st.active)-1]
	st.active = st.active[:len(st.active)-1]
	delete(st.onStack, last)
}

// cyclePath returns the ordered path from id's first occurrence on the
// active stack through the current top, plus id again to close the
// loop, matching the "ordered list of identifiers from the point the
// node re-enters the active stack" behavior recovered from
// original_source/.
func (st *resolverState) cyclePath(id string) []string {
	for i, v := range st.active {
		if v == id {
			path := append([]string{}, st.active[i:]...)
			return append(path, id)
		}
	}
	return append(append([]string{}, st.active...), id)
}

func (st *resolverState) emit(id string, m *manifest.Manifest, inst manifest.Installer) {
	if st.emitted[id] {
		return
	}
	st.emitted[id] = true
	st.plan = append(st.plan, PackageToInstall{Identifier: id, Manifest: m, Installer: inst})
}
