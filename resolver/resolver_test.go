package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wpkg/core/internal/version"
	"github.com/wpkg/core/manifest"
)

// fixtureSource reproduces the dependency graph from
// original_source/src/AppInstallerCLITests/DependenciesTestSource.h:
// C->B, D->E, E->D, F->B, G->C, H->{G,B}, installed1->installed1Dep,
// minVersion has versions {1.0, 1.5}.
type fixtureSource struct {
	deps      map[string][]string
	versions  map[string][]string
	installed map[string]bool
}

func newDependencyFixtureSource() *fixtureSource {
	return &fixtureSource{
		deps: map[string][]string{
			"C": {"B"},
			"D": {"E"},
			"E": {"D"},
			"F": {"B"},
			"G": {"C"},
			"H": {"G", "B"},
			"installed1": {"installed1Dep"},
		},
		versions: map[string][]string{
			"minVersion": {"1.0", "1.5"},
		},
		installed: map[string]bool{
			"installed1": true,
		},
	}
}

func (f *fixtureSource) versionsOf(id string) []string {
	if vs, ok := f.versions[id]; ok {
		return vs
	}
	return []string{"1.0"}
}

func (f *fixtureSource) IsInstalled(identifier string, min version.Version, hasMin bool) bool {
	return f.installed[identifier]
}

func (f *fixtureSource) ResolveVersion(identifier string, min version.Version, hasMin bool) (*manifest.Manifest, manifest.Installer, bool) {
	versions := make([]version.Version, 0, len(f.versionsOf(identifier)))
	for _, raw := range f.versionsOf(identifier) {
		v, err := version.Parse(raw)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}

	var chosen version.Version
	ok := false
	if hasMin {
		chosen, ok = version.BestSatisfying(versions, min)
	} else if len(versions) > 0 {
		chosen, ok = versions[0], true
		for _, v := range versions[1:] {
			if v.LessThan(chosen) {
				chosen = v
			}
		}
	}
	if !ok {
		return nil, manifest.Installer{}, false
	}

	m := &manifest.Manifest{PackageIdentifier: identifier, PackageVersion: chosen}
	for _, childID := range f.deps[identifier] {
		m.Dependencies.PackageDependencies = append(m.Dependencies.PackageDependencies, manifest.PackageDependency{PackageIdentifier: childID})
	}
	return m, manifest.Installer{}, true
}

func rootWithDeps(id string, depIDs ...string) (*manifest.Manifest, manifest.Installer) {
	root := &manifest.Manifest{PackageIdentifier: id}
	for _, d := range depIDs {
		root.Dependencies.PackageDependencies = append(root.Dependencies.PackageDependencies, manifest.PackageDependency{PackageIdentifier: d})
	}
	return root, manifest.Installer{}
}

func planIDs(plan []PackageToInstall) []string {
	ids := make([]string, len(plan))
	for i, p := range plan {
		ids[i] = p.Identifier
	}
	return ids
}

// TestDependencyGraph_BFirst is scenario 1 from §8.
func TestDependencyGraph_BFirst(t *testing.T) {
	src := newDependencyFixtureSource()
	root, inst := rootWithDeps("NeedsToInstallBFirst", "B", "C")

	plan, err := Resolve(root, inst, src, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := planIDs(plan)
	want := []string{"B", "C"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("install order mismatch (-want +got):\n%s", diff)
	}
}

// TestDependencyGraph_PathNoLoop is scenario 2 from §8.
func TestDependencyGraph_PathNoLoop(t *testing.T) {
	src := newDependencyFixtureSource()
	root, inst := rootWithDeps("PathBetweenBranchesButNoLoop", "C", "H")

	plan, err := Resolve(root, inst, src, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := planIDs(plan)
	want := []string{"B", "C", "G", "H"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("install order mismatch (-want +got):\n%s", diff)
	}
}

// TestDependencyGraph_SkipInstalled is scenario 3 from §8.
func TestDependencyGraph_SkipInstalled(t *testing.T) {
	src := newDependencyFixtureSource()
	root, inst := rootWithDeps("DependenciesInstalled", "installed1")

	plan, err := Resolve(root, inst, src, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("got %v, want empty plan", planIDs(plan))
	}
}

// TestDependencyGraph_MinVersion is scenario 4 from §8.
func TestDependencyGraph_MinVersion(t *testing.T) {
	src := newDependencyFixtureSource()
	minVer := version.MustParse("1.0")
	root := &manifest.Manifest{
		PackageIdentifier: "DependenciesValidMinVersions",
		Dependencies: manifest.Dependencies{
			PackageDependencies: []manifest.PackageDependency{
				{PackageIdentifier: "minVersion", MinVersion: &minVer},
			},
		},
	}

	plan, err := Resolve(root, manifest.Installer{}, src, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 1 || plan[0].Identifier != "minVersion" || plan[0].Manifest.PackageVersion.String() != "1.0" {
		t.Errorf("got %+v, want [{minVersion 1.0}]", plan)
	}
}

// TestFoundDependencyLoop exercises the EasyToSeeLoop fixture (D->E->D).
func TestFoundDependencyLoop(t *testing.T) {
	src := newDependencyFixtureSource()
	root, inst := rootWithDeps("EasyToSeeLoop", "D")

	_, err := Resolve(root, inst, src, false)
	cycleErr, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if len(cycleErr.Path) < 2 {
		t.Errorf("expected a non-trivial cycle path, got %v", cycleErr.Path)
	}
}

func TestSkipDependencies(t *testing.T) {
	src := newDependencyFixtureSource()
	root, inst := rootWithDeps("NeedsToInstallBFirst", "B", "C")

	plan, err := Resolve(root, inst, src, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 1 || plan[0].Identifier != root.PackageIdentifier {
		t.Errorf("skipDependencies should yield only the root, got %v", planIDs(plan))
	}
}
