package source

import (
	"fmt"

	"github.com/wpkg/core/internal/normalize"
)

// ProgressCallback reports progress on a long-running operation and
// carries cancellation (§5's "suspension points"); ops should poll Done
// between expensive steps and abort with ErrOperationAborted.
type ProgressCallback interface {
	Progress(percent int)
	Done() <-chan struct{}
}

// ErrOperationAborted is returned by any operation cancelled through a
// ProgressCallback (§5).
var ErrOperationAborted = fmt.Errorf("source: operation aborted")

// Source is the opaque backend interface described in §3/§9: a tagged
// variant with a capability trait {Search, Add, Update, Remove,
// IsComposite, GetDetails, GetIdentifier}. SQLite persistence and
// remote-source synchronization are out of scope (§1); concrete
// backends satisfying this interface are the caller's concern. The
// implementations this module ships are the in-memory StaticSource and
// CompositeSource; package arp does not provide a Source.
type Source interface {
	Details() Details
	Identifier() string
	IsComposite() bool
	Search(req SearchRequest) (SearchResult, error)
}

// Mutable is implemented by backends that support registry lifecycle
// operations in addition to Search (factories register Type strings
// per §9's "factories are registered by Type string").
type Mutable interface {
	Source
	Update(progress ProgressCallback) error
}

// Factory constructs a backend Source from its persisted Arg/Data.
type Factory func(details Details) (Source, error)

var factories = map[string]Factory{}

// RegisterFactory registers a backend constructor under typeName, the
// tagged-variant dispatch described in §9.
func RegisterFactory(typeName string, factory Factory) {
	factories[typeName] = factory
}

func lookupFactory(typeName string) (Factory, bool) {
	f, ok := factories[typeName]
	return f, ok
}

// CompositeSource fuses results from one Installed source and zero or
// more Available sources into unified package records (§4.2).
type CompositeSource struct {
	Installed Source
	Available []Source
}

func (c *CompositeSource) Details() Details {
	return Details{Name: "*Composite*", Identifier: "composite", Type: "composite"}
}

func (c *CompositeSource) Identifier() string { return "composite" }

func (c *CompositeSource) IsComposite() bool { return true }

// Search executes req against every constituent source, orders the
// combined matches by match rank with source insertion order breaking
// ties, and fuses installed/available packages
// sharing identity per §4.2's correlation rule.
func (c *CompositeSource) Search(req SearchRequest) (SearchResult, error) {
	var all []SearchResultEntry
	order := 0

	if c.Installed != nil {
		result, err := c.Installed.Search(req)
		if err != nil {
			return SearchResult{}, fmt.Errorf("source: searching %s: %w", c.Installed.Identifier(), err)
		}
		for _, m := range result.Matches {
			m.sourceOrder = order
			m.fromInstalled = true
			order++
			all = append(all, m)
		}
	}
	for _, s := range c.Available {
		result, err := s.Search(req)
		if err != nil {
			return SearchResult{}, fmt.Errorf("source: searching %s: %w", s.Identifier(), err)
		}
		for _, m := range result.Matches {
			m.sourceOrder = order
			order++
			all = append(all, m)
		}
	}

	fused := fuseComposite(all)
	return orderAndTruncate(fused, req.MaximumResults), nil
}

// correlates reports whether two packages denote the same underlying
// product by Id, normalized PackageFamilyName, or case-folded
// ProductCode/UpgradeCode (§4.2).
func correlates(a, b Package) bool {
	if a.Id == b.Id {
		return true
	}
	if a.PackageFamilyName != "" && normalize.Equal(a.PackageFamilyName, b.PackageFamilyName) {
		return true
	}
	if a.ProductCode != "" && normalize.Equal(a.ProductCode, b.ProductCode) {
		return true
	}
	if a.UpgradeCode != "" && normalize.Equal(a.UpgradeCode, b.UpgradeCode) {
		return true
	}
	return false
}

// fuseComposite implements §4.2's correlation rule: an Installed-origin
// entry and an Available-origin entry are fused into one CompositePackage
// when they correlate by Id, PackageFamilyName, ProductCode, or
// UpgradeCode. Two Available-origin entries never fuse with each other —
// distinct Available sources legitimately carry the same package and
// each stands as its own ranked result (§8 scenario 7). The lowest-rank,
// earliest-order entry in a correlated group survives as the
// representative; the rest are folded into its Composite.Available.
func fuseComposite(entries []SearchResultEntry) []SearchResultEntry {
	out := make([]SearchResultEntry, 0, len(entries))
	consumed := make([]bool, len(entries))

	for i, e := range entries {
		if consumed[i] {
			continue
		}
		if !e.fromInstalled {
			out = append(out, e)
			continue
		}

		composite := &CompositePackage{Installed: &entries[i].Package}
		representative := e
		for j := i + 1; j < len(entries); j++ {
			if consumed[j] || entries[j].fromInstalled {
				continue
			}
			if !correlates(e.Package, entries[j].Package) {
				continue
			}
			consumed[j] = true
			composite.Available = append(composite.Available, entries[j].Package)
			if betterRank(entries[j], representative) {
				representative = entries[j]
			}
		}
		representative.Composite = composite
		out = append(out, representative)
	}
	return out
}

// betterRank reports whether candidate should replace current as a
// correlated group's representative entry (lower rank wins, ties broken
// by earlier source order).
func betterRank(candidate, current SearchResultEntry) bool {
	if candidate.rank != current.rank {
		return candidate.rank < current.rank
	}
	return candidate.sourceOrder < current.sourceOrder
}
