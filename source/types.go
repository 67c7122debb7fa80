// Package source implements the pluggable package-source registry and
// aggregated search described in §4.2: a multi-source package registry
// with deterministic aggregation across sources, match scoring, and
// consistent ordering.
//
// The lifecycle operations (Add/Update/Remove/Drop/Open) and the
// persisted Sources/SourcesMetadata YAML files are grounded on the
// teacher's pkg/catalog/enhanced.go SessionCache (sync.RWMutex-guarded,
// time-boxed cache) generalized to winget's named per-source
// reader-writer lock (§5, §9).
package source

import (
	"time"

	"github.com/wpkg/core/internal/normalize"
	"github.com/wpkg/core/manifest"
)

// Origin classifies how a Source entered the registry (§3).
type Origin string

const (
	OriginDefault    Origin = "Default"
	OriginUser       Origin = "User"
	OriginPredefined Origin = "Predefined"
)

// TrustLevel records a coarse trust signal for a source; signature/trust
// verification policy itself is out of scope (§1), so this is recorded,
// not enforced.
type TrustLevel string

const (
	TrustLevelNone    TrustLevel = "None"
	TrustLevelTrusted TrustLevel = "Trusted"
)

// Details is the descriptive record a Source exposes about itself (§3).
type Details struct {
	Name           string
	Identifier     string
	Type           string
	Arg            string
	Data           string
	LastUpdateTime time.Time
	TrustLevel     TrustLevel
	Origin         Origin
	IsTombstone    bool
}

// PackageMatchField enumerates the fields a SearchRequest can match
// against (§4.2).
type PackageMatchField int

const (
	FieldId PackageMatchField = iota
	FieldName
	FieldMoniker
	FieldCommand
	FieldTag
	FieldPackageFamilyName
	FieldProductCode
	FieldUpgradeCode
)

// MatchType enumerates how a field comparison is performed (§4.2).
type MatchType int

const (
	MatchExact MatchType = iota
	MatchCaseInsensitive
	MatchStartsWith
	MatchSubstring
	MatchWildcard
	MatchFuzzy
)

// matchRank implements the ordering priority table from §4.2: lower
// numeric rank wins. Only (Exact|CaseInsensitive) x (Id|Name) get a
// dedicated rank; every other field at those match types falls into
// "other".
func matchRank(field PackageMatchField, mt MatchType) int {
	switch mt {
	case MatchExact:
		switch field {
		case FieldId:
			return 0
		case FieldName:
			return 1
		default:
			return 2
		}
	case MatchCaseInsensitive:
		switch field {
		case FieldId:
			return 3
		case FieldName:
			return 4
		default:
			return 5
		}
	case MatchStartsWith:
		return 6
	case MatchSubstring:
		return 7
	case MatchWildcard:
		return 8
	case MatchFuzzy:
		return 9
	default:
		return 10
	}
}

// MatchFilter is one criterion a SearchRequest evaluates, and also the
// criterion that produced a given match in a SearchResult.
type MatchFilter struct {
	Field     PackageMatchField
	MatchType MatchType
	Value     string
}

// Query is the optional free-text search term (§4.2).
type Query struct {
	MatchType MatchType
	Value     string
}

// SearchRequest describes one Search call (§4.2).
type SearchRequest struct {
	Query          *Query
	Inclusions     []MatchFilter
	Filters        []MatchFilter
	MaximumResults int
}

// IsForEverything reports whether the request has no constraints at all
// (§4.2: "iff Query, Inclusions, and Filters are all empty").
func (r SearchRequest) IsForEverything() bool {
	return r.Query == nil && len(r.Inclusions) == 0 && len(r.Filters) == 0
}

// PackageVersionKey identifies one version row of a Package within a
// Source (§3).
type PackageVersionKey struct {
	Version   string
	Channel   string
	SourceID  string
}

// PackageVersion is a view over a Manifest combined with a Source
// identity (§3).
type PackageVersion struct {
	Id                 string
	Name               string
	Version            string
	Channel             string
	SourceIdentifier   string
	RelativePath       string
	ManifestSHA256Hash string
	ArpMinVersion      string
	ArpMaxVersion      string
	Publisher          string
	Moniker            string

	PackageFamilyName []string
	ProductCode       []string
	UpgradeCode       []string
	Locale            []string
	Tag               []string
	Command           []string

	Manifest *manifest.Manifest

	// rowID is the source-internal identity used for same-identity
	// detection (§3: "(SourceId, internal row-id) equality"), never
	// exposed outside the owning Source.
	rowID int
}

// NormalizedProductCodes returns ProductCode values case-folded for ARP
// correlation (§3: "Multi-valued properties that correlate across ARP
// are case-folded on ingestion").
func (pv PackageVersion) NormalizedProductCodes() []normalize.String {
	out := make([]normalize.String, len(pv.ProductCode))
	for i, v := range pv.ProductCode {
		out[i] = normalize.Normalize(v)
	}
	return out
}

// NormalizedUpgradeCodes mirrors NormalizedProductCodes for UpgradeCode.
func (pv PackageVersion) NormalizedUpgradeCodes() []normalize.String {
	out := make([]normalize.String, len(pv.UpgradeCode))
	for i, v := range pv.UpgradeCode {
		out[i] = normalize.Normalize(v)
	}
	return out
}

// SameIdentity reports whether pv and other denote the same underlying
// row (§9: "replace shared_from_this-style identity with explicit
// (SourceId, row-id) comparison").
func (pv PackageVersion) SameIdentity(other PackageVersion) bool {
	return pv.SourceIdentifier == other.SourceIdentifier && pv.rowID == other.rowID
}

// Package is a logical package identified by Id within a Source (§3).
// PackageFamilyName/ProductCode/UpgradeCode are carried alongside Id so
// the composite source can correlate an Installed package with its
// Available counterpart by any of the four identities (§4.2).
type Package struct {
	Id                string
	SourceID          string
	Versions          []PackageVersionKey
	PackageFamilyName string
	ProductCode       string
	UpgradeCode       string
}

// Latest returns the highest version key by Version order (Channel is
// not compared), or the zero key if Versions is empty.
func (p Package) Latest() PackageVersionKey {
	if len(p.Versions) == 0 {
		return PackageVersionKey{}
	}
	best := p.Versions[0]
	for _, v := range p.Versions[1:] {
		if versionLess(best.Version, v.Version) {
			best = v
		}
	}
	return best
}

// CompositePackage bundles an optional installed view with zero or more
// available views (§3).
type CompositePackage struct {
	Installed *Package
	Available []Package
}

// SearchResultEntry is one (Package, MatchFilter) pair in a SearchResult.
// Composite is set by fuseComposite on every match that came from the
// composite's Installed source, carrying whatever Available packages
// correlated with it (possibly none) (§4.2); a nil Composite means the
// match stands on its own.
type SearchResultEntry struct {
	Package     Package
	MatchFilter MatchFilter
	Composite   *CompositePackage
	rank        int
	sourceOrder int
	fromInstalled bool
}

// SearchResult is the ordered output of a Search call (§4.2).
type SearchResult struct {
	Matches   []SearchResultEntry
	Truncated bool
}
