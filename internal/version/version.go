// Package version implements the ordered Version and VersionAndChannel
// values described in the core data model: a version is a sequence of
// parts, each an integer prefix plus an optional non-numeric suffix, and
// comparison is lexicographic over parts with suffixed parts sorting
// before their unsuffixed counterpart ("1.0-alpha" < "1.0").
//
// SatisfiesMin delegates the numeric comparison of the integer prefixes
// to hashicorp/go-version the way the teacher's pkg/status compares
// installed-vs-remote versions; Compare, and the suffix/approximate
// handling that go-version doesn't model, are implemented part by part
// in this package.
package version

import (
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Part is one dot-separated component of a Version: an integer prefix
// plus an optional trailing non-numeric suffix (e.g. "5" -> {5, ""},
// "5-alpha" -> {5, "alpha"}).
type Part struct {
	Integer int64
	Suffix  string
}

// Compare orders two parts. A part with a non-empty suffix sorts before
// the same integer without one ("1.0-alpha" < "1.0").
func (p Part) Compare(other Part) int {
	if p.Integer != other.Integer {
		if p.Integer < other.Integer {
			return -1
		}
		return 1
	}
	if p.Suffix == other.Suffix {
		return 0
	}
	if p.Suffix == "" {
		return 1
	}
	if other.Suffix == "" {
		return -1
	}
	return strings.Compare(p.Suffix, other.Suffix)
}

func (p Part) String() string {
	if p.Suffix == "" {
		return strconv.FormatInt(p.Integer, 10)
	}
	return fmt.Sprintf("%d-%s", p.Integer, p.Suffix)
}

// Bound marks which side of a Version an approximate neighborhood sits
// on. The zero value, BoundExact, is a normal, fully-ordered version.
type Bound int

const (
	BoundExact Bound = iota
	BoundLess
	BoundGreater
)

// Version is an ordered sequence of Parts, optionally wrapped by an
// approximate Bound. Approximate versions never appear in authored
// manifests (§3); they exist only as synthetic comparison neighborhoods,
// e.g. when a dependency resolver wants "anything newer than 1.0".
type Version struct {
	raw   string
	parts []Part
	bound Bound
	// latest marks the distinguished maximum value (Latest()).
	latest bool
}

// Parse parses a dotted version string ("1.2.3-beta.4") into a Version.
// Each dot-separated segment may carry a non-numeric suffix introduced
// by the first non-digit rune.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Version{}, fmt.Errorf("version: empty version string")
	}

	segments := strings.Split(trimmed, ".")
	parts := make([]Part, 0, len(segments))
	for _, seg := range segments {
		part, err := parsePart(seg)
		if err != nil {
			return Version{}, fmt.Errorf("version: parsing %q: %w", raw, err)
		}
		parts = append(parts, part)
	}
	return Version{raw: trimmed, parts: parts}, nil
}

// MustParse is Parse but panics on error; reserved for fixed literals
// such as test-fixture constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func parsePart(seg string) (Part, error) {
	i := 0
	for i < len(seg) && (seg[i] >= '0' && seg[i] <= '9') {
		i++
	}
	if i == 0 {
		// Entirely non-numeric segments (rare, e.g. channel-only parts)
		// are treated as integer 0 with the whole segment as suffix.
		return Part{Integer: 0, Suffix: seg}, nil
	}
	integer, err := strconv.ParseInt(seg[:i], 10, 64)
	if err != nil {
		return Part{}, err
	}
	suffix := strings.TrimLeft(seg[i:], "-.")
	return Part{Integer: integer, Suffix: suffix}, nil
}

// Latest returns the distinguished maximum Version: it compares greater
// than any other Version, including other approximate versions.
func Latest() Version {
	return Version{raw: "Latest", latest: true}
}

// IsLatest reports whether v is the distinguished maximum.
func (v Version) IsLatest() bool { return v.latest }

// Approximate wraps v with a Bound marking it as a "less than" or
// "greater than" neighborhood rather than an exact value.
func Approximate(v Version, bound Bound) Version {
	v.bound = bound
	return v
}

// IsApproximate reports whether v carries a non-exact Bound.
func (v Version) IsApproximate() bool { return v.bound != BoundExact }

// String returns the original parsed representation.
func (v Version) String() string {
	if v.latest {
		return "Latest"
	}
	prefix := ""
	switch v.bound {
	case BoundLess:
		prefix = "<"
	case BoundGreater:
		prefix = ">"
	}
	return prefix + v.raw
}

// Compare implements the total order described in §3 and exercised by
// the Version-ordering testable property: for all V, V == V, and
// approximate(<V) < V < approximate(>V).
func (v Version) Compare(other Version) int {
	if v.latest && other.latest {
		return 0
	}
	if v.latest {
		return 1
	}
	if other.latest {
		return -1
	}

	base := compareParts(v.parts, other.parts)

	// Same underlying value: approximate bound breaks the tie.
	if base == 0 {
		return compareBounds(v.bound, other.bound)
	}
	return base
}

func compareBounds(a, b Bound) int {
	rank := func(b Bound) int {
		switch b {
		case BoundLess:
			return -1
		case BoundGreater:
			return 1
		default:
			return 0
		}
	}
	ra, rb := rank(a), rank(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

func compareParts(a, b []Part) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var pa, pb Part
		if i < len(a) {
			pa = a[i]
		}
		if i < len(b) {
			pb = b[i]
		}
		if c := pa.Compare(pb); c != 0 {
			return c
		}
	}
	return 0
}

// LessThan reports whether v sorts strictly before other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// numeric renders only the integer prefixes, dot-joined, for handoff to
// go-version when a pure numeric comparison against a non-suffixed
// boundary is wanted (e.g. MinVersion satisfaction checks where the
// suffix component is irrelevant).
func (v Version) numeric() string {
	parts := make([]string, len(v.parts))
	for i, p := range v.parts {
		parts[i] = strconv.FormatInt(p.Integer, 10)
	}
	return strings.Join(parts, ".")
}

// SatisfiesMin reports whether v is greater than or equal to min,
// delegating the integer-prefix comparison to hashicorp/go-version and
// falling back to the Part-wise Compare when go-version can't parse the
// numeric projection (a Version with no parts, such as Latest() or the
// zero Version).
func (v Version) SatisfiesMin(min Version) bool {
	if v.latest {
		return true
	}
	gv, errV := goversion.NewVersion(v.numeric())
	gm, errM := goversion.NewVersion(min.numeric())
	if errV == nil && errM == nil {
		if !gv.Equal(gm) {
			return gv.GreaterThan(gm)
		}
		// Numeric parts tie; let the suffix-aware Compare break it.
	}
	return !v.LessThan(min)
}

// Channel is a normalized upgrade-track label; the empty Channel is the
// default track. Two packages sharing an Id but differing Channel are
// distinct upgrade tracks (§3).
type Channel string

// Normalize trims and lower-cases a channel label for comparison.
func (c Channel) Normalize() Channel {
	return Channel(strings.ToLower(strings.TrimSpace(string(c))))
}

// VersionAndChannel pairs a Version with its Channel.
type VersionAndChannel struct {
	Version Version
	Channel Channel
}

// Compare orders first by Channel (default/empty channel first), then
// by Version.
func (vc VersionAndChannel) Compare(other VersionAndChannel) int {
	ca, cb := vc.Channel.Normalize(), other.Channel.Normalize()
	if ca != cb {
		return strings.Compare(string(ca), string(cb))
	}
	return vc.Version.Compare(other.Version)
}

// SortVersions sorts versions ascending using Version.Compare.
func SortVersions(versions []Version) {
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && versions[j].LessThan(versions[j-1]); j-- {
			versions[j], versions[j-1] = versions[j-1], versions[j]
		}
	}
}

// Max returns the greatest Version in versions, or the zero Version if
// versions is empty.
func Max(versions []Version) Version {
	var max Version
	first := true
	for _, v := range versions {
		if first || max.LessThan(v) {
			max = v
			first = false
		}
	}
	return max
}

// BestSatisfying returns the lowest version in versions that is >= min,
// per §4.3 step 3 ("pick the lowest version >= MinVersion"). ok is false
// when no candidate satisfies min.
func BestSatisfying(versions []Version, min Version) (best Version, ok bool) {
	for _, v := range versions {
		if !v.SatisfiesMin(min) {
			continue
		}
		if !ok || v.LessThan(best) {
			best = v
			ok = true
		}
	}
	return best, ok
}
