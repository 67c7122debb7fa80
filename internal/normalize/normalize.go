// Package normalize implements the NormalizedString and LocIndString
// value types used throughout the manifest and ARP-correlation code
// (§3, §4.5) to compare human-entered strings (package names,
// publishers, locale tags) without being tripped up by casing or
// incidental whitespace.
package normalize

import "strings"

// String is a NormalizedString: a trimmed, canonical-form string used
// for case/whitespace-insensitive identity comparisons (ProductCode,
// UpgradeCode, PackageFamilyName correlation per §3's PackageVersion
// multi-valued properties).
type String string

// Normalize trims surrounding whitespace and folds to lower-case,
// producing the canonical comparison form.
func Normalize(raw string) String {
	return String(strings.ToLower(strings.TrimSpace(raw)))
}

// Equal reports whether two raw strings are equal once normalized.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// LocIndString pairs a localized display value with an
// "Independent" variant: a locale-agnostic form used for correlation
// and search-matching where locale-specific casing/punctuation would
// otherwise produce false negatives (e.g. ProductName across locales).
type LocIndString struct {
	Localized   string
	Independent string
}

// NewLocIndString builds a LocIndString whose Independent form is the
// normalized projection of the localized value.
func NewLocIndString(localized string) LocIndString {
	return LocIndString{
		Localized:   localized,
		Independent: string(Normalize(localized)),
	}
}

// String returns the localized display form.
func (l LocIndString) String() string {
	return l.Localized
}

// EqualIndependent compares two LocIndString values on their
// locale-independent form.
func (l LocIndString) EqualIndependent(other LocIndString) bool {
	return l.Independent == other.Independent
}
