package manifest

import (
	"fmt"
	"strings"

	"github.com/wpkg/core/internal/yamldom"
)

// Level distinguishes a hard validation failure from a tolerated
// warning (§4.1's "Errors" section).
type Level int

const (
	LevelWarning Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "Error"
	}
	return "Warning"
}

// MessageID enumerates the diagnostic identifiers named across §4.1 and
// §7. Kept as a string type (not iota) so message IDs read directly in
// test failures and logs without a String() indirection.
type MessageID string

const (
	MsgFieldIsNotPascalCase             MessageID = "FieldIsNotPascalCase"
	MsgFieldDuplicate                   MessageID = "FieldDuplicate"
	MsgFieldUnknown                     MessageID = "FieldUnknown"
	MsgDuplicateMappingKey              MessageID = "DuplicateMappingKey"
	MsgInconsistentMultiFileFieldValue  MessageID = "InconsistentMultiFileManifestFieldValue"
	MsgDuplicateMultiFileManifestType   MessageID = "DuplicateMultiFileManifestType"
	MsgIncompleteMultiFileManifest      MessageID = "IncompleteMultiFileManifest"
	MsgNoSuitableMinVersionDependency   MessageID = "NoSuitableMinVersionDependency"
	MsgFoundDependencyLoop              MessageID = "FoundDependencyLoop"
	MsgSingleManifestPackageHasDeps     MessageID = "SingleManifestPackageHasDependencies"
	MsgMultiManifestPackageHasDeps      MessageID = "MultiManifestPackageHasDependencies"
	MsgUnsupportedManifestVersion       MessageID = "UnsupportedManifestVersion"
	MsgInvalidFieldValue                MessageID = "InvalidFieldValue"
	MsgDuplicateInstaller                MessageID = "DuplicateInstaller"
	MsgMarketsMutuallyExclusive          MessageID = "MarketsMutuallyExclusive"
	MsgRequireExplicitUpgradeConflict    MessageID = "RequireExplicitUpgradeConflict"
	MsgInvalidLocaleTag                  MessageID = "InvalidLocaleTag"
	MsgDuplicateNestedInstallerFile       MessageID = "DuplicateNestedInstallerFile"
)

// ValidationError is one diagnostic produced while parsing or
// validating a manifest (§4.1).
type ValidationError struct {
	MessageID MessageID
	Context   string
	Value     string
	Line      int
	Column    int
	Level     Level
	FileName  string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Level, e.MessageID)
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " value=%q", e.Value)
	}
	if e.FileName != "" {
		fmt.Fprintf(&b, " %s:%d:%d", e.FileName, e.Line, e.Column)
	}
	return b.String()
}

func fieldError(id MessageID, context string, mark yamldom.Mark, level Level) ValidationError {
	return ValidationError{MessageID: id, Context: context, Line: mark.Line, Column: mark.Column, Level: level}
}

// ValidationErrors is the non-empty batch of diagnostics a parse or
// validation pass produced; it implements error so callers that want to
// treat any failure uniformly can do so, while ThrowOnWarning callers
// inspect HasErrors/HasWarnings directly (§4.1, §7: "parser-layer errors
// aggregate and propagate as a single batch").
type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) add(err ValidationError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors reports whether any entry is Level == LevelError.
func (v *ValidationErrors) HasErrors() bool {
	for _, e := range v.Errors {
		if e.Level == LevelError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any entry is Level == LevelWarning.
func (v *ValidationErrors) HasWarnings() bool {
	for _, e := range v.Errors {
		if e.Level == LevelWarning {
			return true
		}
	}
	return false
}

// Empty reports whether no diagnostics were recorded at all.
func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.Errors) == 0
}

func (v *ValidationErrors) Error() string {
	if v.Empty() {
		return "manifest: no validation errors"
	}
	lines := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "; ")
}

// ResultPolicy controls whether ValidationErrors containing only
// warnings causes Parse to fail (§4.1: "If the caller requests 'throw on
// warning'..."). This replaces the source's exception-based aggregation
// with an explicit result type per the design notes (§9).
type ResultPolicy struct {
	ThrowOnWarning bool
}

// ShouldFail reports whether diags should be treated as a hard failure
// under policy p.
func (p ResultPolicy) ShouldFail(diags *ValidationErrors) bool {
	if diags.Empty() {
		return false
	}
	if diags.HasErrors() {
		return true
	}
	return p.ThrowOnWarning && diags.HasWarnings()
}
