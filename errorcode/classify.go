package errorcode

import (
	"errors"

	"github.com/wpkg/core/manifest"
	"github.com/wpkg/core/resolver"
)

// Classify inspects err and returns the Code the CLI surface should
// report for it: the resolver's cycle and min-version errors and
// *manifest.ValidationErrors get their own codes, and any other error
// falls back to ErrInstallDependencies.
func Classify(err error) Code {
	if err == nil {
		return Success
	}

	var cycleErr *resolver.CycleError
	if errors.As(err, &cycleErr) {
		return ErrDependencyLoop
	}

	var minVerErr *resolver.MinVersionError
	if errors.As(err, &minVerErr) {
		return ErrNoSuitableMinVersionDependency
	}

	var validationErrs *manifest.ValidationErrors
	if errors.As(err, &validationErrs) {
		return ErrManifestFailed
	}

	return ErrInstallDependencies
}
