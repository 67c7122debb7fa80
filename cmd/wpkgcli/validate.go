package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/wpkg/core/errorcode"
	"github.com/wpkg/core/manifest"
	"github.com/wpkg/core/pkg/logging"
)

func runValidate(args []string) errorcode.Code {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	file := fs.StringP("file", "f", "", "path to a manifest YAML document")
	full := fs.Bool("full", true, "run the semantic validation pass in addition to schema checks")
	maxMajor := fs.Int("max-major", 1, "maximum supported ManifestVersion major component")
	if err := fs.Parse(args); err != nil {
		return errorcode.ErrManifestFailed
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "validate: --file is required")
		return errorcode.ErrManifestFailed
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		logging.Error("validate: reading manifest", "file", *file, "error", err)
		return errorcode.ErrManifestFailed
	}

	_, diags, err := manifest.ParseDocument(raw, manifest.ParseOptions{
		FileName:                  *file,
		MaxSupportedManifestMajor: *maxMajor,
		FullValidation:            *full,
	})
	if err != nil {
		logging.Error("validate: parsing manifest", "file", *file, "error", err)
		return errorcode.ErrManifestFailed
	}

	for _, d := range diags.Errors {
		fmt.Fprintln(os.Stdout, d.Error())
	}
	if diags.HasErrors() {
		return errorcode.ErrManifestFailed
	}

	fmt.Fprintf(os.Stdout, "%s: valid (%d warnings)\n", *file, warningCount(diags))
	return errorcode.Success
}

func warningCount(diags *manifest.ValidationErrors) int {
	n := 0
	for _, d := range diags.Errors {
		if d.Level == manifest.LevelWarning {
			n++
		}
	}
	return n
}
