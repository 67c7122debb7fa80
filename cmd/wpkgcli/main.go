// cmd/wpkgcli is the minimal CLI collaborator surface: four
// subcommands exercising the manifest parser, resolver, source search,
// and ARP metadata-collection packages end to end. A full argument
// grammar and interactive front end are out of scope; this exists to
// give every core package a runnable entry point, the same role the
// teacher's cmd/manifestutil plays for pkg/manifest.
package main

import (
	"fmt"
	"os"

	"github.com/wpkg/core/errorcode"
	"github.com/wpkg/core/pkg/config"
	"github.com/wpkg/core/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(errorcode.ErrInstallDependencies.ExitStatus())
	}

	cfg := config.GetDefaultConfig()
	_ = logging.Init(cfg)

	var code errorcode.Code
	switch os.Args[1] {
	case "validate":
		code = runValidate(os.Args[2:])
	case "resolve":
		code = runResolve(os.Args[2:])
	case "search":
		code = runSearch(os.Args[2:])
	case "collect-metadata":
		code = runCollectMetadata(os.Args[2:])
	default:
		printUsage()
		code = errorcode.ErrInstallDependencies
	}

	os.Exit(code.ExitStatus())
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wpkgcli <validate|resolve|search|collect-metadata> [flags]")
}
