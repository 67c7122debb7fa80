package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/wpkg/core/errorcode"
	"github.com/wpkg/core/pkg/logging"
	"github.com/wpkg/core/source"
)

// loadCatalog reads the on-disk shape search's --catalog flag points at:
// a flat JSON array of entries, the simplest stand-in for a backend
// Source a thin CLI can offer without a running registry.
func loadCatalog(path string) ([]source.StaticEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []source.StaticEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func runSearch(args []string) errorcode.Code {
	fs := pflag.NewFlagSet("search", pflag.ContinueOnError)
	catalog := fs.String("catalog", "", "path to a JSON catalog file ([{Id,Name,Version,Publisher}, ...])")
	query := fs.StringP("query", "q", "", "free-text search term")
	matchType := fs.String("match", "substring", "match type: exact|ci|prefix|substring|wildcard")
	maxResults := fs.Int("max", 25, "maximum results to return")
	if err := fs.Parse(args); err != nil {
		return errorcode.ErrInstallDependencies
	}
	if *catalog == "" {
		fmt.Fprintln(os.Stderr, "search: --catalog is required")
		return errorcode.ErrSourceDataMissing
	}

	entries, err := loadCatalog(*catalog)
	if err != nil {
		logging.Error("search: loading catalog", "file", *catalog, "error", err)
		return errorcode.ErrSourceDataIntegrityFailure
	}

	src := source.NewStaticSource(*catalog, entries)
	composite := &source.CompositeSource{Available: []source.Source{src}}

	req := source.SearchRequest{MaximumResults: *maxResults}
	if *query != "" {
		req.Query = &source.Query{MatchType: parseMatchType(*matchType), Value: *query}
	}

	result, err := composite.Search(req)
	if err != nil {
		logging.Error("search: executing search", "error", err)
		return errorcode.ErrSourceDataIntegrityFailure
	}

	for _, m := range result.Matches {
		fmt.Fprintf(os.Stdout, "%s\t%s\n", m.Package.Id, m.Package.Latest().Version)
	}
	if result.Truncated {
		fmt.Fprintln(os.Stderr, "search: results truncated")
	}
	return errorcode.Success
}

func parseMatchType(s string) source.MatchType {
	switch s {
	case "exact":
		return source.MatchExact
	case "ci":
		return source.MatchCaseInsensitive
	case "prefix":
		return source.MatchStartsWith
	case "wildcard":
		return source.MatchWildcard
	case "fuzzy":
		return source.MatchFuzzy
	default:
		return source.MatchSubstring
	}
}
