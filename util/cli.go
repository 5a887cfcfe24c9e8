// Package util holds the command-line argument parsing that fronts the
// core packages. The CLI surface itself is a thin shell around them —
// this is the minimal external-collaborator-facing parser, adapted
// from this package's own prior hand-rolled Args/formatArgs/validateArgs
// shape rather than reaching for a flag library that was never part of
// this tree's dependency set.
package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Args is the parsed command line: a subcommand, a set of --flag=value
// pairs (repeatable flags accumulate), and trailing positional
// arguments (directories/files).
type Args struct {
	Action     string
	flags      map[string]string
	multiFlags map[string][]string
	positional []string
}

func (a Args) String() string {
	return fmt.Sprintf("Action: %s\nFlags: %v\nMulti: %v\nPositional: %v", a.Action, a.flags, a.multiFlags, a.positional)
}

// Flag returns the value of a single-valued flag, or "" if unset.
func (a Args) Flag(key string) string { return a.flags[key] }

// FlagOr returns the flag's value or def if unset.
func (a Args) FlagOr(key, def string) string {
	if v, ok := a.flags[key]; ok {
		return v
	}
	return def
}

// Bool returns true if the flag was present bare or with the explicit
// value "true" or "1"; any other explicit value (e.g. "false") is false.
func (a Args) Bool(key string) bool {
	v, ok := a.flags[key]
	if !ok {
		return false
	}
	return v == "" || v == "true" || v == "1"
}

// MultiFlag returns every value passed for a repeatable flag (e.g.
// multiple --exclude=... occurrences).
func (a Args) MultiFlag(key string) []string { return a.multiFlags[key] }

// Positional returns the trailing positional arguments (roots for
// index/import, or nothing for the others).
func (a Args) Positional() []string { return a.positional }

// validActions is the full set of supported subcommands.
var validActions = map[string]bool{
	"create":  true,
	"index":   true,
	"collect": true,
	"import":  true,
	"verify":  true,
	"clean":   true,
	"stats":   true,
	"help":    true,
}

// Parse parses os.Args[1:]-shaped input:
//
//	photomanager <action> [--flag=value | --flag] ... [positional ...]
func Parse(argv []string) (Args, error) {
	var a Args
	a.flags = make(map[string]string)
	a.multiFlags = make(map[string][]string)

	if len(argv) == 0 {
		return Args{}, fmt.Errorf("no action specified")
	}
	a.Action = argv[0]
	if !validActions[a.Action] {
		return Args{}, fmt.Errorf("unknown action %q", a.Action)
	}

	for _, arg := range argv[1:] {
		if strings.HasPrefix(arg, "--") {
			body := strings.TrimPrefix(arg, "--")
			key, value, hasValue := strings.Cut(body, "=")
			if !hasValue {
				value = ""
			}
			if isRepeatable(key) {
				a.multiFlags[key] = append(a.multiFlags[key], value)
			} else {
				a.flags[key] = value
			}
			continue
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			return Args{}, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		a.positional = append(a.positional, abs)
	}

	if err := validate(a); err != nil {
		return Args{}, err
	}
	return a, nil
}

func isRepeatable(key string) bool {
	return key == "exclude"
}

// validate enforces the required-flag shape of each subcommand: --db is required for every action except help; index/import
// additionally require at least one root.
func validate(a Args) error {
	if a.Action == "help" {
		return nil
	}
	if a.Flag("db") == "" {
		return fmt.Errorf("--db is required for %s", a.Action)
	}
	switch a.Action {
	case "index", "import":
		if len(a.positional) == 0 {
			return fmt.Errorf("%s requires at least one source path", a.Action)
		}
		if a.Action == "import" && a.Flag("destination") == "" {
			return fmt.Errorf("import requires --destination")
		}
	case "collect":
		if a.Flag("destination") == "" {
			return fmt.Errorf("collect requires --destination")
		}
	case "verify", "clean":
		if a.Flag("destination") == "" {
			return fmt.Errorf("%s requires --destination", a.Action)
		}
	}
	return nil
}

// Usage is printed by the help action and on flag-validation failure.
const Usage = `Usage:
  photomanager create  --db PATH [--algorithm blake2b-256|blake3|sha256] [--timezone-default OFFSET|local]
  photomanager index   --db PATH [--storage HDD|SSD|RAID] [--exclude PATTERN ...] [--priority N] [--skip-existing] ROOT [ROOT ...]
  photomanager import  --db PATH --destination DIR [--storage HDD|SSD|RAID] [--exclude PATTERN ...] [--priority N] [--skip-existing] [--collect-db] ROOT [ROOT ...]
  photomanager collect --db PATH --destination DIR [--collect-db]
  photomanager verify  --db PATH --destination DIR [--storage HDD|SSD|RAID] [--subdir PREFIX] [--random-fraction F]
  photomanager clean   --db PATH --destination DIR [--dry-run]
  photomanager stats   --db PATH
  photomanager help
`
