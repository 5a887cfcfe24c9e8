// Package indexer turns a set of filesystem paths into PhotoFile
// records: it discovers files, runs the digest engine and metadata
// extractor, resolves dates, and merges each candidate into the
// catalog. The walk/filter shape follows util/import.go's WalkDir,
// generalized with exclude globs and a
// skip-existing filter; the two-pipeline-then-merge shape (discover,
// then hash/extract/resolve, then merge into the catalog) is new.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bleemesser/photomanager/internal/catalog"
	"github.com/bleemesser/photomanager/internal/dateresolve"
	"github.com/bleemesser/photomanager/internal/digest"
	"github.com/bleemesser/photomanager/internal/metadata"
	"github.com/bleemesser/photomanager/internal/plog"
)

// IntegrityChecker is a pluggable predicate run on each candidate before
// hashing. Returning ok=false marks the file damaged and excludes it
// from the batch — the standalone media-integrity checker
// itself is out of scope; this is only the seam it plugs into.
type IntegrityChecker func(path string) (ok bool, err error)

// Options configures one indexing run.
type Options struct {
	Roots           []string
	Excludes        []string // glob patterns matched against basename
	Priority        int
	StorageClass    digest.StorageClass
	Algorithm       catalog.Algorithm
	SkipExisting    bool
	IntegrityCheck  IntegrityChecker
	TimezoneDefault string
	MetadataBatch   int
}

// Result is one path's per-path outcome.
type Result struct {
	Path    string
	Outcome catalog.AddOutcome
	UID     string
	Error   error
}

// sidecarExtensions mirrors util/import.go's sidecar convention,
// extended with the industry-standard .xmp sidecar.
var sidecarExtensions = []string{".xmp", ".photo-edit"}

// Discover walks opts.Roots (recursing directories, accepting single
// files verbatim), filters dotfiles and exclude patterns, and returns a
// sorted list of absolute candidate paths — sorted so that uid
// allocation is deterministic for a given input set regardless of walk
// order.
func Discover(opts Options) ([]string, error) {
	var candidates []string
	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, catalog.Wrap(catalog.KindIO, root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, catalog.Wrap(catalog.KindIO, abs, err)
		}
		if !info.IsDir() {
			candidates = append(candidates, abs)
			continue
		}
		err = filepath.Walk(abs, func(path string, fi os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if fi.IsDir() {
				return nil
			}
			if strings.HasPrefix(fi.Name(), ".") {
				return nil
			}
			if excluded(fi.Name(), opts.Excludes) {
				return nil
			}
			candidates = append(candidates, path)
			return nil
		})
		if err != nil {
			return nil, catalog.Wrap(catalog.KindIO, abs, err)
		}
	}
	sort.Strings(candidates)
	return candidates, nil
}

func excluded(name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

func existingSources(cat *catalog.Catalog) map[string]bool {
	seen := make(map[string]bool)
	for _, uid := range cat.UIDs() {
		for _, v := range cat.BestPhotos(uid) {
			seen[v.Src] = true
		}
	}
	return seen
}

func findSidecar(path string) string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range sidecarExtensions {
		candidate := stem + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Run executes the full pipeline: discovery, skip-existing and
// integrity filtering, parallel digest + metadata extraction, date
// resolution, and serialized catalog.Add.
func Run(ctx context.Context, cat *catalog.Catalog, opts Options) ([]Result, error) {
	candidates, err := Discover(opts)
	if err != nil {
		return nil, err
	}

	if opts.SkipExisting {
		seen := existingSources(cat)
		filtered := candidates[:0]
		for _, c := range candidates {
			if !seen[c] {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	var results []Result
	var toProcess []string
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		if opts.IntegrityCheck != nil {
			ok, err := opts.IntegrityCheck(c)
			if err != nil {
				results = append(results, Result{Path: c, Error: catalog.Wrap(catalog.KindIO, c, err)})
				continue
			}
			if !ok {
				results = append(results, Result{Path: c, Error: fmt.Errorf("damaged file")})
				continue
			}
		}
		toProcess = append(toProcess, c)
	}

	concurrency := digest.Concurrency(opts.StorageClass)
	digests := digest.HashBatch(ctx, toProcess, opts.Algorithm, concurrency)

	metas, err := metadata.ExtractBatchParallel(toProcess, opts.MetadataBatch, concurrency)
	if err != nil {
		return nil, fmt.Errorf("metadata extraction: %w", err)
	}

	priority := opts.Priority
	if priority == 0 {
		priority = catalog.DefaultPriority
	}

	for _, path := range toProcess {
		if ctx.Err() != nil {
			break
		}
		dr := digests[path]
		if dr.Err != nil {
			results = append(results, Result{Path: path, Error: catalog.Wrap(catalog.KindHash, path, dr.Err)})
			continue
		}

		rec := metas[path]
		info, err := os.Stat(path)
		if err != nil {
			results = append(results, Result{Path: path, Error: catalog.Wrap(catalog.KindIO, path, err)})
			continue
		}

		resolved, err := dateresolve.Resolve(filepath.Base(path), rec, info.ModTime(), opts.TimezoneDefault)
		if err != nil {
			results = append(results, Result{Path: path, Error: catalog.Wrap(catalog.KindIO, path, err)})
			continue
		}

		candidate := catalog.PhotoFile{
			Chk:     dr.Digest,
			Src:     path,
			Dt:      resolved.DtString,
			Ts:      resolved.Ts,
			Fsz:     info.Size(),
			Prio:    priority,
			Tzo:     resolved.Tzo,
			Sidecar: findSidecar(path),
		}

		outcome, uid := cat.Add(candidate)
		plog.Debug("indexed %s -> %s (%s)", path, uid, outcome)
		results = append(results, Result{Path: path, Outcome: outcome, UID: uid})
	}

	return results, nil
}
