// Package verifier streams stored files and recomputes their digest to
// detect bit rot or tampering, without modifying anything.
package verifier

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bleemesser/photomanager/internal/catalog"
	"github.com/bleemesser/photomanager/internal/digest"
)

// Status classifies one stored variant's verification outcome.
type Status string

const (
	Pass    Status = "PASS"
	Fail    Status = "FAIL"
	Missing Status = "MISSING"
)

// Result is one stored variant's verification outcome.
type Result struct {
	UID    string
	Sto    string
	Status Status
	Bytes  int64
}

// Summary aggregates a verify run for the CLI's exit-code and reporting
// logic.
type Summary struct {
	NPass      int
	NFail      int
	NMissing   int
	TotalBytes int64
	Offending  []string // Sto of every FAIL/MISSING entry
}

// Options configures one verify pass.
type Options struct {
	Destination    string
	Subdir         string  // restrict to variants whose Sto has this prefix
	RandomFraction float64 // 0 disables sampling (verify everything); 1 is equivalent to 0
	StorageClass   digest.StorageClass
}

// Run recomputes digests for every stored variant selected by opts and
// classifies each PASS/FAIL/MISSING.
func Run(ctx context.Context, cat *catalog.Catalog, opts Options) (Summary, []Result) {
	entries := cat.StoredPhotos()

	var selected []catalog.StoredEntry
	for _, e := range entries {
		if opts.Subdir != "" && !strings.HasPrefix(e.Photo.Sto, opts.Subdir) {
			continue
		}
		if opts.RandomFraction > 0 && opts.RandomFraction < 1 {
			if rand.Float64() >= opts.RandomFraction {
				continue
			}
		}
		selected = append(selected, e)
	}

	concurrency := digest.Concurrency(opts.StorageClass)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	raw := make([]Result, len(selected))

	for i, e := range selected {
		i, e := i, e
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			raw[i] = verifyOne(ctx, e, opts.Destination, cat.HashAlgorithm)
		}()
	}
	wg.Wait()

	var summary Summary
	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		switch r.Status {
		case skipped:
			// Cancelled before this file could be checked — the file
			// itself was never observed absent or wrong, so it must not
			// be counted (or reported) as MISSING.
			continue
		case Pass:
			summary.NPass++
			summary.TotalBytes += r.Bytes
		case Fail:
			summary.NFail++
			summary.Offending = append(summary.Offending, r.Sto)
		case Missing:
			summary.NMissing++
			summary.Offending = append(summary.Offending, r.Sto)
		}
		results = append(results, r)
	}
	return summary, results
}

// skipped marks a stored variant that a cancelled context prevented
// verifyOne from checking at all. It is not one of the three file
// outcomes (PASS/FAIL/MISSING) and is stripped out of Run's returned
// results and summary rather than surfaced as a status callers would
// see — a cancellation says nothing about whether the file is present
// or correct.
const skipped Status = "SKIPPED"

func verifyOne(ctx context.Context, e catalog.StoredEntry, destination string, algo catalog.Algorithm) Result {
	if ctx.Err() != nil {
		return Result{UID: e.UID, Sto: e.Photo.Sto, Status: skipped}
	}
	full := filepath.Join(destination, filepath.FromSlash(e.Photo.Sto))
	info, err := os.Stat(full)
	if err != nil {
		return Result{UID: e.UID, Sto: e.Photo.Sto, Status: Missing}
	}
	if ctx.Err() != nil {
		return Result{UID: e.UID, Sto: e.Photo.Sto, Status: skipped}
	}
	got, err := digest.HashFile(full, algo)
	if err != nil {
		return Result{UID: e.UID, Sto: e.Photo.Sto, Status: Missing}
	}
	if got != e.Photo.Chk {
		return Result{UID: e.UID, Sto: e.Photo.Sto, Status: Fail, Bytes: info.Size()}
	}
	return Result{UID: e.UID, Sto: e.Photo.Sto, Status: Pass, Bytes: info.Size()}
}
