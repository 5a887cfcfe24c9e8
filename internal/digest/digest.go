// Package digest implements the stream-read content hasher and its
// parallel batch API.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/zeebo/blake3"

	"github.com/bleemesser/photomanager/internal/catalog"
)

const blockSize = 64 * 1024

// StorageClass is the storage-class hint controlling worker parallelism.
type StorageClass int

const (
	HDD StorageClass = iota
	SSD
	RAID
)

// ParseStorageClass maps the CLI's HDD|SSD|RAID flag value onto a
// StorageClass.
func ParseStorageClass(s string) (StorageClass, error) {
	switch s {
	case "HDD", "hdd":
		return HDD, nil
	case "SSD", "ssd":
		return SSD, nil
	case "RAID", "raid":
		return RAID, nil
	default:
		return HDD, fmt.Errorf("unknown storage class %q", s)
	}
}

// Concurrency returns the worker count for a storage class: a single
// worker for HDD to avoid thrashing the head, one per CPU for SSD, and
// at least four for RAID to keep multiple spindles busy.
func Concurrency(class StorageClass) int {
	switch class {
	case HDD:
		return 1
	case SSD:
		n := runtime.NumCPU()
		if n < 1 {
			n = 1
		}
		return n
	case RAID:
		n := runtime.NumCPU()
		if n < 4 {
			n = 4
		}
		return n
	default:
		return 1
	}
}

func newHasher(algo catalog.Algorithm) (hash.Hash, error) {
	switch algo {
	case catalog.BLAKE2b256:
		return blake2b.New256(nil)
	case catalog.BLAKE3:
		return blake3.New(), nil
	case catalog.SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

// HashFile streams path in blockSize blocks through algo's hasher and
// returns a lowercase hex digest.
func HashFile(path string, algo catalog.Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", catalog.Wrap(catalog.KindIO, path, err)
	}
	defer f.Close()

	h, err := newHasher(algo)
	if err != nil {
		return "", catalog.Wrap(catalog.KindHash, path, err)
	}

	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", catalog.Wrap(catalog.KindHash, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Result is one path's outcome from a batch hash. Err is set (and
// Digest empty) on a per-path failure; batch failures never abort the
// rest of the batch.
type Result struct {
	Digest string
	Err    error
}

// HashBatch hashes every path in paths under algo with the given
// concurrency. Ordering of completion is unspecified; completeness is
// guaranteed — every input path has an entry in the returned map.
func HashBatch(ctx context.Context, paths []string, algo catalog.Algorithm, concurrency int) map[string]Result {
	results := make(map[string]Result, len(paths))
	var mu sync.Mutex

	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, p := range paths {
		p := p
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				results[p] = Result{Err: gctx.Err()}
				mu.Unlock()
				return nil
			}
			digest, err := HashFile(p, algo)
			mu.Lock()
			results[p] = Result{Digest: digest, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SortedPaths is a small helper so callers that need a deterministic
// iteration order over a HashBatch result map (e.g. for serialized
// catalog.Add calls, so uid allocation stays reproducible across runs)
// don't each reimplement sort.Strings.
func SortedPaths(m map[string]Result) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
