// Package collector copies the highest-priority variant of each
// logical photo into a content-named layout under a destination root,
// recording the store path back into the catalog.
package collector

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bleemesser/photomanager/internal/catalog"
	"github.com/bleemesser/photomanager/internal/catalogio"
	"github.com/bleemesser/photomanager/internal/digest"
	"github.com/bleemesser/photomanager/internal/plog"
)

// Outcome classifies what Run did for one uid.
type Outcome string

const (
	Stored        Outcome = "STORED"
	AlreadyStored Outcome = "ALREADY_STORED"
	Uncollected   Outcome = "UNCOLLECTED"
)

// Result is one uid's collection outcome.
type Result struct {
	UID     string
	Outcome Outcome
	Sto     string
	Bytes   int64
	Error   error
}

// Options configures one collect pass.
type Options struct {
	Destination string
	WriteDB     bool // --collect-db: also copy the catalog into Destination
	DBPath      string
}

// Run collects the primary variant of every uid into opts.Destination,
// mutating cat in memory (setting Sto) and returning per-uid results.
// The caller is responsible for persisting cat afterward (catalogio.Save)
// — Run itself never writes the catalog file except for the optional
// --collect-db copy.
func Run(cat *catalog.Catalog, opts Options) ([]Result, error) {
	if err := os.MkdirAll(opts.Destination, 0o755); err != nil {
		return nil, catalog.Wrap(catalog.KindIO, opts.Destination, err)
	}
	cleanupStaleTemp(opts.Destination)

	var results []Result
	for _, uid := range cat.UIDs() {
		res := collectOne(cat, uid, opts.Destination)
		results = append(results, res)
	}

	if opts.WriteDB && opts.DBPath != "" {
		dbCopyPath := filepath.Join(opts.Destination, filepath.Base(opts.DBPath))
		if err := catalogio.Save(dbCopyPath, cat); err != nil {
			return results, fmt.Errorf("writing --collect-db copy: %w", err)
		}
	}

	return results, nil
}

func collectOne(cat *catalog.Catalog, uid, destination string) Result {
	variants := cat.BestPhotos(uid)
	if len(variants) == 0 {
		return Result{UID: uid, Outcome: Uncollected, Error: fmt.Errorf("empty uid bucket")}
	}

	for _, v := range variants {
		if v.Sto != "" {
			full := filepath.Join(destination, filepath.FromSlash(v.Sto))
			if info, err := os.Stat(full); err == nil && info.Size() == v.Fsz {
				return Result{UID: uid, Outcome: AlreadyStored, Sto: v.Sto, Bytes: info.Size()}
			}
		}
	}

	var lastErr error
	for _, v := range variants {
		if _, err := os.Stat(v.Src); err != nil {
			lastErr = err
			continue
		}
		sto, n, err := storeVariant(v, destination, cat.HashAlgorithm)
		if err != nil {
			lastErr = err
			plog.Warn("collect %s: %v", v.Src, err)
			continue
		}
		v.Sto = sto
		if v.Sidecar != "" {
			copySidecar(v, sto, destination)
		}
		return Result{UID: uid, Outcome: Stored, Sto: sto, Bytes: n}
	}

	return Result{UID: uid, Outcome: Uncollected, Error: catalog.Wrap(catalog.KindCollection, uid, lastErr)}
}

// storeVariant computes the target relative path, stages the copy in a
// temp file next to it, fsyncs, and renames atomically over the target
// — which keeps a crash from ever leaving a partially written file at
// the final name, satisfied by construction instead of by a separate
// cleanup pass over final names.
func storeVariant(v *catalog.PhotoFile, destination string, algo catalog.Algorithm) (string, int64, error) {
	rel, err := targetRelPath(v, destination, algo)
	if err != nil {
		return "", 0, err
	}
	full := filepath.Join(destination, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, catalog.Wrap(catalog.KindIO, full, err)
	}

	n, err := atomicCopy(v.Src, full)
	if err != nil {
		return "", 0, err
	}
	return rel, n, nil
}

// targetRelPath computes destination/YYYY/MM-Mon/YYYY-MM-DD_HH-MM-SS-<chk[0:7]>-<basename>,
// resolving collisions by appending -1, -2, ... to the basename stem.
func targetRelPath(v *catalog.PhotoFile, destination string, algo catalog.Algorithm) (string, error) {
	loc := time.UTC
	if v.Tzo != nil {
		loc = time.FixedZone("", *v.Tzo)
	}
	t := time.Unix(int64(v.Ts), 0).In(loc)

	chkPrefix := v.Chk
	if len(chkPrefix) > 7 {
		chkPrefix = chkPrefix[:7]
	}

	base := sanitizeBasename(filepath.Base(v.Src))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dir := fmt.Sprintf("%04d/%02d-%s", t.Year(), int(t.Month()), t.Month().String()[:3])
	namePrefix := fmt.Sprintf("%04d-%02d-%02d_%02d-%02d-%02d-%s-",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), chkPrefix)

	for attempt := 0; ; attempt++ {
		name := namePrefix + stem + ext
		if attempt > 0 {
			name = fmt.Sprintf("%s%s-%d%s", namePrefix, stem, attempt, ext)
		}
		rel := filepath.ToSlash(filepath.Join(dir, name))
		full := filepath.Join(destination, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if os.IsNotExist(err) {
			return rel, nil
		}
		if err != nil {
			return "", catalog.Wrap(catalog.KindIO, full, err)
		}
		if info.Size() == v.Fsz {
			existingDigest, hashErr := digest.HashFile(full, algo)
			if hashErr == nil && existingDigest == v.Chk {
				return rel, nil
			}
		}
	}
}

func sanitizeBasename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}

func copySidecar(v *catalog.PhotoFile, storedRel, destination string) {
	ext := filepath.Ext(storedRel)
	stem := strings.TrimSuffix(storedRel, ext)
	sidecarExt := filepath.Ext(v.Sidecar)
	dst := filepath.Join(destination, filepath.FromSlash(stem+sidecarExt))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		plog.Warn("sidecar for %s: %v", v.Src, err)
		return
	}
	if _, err := atomicCopy(v.Sidecar, dst); err != nil {
		plog.Warn("sidecar for %s: %v", v.Src, err)
	}
}

// atomicCopy streams src into a temp file beside dst, fsyncs, closes,
// and renames over dst, replacing any file already there. The temp file
// itself is created with O_EXCL so two concurrent collectors never
// clobber each other's staging file.
func atomicCopy(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, catalog.Wrap(catalog.KindIO, src, err)
	}
	defer in.Close()

	tmp := dst + ".tmp-" + uuid.NewString()
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, catalog.Wrap(catalog.KindIO, dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, catalog.Wrap(catalog.KindIO, dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, catalog.Wrap(catalog.KindIO, dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, catalog.Wrap(catalog.KindIO, dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return 0, catalog.Wrap(catalog.KindIO, dst, err)
	}
	return n, nil
}

// cleanupStaleTemp removes any ".tmp-<uuid>" staging files left behind
// by an interrupted run, so a restart never trips over them.
func cleanupStaleTemp(destination string) {
	_ = filepath.Walk(destination, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if strings.Contains(info.Name(), ".tmp-") {
			os.Remove(path)
		}
		return nil
	})
}
