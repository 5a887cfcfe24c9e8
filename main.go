package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	bar "github.com/schollz/progressbar/v3"

	"github.com/bleemesser/photomanager/internal/catalog"
	"github.com/bleemesser/photomanager/internal/catalogio"
	"github.com/bleemesser/photomanager/internal/cleaner"
	"github.com/bleemesser/photomanager/internal/collector"
	"github.com/bleemesser/photomanager/internal/digest"
	"github.com/bleemesser/photomanager/internal/indexer"
	"github.com/bleemesser/photomanager/internal/lock"
	"github.com/bleemesser/photomanager/internal/plog"
	"github.com/bleemesser/photomanager/internal/verifier"
	"github.com/bleemesser/photomanager/util"
)

func main() {
	args, err := util.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, util.Usage)
		os.Exit(2)
	}
	plog.SetDebug(args.Bool("debug"))

	var runErr error
	switch args.Action {
	case "help":
		fmt.Print(util.Usage)
		return
	case "create":
		runErr = doCreate(args)
	case "index":
		runErr = doIndex(args)
	case "import":
		runErr = doImport(args)
	case "collect":
		runErr = doCollect(args)
	case "verify":
		runErr = doVerify(args)
	case "clean":
		runErr = doClean(args)
	case "stats":
		runErr = doStats(args)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func doCreate(args util.Args) error {
	dbPath := args.Flag("db")
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("catalog already exists at %s", dbPath)
	}

	algo := catalog.Algorithm(args.FlagOr("algorithm", string(catalog.BLAKE3)))
	switch algo {
	case catalog.BLAKE2b256, catalog.BLAKE3, catalog.SHA256:
	default:
		return fmt.Errorf("unknown hash algorithm %q", algo)
	}
	tz := args.FlagOr("timezone-default", "local")

	cat := catalog.New(algo, tz)
	if err := catalogio.Save(dbPath, cat); err != nil {
		return err
	}
	plog.Info("created catalog %s (%s, tz=%s)", dbPath, algo, tz)
	return nil
}

func doIndex(args util.Args) error {
	return withLockedCatalog(args, func(cat *catalog.Catalog) error {
		opts, err := indexOptions(args, cat)
		if err != nil {
			return err
		}
		results, err := indexer.Run(context.Background(), cat, opts)
		if err != nil {
			return err
		}
		reportIndexResults(results)
		return nil
	})
}

func doImport(args util.Args) error {
	return withLockedCatalog(args, func(cat *catalog.Catalog) error {
		opts, err := indexOptions(args, cat)
		if err != nil {
			return err
		}
		results, err := indexer.Run(context.Background(), cat, opts)
		if err != nil {
			return err
		}
		reportIndexResults(results)

		collectResults, err := collector.Run(cat, collectOptions(args))
		if err != nil {
			return err
		}
		reportCollectResults(collectResults)
		return nil
	})
}

func doCollect(args util.Args) error {
	return withLockedCatalog(args, func(cat *catalog.Catalog) error {
		results, err := collector.Run(cat, collectOptions(args))
		if err != nil {
			return err
		}
		reportCollectResults(results)
		return nil
	})
}

func doVerify(args util.Args) error {
	cat, err := catalogio.Load(args.Flag("db"))
	if err != nil {
		return err
	}

	storageClass, err := digest.ParseStorageClass(args.FlagOr("storage", "SSD"))
	if err != nil {
		return err
	}
	randomFraction := 0.0
	if v := args.Flag("random-fraction"); v != "" {
		randomFraction, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("--random-fraction: %w", err)
		}
	}

	opts := verifier.Options{
		Destination:    args.Flag("destination"),
		Subdir:         args.Flag("subdir"),
		RandomFraction: randomFraction,
		StorageClass:   storageClass,
	}
	summary, results := verifier.Run(context.Background(), cat, opts)

	bp := bar.Default(int64(len(results)), "verified")
	for range results {
		_ = bp.Add(1)
	}
	for _, r := range results {
		if r.Status != verifier.Pass {
			plog.Warn("%s: %s (%s)", r.Status, r.Sto, r.UID)
		}
	}
	plog.Info("verify: %d pass, %d fail, %d missing, %s checked",
		summary.NPass, summary.NFail, summary.NMissing, humanize.Bytes(uint64(summary.TotalBytes)))

	if summary.NFail > 0 || summary.NMissing > 0 {
		return fmt.Errorf("verify found %d offending file(s)", len(summary.Offending))
	}
	return nil
}

func doClean(args util.Args) error {
	var failed int
	err := withLockedCatalog(args, func(cat *catalog.Catalog) error {
		dryRun := args.Bool("dry-run")
		plans := cleaner.Run(cat, args.Flag("destination"), dryRun)
		for _, p := range plans {
			if p.Error != nil {
				plog.Warn("clean %s: %v", p.UID, p.Error)
				failed++
				continue
			}
			plog.Info("clean %s: kept %s, removed %d", p.UID, p.Primary, len(p.Removed))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("clean: %d uid(s) could not be cleaned", failed)
	}
	return nil
}

func doStats(args util.Args) error {
	cat, err := catalogio.Load(args.Flag("db"))
	if err != nil {
		return err
	}
	uids := cat.UIDs()
	var variants, stored int
	var storedBytes int64
	for _, uid := range uids {
		vs := cat.BestPhotos(uid)
		variants += len(vs)
		for _, v := range vs {
			if v.Sto != "" {
				stored++
				storedBytes += v.Fsz
			}
		}
	}
	fmt.Printf("catalog:    %s\n", args.Flag("db"))
	fmt.Printf("version:    %d\n", cat.Version)
	fmt.Printf("algorithm:  %s\n", cat.HashAlgorithm)
	fmt.Printf("uids:       %d\n", len(uids))
	fmt.Printf("variants:   %d\n", variants)
	fmt.Printf("stored:     %d (%s)\n", stored, humanize.Bytes(uint64(storedBytes)))
	return nil
}

// withLockedCatalog acquires an advisory lock on the catalog, loads it,
// runs fn, saves it back if fn returned nil, and releases the lock —
// the shape every mutating subcommand shares.
func withLockedCatalog(args util.Args, fn func(cat *catalog.Catalog) error) error {
	dbPath := args.Flag("db")
	h, err := lock.Acquire(dbPath)
	if err != nil {
		return err
	}
	defer h.Release()

	cat, err := catalogio.Load(dbPath)
	if err != nil {
		return err
	}
	if err := fn(cat); err != nil {
		return err
	}
	return catalogio.Save(dbPath, cat)
}

func indexOptions(args util.Args, cat *catalog.Catalog) (indexer.Options, error) {
	storageClass, err := digest.ParseStorageClass(args.FlagOr("storage", "SSD"))
	if err != nil {
		return indexer.Options{}, err
	}
	priority := catalog.DefaultPriority
	if v := args.Flag("priority"); v != "" {
		priority, err = strconv.Atoi(v)
		if err != nil {
			return indexer.Options{}, fmt.Errorf("--priority: %w", err)
		}
	}
	return indexer.Options{
		Roots:           args.Positional(),
		Excludes:        args.MultiFlag("exclude"),
		Priority:        priority,
		StorageClass:    storageClass,
		Algorithm:       cat.HashAlgorithm,
		SkipExisting:    args.Bool("skip-existing"),
		TimezoneDefault: cat.TimezoneDefault,
		MetadataBatch:   64,
	}, nil
}

func collectOptions(args util.Args) collector.Options {
	return collector.Options{
		Destination: args.Flag("destination"),
		WriteDB:     args.Bool("collect-db"),
		DBPath:      args.Flag("db"),
	}
}

func reportIndexResults(results []indexer.Result) {
	bp := bar.Default(int64(len(results)), "indexed")
	var inserted, merged, dup, failed int
	for _, r := range results {
		_ = bp.Add(1)
		if r.Error != nil {
			failed++
			plog.Warn("index %s: %v", r.Path, r.Error)
			continue
		}
		switch r.Outcome {
		case catalog.Inserted:
			inserted++
		case catalog.Merged:
			merged++
		case catalog.Duplicate:
			dup++
		}
	}
	plog.Info("index: %d inserted, %d merged, %d duplicate, %d failed", inserted, merged, dup, failed)
}

func reportCollectResults(results []collector.Result) {
	bp := bar.Default(int64(len(results)), "collected")
	var stored, already, uncollected int
	var bytes int64
	for _, r := range results {
		_ = bp.Add(1)
		if r.Error != nil {
			uncollected++
			plog.Warn("collect %s: %v", r.UID, r.Error)
			continue
		}
		switch r.Outcome {
		case collector.Stored:
			stored++
			bytes += r.Bytes
		case collector.AlreadyStored:
			already++
		}
	}
	plog.Info("collect: %d stored (%s), %d already present, %d uncollected",
		stored, humanize.Bytes(uint64(bytes)), already, uncollected)
}
