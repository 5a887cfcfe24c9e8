// Package cleaner removes superseded stored variants: it is the
// inverse of the collector, restoring the at-most-one-stored-variant-
// per-uid invariant after a migration or a manual layout change leaves
// more than one.
package cleaner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bleemesser/photomanager/internal/catalog"
	"github.com/bleemesser/photomanager/internal/digest"
	"github.com/bleemesser/photomanager/internal/plog"
)

// Plan describes what the cleaner did (or, in dry-run, would do) for
// one uid.
type Plan struct {
	UID     string
	Primary string // Sto of the surviving variant
	Removed []string
	Error   error
}

// Run walks every uid in cat, verifies its surviving stored variant
// against disk, and removes the stored files of any other variants for
// the same uid, clearing their Sto. The surviving variant is the first
// stored variant in BestPhotos order that verifies; a uid where no
// stored variant verifies is an error: that uid is skipped and its
// error recorded, but the rest proceed. In
// dryRun mode no filesystem operation is performed.
func Run(cat *catalog.Catalog, destination string, dryRun bool) []Plan {
	var plans []Plan
	for _, uid := range cat.UIDs() {
		plan := cleanOne(cat, uid, destination, dryRun)
		if plan != nil {
			plans = append(plans, *plan)
		}
	}
	return plans
}

func cleanOne(cat *catalog.Catalog, uid, destination string, dryRun bool) *Plan {
	ordered := cat.BestPhotos(uid)
	var stored []*catalog.PhotoFile
	for _, v := range ordered {
		if v.Sto != "" {
			stored = append(stored, v)
		}
	}
	if len(stored) <= 1 {
		return nil // nothing to clean — only one stored variant already
	}

	// The surviving variant is the one with minimum prio among those
	// whose chk still matches the on-disk file at sto. stored is
	// already ordered by prio (ascending) via BestPhotos, so the first
	// one that verifies is the primary.
	var primary *catalog.PhotoFile
	for _, v := range stored {
		if verify(destination, v, cat.HashAlgorithm) == nil {
			primary = v
			break
		}
	}
	if primary == nil {
		return &Plan{UID: uid, Error: fmt.Errorf("no stored variant for %s verifies against disk", uid)}
	}

	plan := &Plan{UID: uid, Primary: primary.Sto}
	for _, v := range stored {
		if v == primary {
			continue
		}
		full := filepath.Join(destination, filepath.FromSlash(v.Sto))
		if dryRun {
			plog.Info("clean (dry-run): would remove %s (uid %s)", full, uid)
			plan.Removed = append(plan.Removed, v.Sto)
			continue
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			plog.Warn("clean: failed to remove %s: %v", full, err)
			continue
		}
		plan.Removed = append(plan.Removed, v.Sto)
		v.Sto = ""
	}
	return plan
}

func verify(destination string, v *catalog.PhotoFile, algo catalog.Algorithm) error {
	full := filepath.Join(destination, filepath.FromSlash(v.Sto))
	got, err := digest.HashFile(full, algo)
	if err != nil {
		return err
	}
	if got != v.Chk {
		return fmt.Errorf("digest mismatch at %s", full)
	}
	return nil
}
