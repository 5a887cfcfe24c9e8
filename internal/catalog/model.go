// Package catalog implements the in-memory photo catalog: the versioned,
// append-mostly database grouping variant PhotoFile records under a
// logical uid.
package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Algorithm identifies the hash algorithm a catalog's chk fields are
// computed under. Fixed at create time.
type Algorithm string

const (
	BLAKE2b256 Algorithm = "blake2b-256"
	BLAKE3     Algorithm = "blake3"
	SHA256     Algorithm = "sha256"
)

// CurrentVersion is the catalog schema version this package writes.
const CurrentVersion = 3

// PhotoFile is one captured variant of a logical photo.
type PhotoFile struct {
	Chk     string `json:"chk"`
	Src     string `json:"src"`
	Dt      string `json:"dt"`
	Ts      float64 `json:"ts"`
	Fsz     int64   `json:"fsz"`
	Sto     string  `json:"sto"`
	Prio    int     `json:"prio"`
	Tzo     *int    `json:"tzo,omitempty"`
	Sidecar string  `json:"sidecar,omitempty"`
}

// DefaultPriority is the priority assigned to a PhotoFile at index time
// unless the caller specifies otherwise.
const DefaultPriority = 10

// AddOutcome describes what Catalog.Add did with an incoming PhotoFile.
type AddOutcome int

const (
	Inserted AddOutcome = iota
	Merged
	Duplicate
)

func (o AddOutcome) String() string {
	switch o {
	case Inserted:
		return "INSERTED"
	case Merged:
		return "MERGED"
	case Duplicate:
		return "DUPLICATE"
	default:
		return "UNKNOWN"
	}
}

// Catalog is the in-memory representation of the photo database.
type Catalog struct {
	Version         int                      `json:"version"`
	HashAlgorithm   Algorithm                `json:"hash_algorithm"`
	TimezoneDefault string                   `json:"timezone_default"`
	PhotoDB         map[string][]*PhotoFile  `json:"photo_db"`
	CommandHistory  map[string]string        `json:"command_history"`

	// Derived indexes. Rebuilt on load, updated alongside every Add,
	// never persisted.
	mu          sync.Mutex
	hashToUID   map[string]string
	tsToUIDs    map[int64][]string
}

// New creates an empty catalog at the current version under the given
// hash algorithm and default timezone ("local" or an offset like
// "-0400").
func New(algo Algorithm, timezoneDefault string) *Catalog {
	c := &Catalog{
		Version:         CurrentVersion,
		HashAlgorithm:   algo,
		TimezoneDefault: timezoneDefault,
		PhotoDB:         make(map[string][]*PhotoFile),
		CommandHistory:  make(map[string]string),
	}
	c.rebuildIndexes()
	return c
}

// rebuildIndexes recomputes the derived hashToUID / tsToUIDs caches from
// PhotoDB. Called by New and after decoding a catalog.
func (c *Catalog) rebuildIndexes() {
	c.hashToUID = make(map[string]string)
	c.tsToUIDs = make(map[int64][]string)
	for uid, variants := range c.PhotoDB {
		for _, v := range variants {
			c.hashToUID[v.Chk] = uid
			c.addTsIndex(uid, v.Ts)
		}
	}
}

func (c *Catalog) addTsIndex(uid string, ts float64) {
	key := int64(ts)
	for _, existing := range c.tsToUIDs[key] {
		if existing == uid {
			return
		}
	}
	c.tsToUIDs[key] = append(c.tsToUIDs[key], uid)
}

// allocateUID derives a fresh bucket key from chk: the leading 8 bytes
// (16 hex chars) of chk, extended one byte at a time on collision with
// a bucket whose first variant's chk differs. Extension is
// byte-granular rather than nibble-granular, chosen for determinism
// over a minimal-length key.
func (c *Catalog) allocateUID(chk string) string {
	const initialLen = 16
	n := initialLen
	if n > len(chk) {
		n = len(chk)
	}
	for {
		candidate := chk[:n]
		bucket, exists := c.PhotoDB[candidate]
		if !exists {
			return candidate
		}
		if len(bucket) > 0 && bucket[0].Chk == chk {
			// Same logical chk resolved to the same prefix already;
			// reuse it (shouldn't normally be reached via Add, since
			// Add only allocates for genuinely new chks, but keeps
			// allocateUID idempotent).
			return candidate
		}
		if n >= len(chk) {
			// Degenerate: whole chk collides with a different chk of
			// the same length. Cannot happen with real digests but
			// guard against an infinite loop.
			return candidate + "#"
		}
		n += 2
	}
}

// Add resolves incoming into an existing uid bucket or allocates a new
// one: an exact chk match merges or dedups into that bucket; failing
// that, an alternate-version match (same integer-second timestamp and
// basename) merges into that bucket; otherwise a fresh uid is
// allocated.
func (c *Catalog) Add(incoming PhotoFile) (AddOutcome, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if uid, ok := c.hashToUID[incoming.Chk]; ok {
		bucket := c.PhotoDB[uid]
		for _, v := range bucket {
			if v.Src == incoming.Src {
				return Duplicate, uid
			}
		}
		cp := incoming
		c.PhotoDB[uid] = append(bucket, &cp)
		c.addTsIndex(uid, incoming.Ts)
		return Merged, uid
	}

	if uid, ok := c.findAlternate(incoming); ok {
		cp := incoming
		c.PhotoDB[uid] = append(c.PhotoDB[uid], &cp)
		c.hashToUID[incoming.Chk] = uid
		c.addTsIndex(uid, incoming.Ts)
		return Merged, uid
	}

	uid := c.allocateUID(incoming.Chk)
	cp := incoming
	c.PhotoDB[uid] = []*PhotoFile{&cp}
	c.hashToUID[incoming.Chk] = uid
	c.addTsIndex(uid, incoming.Ts)
	return Inserted, uid
}

// findAlternate implements step 2 of the add resolution algorithm: a
// variant in some uid bucket sharing integer-second ts and a
// case-insensitive basename match.
func (c *Catalog) findAlternate(incoming PhotoFile) (string, bool) {
	key := int64(incoming.Ts)
	incomingBase := strings.ToLower(filepath.Base(incoming.Src))
	for _, uid := range c.tsToUIDs[key] {
		for _, v := range c.PhotoDB[uid] {
			if int64(v.Ts) == key && strings.ToLower(filepath.Base(v.Src)) == incomingBase {
				return uid, true
			}
		}
	}
	return "", false
}

// BestPhotos returns the variants of uid ordered ascending by Prio,
// tie-broken descending by Ts, then ascending by Src. The
// ascending-Src tie-break deterministically prefers the
// lexicographically first path — e.g. "IMG_0001.jpg" over
// "IMG_0001 copy.jpg".
func (c *Catalog) BestPhotos(uid string) []*PhotoFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.PhotoDB[uid]
	out := make([]*PhotoFile, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Prio != out[j].Prio {
			return out[i].Prio < out[j].Prio
		}
		if out[i].Ts != out[j].Ts {
			return out[i].Ts > out[j].Ts
		}
		return out[i].Src < out[j].Src
	})
	return out
}

// StoredEntry pairs a uid with one of its stored variants.
type StoredEntry struct {
	UID   string
	Photo *PhotoFile
}

// StoredPhotos returns every (uid, variant) pair where Sto is non-empty.
func (c *Catalog) StoredPhotos() []StoredEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []StoredEntry
	for uid, variants := range c.PhotoDB {
		for _, v := range variants {
			if v.Sto != "" {
				out = append(out, StoredEntry{UID: uid, Photo: v})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UID != out[j].UID {
			return out[i].UID < out[j].UID
		}
		return out[i].Photo.Sto < out[j].Photo.Sto
	})
	return out
}

// UIDs returns every bucket key in deterministic (sorted) order.
func (c *Catalog) UIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.PhotoDB))
	for uid := range c.PhotoDB {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

// MapHashes rewrites chk under a new algorithm given an externally
// provided translation table (old chk -> new chk). Irreversible: the
// catalog's HashAlgorithm is updated and the derived hashToUID index is
// rebuilt from the rewritten values.
func (c *Catalog) MapHashes(newAlgo Algorithm, mapping map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, variants := range c.PhotoDB {
		for _, v := range variants {
			newChk, ok := mapping[v.Chk]
			if !ok {
				return fmt.Errorf("map_hashes: no translation provided for chk %q", v.Chk)
			}
			v.Chk = newChk
		}
	}
	c.HashAlgorithm = newAlgo
	c.hashToUID = make(map[string]string)
	for uid, variants := range c.PhotoDB {
		for _, v := range variants {
			c.hashToUID[v.Chk] = uid
		}
	}
	return nil
}
