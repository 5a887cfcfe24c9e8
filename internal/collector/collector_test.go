package collector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleemesser/photomanager/internal/catalog"
)

func writeSrcFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func newPhoto(t *testing.T, srcDir, name string, content []byte, ts float64, prio int) *catalog.PhotoFile {
	t.Helper()
	path := filepath.Join(srcDir, name)
	writeSrcFile(t, path, content)
	return &catalog.PhotoFile{
		Chk:  "deadbeef" + name,
		Src:  path,
		Ts:   ts,
		Fsz:  int64(len(content)),
		Prio: prio,
	}
}

func TestRun_StoresPrimaryVariantAndClassifiesOutcome(t *testing.T) {
	srcDir := t.TempDir()
	dest := t.TempDir()

	cat := catalog.New(catalog.SHA256, "+0000")
	pf := newPhoto(t, srcDir, "IMG_0001.jpg", []byte("hello world"), float64(time.Date(2022, 6, 1, 10, 30, 0, 0, time.UTC).Unix()), 10)
	cat.Add(*pf)

	results, err := Run(cat, Options{Destination: dest})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, Stored, res.Outcome)
	assert.NoError(t, res.Error)
	assert.Equal(t, int64(len("hello world")), res.Bytes)

	full := filepath.Join(dest, filepath.FromSlash(res.Sto))
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	// The target path should follow the YYYY/MM-Mon/... layout.
	assert.Contains(t, res.Sto, "2022/06-Jun/2022-06-01_10-30-00-")
	assert.Contains(t, res.Sto, "IMG_0001.jpg")
}

func TestRun_SecondPassDetectsAlreadyStored(t *testing.T) {
	srcDir := t.TempDir()
	dest := t.TempDir()

	cat := catalog.New(catalog.SHA256, "+0000")
	pf := newPhoto(t, srcDir, "IMG_0002.jpg", []byte("some bytes"), float64(time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC).Unix()), 10)
	cat.Add(*pf)

	results, err := Run(cat, Options{Destination: dest})
	require.NoError(t, err)
	require.Equal(t, Stored, results[0].Outcome)

	results2, err := Run(cat, Options{Destination: dest})
	require.NoError(t, err)
	require.Len(t, results2, 1)
	assert.Equal(t, AlreadyStored, results2[0].Outcome)
	assert.Equal(t, results[0].Sto, results2[0].Sto)
}

func TestCollectOne_SkipsMissingSourceFallsThroughToNextVariant(t *testing.T) {
	srcDir := t.TempDir()
	dest := t.TempDir()

	cat := catalog.New(catalog.SHA256, "+0000")
	missing := newPhoto(t, srcDir, "missing.jpg", []byte("gone"), 1000, 1)
	_, uid := cat.Add(*missing)
	require.NoError(t, os.Remove(missing.Src))

	// Same chk as missing so it merges into the same uid bucket as a
	// second variant, with lower priority (higher Prio number) so
	// BestPhotos tries missing first and falls through to this one.
	present := *missing
	present.Src = filepath.Join(srcDir, "present.jpg")
	present.Prio = 2
	writeSrcFile(t, present.Src, []byte("still here"))
	present.Fsz = int64(len("still here"))
	outcome, u := cat.Add(present)
	require.Equal(t, catalog.Merged, outcome)
	require.Equal(t, uid, u)

	res := collectOne(cat, uid, dest)
	assert.Equal(t, Stored, res.Outcome)
	assert.Contains(t, res.Sto, "present.jpg")
}

func TestCollectOne_EmptyBucketIsUncollected(t *testing.T) {
	cat := catalog.New(catalog.SHA256, "+0000")
	res := collectOne(cat, "nonexistent-uid", t.TempDir())
	assert.Equal(t, Uncollected, res.Outcome)
	assert.Error(t, res.Error)
}

func TestTargetRelPath_ResolvesCollisionByContentComparison(t *testing.T) {
	dest := t.TempDir()
	ts := float64(time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC).Unix())

	const contentA = "content-A"
	const contentB = "content-B-different-length"
	// Real digests, since targetRelPath's collision resolution hashes
	// the file already on disk and compares it against v.Chk.
	const chkA = "f69f2c2353f91e70f6076e282185cdea553ec501da6600cc0714ab5587ac6bc1"
	const chkB = "b8c55807a2dad3254f818c2020fdab45a3d5b2cf770fbecfb94988fdb3d5e5ca"

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "a.jpg")

	v1 := &catalog.PhotoFile{Chk: chkA, Src: src, Ts: ts, Fsz: int64(len(contentA)), Prio: 10}
	writeSrcFile(t, src, []byte(contentA))
	rel1, err := targetRelPath(v1, dest, catalog.SHA256)
	require.NoError(t, err)
	full1 := filepath.Join(dest, filepath.FromSlash(rel1))
	require.NoError(t, os.MkdirAll(filepath.Dir(full1), 0o755))
	require.NoError(t, os.WriteFile(full1, []byte(contentA), 0o644))

	// v2 shares chkA's first 7 hex chars (so it maps to the same
	// namePrefix, same ts, same basename — a collision at rel1) but its
	// full chk differs, simulating a short-prefix coincidence. The
	// on-disk file at rel1 is contentA, whose real digest is chkA, not
	// v2's chk, so the collision resolver must not treat it as the same
	// file and must bump to a new suffixed path.
	chkCollidingPrefix := chkA[:7] + chkB[7:]
	v2 := &catalog.PhotoFile{Chk: chkCollidingPrefix, Src: src, Ts: ts, Fsz: int64(len(contentB)), Prio: 10}
	rel2, err := targetRelPath(v2, dest, catalog.SHA256)
	require.NoError(t, err)
	assert.NotEqual(t, rel1, rel2)

	// v3 has the same chk and size as v1: the collision resolver must
	// recognize the on-disk file at rel1 as the same content and return
	// rel1 again rather than bumping to a new suffix.
	v3 := &catalog.PhotoFile{Chk: chkA, Src: src, Ts: ts, Fsz: int64(len(contentA)), Prio: 10}
	rel3, err := targetRelPath(v3, dest, catalog.SHA256)
	require.NoError(t, err)
	assert.Equal(t, rel1, rel3)
}

func TestAtomicCopy_WritesFullContentAndLeavesNoTempFile(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	src := filepath.Join(srcDir, "file.bin")
	writeSrcFile(t, src, []byte("payload-data"))
	dst := filepath.Join(destDir, "out.bin")

	n, err := atomicCopy(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload-data")), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload-data", string(data))

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no stray temp file should remain beside the final name")
}

func TestCleanupStaleTemp_RemovesOrphanedTempFiles(t *testing.T) {
	dest := t.TempDir()
	stale := filepath.Join(dest, "2022", "06-Jun", "photo.jpg.tmp-abc123")
	writeSrcFile(t, stale, []byte("leftover"))
	keep := filepath.Join(dest, "2022", "06-Jun", "photo.jpg")
	writeSrcFile(t, keep, []byte("good"))

	cleanupStaleTemp(dest)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}

func TestRun_CollectDBWritesCatalogCopyIntoDestination(t *testing.T) {
	srcDir := t.TempDir()
	dest := t.TempDir()

	cat := catalog.New(catalog.SHA256, "+0000")
	pf := newPhoto(t, srcDir, "IMG_0003.jpg", []byte("db copy test"), 123456, 10)
	cat.Add(*pf)

	dbPath := filepath.Join(t.TempDir(), "photo_db.json")
	_, err := Run(cat, Options{Destination: dest, WriteDB: true, DBPath: dbPath})
	require.NoError(t, err)

	copied := filepath.Join(dest, "photo_db.json")
	info, err := os.Stat(copied)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
