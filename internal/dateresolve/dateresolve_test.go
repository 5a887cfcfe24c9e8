package dateresolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleemesser/photomanager/internal/metadata"
)

func TestResolve_PrefersDateTimeOriginal(t *testing.T) {
	rec := metadata.Record{
		DateTimeOriginal: "2022:03:15 10:20:30",
		CreateDate:       "2021:01:01 00:00:00",
		ModifyDate:       "2020:01:01 00:00:00",
	}
	res, err := Resolve("IMG_0001.jpg", rec, time.Now(), "+0000")
	require.NoError(t, err)
	assert.Equal(t, "2022:03:15 10:20:30+0000", res.DtString)
}

func TestResolve_FallsThroughOnMalformedDateTimeOriginal(t *testing.T) {
	rec := metadata.Record{
		DateTimeOriginal: "not-a-date",
		CreateDate:       "2021:06:01 08:00:00",
	}
	res, err := Resolve("IMG_0001.jpg", rec, time.Now(), "+0000")
	require.NoError(t, err)
	assert.Equal(t, "2021:06:01 08:00:00+0000", res.DtString)
}

func TestResolve_FallsBackToFilenamePattern(t *testing.T) {
	rec := metadata.Record{}
	res, err := Resolve("2021-07-04_12-30-00.jpg", rec, time.Now(), "+0000")
	require.NoError(t, err)
	assert.Equal(t, "2021:07:04 12:30:00+0000", res.DtString)
}

func TestResolve_FallsBackToCompactFilenamePattern(t *testing.T) {
	rec := metadata.Record{}
	res, err := Resolve("IMG_20210704_123000.jpg", rec, time.Now(), "+0000")
	require.NoError(t, err)
	assert.Equal(t, "2021:07:04 12:30:00+0000", res.DtString)
}

func TestResolve_FallsBackToFileModifyDate(t *testing.T) {
	rec := metadata.Record{FileModifyDate: "2019:12:25 00:00:00"}
	res, err := Resolve("no-pattern-here.jpg", rec, time.Now(), "+0000")
	require.NoError(t, err)
	assert.Equal(t, "2019:12:25 00:00:00+0000", res.DtString)
}

func TestResolve_FallsBackToFilesystemMtime(t *testing.T) {
	rec := metadata.Record{}
	mtime := time.Date(2018, time.May, 5, 5, 5, 5, 0, time.UTC)
	res, err := Resolve("plain.jpg", rec, mtime, "+0000")
	require.NoError(t, err)
	assert.Equal(t, "2018:05:05 05:05:05+0000", res.DtString)
}

func TestResolve_AppliesExplicitOffset(t *testing.T) {
	rec := metadata.Record{DateTimeOriginal: "2022:01:01 00:00:00"}
	res, err := Resolve("x.jpg", rec, time.Now(), "-0500")
	require.NoError(t, err)
	assert.Equal(t, "2022:01:01 00:00:00-0500", res.DtString)
	require.NotNil(t, res.Tzo)
	assert.Equal(t, -5*3600, *res.Tzo)
}

func TestResolve_RejectsMalformedOffset(t *testing.T) {
	rec := metadata.Record{DateTimeOriginal: "2022:01:01 00:00:00"}
	_, err := Resolve("x.jpg", rec, time.Now(), "bogus")
	assert.Error(t, err)
}
