// Package dateresolve picks a "best available" capture datetime for a
// file from EXIF candidates, filename patterns, and filesystem times,
// applying a default timezone when the chosen value is naive.
//
// The priority order and fallback chain mirrors the aggregated-extractor
// pattern in acm19/pics' date_extractor.go: try candidates in preference
// order, fall through to the next on parse failure, never error out
// entirely.
package dateresolve

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bleemesser/photomanager/internal/metadata"
)

const exifLayout = "2006:01:02 15:04:05"

// filenamePattern pairs a regexp (with named capture groups y, mo, d, h,
// mi, s) against one of the filename conventions cameras and phones
// commonly embed in exported filenames.
type filenamePattern struct {
	re *regexp.Regexp
}

var filenamePatterns = []filenamePattern{
	// YYYY-MM-DD_HH-MM-SS
	{regexp.MustCompile(`(?P<y>\d{4})-(?P<mo>\d{2})-(?P<d>\d{2})_(?P<h>\d{2})-(?P<mi>\d{2})-(?P<s>\d{2})`)},
	// YYYY-MM-DD HH.MM.SS
	{regexp.MustCompile(`(?P<y>\d{4})-(?P<mo>\d{2})-(?P<d>\d{2}) (?P<h>\d{2})\.(?P<mi>\d{2})\.(?P<s>\d{2})`)},
	// YYYYMMDD_HHMMSS, IMG_YYYYMMDD_HHMMSS, VID_YYYYMMDD_HHMMSS all share
	// this bare pattern once any leading IMG_/VID_ prefix is ignored.
	{regexp.MustCompile(`(?P<y>\d{4})(?P<mo>\d{2})(?P<d>\d{2})_(?P<h>\d{2})(?P<mi>\d{2})(?P<s>\d{2})`)},
	// Screen Shot YYYY-MM-DD at HH.MM.SS
	{regexp.MustCompile(`Screen Shot (?P<y>\d{4})-(?P<mo>\d{2})-(?P<d>\d{2}) at (?P<h>\d{2})\.(?P<mi>\d{2})\.(?P<s>\d{2})`)},
}

// fromFilename tries every known filename pattern against base and
// returns the first match.
func fromFilename(base string) (time.Time, bool) {
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		names := p.re.SubexpNames()
		get := func(name string) int {
			for i, n := range names {
				if n == name && i < len(m) {
					var v int
					fmt.Sscanf(m[i], "%d", &v)
					return v
				}
			}
			return 0
		}
		y, mo, d, h, mi, s := get("y"), get("mo"), get("d"), get("h"), get("mi"), get("s")
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			continue
		}
		return time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC), true
	}
	return time.Time{}, false
}

// Result is the resolved capture time, ready to be stored as a
// PhotoFile's dt/ts/tzo fields.
type Result struct {
	// DtString is formatted "YYYY:MM:DD HH:MM:SS±ZZZZ".
	DtString string
	// Ts is POSIX seconds of the resolved time.
	Ts float64
	// Tzo is the effective offset in seconds applied to a naive
	// candidate, or nil if the candidate already carried an offset
	// (never happens for our own candidate sources, which are all
	// naive, but kept to match the PhotoFile shape).
	Tzo *int
}

// Resolve walks a fixed priority order: EXIF DateTimeOriginal,
// CreateDate, ModifyDate, an embedded filename pattern, EXIF
// FileModifyDate, then the filesystem mtime directly.
func Resolve(basename string, rec metadata.Record, fsModTime time.Time, timezoneDefault string) (Result, error) {
	candidates := []string{rec.DateTimeOriginal, rec.CreateDate, rec.ModifyDate}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := time.ParseInLocation(exifLayout, c, time.UTC); err == nil {
			return finalize(t, timezoneDefault)
		}
	}

	if t, ok := fromFilename(basename); ok {
		return finalize(t, timezoneDefault)
	}

	if rec.FileModifyDate != "" {
		if t, err := time.ParseInLocation(exifLayout, rec.FileModifyDate, time.UTC); err == nil {
			return finalize(t, timezoneDefault)
		}
	}

	return finalize(fsModTime.UTC(), timezoneDefault)
}

// finalize applies the catalog's default offset to a naive candidate t
// (treated as a wall clock with no zone information) and formats it.
func finalize(t time.Time, timezoneDefault string) (Result, error) {
	offsetSeconds, err := resolveOffsetSeconds(timezoneDefault)
	if err != nil {
		return Result{}, err
	}
	loc := time.FixedZone(offsetName(offsetSeconds), offsetSeconds)
	aware := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)

	dtString := fmt.Sprintf("%04d:%02d:%02d %02d:%02d:%02d%s",
		aware.Year(), int(aware.Month()), aware.Day(),
		aware.Hour(), aware.Minute(), aware.Second(),
		formatOffset(offsetSeconds))

	tzo := offsetSeconds
	return Result{
		DtString: dtString,
		Ts:       float64(aware.Unix()),
		Tzo:      &tzo,
	}, nil
}

// resolveOffsetSeconds interprets the catalog's timezone_default: either
// a literal "local" (host's current local offset) or an explicit
// "±ZZZZ" offset string.
func resolveOffsetSeconds(timezoneDefault string) (int, error) {
	if timezoneDefault == "" || timezoneDefault == "local" {
		_, offset := time.Now().Local().Zone()
		return offset, nil
	}
	return parseOffset(timezoneDefault)
}

func parseOffset(s string) (int, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return 0, fmt.Errorf("invalid timezone offset %q", s)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s[1:3], "%d", &hh); err != nil {
		return 0, fmt.Errorf("invalid timezone offset %q: %w", s, err)
	}
	if _, err := fmt.Sscanf(s[3:5], "%d", &mm); err != nil {
		return 0, fmt.Errorf("invalid timezone offset %q: %w", s, err)
	}
	total := hh*3600 + mm*60
	if s[0] == '-' {
		total = -total
	}
	return total, nil
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hh := seconds / 3600
	mm := (seconds % 3600) / 60
	return fmt.Sprintf("%s%02d%02d", sign, hh, mm)
}

func offsetName(seconds int) string {
	return fmt.Sprintf("UTC%s", formatOffset(seconds))
}
