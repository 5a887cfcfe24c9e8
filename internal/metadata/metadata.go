// Package metadata wraps an external EXIF tool in batched, persistent
// mode and parses its output into capture-time/size records. It mutates
// nothing on disk and memoizes by absolute path within one run.
package metadata

import (
	"fmt"
	"sync"

	exiftool "github.com/barasher/go-exiftool"
)

// DefaultBatchSize is the default number of paths issued to the
// extractor per request.
const DefaultBatchSize = 200

// Record is the fixed-shape subset of EXIF output the date resolver and
// catalog need. Unknown fields from the tool's dynamic JSON shape are
// discarded; missing fields are left zero-valued rather than causing an
// error.
type Record struct {
	DateTimeOriginal string
	CreateDate       string
	ModifyDate       string
	FileModifyDate   string
	FileSize         int64
	MIMEType         string
	FileType         string
}

// Extractor batches calls to exiftool and memoizes results by absolute
// path for the lifetime of one run.
type Extractor struct {
	batchSize int

	mu      sync.Mutex
	cache   map[string]Record
	tool    *exiftool.Exiftool
}

// New starts a persistent exiftool process. batchSize <= 0 uses
// DefaultBatchSize.
func New(batchSize int) (*Extractor, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &Extractor{
		batchSize: batchSize,
		cache:     make(map[string]Record),
		tool:      et,
	}, nil
}

// Close terminates the underlying exiftool process.
func (e *Extractor) Close() error {
	return e.tool.Close()
}

// ExtractBatch extracts metadata for every path, issuing requests to
// exiftool in chunks of e.batchSize. A path whose extraction fails
// entirely yields a zero-value Record rather than aborting the batch.
func (e *Extractor) ExtractBatch(paths []string) map[string]Record {
	out := make(map[string]Record, len(paths))
	var toFetch []string

	e.mu.Lock()
	for _, p := range paths {
		if rec, ok := e.cache[p]; ok {
			out[p] = rec
		} else {
			toFetch = append(toFetch, p)
		}
	}
	e.mu.Unlock()

	for start := 0; start < len(toFetch); start += e.batchSize {
		end := start + e.batchSize
		if end > len(toFetch) {
			end = len(toFetch)
		}
		chunk := toFetch[start:end]
		metas := e.tool.ExtractMetadata(chunk...)

		e.mu.Lock()
		for _, m := range metas {
			rec := recordFromFields(m.Fields)
			if m.Err != nil {
				rec = Record{}
			}
			e.cache[m.File] = rec
			out[m.File] = rec
		}
		e.mu.Unlock()
	}

	return out
}

func recordFromFields(fields map[string]interface{}) Record {
	var rec Record
	rec.DateTimeOriginal = stringField(fields, "DateTimeOriginal")
	rec.CreateDate = stringField(fields, "CreateDate")
	rec.ModifyDate = stringField(fields, "ModifyDate")
	rec.FileModifyDate = stringField(fields, "FileModifyDate")
	rec.MIMEType = stringField(fields, "MIMEType")
	rec.FileType = stringField(fields, "File:FileType")
	if rec.FileType == "" {
		rec.FileType = stringField(fields, "FileType")
	}
	if sz, ok := fields["FileSize"]; ok {
		switch v := sz.(type) {
		case float64:
			rec.FileSize = int64(v)
		case int64:
			rec.FileSize = v
		case int:
			rec.FileSize = int64(v)
		}
	}
	return rec
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ExtractBatchParallel spreads paths across `workers` extractor
// instances (each its own exiftool subprocess, mirroring the
// per-worker-instance pattern used for file hashing in util/import.go)
// for SSD/RAID storage classes. workers <= 1 behaves like a single
// ExtractBatch call on e.
func ExtractBatchParallel(paths []string, batchSize, workers int) (map[string]Record, error) {
	if workers <= 1 {
		e, err := New(batchSize)
		if err != nil {
			return nil, err
		}
		defer e.Close()
		return e.ExtractBatch(paths), nil
	}

	chunks := splitEvenly(paths, workers)
	results := make([]map[string]Record, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		i, chunk := i, chunk
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := New(batchSize)
			if err != nil {
				errs[i] = err
				return
			}
			defer e.Close()
			results[i] = e.ExtractBatch(chunk)
		}()
	}
	wg.Wait()

	merged := make(map[string]Record, len(paths))
	for i, r := range results {
		if errs[i] != nil {
			return nil, errs[i]
		}
		for k, v := range r {
			merged[k] = v
		}
	}
	return merged, nil
}

func splitEvenly(paths []string, parts int) [][]string {
	if parts < 1 {
		parts = 1
	}
	out := make([][]string, parts)
	for i, p := range paths {
		idx := i % parts
		out[idx] = append(out[idx], p)
	}
	return out
}
