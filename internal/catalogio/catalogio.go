// Package catalogio handles the catalog codec's filesystem concerns:
// transparent gzip/zstd framing by extension, atomic writes, and
// non-destructive rotation of prior versions.
package catalogio

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/bleemesser/photomanager/internal/catalog"
)

// Load reads a catalog from path, transparently decompressing based on
// the file extension (.json, .json.gz, .json.zst) and upgrading it to
// the current version.
func Load(path string) (*catalog.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, catalog.Wrap(catalog.KindIO, path, err)
	}
	data, err := decompress(path, raw)
	if err != nil {
		return nil, catalog.Wrap(catalog.KindDatabase, path, err)
	}
	return catalog.Decode(data)
}

func decompress(path string, raw []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".json.gz"):
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open gzip catalog: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	case strings.HasSuffix(path, ".json.zst"):
		zr, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open zstd catalog: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return raw, nil
	}
}

func compress(path string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".json.gz"):
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, fmt.Errorf("gzip catalog: %w", err)
		}
		if err := gw.Close(); err != nil {
			return nil, fmt.Errorf("close gzip catalog: %w", err)
		}
		return buf.Bytes(), nil
	case strings.HasSuffix(path, ".json.zst"):
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("zstd catalog: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("close zstd catalog: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

// Save writes cat to path atomically: serialize, compress per the
// destination's extension, write to a temporary file in the same
// directory, fsync, and rename over the destination. If the destination
// already exists with different content, it is first rotated to
// "<name>_YYYYMMDD_HHMMSS_<short-digest>.<ext>" so no prior version is
// ever overwritten.
func Save(path string, cat *catalog.Catalog) error {
	plain, err := cat.Encode()
	if err != nil {
		return err
	}
	framed, err := compress(path, plain)
	if err != nil {
		return catalog.Wrap(catalog.KindDatabase, path, err)
	}

	if existing, err := os.ReadFile(path); err == nil {
		if !bytes.Equal(existing, framed) {
			if err := rotate(path, existing); err != nil {
				return catalog.Wrap(catalog.KindDatabase, path, err)
			}
		}
	} else if !os.IsNotExist(err) {
		return catalog.Wrap(catalog.KindIO, path, err)
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := writeAndSync(tmp, framed); err != nil {
		os.Remove(tmp)
		return catalog.Wrap(catalog.KindIO, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return catalog.Wrap(catalog.KindIO, path, err)
	}
	return nil
}

func writeAndSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func rotate(path string, oldContent []byte) error {
	base := filepath.Base(path)
	ext := ""
	name := base
	for _, suf := range []string{".json.gz", ".json.zst", ".json"} {
		if strings.HasSuffix(base, suf) {
			ext = suf
			name = strings.TrimSuffix(base, suf)
			break
		}
	}
	digest := sha256.Sum256(oldContent)
	shortDigest := fmt.Sprintf("%x", digest[:4])
	stamp := time.Now().UTC().Format("20060102_150405")
	rotated := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s_%s_%s%s", name, stamp, shortDigest, ext))
	return os.Rename(path, rotated)
}
