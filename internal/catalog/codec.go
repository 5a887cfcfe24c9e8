package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// diskPhotoFileV1 is the version-1 on-disk shape, which used long field
// names before version 2 shortened them.
type diskPhotoFileV1 struct {
	Checksum   string  `json:"checksum"`
	SourcePath string  `json:"source_path"`
	DateTime   string  `json:"date_time"`
	Timestamp  float64 `json:"timestamp"`
	FileSize   int64   `json:"file_size"`
	StorePath  string  `json:"store_path"`
	Priority   int     `json:"priority"`
}

// diskPhotoFileV23 is the version 2/3 shape. tzo was added in version 3;
// its absence in a v2 document just leaves Tzo nil (offset-aware dt).
type diskPhotoFileV23 struct {
	Chk     string  `json:"chk"`
	Src     string  `json:"src"`
	Dt      string  `json:"dt"`
	Ts      float64 `json:"ts"`
	Fsz     int64   `json:"fsz"`
	Sto     string  `json:"sto"`
	Prio    int     `json:"prio"`
	Tzo     *int    `json:"tzo,omitempty"`
	Sidecar string  `json:"sidecar,omitempty"`
}

type diskHeader struct {
	Version int `json:"version"`
}

// Decode parses raw catalog JSON bytes (already decompressed by the
// caller), detects its version, and upgrades it in memory to the
// current shape. Decode never mutates the bytes it is given and never
// touches the filesystem — that is catalogio's job.
func Decode(data []byte) (*Catalog, error) {
	var hdr diskHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, Wrap(KindDatabase, "", fmt.Errorf("parse catalog header: %w", err))
	}

	switch {
	case hdr.Version <= 1:
		return decodeV1(data)
	case hdr.Version == 2, hdr.Version == 3:
		return decodeV23(data, hdr.Version)
	default:
		return nil, Wrap(KindDatabase, "", fmt.Errorf("unknown catalog version %d", hdr.Version))
	}
}

func decodeV1(data []byte) (*Catalog, error) {
	var doc struct {
		Version        int                             `json:"version"`
		HashAlgorithm  Algorithm                        `json:"hash_algorithm"`
		PhotoDB        map[string][]diskPhotoFileV1     `json:"photo_db"`
		CommandHistory map[string]string                `json:"command_history"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Wrap(KindDatabase, "", fmt.Errorf("parse v1 catalog: %w", err))
	}
	algo := doc.HashAlgorithm
	if algo == "" {
		algo = SHA256
	}
	c := &Catalog{
		Version:         CurrentVersion,
		HashAlgorithm:   algo,
		TimezoneDefault: "local",
		PhotoDB:         make(map[string][]*PhotoFile),
		CommandHistory:  doc.CommandHistory,
	}
	if c.CommandHistory == nil {
		c.CommandHistory = make(map[string]string)
	}
	for uid, variants := range doc.PhotoDB {
		out := make([]*PhotoFile, 0, len(variants))
		for _, v := range variants {
			out = append(out, &PhotoFile{
				Chk:  v.Checksum,
				Src:  v.SourcePath,
				Dt:   v.DateTime,
				Ts:   v.Timestamp,
				Fsz:  v.FileSize,
				Sto:  v.StorePath,
				Prio: v.Priority,
			})
		}
		c.PhotoDB[uid] = out
	}
	c.rebuildIndexes()
	return c, nil
}

func decodeV23(data []byte, version int) (*Catalog, error) {
	var doc struct {
		Version         int                            `json:"version"`
		HashAlgorithm   Algorithm                       `json:"hash_algorithm"`
		TimezoneDefault string                          `json:"timezone_default"`
		PhotoDB         map[string][]diskPhotoFileV23   `json:"photo_db"`
		CommandHistory  map[string]string               `json:"command_history"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Wrap(KindDatabase, "", fmt.Errorf("parse v%d catalog: %w", version, err))
	}
	if doc.HashAlgorithm == "" {
		return nil, Wrap(KindDatabase, "", fmt.Errorf("catalog missing hash_algorithm"))
	}
	tz := doc.TimezoneDefault
	if tz == "" {
		tz = "local"
	}
	c := &Catalog{
		Version:         CurrentVersion,
		HashAlgorithm:   doc.HashAlgorithm,
		TimezoneDefault: tz,
		PhotoDB:         make(map[string][]*PhotoFile),
		CommandHistory:  doc.CommandHistory,
	}
	if c.CommandHistory == nil {
		c.CommandHistory = make(map[string]string)
	}
	for uid, variants := range doc.PhotoDB {
		out := make([]*PhotoFile, 0, len(variants))
		for _, v := range variants {
			out = append(out, &PhotoFile{
				Chk:     v.Chk,
				Src:     v.Src,
				Dt:      v.Dt,
				Ts:      v.Ts,
				Fsz:     v.Fsz,
				Sto:     v.Sto,
				Prio:    v.Prio,
				Tzo:     v.Tzo,
				Sidecar: v.Sidecar,
			})
		}
		c.PhotoDB[uid] = out
	}
	c.rebuildIndexes()
	return c, nil
}

// Encode serializes the catalog at its current (version-3) shape with
// sorted keys and compact separators. encoding/json sorts map keys but
// emits struct fields in declaration order, so the marshalled document
// is decoded into generic maps (numbers kept verbatim) and marshalled
// again; without Indent the separators are compact.
func (c *Catalog) Encode() ([]byte, error) {
	type doc struct {
		Version         int                     `json:"version"`
		HashAlgorithm   Algorithm               `json:"hash_algorithm"`
		TimezoneDefault string                  `json:"timezone_default"`
		PhotoDB         map[string][]*PhotoFile `json:"photo_db"`
		CommandHistory  map[string]string       `json:"command_history"`
	}
	out := doc{
		Version:         CurrentVersion,
		HashAlgorithm:   c.HashAlgorithm,
		TimezoneDefault: c.TimezoneDefault,
		PhotoDB:         c.PhotoDB,
		CommandHistory:  c.CommandHistory,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, Wrap(KindDatabase, "", fmt.Errorf("encode catalog: %w", err))
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, Wrap(KindDatabase, "", fmt.Errorf("encode catalog: %w", err))
	}
	data, err = json.Marshal(generic)
	if err != nil {
		return nil, Wrap(KindDatabase, "", fmt.Errorf("encode catalog: %w", err))
	}
	return data, nil
}
