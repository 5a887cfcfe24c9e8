package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordFromFields_ExtractsKnownFieldsAndTolerantToMissing(t *testing.T) {
	fields := map[string]interface{}{
		"DateTimeOriginal": "2022:01:01 00:00:00",
		"CreateDate":       "2021:01:01 00:00:00",
		"FileSize":         float64(12345),
		"MIMEType":         "image/jpeg",
	}
	rec := recordFromFields(fields)
	assert.Equal(t, "2022:01:01 00:00:00", rec.DateTimeOriginal)
	assert.Equal(t, "2021:01:01 00:00:00", rec.CreateDate)
	assert.Equal(t, "", rec.ModifyDate)
	assert.Equal(t, int64(12345), rec.FileSize)
	assert.Equal(t, "image/jpeg", rec.MIMEType)
}

func TestRecordFromFields_PrefersFileTypeNamespacedField(t *testing.T) {
	fields := map[string]interface{}{"File:FileType": "JPEG", "FileType": "ignored"}
	rec := recordFromFields(fields)
	assert.Equal(t, "JPEG", rec.FileType)
}

func TestStringField_NonStringValueYieldsEmpty(t *testing.T) {
	fields := map[string]interface{}{"FileSize": 42}
	assert.Equal(t, "", stringField(fields, "FileSize"))
}

func TestSplitEvenly_DistributesAllPaths(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e"}
	chunks := splitEvenly(paths, 3)
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	assert.Equal(t, len(paths), total)
	assert.Len(t, chunks, 3)
}

func TestSplitEvenly_ZeroPartsDefaultsToOne(t *testing.T) {
	chunks := splitEvenly([]string{"a"}, 0)
	assert.Len(t, chunks, 1)
}
