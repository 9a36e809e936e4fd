package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	assert.Equal(t, "exports/nightly/20240501T083000Z/subjects.parquet",
		ObjectKey("exports", "nightly", at, "subjects.parquet"))
	assert.Equal(t, "exports/nested/nightly/20240501T083000Z/report.json",
		ObjectKey("/exports/nested/", "nightly", at, "report.json"))
	assert.Equal(t, "nightly/20240501T083000Z/report.json",
		ObjectKey("", "nightly", at, "report.json"))
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"report.json":      "application/json",
		"report.yaml":      "application/yaml",
		"subjects.parquet": "application/vnd.apache.parquet",
		"subjects.arrow":   "application/vnd.apache.arrow.file",
		"subjects.avro":    "application/avro",
		"report.json.gz":   "application/octet-stream",
		"blob":             "application/octet-stream",
	}
	for file, want := range tests {
		assert.Equal(t, want, ContentType(file), file)
	}
}
