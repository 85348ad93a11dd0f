package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/geodata-br/censomap/internal/store"
)

func TestFormatSyncEntries(t *testing.T) {
	var buf bytes.Buffer
	formatSyncEntries(&buf, []store.SyncEntry{
		{
			Dataset:  "sidra",
			Status:   store.SyncStatusOK,
			Rows:     33420,
			ETag:     `"0123456789abcdef0123456789abcdef"`,
			SyncedAt: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			Dataset:  "malha",
			Status:   store.SyncStatusFailed,
			Error:    "http 503 from servicodados.ibge.gov.br",
			SyncedAt: time.Date(2025, 3, 1, 12, 31, 0, 0, time.UTC),
		},
	})

	out := buf.String()
	assert.Contains(t, out, "DATASET")
	assert.Contains(t, out, "sidra")
	assert.Contains(t, out, "33420")
	assert.Contains(t, out, "2025-03-01 12:30")
	assert.Contains(t, out, "failed")
	// Long values are truncated with an ellipsis.
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "abcdef0123456789abcdef")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4) // header, separator, two entries
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "toolong...", truncate("toolongvalue", 10))
}
