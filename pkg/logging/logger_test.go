package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerWritesRecordingLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Info(CategorySession, "session_started", "rec-1", "recording started", map[string]any{"max_events": 1000}))
	require.NoError(t, logger.Info(CategoryIngest, "event_admitted", "rec-1", "", nil))

	entries := readEntries(t, filepath.Join(dir, "recordings", "rec-1.jsonl"))
	require.Len(t, entries, 2)
	assert.Equal(t, CategorySession, entries[0].Category)
	assert.Equal(t, "session_started", entries[0].EventType)
	assert.Equal(t, "rec-1", entries[0].SessionID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestLoggerErrorsDuplicatedToErrorLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Error(CategoryTransport, "send_failed", "rec-2", "duplex send failed", nil))

	errEntries := readEntries(t, filepath.Join(dir, "errors.jsonl"))
	require.Len(t, errEntries, 1)
	assert.Equal(t, LevelError, errEntries[0].Level)

	recEntries := readEntries(t, filepath.Join(dir, "recordings", "rec-2.jsonl"))
	require.Len(t, recEntries, 1)
}

func TestLoggerMinLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	defer logger.Close()

	// Default minimum level is info; debug entries are dropped
	require.NoError(t, logger.Debug(CategoryAgent, "heartbeat", "rec-3", "", nil))
	_, statErr := os.Stat(filepath.Join(dir, "recordings", "rec-3.jsonl"))
	assert.True(t, os.IsNotExist(statErr))

	logger.SetMinLevel(LevelDebug)
	require.NoError(t, logger.Debug(CategoryAgent, "heartbeat", "rec-3", "", nil))
	entries := readEntries(t, filepath.Join(dir, "recordings", "rec-3.jsonl"))
	require.Len(t, entries, 1)
}
