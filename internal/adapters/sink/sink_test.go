package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/llm-feed-filter/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func readRecords(t *testing.T, path string) []HiddenRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []HiddenRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec HiddenRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	return records
}

func TestFileSink_HideIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hidden.jsonl")
	s, err := NewFileSink(path, zap.NewNop())
	require.NoError(t, err)

	item := core.Item{Handle: "h1", URL: "https://x.test/1", Author: "alice"}
	s.Hide(context.Background(), item)
	s.Hide(context.Background(), item)
	s.Hide(context.Background(), core.Item{Handle: "h2"})

	records := readRecords(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "h1", records[0].Handle)
	assert.Equal(t, "alice", records[0].Author)
	assert.False(t, records[0].HiddenAt.IsZero())
	assert.Equal(t, "h2", records[1].Handle)
}

func TestFileSink_RemembersExistingHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hidden.jsonl")
	first, err := NewFileSink(path, zap.NewNop())
	require.NoError(t, err)
	first.Hide(context.Background(), core.Item{Handle: "h1"})

	second, err := NewFileSink(path, zap.NewNop())
	require.NoError(t, err)
	second.Hide(context.Background(), core.Item{Handle: "h1"})

	assert.Len(t, readRecords(t, path), 1)
}

func TestFileSink_WriteFailureIsLogged(t *testing.T) {
	obs, logs := observer.New(zap.ErrorLevel)
	path := filepath.Join(t.TempDir(), "missing-dir", "hidden.jsonl")
	s, err := NewFileSink(path, zap.New(obs))
	require.NoError(t, err)

	s.Hide(context.Background(), core.Item{Handle: "h1"})
	assert.Equal(t, 1, logs.Len())
}

func TestLogSink_Hide(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	NewLogSink(zap.New(obs)).Hide(context.Background(), core.Item{Handle: "h1", URL: "u"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "h1", logs.All()[0].ContextMap()["handle"])
}
