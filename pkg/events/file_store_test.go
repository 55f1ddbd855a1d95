package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "ship.json"))
	require.NoError(t, err)
	return store
}

func testEvent(service string, millis int64) *ActionEvent {
	return &ActionEvent{
		Type:       ActionUpdate,
		Username:   "bob",
		Service:    service,
		Parameters: map[string]any{"image": "myapp"},
		Time:       millis,
	}
}

func TestFileStore_AppendAndList(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testEvent("prod-api", 1000)))
	require.NoError(t, store.Append(ctx, testEvent("prod-web", 2000)))
	require.NoError(t, store.Append(ctx, testEvent("prod-api", 3000)))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1000), all[0].Time, "insertion order preserved")

	forService, err := store.ListForService(ctx, "prod-api")
	require.NoError(t, err)
	require.Len(t, forService, 2)
	assert.Equal(t, int64(1000), forService[0].Time)
	assert.Equal(t, int64(3000), forService[1].Time)
}

func TestFileStore_EmptyLog(t *testing.T) {
	store := newTestFileStore(t)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore_DocumentShape(t *testing.T) {
	store := newTestFileStore(t)
	require.NoError(t, store.Append(context.Background(), testEvent("prod-api", 1000)))

	// The on-disk format is one JSON document with a single logs array.
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "logs")

	var logs []ActionEvent
	require.NoError(t, json.Unmarshal(doc["logs"], &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "update", logs[0].Type)
	assert.Equal(t, "bob", logs[0].Username)
}

func TestFileStore_PurgeOldest(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	// Append 120 events with shuffled-ish times via interleaving.
	for i := 0; i < 120; i++ {
		require.NoError(t, store.Append(ctx, testEvent(fmt.Sprintf("svc-%d", i%7), int64(i*10))))
	}

	removed, err := store.PurgeOldest(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 70, removed)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 50)

	// Exactly the 50 greatest times survive, still oldest first.
	assert.Equal(t, int64(700), all[0].Time)
	assert.Equal(t, int64(1190), all[49].Time)
}

func TestFileStore_PurgeBelowKeepIsNoop(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testEvent("prod-api", 1000)))

	removed, err := store.PurgeOldest(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, removed)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileStore_ConcurrentAppends(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Append(ctx, testEvent("prod-api", int64(n)))
		}(i)
	}
	wg.Wait()

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, writers, "no appends lost and no corrupt file")
}

func TestFileStore_CorruptFile(t *testing.T) {
	store := newTestFileStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := store.ListAll(context.Background())
	assert.Error(t, err)
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
