package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videofinder-bot/internal/storage"
)

const channelID = int64(-1001865650854)

func TestIngestor_Observe(t *testing.T) {
	store := storage.NewMemory()
	in := NewIngestor(store, channelID, zerolog.Nop())
	ctx := context.Background()

	created, err := in.Observe(ctx, Post{ChatID: channelID, MessageID: 5, FileName: "Pushpa.e01.720p.mkv", Caption: "Pushpa 1", HasMedia: true})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = in.Observe(ctx, Post{ChatID: channelID, MessageID: 5, FileName: "changed.mkv", HasMedia: true})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = in.Observe(ctx, Post{ChatID: -100999, MessageID: 6, FileName: "elsewhere.mkv", HasMedia: true})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = in.Observe(ctx, Post{ChatID: channelID, MessageID: 7, Caption: "just text"})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = in.Observe(ctx, Post{ChatID: channelID, MessageID: 8, HasMedia: true})
	require.NoError(t, err)
	assert.True(t, created)

	recs, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []storage.Record{
		{MessageID: 5, FileName: "Pushpa.e01.720p.mkv", Caption: "Pushpa 1"},
		{MessageID: 8, FileName: UnknownFileName},
	}, recs)
}

const sampleExport = `{
  "name": "Series Vault",
  "type": "public_channel",
  "id": 1865650854,
  "messages": [
    {"id": 1, "type": "service", "action": "create_channel"},
    {"id": 2, "type": "message", "file": "video_files/Mahabharat.e01.2014.1080p.mkv", "text": "Mahabharat 1 @vault"},
    {"id": 3, "type": "message", "file_name": "Mahabharat.e02.2014.1080p.mkv", "file": "(File not included. Change data exporting settings to download.)",
     "text": ["Mahabharat ", {"type": "bold", "text": "Episode 2"}]},
    {"id": 4, "type": "message", "text": "announcement"},
    {"id": 5, "type": "message", "file": "(File not included. Change data exporting settings to download.)", "text": ""}
  ]
}`

func TestReadExport(t *testing.T) {
	posts, err := ReadExport(strings.NewReader(sampleExport), channelID)
	require.NoError(t, err)
	require.Len(t, posts, 4)

	assert.Equal(t, Post{ChatID: channelID, MessageID: 2, FileName: "Mahabharat.e01.2014.1080p.mkv", Caption: "Mahabharat 1 @vault", HasMedia: true}, posts[0])
	assert.Equal(t, Post{ChatID: channelID, MessageID: 3, FileName: "Mahabharat.e02.2014.1080p.mkv", Caption: "Mahabharat Episode 2", HasMedia: true}, posts[1])
	assert.False(t, posts[2].HasMedia)
	assert.True(t, posts[3].HasMedia)
	assert.Empty(t, posts[3].FileName)
}

func TestReadExportMalformed(t *testing.T) {
	_, err := ReadExport(strings.NewReader(`{"messages": [`), channelID)
	assert.Error(t, err)
}

func TestIngestor_Backfill(t *testing.T) {
	store := storage.NewMemory()
	_, err := store.InsertIfAbsent(context.Background(), storage.Record{MessageID: 2, FileName: "already.mkv"})
	require.NoError(t, err)

	posts, err := ReadExport(strings.NewReader(sampleExport), channelID)
	require.NoError(t, err)

	in := NewIngestor(store, channelID, zerolog.Nop())
	st, err := in.Backfill(context.Background(), posts)
	require.NoError(t, err)
	assert.Equal(t, Stats{Added: 2, Skipped: 1}, st)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	caption, ok, err := store.FindCaption(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, caption, "existing records are never overwritten")
}

func TestIngestor_BackfillCanceled(t *testing.T) {
	in := NewIngestor(storage.NewMemory(), channelID, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := in.Backfill(ctx, []Post{{ChatID: channelID, MessageID: 1, HasMedia: true}})
	assert.ErrorIs(t, err, context.Canceled)
}
