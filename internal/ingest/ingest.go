// Package ingest fills the catalog from the source channel: live channel
// posts as they arrive, and historical posts from a channel export.
package ingest

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"videofinder-bot/internal/storage"
)

// UnknownFileName is stored for media posts that carry no file name.
const UnknownFileName = "Unknown"

// Post is a channel message as seen by either ingestion path.
type Post struct {
	ChatID    int64
	MessageID int
	FileName  string
	Caption   string
	HasMedia  bool
}

// Stats counts the outcome of a batch.
type Stats struct {
	Added   int
	Skipped int
	Failed  int
}

// Ingestor writes channel posts into a Store. Only posts from the source
// channel that carry a file are kept.
type Ingestor struct {
	store         storage.Store
	sourceChannel int64
	logger        zerolog.Logger
}

func NewIngestor(store storage.Store, sourceChannel int64, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		store:         store,
		sourceChannel: sourceChannel,
		logger:        logger.With().Str("component", "ingest").Logger(),
	}
}

// Observe stores a live post. It reports whether a new record was created;
// posts from other chats, posts without media and already known posts are
// ignored.
func (in *Ingestor) Observe(ctx context.Context, p Post) (bool, error) {
	if p.ChatID != in.sourceChannel || !p.HasMedia || p.MessageID <= 0 {
		return false, nil
	}
	created, err := in.store.InsertIfAbsent(ctx, toRecord(p))
	if err != nil {
		return false, err
	}
	if created {
		in.logger.Info().Int("message_id", p.MessageID).Str("file_name", p.FileName).Msg("new file added")
	}
	return created, nil
}

// Backfill stores historical posts. A failed insert is logged and counted,
// and the remaining posts are still processed.
func (in *Ingestor) Backfill(ctx context.Context, posts []Post) (Stats, error) {
	var st Stats
	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if !p.HasMedia || p.MessageID <= 0 {
			continue
		}
		created, err := in.store.InsertIfAbsent(ctx, toRecord(p))
		switch {
		case err != nil:
			in.logger.Warn().Err(err).Int("message_id", p.MessageID).Msg("skipping post")
			st.Failed++
		case created:
			in.logger.Debug().Int("message_id", p.MessageID).Str("file_name", p.FileName).Msg("added")
			st.Added++
		default:
			st.Skipped++
		}
	}
	in.logger.Info().Int("added", st.Added).Int("skipped", st.Skipped).Int("failed", st.Failed).Msg("backfill finished")
	return st, nil
}

func toRecord(p Post) storage.Record {
	name := strings.TrimSpace(p.FileName)
	if name == "" {
		name = UnknownFileName
	}
	return storage.Record{MessageID: p.MessageID, FileName: name, Caption: p.Caption}
}
