// Package delivery copies cataloged posts from the source channel to a
// requester, one item at a time.
package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"videofinder-bot/internal/storage"
	"videofinder-bot/internal/textclean"
)

// Copier copies a message between chats, replacing its caption.
type Copier interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) (int, error)
}

// CaptionSource looks up stored captions.
type CaptionSource interface {
	FindCaption(ctx context.Context, messageID int) (string, bool, error)
}

// Item is one post ready to be copied.
type Item struct {
	MessageID int
	Caption   string
}

// ItemDeliveryError reports a single item that could not be copied.
type ItemDeliveryError struct {
	MessageID int
	Err       error
}

func (e *ItemDeliveryError) Error() string {
	return fmt.Sprintf("deliver message %d: %v", e.MessageID, e.Err)
}

func (e *ItemDeliveryError) Unwrap() error { return e.Err }

// Report lists the outcome of a batch in delivery order.
type Report struct {
	Delivered []int
	Failed    []*ItemDeliveryError
}

// Partial reports whether some but not all items were delivered.
func (r Report) Partial() bool {
	return len(r.Delivered) > 0 && len(r.Failed) > 0
}

// Deliverer sends items from one source channel.
type Deliverer struct {
	copier        Copier
	captions      CaptionSource
	sourceChannel int64
	logger        zerolog.Logger
}

func NewDeliverer(copier Copier, captions CaptionSource, sourceChannel int64, logger zerolog.Logger) *Deliverer {
	return &Deliverer{
		copier:        copier,
		captions:      captions,
		sourceChannel: sourceChannel,
		logger:        logger.With().Str("component", "delivery").Logger(),
	}
}

// ItemsFromRecords cleans the stored captions of recs.
func ItemsFromRecords(recs []storage.Record) []Item {
	items := make([]Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, Item{MessageID: rec.MessageID, Caption: textclean.Clean(rec.Caption)})
	}
	return items
}

// Lookup builds items for ids from their stored captions. Unknown ids get an
// empty caption.
func (d *Deliverer) Lookup(ctx context.Context, ids []int) ([]Item, error) {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		caption, _, err := d.captions.FindCaption(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{MessageID: id, Caption: textclean.Clean(caption)})
	}
	return items, nil
}

// Send copies items to chatID in order. A failed item is recorded and the
// rest of the batch is still attempted.
func (d *Deliverer) Send(ctx context.Context, chatID int64, items []Item) Report {
	batch := uuid.NewString()
	var report Report
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, &ItemDeliveryError{MessageID: it.MessageID, Err: err})
			continue
		}
		if _, err := d.copier.CopyMessage(ctx, chatID, d.sourceChannel, it.MessageID, it.Caption); err != nil {
			d.logger.Warn().Err(err).Str("batch", batch).Int("message_id", it.MessageID).Msg("copy failed")
			report.Failed = append(report.Failed, &ItemDeliveryError{MessageID: it.MessageID, Err: err})
			continue
		}
		report.Delivered = append(report.Delivered, it.MessageID)
	}
	d.logger.Info().
		Str("batch", batch).
		Int64("chat_id", chatID).
		Int("delivered", len(report.Delivered)).
		Int("failed", len(report.Failed)).
		Msg("delivery finished")
	return report
}
