package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"videofinder-bot/internal/action"
	"videofinder-bot/internal/delivery"
	"videofinder-bot/internal/dialog"
	"videofinder-bot/internal/ingest"
	"videofinder-bot/internal/match"
	"videofinder-bot/internal/session"
	"videofinder-bot/internal/storage"
	"videofinder-bot/internal/tg"
)

type update struct {
	UpdateID      int            `json:"update_id"`
	Message       *message       `json:"message"`
	ChannelPost   *message       `json:"channel_post"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

type user struct {
	ID int64 `json:"id"`
}

type callbackQuery struct {
	ID      string   `json:"id"`
	From    user     `json:"from"`
	Data    string   `json:"data"`
	Message *message `json:"message"`
}

type chat struct {
	ID int64 `json:"id"`
}

type fileRef struct {
	FileName string `json:"file_name"`
}

type forwardOrigin struct {
	Type      string `json:"type"`
	Chat      *chat  `json:"chat"`
	MessageID int    `json:"message_id"`
}

type message struct {
	MessageID            int            `json:"message_id"`
	Chat                 chat           `json:"chat"`
	Text                 string         `json:"text"`
	Caption              string         `json:"caption"`
	From                 *user          `json:"from"`
	ReplyToMessage       *message       `json:"reply_to_message"`
	ForwardFromChat      *chat          `json:"forward_from_chat"`
	ForwardFromMessageID int            `json:"forward_from_message_id"`
	ForwardOrigin        *forwardOrigin `json:"forward_origin"`
	Document             *fileRef       `json:"document"`
	Video                *fileRef       `json:"video"`
}

func (m *message) hasMedia() bool {
	return m.Document != nil || m.Video != nil
}

func (m *message) fileName() string {
	if m.Document != nil && m.Document.FileName != "" {
		return m.Document.FileName
	}
	if m.Video != nil && m.Video.FileName != "" {
		return m.Video.FileName
	}
	return ""
}

// forwardedFrom returns the chat and message id a forwarded message was
// copied from, for both the current and the legacy Bot API fields.
func (m *message) forwardedFrom() (int64, int) {
	if o := m.ForwardOrigin; o != nil && o.Chat != nil && o.MessageID > 0 {
		return o.Chat.ID, o.MessageID
	}
	if m.ForwardFromChat != nil && m.ForwardFromMessageID > 0 {
		return m.ForwardFromChat.ID, m.ForwardFromMessageID
	}
	return 0, 0
}

func (m *message) sessionKey() session.Key {
	if m.From != nil {
		return session.UserKey(m.From.ID)
	}
	return session.UserKey(m.Chat.ID)
}

const (
	welcomeText = "Welcome to Video Bot!\n" +
		"Type a series name (e.g., 'Mahabharat' or 'Pushpa') to see all episodes grouped by quality.\n" +
		"For a full series, use 'Send All'. For a specific episode, click 'Search Episode' and then enter the episode number."
	adminHelpText   = "\n\nAdmin:\n/count\n/add   (reply to a post forwarded from the source channel)"
	emptyQueryText  = "Please provide a search keyword. Example: Mahabharat"
	noResultsText   = "No files found with that keyword."
	selectGroupText = "Select a quality group:"
	emptyGroupText  = "No files found for this group."
	failureText     = "Something went wrong, please try again later."
)

// Bot routes Telegram updates to search, the episode dialog, delivery and
// ingestion.
type Bot struct {
	client        *tg.Client
	engine        *match.Engine
	dialog        *dialog.Machine
	deliver       *delivery.Deliverer
	ingest        *ingest.Ingestor
	store         storage.Store
	channelID     int64
	adminChatID   int64
	webhookSecret string
	timeout       time.Duration
	logger        zerolog.Logger
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Client        *tg.Client
	Store         storage.Store
	Sessions      session.Store
	ChannelID     int64
	AdminChatID   int64
	WebhookSecret string
	Logger        zerolog.Logger
}

func New(d Deps) *Bot {
	engine := match.NewEngine(d.Store, d.Logger)
	return &Bot{
		client:        d.Client,
		engine:        engine,
		dialog:        dialog.NewMachine(d.Sessions, engine, d.Logger),
		deliver:       delivery.NewDeliverer(d.Client, d.Store, d.ChannelID, d.Logger),
		ingest:        ingest.NewIngestor(d.Store, d.ChannelID, d.Logger),
		store:         d.Store,
		channelID:     d.ChannelID,
		adminChatID:   d.AdminChatID,
		webhookSecret: d.WebhookSecret,
		timeout:       60 * time.Second,
		logger:        d.Logger.With().Str("component", "dispatcher").Logger(),
	}
}

// ServeHTTP is the webhook endpoint. Handled updates always answer 200 so
// Telegram does not redeliver them.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if b.webhookSecret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != b.webhookSecret {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	defer cancel()
	if err := b.HandleUpdate(ctx, body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleUpdate processes one raw update. Only undecodable payloads are
// reported as errors; everything else is answered in the chat.
func (b *Bot) HandleUpdate(ctx context.Context, raw []byte) error {
	var upd update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	log := b.logger.With().Int("update_id", upd.UpdateID).Logger()
	ctx = log.WithContext(ctx)

	switch {
	case upd.ChannelPost != nil:
		b.handleChannelPost(ctx, upd.ChannelPost)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
	return nil
}

func (b *Bot) handleChannelPost(ctx context.Context, post *message) {
	_, err := b.ingest.Observe(ctx, ingest.Post{
		ChatID:    post.Chat.ID,
		MessageID: post.MessageID,
		FileName:  post.fileName(),
		Caption:   post.Caption,
		HasMedia:  post.hasMedia(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("message_id", post.MessageID).Msg("ingest channel post")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}

	key := msg.sessionKey()
	group, awaiting, err := b.dialog.Pending(ctx, key)
	if err != nil {
		b.fail(ctx, msg.Chat.ID, "read session", err)
		return
	}
	if awaiting {
		zerolog.Ctx(ctx).Debug().Str("group", group).Msg("episode token received")
		b.resolveEpisode(ctx, msg.Chat.ID, key, text)
		return
	}
	b.search(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *message, text string) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	isAdmin := b.adminChatID != 0 && msg.Chat.ID == b.adminChatID

	switch cmd {
	case "/start", "/help":
		reply := welcomeText
		if isAdmin {
			reply += adminHelpText
		}
		b.reply(ctx, msg.Chat.ID, reply)
	case "/search":
		b.search(ctx, msg.Chat.ID, strings.Join(fields[1:], " "))
	case "/count":
		if !isAdmin {
			return
		}
		n, err := b.store.Count(ctx)
		if err != nil {
			b.fail(ctx, msg.Chat.ID, "count", err)
			return
		}
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("%d files indexed", n))
	case "/add":
		if !isAdmin {
			return
		}
		b.handleAdd(ctx, msg)
	}
}

func (b *Bot) handleAdd(ctx context.Context, msg *message) {
	src := msg.ReplyToMessage
	if src == nil {
		b.reply(ctx, msg.Chat.ID, "Reply to a post forwarded from the source channel.")
		return
	}
	fromChat, fromMsg := src.forwardedFrom()
	if fromChat != b.channelID || fromMsg == 0 || !src.hasMedia() {
		b.reply(ctx, msg.Chat.ID, "Reply to a post forwarded from the source channel.")
		return
	}
	created, err := b.ingest.Observe(ctx, ingest.Post{
		ChatID:    fromChat,
		MessageID: fromMsg,
		FileName:  src.fileName(),
		Caption:   src.Caption,
		HasMedia:  true,
	})
	if err != nil {
		b.fail(ctx, msg.Chat.ID, "add", err)
		return
	}
	if !created {
		b.reply(ctx, msg.Chat.ID, "Already indexed")
		return
	}
	b.reply(ctx, msg.Chat.ID, "OK")
}

func (b *Bot) search(ctx context.Context, chatID int64, query string) {
	plan, err := b.engine.Search(ctx, query)
	if errors.Is(err, match.ErrEmptyQuery) {
		b.reply(ctx, chatID, emptyQueryText)
		return
	}
	if err != nil {
		b.fail(ctx, chatID, "search", err)
		return
	}
	if plan.NoResults() {
		b.reply(ctx, chatID, noResultsText)
		return
	}
	b.send(ctx, tg.SendMessageRequest{ChatID: chatID, Text: selectGroupText, ReplyMarkup: planKeyboard(plan)})
}

func (b *Bot) resolveEpisode(ctx context.Context, chatID int64, key session.Key, token string) {
	res, err := b.dialog.Resolve(ctx, key, token)
	if errors.Is(err, dialog.ErrNotAwaiting) {
		// answered concurrently by another update of the same user
		return
	}
	if err != nil {
		b.fail(ctx, chatID, "resolve episode", err)
		return
	}
	if res.Fallback {
		b.reply(ctx, chatID, res.Notice)
	}
	if len(res.Items) == 0 {
		b.reply(ctx, chatID, emptyGroupText)
		return
	}
	b.deliverItems(ctx, chatID, delivery.ItemsFromRecords(res.Items))
}

func (b *Bot) handleCallback(ctx context.Context, cq *callbackQuery) {
	_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "")
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	act, err := action.Decode(strings.TrimSpace(cq.Data))
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("ignoring callback")
		return
	}
	log := zerolog.Ctx(ctx).With().Stringer("action", act.Kind).Logger()
	ctx = log.WithContext(ctx)

	switch act.Kind {
	case action.Single:
		items, err := b.deliver.Lookup(ctx, []int{act.MessageID})
		if err != nil {
			b.fail(ctx, chatID, "lookup caption", err)
			return
		}
		b.deliverItems(ctx, chatID, items)
	case action.Bulk:
		groupKey, ok, err := b.groupKey(ctx, act)
		if err != nil {
			b.fail(ctx, chatID, "resolve group", err)
			return
		}
		if !ok {
			b.reply(ctx, chatID, emptyGroupText)
			return
		}
		members, err := b.engine.GroupMembers(ctx, groupKey)
		if err != nil {
			b.fail(ctx, chatID, "group members", err)
			return
		}
		if len(members) == 0 {
			b.reply(ctx, chatID, emptyGroupText)
			return
		}
		b.deliverItems(ctx, chatID, delivery.ItemsFromRecords(members))
	case action.RefineEpisode:
		groupKey, ok, err := b.groupKey(ctx, act)
		if err != nil {
			b.fail(ctx, chatID, "resolve group", err)
			return
		}
		if !ok {
			b.reply(ctx, chatID, emptyGroupText)
			return
		}
		prompt, err := b.dialog.BeginRefine(ctx, session.UserKey(cq.From.ID), groupKey)
		if err != nil {
			b.fail(ctx, chatID, "begin refine", err)
			return
		}
		b.reply(ctx, chatID, prompt)
	}
}

// groupKey returns the verbatim key of a group action, looking digests up
// among the keys currently in the store.
func (b *Bot) groupKey(ctx context.Context, act action.Action) (string, bool, error) {
	if act.GroupKey != "" {
		return act.GroupKey, true, nil
	}
	keys, err := b.engine.GroupKeys(ctx)
	if err != nil {
		return "", false, err
	}
	for _, k := range keys {
		if action.Digest(k) == act.Digest {
			return k, true, nil
		}
	}
	return "", false, nil
}

func (b *Bot) deliverItems(ctx context.Context, chatID int64, items []delivery.Item) {
	report := b.deliver.Send(ctx, chatID, items)
	for _, f := range report.Failed {
		b.reply(ctx, chatID, fmt.Sprintf("Error sending file (ID: %d): %v\nFile may have been deleted.", f.MessageID, f.Err))
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, tg.SendMessageRequest{ChatID: chatID, Text: text})
}

func (b *Bot) send(ctx context.Context, req tg.SendMessageRequest) {
	if err := b.client.SendMessage(ctx, req); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", req.ChatID).Msg("send message")
	}
}

func (b *Bot) fail(ctx context.Context, chatID int64, op string, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Str("op", op).Bool("store", errors.Is(err, storage.ErrUnavailable)).Msg("request failed")
	b.reply(ctx, chatID, failureText)
}
