package tg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

type Client struct {
	baseURL string
	hc      *http.Client
}

func NewClient(token string) *Client {
	return NewClientWithBase(defaultAPIBase, token)
}

// NewClientWithBase talks to a Bot API server other than api.telegram.org,
// such as a local bot API server or a test double.
func NewClientWithBase(apiBase string, token string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("%s/bot%s", strings.TrimRight(apiBase, "/"), token),
		hc:      &http.Client{Timeout: 9 * time.Second},
	}
}

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram api %s status %d: %s", e.Method, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram api %s status %d", e.Method, e.StatusCode)
}

// NotFound reports whether the referenced message or chat no longer exists.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Description), "not found")
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

func NewInlineKeyboardMarkup(rows [][]InlineKeyboardButton) InlineKeyboardMarkup {
	return InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	payload := map[string]any{"callback_query_id": callbackQueryID}
	if text != "" {
		payload["text"] = text
	}
	return c.post(ctx, "/answerCallbackQuery", payload)
}

type SendMessageRequest struct {
	ChatID           int64                 `json:"chat_id"`
	Text             string                `json:"text"`
	ParseMode        string                `json:"parse_mode,omitempty"`
	ReplyMarkup      *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	ReplyToMessageID int                   `json:"reply_to_message_id,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) error {
	return c.post(ctx, "/sendMessage", req)
}

// CopyMessage copies messageID from fromChatID into toChatID with caption
// replacing the original one, and returns the id of the new message. An
// empty caption removes the original caption.
func (c *Client) CopyMessage(ctx context.Context, toChatID int64, fromChatID int64, messageID int, caption string) (int, error) {
	resp, err := c.postWithResult(ctx, "/copyMessage", map[string]any{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
		"caption":      caption,
	})
	if err != nil {
		return 0, err
	}
	var result struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// GetUpdates long-polls for updates newer than offset.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeoutSec int, allowed []string) ([]json.RawMessage, error) {
	payload := map[string]any{"offset": offset, "timeout": timeoutSec}
	if len(allowed) > 0 {
		payload["allowed_updates"] = allowed
	}
	resp, err := c.postWithResult(ctx, "/getUpdates", payload)
	if err != nil {
		return nil, err
	}
	var updates []json.RawMessage
	if err := json.Unmarshal(resp, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return c.post(ctx, "/deleteWebhook", map[string]any{"drop_pending_updates": dropPending})
}

// WithHTTPClient swaps the transport, e.g. for a longer polling timeout.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.hc = hc
	return &cp
}

func (c *Client) post(ctx context.Context, method string, payload any) error {
	_, err := c.postWithResult(ctx, method, payload)
	return err
}

func (c *Client) postWithResult(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Ok          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		Description string          `json:"description"`
	}
	_ = json.Unmarshal(body, &wrapper)
	apiMethod := strings.TrimPrefix(method, "/")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		desc := wrapper.Description
		if desc == "" {
			desc = strings.TrimSpace(string(body))
			if len(desc) > 512 {
				desc = desc[:512]
			}
		}
		return nil, &APIError{Method: apiMethod, StatusCode: resp.StatusCode, Description: desc}
	}
	if !wrapper.Ok {
		return nil, &APIError{Method: apiMethod, StatusCode: resp.StatusCode, Description: wrapper.Description}
	}
	return wrapper.Result, nil
}
