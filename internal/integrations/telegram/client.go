// Package telegram is a focused Telegram Bot API client covering the calls
// the bot needs: long-poll updates, text and venue sends, inline answers and
// chat actions.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Update is one raw inbound event from getUpdates.
type Update struct {
	UpdateID    int64        `json:"update_id"`
	Message     *Message     `json:"message,omitempty"`
	InlineQuery *InlineQuery `json:"inline_query,omitempty"`
}

// Message is a regular chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID int64 `json:"id"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// InlineQuery is a query answered in place rather than in chat.
type InlineQuery struct {
	ID    string `json:"id"`
	From  *User  `json:"from,omitempty"`
	Query string `json:"query"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("telegram: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// apiEnvelope is the common Bot API response wrapper.
type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Client talks to the Bot API for one bot token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client for the given transport address and token.
// Both are required.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("telegram: base URL must not be empty")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram: API token must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

type getUpdatesRequest struct {
	Offset  int64 `json:"offset"`
	Limit   int   `json:"limit"`
	Timeout int   `json:"timeout"`
}

// GetUpdates long-polls for updates with id >= offset, ordered ascending.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit, timeoutSeconds int) ([]Update, error) {
	raw, err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:  offset,
		Limit:   limit,
		Timeout: timeoutSeconds,
	})
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	return updates, nil
}

type keyboardButton struct {
	Text string `json:"text"`
}

type replyKeyboard struct {
	Keyboard        [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard"`
	OneTimeKeyboard bool               `json:"one_time_keyboard"`
}

type sendMessageRequest struct {
	ChatID      int64          `json:"chat_id"`
	Text        string         `json:"text"`
	ReplyMarkup *replyKeyboard `json:"reply_markup,omitempty"`
}

// SendMessage sends a text message, optionally with a reply keyboard built
// from the given button rows.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]string) error {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	if len(keyboard) > 0 {
		markup := &replyKeyboard{ResizeKeyboard: true, OneTimeKeyboard: true}
		for _, row := range keyboard {
			buttons := make([]keyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, keyboardButton{Text: label})
			}
			markup.Keyboard = append(markup.Keyboard, buttons)
		}
		req.ReplyMarkup = markup
	}
	_, err := c.call(ctx, "sendMessage", req)
	return err
}

type sendVenueRequest struct {
	ChatID    int64   `json:"chat_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Title     string  `json:"title"`
	Address   string  `json:"address"`
}

// SendVenue sends a structured location with a title and address.
func (c *Client) SendVenue(ctx context.Context, chatID int64, title, address string, lat, lon float64) error {
	_, err := c.call(ctx, "sendVenue", sendVenueRequest{
		ChatID:    chatID,
		Latitude:  lat,
		Longitude: lon,
		Title:     title,
		Address:   address,
	})
	return err
}

type inlineArticle struct {
	Type         string               `json:"type"`
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	InputContent inlineMessageContent `json:"input_message_content"`
}

type inlineMessageContent struct {
	MessageText string `json:"message_text"`
}

type answerInlineQueryRequest struct {
	InlineQueryID string          `json:"inline_query_id"`
	Results       []inlineArticle `json:"results"`
	CacheTime     int             `json:"cache_time"`
}

// AnswerInlineQuery answers an inline query with a single article result.
func (c *Client) AnswerInlineQuery(ctx context.Context, queryID, title, text string) error {
	_, err := c.call(ctx, "answerInlineQuery", answerInlineQueryRequest{
		InlineQueryID: queryID,
		Results: []inlineArticle{{
			Type:         "article",
			ID:           "1",
			Title:        title,
			InputContent: inlineMessageContent{MessageText: text},
		}},
	})
	return err
}

type sendChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

// SendChatAction reports a transient status like "find_location" to the chat.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := c.call(ctx, "sendChatAction", sendChatActionRequest{ChatID: chatID, Action: action})
	return err
}

// call posts one Bot API method and unwraps the ok/result envelope.
func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}

	url := c.methodURL(method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(buf, &envelope); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("telegram: %s rejected: %s", method, envelope.Description)
	}
	return envelope.Result, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 90 * time.Second}
}
