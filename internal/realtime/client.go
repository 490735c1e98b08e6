// Package realtime talks to the hosted messaging backend: JSON over HTTP for
// history and actions, one WebSocket per subscription for live events.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chat-feed/internal/conversation"
	"chat-feed/internal/models"
	"chat-feed/internal/tokens"
)

var ErrBackend = errors.New("realtime backend error")

// TokenSource mints a capability token request for a client id.
type TokenSource interface {
	Issue(clientID string) (*tokens.Request, error)
}

type Options struct {
	APIURL     string
	WSURL      string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Reconnect bounds how long a dropped subscription keeps retrying.
	Reconnect time.Duration
}

// Client is scoped to one identity; all actions are attributed to it.
type Client struct {
	apiURL    string
	wsURL     string
	clientID  string
	tokens    TokenSource
	http      *http.Client
	log       *slog.Logger
	reconnect time.Duration
}

func NewClient(clientID string, ts TokenSource, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Reconnect <= 0 {
		opts.Reconnect = 2 * time.Minute
	}
	return &Client{
		apiURL:    strings.TrimRight(opts.APIURL, "/"),
		wsURL:     strings.TrimRight(opts.WSURL, "/"),
		clientID:  clientID,
		tokens:    ts,
		http:      opts.HTTPClient,
		log:       opts.Logger.With("component", "realtime", "client_id", clientID),
		reconnect: opts.Reconnect,
	}
}

type pageResponse struct {
	Items []*models.Message `json:"items"`
}

type textRequest struct {
	Text string      `json:"text"`
	Body models.Body `json:"body"`
}

type reactionRequest struct {
	Type string `json:"type"`
}

func (c *Client) Query(ctx context.Context, channel string, q conversation.PageQuery) ([]*models.Message, error) {
	params := url.Values{}
	if q.Before != "" {
		params.Set("before", q.Before)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := channelPath(channel) + "/messages"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page pageResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	out := page.Items[:0]
	for _, m := range page.Items {
		if m == nil || m.ID == "" {
			c.log.Warn("dropping malformed history entry", "channel", channel)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Client) Send(ctx context.Context, channel, text string) error {
	return c.do(ctx, http.MethodPost, channelPath(channel)+"/messages",
		textRequest{Text: text, Body: models.ParseBody(text)}, nil)
}

func (c *Client) Edit(ctx context.Context, channel, messageID, text string) error {
	return c.do(ctx, http.MethodPatch, channelPath(channel)+"/messages/"+url.PathEscape(messageID),
		textRequest{Text: text, Body: models.ParseBody(text)}, nil)
}

func (c *Client) Delete(ctx context.Context, channel, messageID string) error {
	return c.do(ctx, http.MethodDelete, channelPath(channel)+"/messages/"+url.PathEscape(messageID), nil, nil)
}

func (c *Client) AddReaction(ctx context.Context, channel, messageID, reactionType string) error {
	return c.do(ctx, http.MethodPost,
		channelPath(channel)+"/messages/"+url.PathEscape(messageID)+"/reactions",
		reactionRequest{Type: reactionType}, nil)
}

func (c *Client) RemoveReaction(ctx context.Context, channel, reactionID string) error {
	return c.do(ctx, http.MethodDelete, channelPath(channel)+"/reactions/"+url.PathEscape(reactionID), nil, nil)
}

func channelPath(channel string) string {
	return "/channels/" + url.PathEscape(channel)
}

func (c *Client) token() (string, error) {
	req, err := c.tokens.Issue(c.clientID)
	if err != nil {
		return "", fmt.Errorf("failed to issue realtime token: %w", err)
	}
	return req.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token, err := c.token()
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrBackend, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrBackend, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrBackend, path, err)
	}
	return nil
}

var _ conversation.Backend = (*Client)(nil)
