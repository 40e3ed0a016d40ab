// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hearth-home/hearth/lib/clock"
	"github.com/hearth-home/hearth/lib/codec"
	"github.com/hearth-home/hearth/lib/secret"
)

// maxResponseSize caps response bodies read from the daemon. Event
// batches are bounded server-side well below this.
const maxResponseSize = 16 << 20

// longPollTimeout is the server-side hold time in milliseconds for
// normal event polls. The daemon holds the request until events
// arrive, then returns immediately.
const longPollTimeout = 30000

// retryTimeout is the server-side timeout in milliseconds used after
// a poll error. Short so the retry completes quickly.
const retryTimeout = 1000

// maxPollFailures is the number of consecutive poll failures allowed
// before the client reports disconnected. Polling continues past the
// threshold — the status flips back once a poll succeeds.
const maxPollFailures = 3

// pollRetryDelay spaces out poll attempts after a failure so a down
// daemon is not hammered.
const pollRetryDelay = time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// DaemonURL is the base URL of the hearth daemon
	// (e.g., "http://homeserver.local:7420").
	DaemonURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
	// Clock is used for retry pacing. If nil, the real clock is used.
	Clock clock.Clock
	// Notify carries status and auth change notifications.
	Notify Notify
}

// Client is the HTTP long-poll implementation of Channel. One
// goroutine (started by Connect) polls the daemon's event stream and
// dispatches events to subscription callbacks; all other operations
// are plain request/response calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	clock      clock.Clock
	notify     Notify
	decoder    *zstd.Decoder

	mu         sync.Mutex
	status     Status
	cursor     string
	cancelPoll context.CancelFunc
	generation int

	authed     bool
	adminToken *secret.Buffer

	subscriptions map[SubscriptionID]*clientSubscription
}

type clientSubscription struct {
	topic    string
	category Category
	callback Callback
}

// Compile-time interface check.
var _ Channel = (*Client)(nil)

// NewClient creates a new daemon channel client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.DaemonURL == "" {
		return nil, fmt.Errorf("channel: DaemonURL is required")
	}
	if _, err := url.Parse(cfg.DaemonURL); err != nil {
		return nil, fmt.Errorf("channel: invalid DaemonURL %q: %w", cfg.DaemonURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("channel: zstd decoder: %w", err)
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.DaemonURL, "/"),
		httpClient:    httpClient,
		logger:        logger,
		clock:         clk,
		notify:        cfg.Notify,
		decoder:       decoder,
		subscriptions: make(map[SubscriptionID]*clientSubscription),
	}, nil
}

// Connect opens an event session with the daemon and starts the poll
// loop. Idempotent while connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var session sessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/session", nil, nil, &session); err != nil {
		return fmt.Errorf("channel: opening session: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.cursor = session.Cursor
	c.cancelPoll = cancel
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	go c.pollLoop(pollCtx, generation)

	c.logger.Info("channel connected", "daemon", c.baseURL)
	return nil
}

// Disconnect stops the poll loop and clears privileged
// authentication. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancelPoll
	c.cancelPoll = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.clearAdminToken()
	c.setStatus(StatusDisconnected)
}

// Status reports the current connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PrivilegedAuthenticated reports whether the client holds a
// privileged session token.
func (c *Client) PrivilegedAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

// AuthenticatePrivileged presents the admin credential to the daemon.
// Returns (false, nil) when the daemon rejects the credential —
// rejection is an answer, not a transport failure.
func (c *Client) AuthenticatePrivileged(ctx context.Context, credential *secret.Buffer) (bool, error) {
	if credential == nil {
		return false, fmt.Errorf("channel: credential is required")
	}

	// The credential crosses to the daemon as a string at the CBOR
	// serialization boundary; the heap copy is short-lived.
	request := adminAuthRequest{Credential: credential.String()}

	var response adminAuthResponse
	err := c.doRequest(ctx, http.MethodPost, "/v1/admin/auth", nil, request, &response)
	if err != nil {
		if IsDaemonError(err, ErrCodeBadCredential) {
			c.logger.Warn("privileged authentication rejected",
				"credential_print", credential.Fingerprint(),
			)
			return false, nil
		}
		return false, fmt.Errorf("channel: privileged authentication: %w", err)
	}
	if !response.Granted {
		return false, nil
	}

	token, err := secret.NewFromBytes([]byte(response.Token))
	if err != nil {
		return false, fmt.Errorf("channel: protecting admin token: %w", err)
	}

	c.mu.Lock()
	if c.adminToken != nil {
		c.adminToken.Close()
	}
	c.adminToken = token
	c.authed = true
	c.mu.Unlock()

	c.logger.Info("privileged authentication granted",
		"credential_print", credential.Fingerprint(),
	)
	if c.notify.AuthChanged != nil {
		c.notify.AuthChanged(true)
	}
	return true, nil
}

// DropPrivileged discards the privileged session token. The daemon is
// told on a best-effort basis; locally the token is gone regardless.
func (c *Client) DropPrivileged() {
	c.mu.Lock()
	token := c.adminToken
	c.mu.Unlock()
	if token == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.doRequest(ctx, http.MethodPost, "/v1/admin/drop", token, nil, nil); err != nil {
		c.logger.Debug("dropping privileged session on daemon failed", "error", err)
	}

	c.clearAdminToken()
}

func (c *Client) clearAdminToken() {
	c.mu.Lock()
	token := c.adminToken
	c.adminToken = nil
	wasAuthed := c.authed
	c.authed = false
	c.mu.Unlock()

	if token != nil {
		token.Close()
	}
	if wasAuthed && c.notify.AuthChanged != nil {
		c.notify.AuthChanged(false)
	}
}

// Subscribe registers a topic subscription with the daemon.
func (c *Client) Subscribe(topic string, category Category, callback Callback) (SubscriptionID, error) {
	c.mu.Lock()
	status := c.status
	token := c.adminToken
	c.mu.Unlock()

	if status != StatusConnected {
		return "", ErrDisconnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Admin-category subscriptions carry the privileged token; the
	// daemon rejects them without it.
	var authToken *secret.Buffer
	if category == CategoryAdmin {
		authToken = token
	}

	request := subscribeRequest{Topic: topic, Category: category.String()}
	var response subscribeResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/subscribe", authToken, request, &response); err != nil {
		return "", fmt.Errorf("channel: subscribing to %s: %w", topic, err)
	}

	id := SubscriptionID(response.ID)
	c.mu.Lock()
	c.subscriptions[id] = &clientSubscription{
		topic:    topic,
		category: category,
		callback: callback,
	}
	c.mu.Unlock()

	c.logger.Debug("subscribed", "topic", topic, "category", category.String(), "id", string(id))
	return id, nil
}

// Unsubscribe cancels a subscription. Unknown IDs are a no-op. The
// local registration is removed even when the daemon call fails — the
// daemon expires orphaned subscriptions with the session.
func (c *Client) Unsubscribe(id SubscriptionID) error {
	c.mu.Lock()
	_, known := c.subscriptions[id]
	delete(c.subscriptions, id)
	status := c.status
	c.mu.Unlock()

	if !known || status != StatusConnected {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.doRequest(ctx, http.MethodPost, "/v1/unsubscribe", nil, unsubscribeRequest{ID: string(id)}, nil); err != nil {
		return fmt.Errorf("channel: unsubscribing %s: %w", string(id), err)
	}
	return nil
}

// CloseIdleConnections drops pooled HTTP connections. Called after
// transport errors so the next request opens a fresh socket instead
// of reusing a poisoned one.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// setStatus flips the status and notifies, only on an actual change.
func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	c.mu.Unlock()

	if c.notify.StatusChanged != nil {
		c.notify.StatusChanged(status)
	}
}

// pollLoop long-polls the event stream until its context is cancelled
// or a newer Connect supersedes this generation. Consecutive failures
// beyond maxPollFailures flip the status to disconnected; polling
// continues, and the first success flips it back.
func (c *Client) pollLoop(ctx context.Context, generation int) {
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}
		c.mu.Lock()
		if c.generation != generation {
			c.mu.Unlock()
			return
		}
		cursor := c.cursor
		c.mu.Unlock()

		timeout := longPollTimeout
		if failures > 0 {
			timeout = retryTimeout
		}

		batch, err := c.pollEvents(ctx, cursor, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			// TCP-level errors often indicate a poisoned connection
			// in Go's HTTP pool. Drop idle connections so the next
			// attempt opens a fresh socket.
			c.CloseIdleConnections()
			if failures > maxPollFailures {
				c.setStatus(StatusDisconnected)
			}
			c.logger.Debug("event poll failed",
				"attempt", failures,
				"error", err,
			)
			select {
			case <-c.clock.After(pollRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		failures = 0
		c.setStatus(StatusConnected)

		c.mu.Lock()
		c.cursor = batch.Next
		c.mu.Unlock()

		c.dispatch(batch.Events)
	}
}

// pollEvents performs one long-poll request.
func (c *Client) pollEvents(ctx context.Context, cursor string, timeout int) (*eventBatch, error) {
	query := url.Values{}
	query.Set("since", cursor)
	query.Set("timeout", fmt.Sprint(timeout))

	requestURL := c.baseURL + "/v1/events?" + query.Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating poll request: %w", err)
	}
	request.Header.Set("Accept", "application/cbor")
	request.Header.Set("Accept-Encoding", "zstd")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("polling events: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading poll response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, decodeDaemonError(response.StatusCode, body)
	}

	// Large batches arrive zstd-compressed when the daemon honors the
	// Accept-Encoding header.
	if response.Header.Get("Content-Encoding") == "zstd" {
		body, err = c.decoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing event batch: %w", err)
		}
	}

	var batch eventBatch
	if err := codec.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("decoding event batch: %w", err)
	}
	return &batch, nil
}

// dispatch delivers events to matching subscription callbacks. The
// subscription table is snapshotted first so callbacks never run
// under the client mutex.
func (c *Client) dispatch(events []wireEvent) {
	if len(events) == 0 {
		return
	}

	c.mu.Lock()
	byTopic := make(map[string][]Callback)
	for _, subscription := range c.subscriptions {
		byTopic[subscription.topic] = append(byTopic[subscription.topic], subscription.callback)
	}
	c.mu.Unlock()

	for _, raw := range events {
		callbacks := byTopic[raw.Topic]
		if len(callbacks) == 0 {
			continue
		}
		event := Event{
			Topic:    raw.Topic,
			Sequence: raw.Sequence,
			At:       time.UnixMilli(raw.AtMilli).UTC(),
			Payload:  raw.Payload,
		}
		for _, callback := range callbacks {
			callback(event)
		}
	}
}

// doRequest performs a CBOR request/response exchange with the
// daemon. On 2xx, decodes the body into result (when non-nil). On
// 4xx/5xx, returns a *DaemonError. authToken may be nil for
// unauthenticated endpoints.
func (c *Client) doRequest(ctx context.Context, method, path string, authToken *secret.Buffer, requestBody, result any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := codec.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/cbor")
	}
	if authToken != nil {
		request.Header.Set("Authorization", "Bearer "+authToken.String())
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return decodeDaemonError(response.StatusCode, responseBody)
	}

	if result != nil {
		if err := codec.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("decoding response from %s %s: %w", method, path, err)
		}
	}
	return nil
}

// decodeDaemonError maps an error response to *DaemonError. All
// daemon error responses use the same CBOR shape.
func decodeDaemonError(statusCode int, body []byte) error {
	var daemonErr DaemonError
	if err := codec.Unmarshal(body, &daemonErr); err != nil || daemonErr.Code == "" {
		// Non-CBOR error from a proxy or misconfigured daemon. Fail
		// loud with the status.
		return fmt.Errorf("unexpected %d response from daemon", statusCode)
	}
	daemonErr.StatusCode = statusCode
	return &daemonErr
}
