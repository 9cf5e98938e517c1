//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package genie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-databot-go/log"
	"trpc.group/trpc-go/trpc-databot-go/query"
	"trpc.group/trpc-go/trpc-databot-go/telemetry"
)

const (
	// defaultTurnTimeout bounds one question end to end, matching the
	// ceiling the assistant itself imposes on long-running statements.
	defaultTurnTimeout = 5 * time.Minute

	defaultPollInterval = 2 * time.Second

	// vizRequest is appended to outgoing questions so the assistant embeds
	// a visualization directive in its answer.
	vizRequest = "\n\nMake sure to include [VIZ_START] visualization block in your response."
)

// Message statuses that end polling.
const (
	statusCompleted = "COMPLETED"
	statusFailed    = "FAILED"
	statusCancelled = "CANCELLED"
	statusExpired   = "QUERY_RESULT_EXPIRED"
)

var _ Service = (*Client)(nil)

// Client is a REST client for one assistant space, authenticated with a
// single user's downstream token.
type Client struct {
	host    string
	spaceID string
	token   string

	httpClient   *http.Client
	pollInterval time.Duration
	turnTimeout  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithPollInterval overrides the message polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(cl *Client) { cl.pollInterval = d }
}

// WithTurnTimeout overrides the per-question deadline.
func WithTurnTimeout(d time.Duration) ClientOption {
	return func(cl *Client) { cl.turnTimeout = d }
}

// NewClient creates a client for the assistant space at host, querying with
// the given user token.
func NewClient(host, token, spaceID string, opts ...ClientOption) *Client {
	c := &Client{
		host:         host,
		spaceID:      spaceID,
		token:        token,
		httpClient:   http.DefaultClient,
		pollInterval: defaultPollInterval,
		turnTimeout:  defaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFactory returns a Factory producing clients for the given space.
func NewFactory(host, spaceID string, opts ...ClientOption) Factory {
	return func(token string) Service {
		return NewClient(host, token, spaceID, opts...)
	}
}

// Ask starts a new conversation with the question and waits for the answer.
func (c *Client) Ask(ctx context.Context, question string) (*query.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	defer cancel()
	ctx, span := telemetry.Tracer.Start(ctx, "genie.ask",
		trace.WithAttributes(telemetry.KeySpaceID.String(c.spaceID)))
	defer span.End()

	var started startConversationResponse
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/start-conversation", c.spaceID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": question + vizRequest}, &started); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	log.Infof("genie: started conversation %s", started.ConversationID)

	msg, err := c.waitForMessage(ctx, started.ConversationID, started.MessageID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result := c.buildResult(ctx, msg)
	result.ConversationID = started.ConversationID
	span.SetAttributes(telemetry.KeyConversationID.String(started.ConversationID),
		telemetry.KeyRowCount.Int(len(result.Rows)))
	return result, nil
}

// FollowUp sends the question into an existing conversation and waits.
func (c *Client) FollowUp(ctx context.Context, conversationID, question string) (*query.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	defer cancel()
	ctx, span := telemetry.Tracer.Start(ctx, "genie.follow_up",
		trace.WithAttributes(
			telemetry.KeySpaceID.String(c.spaceID),
			telemetry.KeyConversationID.String(conversationID)))
	defer span.End()

	var created createMessageResponse
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages", c.spaceID, conversationID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": question + vizRequest}, &created); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create message: %w", err)
	}

	messageID := created.MessageID
	if messageID == "" {
		messageID = created.ID
	}
	msg, err := c.waitForMessage(ctx, conversationID, messageID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result := c.buildResult(ctx, msg)
	result.ConversationID = conversationID
	span.SetAttributes(telemetry.KeyRowCount.Int(len(result.Rows)))
	return result, nil
}

// waitForMessage polls the message until it reaches a terminal status.
func (c *Client) waitForMessage(ctx context.Context, conversationID, messageID string) (*wireMessage, error) {
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages/%s",
		c.spaceID, conversationID, messageID)
	for {
		var msg wireMessage
		if err := c.do(ctx, http.MethodGet, path, nil, &msg); err != nil {
			return nil, fmt.Errorf("poll message: %w", err)
		}
		switch msg.Status {
		case statusCompleted, statusFailed, statusCancelled, statusExpired:
			return &msg, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for answer: %w", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// do sends one JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("assistant returned status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
