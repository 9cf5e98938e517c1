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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// fakeGenie serves the assistant REST surface for one scripted conversation.
type fakeGenie struct {
	t *testing.T

	polls atomic.Int64

	// pollsUntilDone is how many IN_PROGRESS polls precede the terminal one.
	pollsUntilDone int64
	terminal       wireMessage

	// attachmentResult, when set, is served from the query-result endpoint.
	attachmentResult *wireQueryResult

	lastQuestion string
	lastAuth     string
}

func (f *fakeGenie) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/2.0/genie/spaces/space-1/start-conversation", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		var body map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.lastQuestion = body["content"]
		writeJSON(w, startConversationResponse{ConversationID: "conv-1", MessageID: "msg-1"})
	})
	mux.HandleFunc("POST /api/2.0/genie/spaces/space-1/conversations/conv-1/messages", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		var body map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.lastQuestion = body["content"]
		writeJSON(w, createMessageResponse{MessageID: "msg-1"})
	})
	mux.HandleFunc("GET /api/2.0/genie/spaces/space-1/conversations/conv-1/messages/msg-1", func(w http.ResponseWriter, r *http.Request) {
		if f.polls.Add(1) <= f.pollsUntilDone {
			writeJSON(w, wireMessage{ID: "msg-1", ConversationID: "conv-1", Status: "IN_PROGRESS"})
			return
		}
		writeJSON(w, f.terminal)
	})
	mux.HandleFunc("GET /api/2.0/genie/spaces/space-1/conversations/conv-1/messages/msg-1/attachments/", func(w http.ResponseWriter, r *http.Request) {
		if f.attachmentResult == nil {
			http.Error(w, `{"message":"no result"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, f.attachmentResult)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeGenie) *Client {
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "token-abc", "space-1", WithPollInterval(time.Millisecond))
}

func completedMessage() wireMessage {
	return wireMessage{
		ID:             "msg-1",
		ConversationID: "conv-1",
		Status:         statusCompleted,
		Attachments: []wireAttachment{
			{
				AttachmentID: "att-1",
				Text:         &wireText{Content: "Sales are up."},
			},
			{
				AttachmentID: "att-2",
				Query:        &wireQuery{Query: "SELECT region, total FROM sales", Description: "Total sales by region"},
			},
		},
		QueryResult: &wireQueryResult{StatementResponse: &wireStatementResponse{
			Manifest: manifestFor("region", "total"),
			Result: wireData{DataArray: [][]*string{
				{strPtr("EMEA"), strPtr("120")},
				{strPtr("APAC"), nil},
			}},
		}},
	}
}

func manifestFor(names ...string) wireManifest {
	var m wireManifest
	for _, n := range names {
		m.Schema.Columns = append(m.Schema.Columns, wireColumn{Name: n})
	}
	return m
}

func TestAskPollsToCompletion(t *testing.T) {
	f := &fakeGenie{t: t, pollsUntilDone: 3, terminal: completedMessage()}
	c := newTestClient(t, f)

	result, err := c.Ask(context.Background(), "how are sales?")
	require.NoError(t, err)

	assert.Equal(t, int64(4), f.polls.Load())
	assert.Equal(t, "Bearer token-abc", f.lastAuth)
	assert.True(t, strings.HasPrefix(f.lastQuestion, "how are sales?"), "question must lead the content")
	assert.Contains(t, f.lastQuestion, "[VIZ_START]")

	assert.Equal(t, "conv-1", result.ConversationID)
	assert.False(t, result.Failed)
	assert.Contains(t, result.Text, "Sales are up.")
	assert.Contains(t, result.Text, "Total sales by region")
	assert.Equal(t, "SELECT region, total FROM sales", result.SQL)
	assert.Equal(t, []string{"region", "total"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "EMEA", result.Rows[0][0])
	assert.Nil(t, result.Rows[1][1], "null cells stay nil")
}

func TestAskParsesVizBlock(t *testing.T) {
	msg := completedMessage()
	msg.Attachments[0].Text.Content = "Here you go.\n[VIZ_START]\nchart_type: bar\nx_axis: region\ny_axis: total\n[VIZ_END]"
	f := &fakeGenie{t: t, terminal: msg}
	c := newTestClient(t, f)

	result, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, result.Viz)
	assert.Equal(t, "bar", result.Viz.ChartType)
	assert.NotContains(t, result.Text, "[VIZ_START]")
}

func TestFollowUpContinuesConversation(t *testing.T) {
	f := &fakeGenie{t: t, terminal: completedMessage()}
	c := newTestClient(t, f)

	result, err := c.FollowUp(context.Background(), "conv-1", "and last year?")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", result.ConversationID)
	assert.True(t, strings.HasPrefix(f.lastQuestion, "and last year?"))
}

func TestAskFailedStatus(t *testing.T) {
	f := &fakeGenie{t: t, terminal: wireMessage{
		ID: "msg-1", ConversationID: "conv-1", Status: statusFailed,
		Error: &wireError{Message: "table not found"},
	}}
	c := newTestClient(t, f)

	result, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, "Query failed: table not found", result.Text)
	assert.False(t, result.HasData())
}

func TestAskCancelledStatus(t *testing.T) {
	f := &fakeGenie{t: t, terminal: wireMessage{
		ID: "msg-1", ConversationID: "conv-1", Status: statusCancelled,
	}}
	c := newTestClient(t, f)

	result, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, "Query was cancelled or failed.", result.Text)
}

func TestAskAttachmentResultFallback(t *testing.T) {
	msg := completedMessage()
	msg.QueryResult = nil
	f := &fakeGenie{t: t, terminal: msg, attachmentResult: &wireQueryResult{
		StatementResponse: &wireStatementResponse{
			Manifest: manifestFor("region"),
			Result:   wireData{DataArray: [][]*string{{strPtr("EMEA")}}},
		},
	}}
	c := newTestClient(t, f)

	result, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, result.Columns)
	require.Len(t, result.Rows, 1)
}

func TestAskNoProseDefaults(t *testing.T) {
	msg := completedMessage()
	msg.Attachments = msg.Attachments[1:]         // drop the text attachment
	msg.Attachments[0].Query.Description = ""     // and the description
	f := &fakeGenie{t: t, terminal: msg}
	c := newTestClient(t, f)

	result, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Here's what I found:", result.Text)

	// Without rows either, the no-answer default applies.
	msg2 := msg
	msg2.QueryResult = nil
	f2 := &fakeGenie{t: t, terminal: msg2}
	c2 := newTestClient(t, f2)
	result2, err := c2.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "I processed your question but didn't find a specific answer.", result2.Text)
}

func TestAskServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "token", "space-1")

	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestAskTimeout(t *testing.T) {
	// A server that never reaches a terminal status trips the turn deadline.
	f := &fakeGenie{t: t, pollsUntilDone: 1 << 30}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "token", "space-1",
		WithPollInterval(time.Millisecond), WithTurnTimeout(50*time.Millisecond))

	_, err := c.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
