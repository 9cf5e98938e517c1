//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-databot-go/artifact"
	"trpc.group/trpc-go/trpc-databot-go/auth"
	"trpc.group/trpc-go/trpc-databot-go/bot"
	"trpc.group/trpc-go/trpc-databot-go/chart"
	"trpc.group/trpc-go/trpc-databot-go/genie"
	"trpc.group/trpc-go/trpc-databot-go/query"
	"trpc.group/trpc-go/trpc-databot-go/session"
	"trpc.group/trpc-go/trpc-databot-go/viz"
)

type stubGenie struct {
	result *query.Result
}

func (s *stubGenie) Ask(ctx context.Context, question string) (*query.Result, error) {
	return s.result, nil
}

func (s *stubGenie) FollowUp(ctx context.Context, conversationID, question string) (*query.Result, error) {
	return s.result, nil
}

func newTestServer(t *testing.T, g *stubGenie) *Server {
	t.Helper()
	tokens := auth.NewCache(auth.ExchangerFunc(
		func(ctx context.Context, subjectID, assertion string) (string, time.Duration, error) {
			return "downstream", time.Hour, nil
		}))
	renderer, err := chart.NewRenderer()
	require.NoError(t, err)
	t.Cleanup(renderer.Close)

	b := bot.New(session.NewService(), tokens, artifact.NewStore(), renderer,
		func(token string) genie.Service { return g })
	return New(b, WithPublicURL("https://databot.example.com/"))
}

func postActivity(t *testing.T, h http.Handler, act Activity) (*httptest.ResponseRecorder, Reply) {
	t.Helper()
	body, err := json.Marshal(act)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var reply Reply
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	}
	return rec, reply
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubGenie{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMessagesSignInFlow(t *testing.T) {
	s := newTestServer(t, &stubGenie{result: &query.Result{Text: "answer"}})
	h := s.Handler()

	// Unsigned user is prompted to sign in.
	rec, reply := postActivity(t, h, Activity{Type: ActivityMessage, UserID: "alice", Text: "q"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, reply.Messages, 1)
	assert.True(t, reply.Messages[0].SignInRequired)

	// Sign in, then the question reaches the assistant.
	rec, _ = postActivity(t, h, Activity{Type: ActivitySignIn, UserID: "alice", Token: "assertion"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, reply = postActivity(t, h, Activity{Type: ActivityMessage, UserID: "alice", Text: "q"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, reply.Messages, 1)
	assert.Equal(t, "answer", reply.Messages[0].Text)
}

func TestMessagesWelcome(t *testing.T) {
	s := newTestServer(t, &stubGenie{})
	_, reply := postActivity(t, s.Handler(), Activity{Type: ActivityWelcome, UserID: "alice"})
	require.Len(t, reply.Messages, 1)
	assert.Contains(t, reply.Messages[0].Text, "data assistant")
}

func TestMessagesValidation(t *testing.T) {
	s := newTestServer(t, &stubGenie{})
	h := s.Handler()

	rec, _ := postActivity(t, h, Activity{Type: ActivityMessage})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = postActivity(t, h, Activity{Type: "typing", UserID: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChartAndPageEndpoints(t *testing.T) {
	g := &stubGenie{result: &query.Result{
		Columns: []string{"region", "total"},
		Rows:    []query.Row{{"EMEA", 120}, {"APAC", 80}},
		Text:    "answer",
		Viz:     &viz.Spec{ChartType: "bar", XAxis: "region", YAxis: "total"},
	}}
	s := newTestServer(t, g)
	h := s.Handler()

	postActivity(t, h, Activity{Type: ActivitySignIn, UserID: "alice", Token: "assertion"})
	_, reply := postActivity(t, h, Activity{Type: ActivityMessage, UserID: "alice", Text: "q"})
	require.Len(t, reply.Messages, 2)
	chartID := reply.Messages[1].ChartID
	resultID := reply.Messages[1].ResultID
	require.NotEmpty(t, chartID)
	require.NotEmpty(t, resultID)
	assert.Equal(t, "https://databot.example.com/charts/"+chartID, reply.Messages[1].ChartURL)

	req := httptest.NewRequest(http.MethodGet, "/charts/"+chartID, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}))

	req = httptest.NewRequest(http.MethodGet, "/results/"+resultID+"/pages/0", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var msg bot.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.NotNil(t, msg.Page)
	assert.Equal(t, 2, msg.Page.TotalRows)
}

func TestChartNotFound(t *testing.T) {
	s := newTestServer(t, &stubGenie{})
	req := httptest.NewRequest(http.MethodGet, "/charts/chart_404", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageNotFoundAndBadIndex(t *testing.T) {
	s := newTestServer(t, &stubGenie{})
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/results/result_404/pages/0", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/results/result_404/pages/abc", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeGracefulShutdown(t *testing.T) {
	s := newTestServer(t, &stubGenie{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
