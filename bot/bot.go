//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package bot orchestrates one conversational turn: authentication gate,
// local commands, the remote assistant call, artifact storage and chart
// rendering. It knows nothing about the transport; the server layer adapts
// incoming activities to HandleMessage and friends.
package bot

import (
	"trpc.group/trpc-go/trpc-databot-go/artifact"
	"trpc.group/trpc-go/trpc-databot-go/auth"
	"trpc.group/trpc-go/trpc-databot-go/chart"
	"trpc.group/trpc-go/trpc-databot-go/genie"
	"trpc.group/trpc-go/trpc-databot-go/query"
	"trpc.group/trpc-go/trpc-databot-go/session"
)

// Message is one unit of reply. Text-only messages carry just Text; a chart
// reply carries ChartID plus the ResultID backing it; a table reply carries
// an inline Page. SignInRequired tells the transport to start its sign-in
// flow.
type Message struct {
	Text           string      `json:"text,omitempty"`
	ChartID        string      `json:"chart_id,omitempty"`
	ChartURL       string      `json:"chart_url,omitempty"`
	ResultID       string      `json:"result_id,omitempty"`
	Page           *query.Page `json:"page,omitempty"`
	SignInRequired bool        `json:"sign_in_required,omitempty"`
}

// Bot wires the per-turn collaborators together.
type Bot struct {
	sessions *session.Service
	tokens   *auth.Cache
	store    *artifact.Store
	renderer *chart.Renderer
	newGenie genie.Factory
}

// New creates a Bot from its collaborators.
func New(sessions *session.Service, tokens *auth.Cache, store *artifact.Store,
	renderer *chart.Renderer, newGenie genie.Factory) *Bot {
	return &Bot{
		sessions: sessions,
		tokens:   tokens,
		store:    store,
		renderer: renderer,
		newGenie: newGenie,
	}
}

const welcomeText = `Hi! I'm your data assistant. Ask me questions about your data in plain language and I'll answer with text, tables and charts.

Type "help" to see what I can do.`

const helpText = `Here's what I can do:
- Ask me questions about your data in plain language.
- /new or /reset - start a new conversation
- /sql on or /sql off - show or hide the generated SQL
- /signout - sign out
- /help - show this message`

const (
	signInText  = "Please sign in so I can query your data on your behalf."
	expiredText = "That data has expired. Please ask your question again."
)

// Welcome returns the onboarding message shown when a user first appears.
func (b *Bot) Welcome() Message {
	return Message{Text: welcomeText}
}

// HandleSignIn records the upstream token delivered by the transport sign-in
// flow and confirms.
func (b *Bot) HandleSignIn(userID, token string) Message {
	b.sessions.SetUpstreamToken(userID, token)
	return Message{Text: "You're signed in! Ask me anything about your data."}
}

// HandlePage returns the requested page of a stored result, or the expiry
// message when the result has been evicted.
func (b *Bot) HandlePage(resultID string, page int) Message {
	result, err := b.store.Result(resultID)
	if err != nil {
		return Message{Text: expiredText}
	}
	p := query.Paginate(result, page, query.DefaultPageSize)
	return Message{ResultID: resultID, Page: &p}
}

// HandleViewData returns the first page of a stored result.
func (b *Bot) HandleViewData(resultID string) Message {
	return b.HandlePage(resultID, 0)
}

// Chart returns a stored chart image for the transport to serve.
func (b *Bot) Chart(chartID string) (*artifact.Image, error) {
	return b.store.Chart(chartID)
}
