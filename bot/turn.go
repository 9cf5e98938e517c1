//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package bot

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-databot-go/artifact"
	"trpc.group/trpc-go/trpc-databot-go/chart"
	"trpc.group/trpc-go/trpc-databot-go/log"
	"trpc.group/trpc-go/trpc-databot-go/query"
	"trpc.group/trpc-go/trpc-databot-go/session"
	"trpc.group/trpc-go/trpc-databot-go/telemetry"
)

const apologyText = "Sorry, I ran into a problem answering that. Please try again."

// HandleMessage runs one full turn for the user and returns the replies in
// order. Every failure path returns messages; errors never escape to the
// transport.
func (b *Bot) HandleMessage(ctx context.Context, userID, text string) []Message {
	ctx, span := telemetry.Tracer.Start(ctx, "bot.handle_message",
		trace.WithAttributes(telemetry.KeyUserID.String(userID)))
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return []Message{{Text: helpText}}
	}

	upstream := b.sessions.UpstreamToken(userID)
	if upstream == "" {
		return []Message{{Text: signInText, SignInRequired: true}}
	}

	token, err := b.tokens.Exchange(ctx, userID, upstream)
	if err != nil {
		// The assertion is no longer good; drop both layers and re-prompt.
		b.sessions.ClearUpstreamToken(userID)
		b.tokens.Invalidate(userID)
		log.Warnf("bot: token exchange failed for user %s: %v", userID, err)
		return []Message{{Text: signInText, SignInRequired: true}}
	}

	if msgs, ok := b.handleCommand(userID, text); ok {
		return msgs
	}

	return b.handleQuestion(ctx, userID, token, text)
}

// handleCommand dispatches local commands. The second return is false when
// the text is a question for the remote assistant.
func (b *Bot) handleCommand(userID, text string) ([]Message, bool) {
	switch strings.ToLower(text) {
	case "/new", "/reset", "new conversation", "start over":
		b.sessions.ClearConversation(userID)
		return []Message{{Text: "Starting a new conversation. What would you like to know?"}}, true
	case "/sql on":
		b.sessions.SetPreference(userID, session.PrefShowSQL, "on")
		return []Message{{Text: "SQL display is now on."}}, true
	case "/sql off":
		b.sessions.SetPreference(userID, session.PrefShowSQL, "off")
		return []Message{{Text: "SQL display is now off."}}, true
	case "/help", "help":
		return []Message{{Text: helpText}}, true
	case "/signout", "/logout":
		b.sessions.ClearUpstreamToken(userID)
		b.tokens.Invalidate(userID)
		b.sessions.ClearConversation(userID)
		return []Message{{Text: "You have been signed out."}}, true
	}
	return nil, false
}

// handleQuestion sends the question to the remote assistant and assembles the
// reply messages from the result.
func (b *Bot) handleQuestion(ctx context.Context, userID, token, text string) []Message {
	svc := b.newGenie(token)

	var (
		result *query.Result
		err    error
	)
	if conversationID := b.sessions.ConversationID(userID); conversationID != "" {
		result, err = svc.FollowUp(ctx, conversationID, text)
	} else {
		result, err = svc.Ask(ctx, text)
	}
	if err != nil {
		log.Errorf("bot: assistant call failed for user %s: %v", userID, err)
		return []Message{{Text: apologyText}}
	}
	if result.ConversationID != "" {
		b.sessions.SetConversationID(userID, result.ConversationID)
	}

	msgs := []Message{{Text: b.replyText(userID, result)}}
	if result.Failed || !result.HasData() {
		return msgs
	}

	resultID := b.store.PutResult(result)
	return append(msgs, b.dataMessage(ctx, resultID, result))
}

// dataMessage renders the chart when the answer carries a visualization
// directive, falling back to the first table page when it doesn't or when
// rendering fails.
func (b *Bot) dataMessage(ctx context.Context, resultID string, result *query.Result) Message {
	if result.Viz != nil {
		png, err := b.renderer.Render(ctx, result.Viz, result.Columns, result.Rows)
		if err == nil {
			chartID := b.store.PutChart(&artifact.Image{Data: png, MimeType: chart.MimeType})
			return Message{ChartID: chartID, ResultID: resultID}
		}
		log.Warnf("bot: chart render failed for %s, falling back to table: %v", resultID, err)
	}
	page := query.Paginate(result, 0, query.DefaultPageSize)
	return Message{ResultID: resultID, Page: &page}
}

// replyText builds the prose reply: answer text, then suggested questions,
// then the generated SQL when the preference allows it.
func (b *Bot) replyText(userID string, result *query.Result) string {
	var sb strings.Builder
	sb.WriteString(result.Text)

	if len(result.SuggestedQuestions) > 0 {
		sb.WriteString("\n\nYou could also ask:")
		for _, q := range result.SuggestedQuestions {
			sb.WriteString("\n- ")
			sb.WriteString(q)
		}
	}

	showSQL := b.sessions.Preference(userID, session.PrefShowSQL, "on")
	if showSQL != "off" && result.SQL != "" && !result.Failed {
		sb.WriteString("\n\nGenerated SQL:\n```sql\n")
		sb.WriteString(result.SQL)
		sb.WriteString("\n```")
	}
	return sb.String()
}
