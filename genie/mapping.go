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
	"fmt"
	"net/http"
	"strings"

	"trpc.group/trpc-go/trpc-databot-go/log"
	"trpc.group/trpc-go/trpc-databot-go/query"
	"trpc.group/trpc-go/trpc-databot-go/viz"
)

// Wire shapes for the assistant REST API. Only the fields the mapping reads
// are declared; everything else in the payload is ignored on decode.

type startConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

type createMessageResponse struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
}

type wireMessage struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Status         string           `json:"status"`
	Error          *wireError       `json:"error"`
	Attachments    []wireAttachment `json:"attachments"`
	QueryResult    *wireQueryResult `json:"query_result"`
}

type wireError struct {
	Type    string `json:"type"`
	Message string `json:"error"`
}

type wireAttachment struct {
	AttachmentID       string         `json:"attachment_id"`
	Text               *wireText      `json:"text"`
	Query              *wireQuery     `json:"query"`
	SuggestedQuestions *wireSuggested `json:"suggested_questions"`
}

type wireText struct {
	Content string `json:"content"`
}

type wireQuery struct {
	Query       string `json:"query"`
	Description string `json:"description"`
}

type wireSuggested struct {
	Questions []string `json:"questions"`
}

type wireQueryResult struct {
	StatementResponse *wireStatementResponse `json:"statement_response"`
}

type wireStatementResponse struct {
	Manifest wireManifest `json:"manifest"`
	Result   wireData     `json:"result"`
}

type wireManifest struct {
	Schema struct {
		Columns []wireColumn `json:"columns"`
	} `json:"schema"`
}

type wireColumn struct {
	Name string `json:"name"`
}

type wireData struct {
	DataArray [][]*string `json:"data_array"`
}

// Default texts when the assistant answers without prose.
const (
	textWithData    = "Here's what I found:"
	textWithoutData = "I processed your question but didn't find a specific answer."
)

// buildResult flattens a terminal message into the explicit result schema.
// Failure statuses produce a Failed result with a human-readable text rather
// than an error, so the bot can still show the answer turn.
func (c *Client) buildResult(ctx context.Context, msg *wireMessage) *query.Result {
	result := &query.Result{ConversationID: msg.ConversationID}

	switch msg.Status {
	case statusFailed:
		reason := "unknown error"
		if msg.Error != nil && msg.Error.Message != "" {
			reason = msg.Error.Message
		}
		result.Failed = true
		result.Text = "Query failed: " + reason
		return result
	case statusCancelled, statusExpired:
		result.Failed = true
		result.Text = "Query was cancelled or failed."
		return result
	}

	var parts []string
	for _, att := range msg.Attachments {
		if att.Text != nil && att.Text.Content != "" {
			parts = append(parts, att.Text.Content)
		}
		if att.Query != nil {
			if att.Query.Description != "" && !contains(parts, att.Query.Description) {
				parts = append(parts, att.Query.Description)
			}
			result.SQL = att.Query.Query
		}
		if att.SuggestedQuestions != nil {
			result.SuggestedQuestions = append(result.SuggestedQuestions, att.SuggestedQuestions.Questions...)
		}
	}

	statement := statementFromMessage(msg)
	if statement == nil {
		// Some responses only reference the rows from a query attachment;
		// fetch them through the attachment endpoint.
		statement = c.fetchAttachmentResult(ctx, msg)
	}
	if statement != nil {
		for _, col := range statement.Manifest.Schema.Columns {
			result.Columns = append(result.Columns, col.Name)
		}
		for _, wireRow := range statement.Result.DataArray {
			row := make(query.Row, len(wireRow))
			for i, cell := range wireRow {
				if cell != nil {
					row[i] = *cell
				}
			}
			result.Rows = append(result.Rows, row)
		}
	}

	text := strings.Join(parts, "\n\n")
	if text == "" {
		if result.HasData() {
			text = textWithData
		} else {
			text = textWithoutData
		}
	}

	// Lift the visualization directive out of the prose.
	result.Viz, result.Text = viz.Parse(text)
	return result
}

func statementFromMessage(msg *wireMessage) *wireStatementResponse {
	if msg.QueryResult == nil {
		return nil
	}
	return msg.QueryResult.StatementResponse
}

// fetchAttachmentResult pulls tabular rows through the per-attachment
// query-result endpoint for the first query attachment. Fetch failures are
// logged and swallowed; the prose answer still goes out without rows.
func (c *Client) fetchAttachmentResult(ctx context.Context, msg *wireMessage) *wireStatementResponse {
	for _, att := range msg.Attachments {
		if att.Query == nil || att.AttachmentID == "" {
			continue
		}
		path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages/%s/attachments/%s/query-result",
			c.spaceID, msg.ConversationID, msg.ID, att.AttachmentID)
		var qr wireQueryResult
		if err := c.do(ctx, http.MethodGet, path, nil, &qr); err != nil {
			log.Warnf("genie: fetch attachment result %s: %v", att.AttachmentID, err)
			return nil
		}
		return qr.StatementResponse
	}
	return nil
}

func contains(parts []string, s string) bool {
	for _, p := range parts {
		if p == s {
			return true
		}
	}
	return false
}
