//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package query defines the tabular result schema returned by the remote
// assistant and the pagination over it.
package query

import "trpc.group/trpc-go/trpc-databot-go/viz"

// Row is a single result row. A nil cell is a SQL NULL.
type Row []any

// Result is one answered question: the assistant's prose, the generated SQL
// and the tabular data it produced. Absent fields are zero values, populated
// by the mapping step at the collaborator boundary. A Result is immutable
// once handed to the artifact store.
type Result struct {
	// Columns holds the ordered column names of the tabular data.
	Columns []string `json:"columns,omitempty"`
	// Rows holds the data rows, parallel to Columns.
	Rows []Row `json:"rows,omitempty"`
	// Text is the assistant's prose answer with any directive block removed.
	Text string `json:"text,omitempty"`
	// SQL is the generated statement, if the assistant produced one.
	SQL string `json:"sql,omitempty"`
	// ConversationID identifies the remote conversation the result belongs to.
	ConversationID string `json:"conversation_id,omitempty"`
	// SuggestedQuestions are follow-ups proposed by the assistant.
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	// Viz is the parsed visualization directive, if the answer carried one.
	Viz *viz.Spec `json:"viz,omitempty"`
	// Failed marks a response whose remote status was failed or cancelled.
	Failed bool `json:"failed,omitempty"`
}

// HasData reports whether the result carries tabular data worth storing.
func (r *Result) HasData() bool {
	return r != nil && len(r.Columns) > 0 && len(r.Rows) > 0
}
