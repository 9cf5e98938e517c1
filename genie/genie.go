//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package genie calls the remote question-answering service. The service is
// a black box reached over REST: a question goes in, prose plus SQL plus
// tabular rows come out. The dynamic response shape is flattened into the
// explicit query.Result schema right here at the collaborator boundary, so
// nothing downstream ever probes for maybe-present fields.
package genie

import (
	"context"

	"trpc.group/trpc-go/trpc-databot-go/query"
)

// Service asks questions of the remote assistant on behalf of one user.
// Implementations carry the user's downstream token; a turn either starts a
// fresh conversation or continues an existing one.
type Service interface {
	// Ask starts a new conversation with the question.
	Ask(ctx context.Context, question string) (*query.Result, error)
	// FollowUp continues an existing conversation.
	FollowUp(ctx context.Context, conversationID, question string) (*query.Result, error)
}

// Factory builds a Service bound to a user's downstream token. The bot
// creates a fresh client per turn because every user queries with their own
// identity.
type Factory func(token string) Service
