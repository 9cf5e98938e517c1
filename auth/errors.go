//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package auth

import "fmt"

// Error reports a failed token exchange. It is recoverable: the caller
// prompts the subject to sign in again.
type Error struct {
	// Reason describes why the exchange was refused.
	Reason string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("token exchange failed: %s", e.Reason)
}

// Unwrap returns the underlying collaborator error, if any.
func (e *Error) Unwrap() error { return e.cause }
