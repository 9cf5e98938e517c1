//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package chart

import "errors"

// ErrRender is returned for every chart pipeline failure. Callers treat it
// as "could not visualize" and fall back to a tabular view; it is never
// surfaced to the end user as a hard error.
var ErrRender = errors.New("chart render failed")
