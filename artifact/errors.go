//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package artifact

import "errors"

// ErrNotFound is returned when the requested artifact does not exist, either
// because the ID was never issued or because the entry has been evicted.
var ErrNotFound = errors.New("artifact not found")
