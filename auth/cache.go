//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package auth caches downstream-scoped tokens obtained through an
// on-behalf-of exchange. The exchange itself is an external collaborator;
// this package owns the per-subject cache, its expiry rules and nothing
// else.
package auth

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-databot-go/log"
)

// refreshBuffer treats a token as expired this long before its declared
// expiry, so a token handed out here is never rejected mid-flight by the
// remote consumer.
const refreshBuffer = 60 * time.Second

// Exchanger converts a subject's upstream assertion into a downstream-scoped
// token. Implementations call the identity provider; they must not cache.
type Exchanger interface {
	// Exchange returns the downstream token and its declared lifetime.
	Exchange(ctx context.Context, subjectID, assertion string) (token string, expiresIn time.Duration, err error)
}

// ExchangerFunc adapts a function to the Exchanger interface.
type ExchangerFunc func(ctx context.Context, subjectID, assertion string) (string, time.Duration, error)

// Exchange implements Exchanger.
func (f ExchangerFunc) Exchange(ctx context.Context, subjectID, assertion string) (string, time.Duration, error) {
	return f(ctx, subjectID, assertion)
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Cache is the per-subject downstream token cache. Expiry is checked lazily
// on read; entries are only ever read immediately before use, so no
// background sweep is needed.
type Cache struct {
	mu        sync.Mutex
	exchanger Exchanger
	tokens    map[string]cachedToken
	now       func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock overrides the cache's time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a token cache backed by the given exchanger.
func NewCache(exchanger Exchanger, opts ...CacheOption) *Cache {
	c := &Cache{
		exchanger: exchanger,
		tokens:    make(map[string]cachedToken),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exchange returns a downstream token for the subject. A cached, non-expired
// token is returned without touching the collaborator. Otherwise the
// exchanger is invoked outside the lock; on success the token is cached with
// a 60-second refresh buffer, on failure an *Error is returned and no entry
// is left behind.
func (c *Cache) Exchange(ctx context.Context, subjectID, assertion string) (string, error) {
	c.mu.Lock()
	if cached, ok := c.tokens[subjectID]; ok && c.now().Before(cached.expiresAt) {
		c.mu.Unlock()
		log.Debugf("auth: cache hit for subject %s", subjectID)
		return cached.value, nil
	}
	c.mu.Unlock()

	token, expiresIn, err := c.exchanger.Exchange(ctx, subjectID, assertion)
	if err != nil {
		c.Invalidate(subjectID)
		log.Errorf("auth: exchange failed for subject %s: %v", subjectID, err)
		return "", &Error{Reason: err.Error(), cause: err}
	}

	c.mu.Lock()
	c.tokens[subjectID] = cachedToken{
		value:     token,
		expiresAt: c.now().Add(expiresIn - refreshBuffer),
	}
	c.mu.Unlock()
	log.Infof("auth: exchange succeeded for subject %s, lifetime %s", subjectID, expiresIn)
	return token, nil
}

// Invalidate unconditionally removes any cached token for the subject. Used
// on sign-out and when a downstream call reports the token was rejected.
func (c *Cache) Invalidate(subjectID string) {
	c.mu.Lock()
	delete(c.tokens, subjectID)
	c.mu.Unlock()
}
