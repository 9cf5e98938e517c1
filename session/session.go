//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package session keeps per-user conversation continuity across stateless
// request/response cycles: the active remote conversation, display
// preferences and the user's upstream identity assertion. Sessions live for
// the process lifetime and are created lazily on first contact.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Preference keys.
const (
	// PrefShowSQL controls whether generated SQL is echoed with answers.
	PrefShowSQL = "show_sql"
)

// Session is a snapshot of one user's state. Mutations go through the
// Service; a Session returned from it is a copy.
type Session struct {
	// ID identifies this session instance in logs.
	ID string
	// UserID is the transport-level user identifier the session is keyed by.
	UserID string
	// ConversationID is the active remote conversation, empty when the next
	// question starts a fresh one.
	ConversationID string
	// Preferences holds per-user display options.
	Preferences map[string]string
	// UpstreamToken is the user's identity assertion from the transport SSO
	// flow, exchanged downstream by the token cache.
	UpstreamToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Service is the in-memory session table. All methods are safe for
// concurrent use by interleaving handler invocations.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates an empty session table.
func NewService() *Service {
	return &Service{sessions: make(map[string]*Session)}
}

// locked helpers; callers hold s.mu.

func (s *Service) getOrCreate(userID string) *Session {
	sess, ok := s.sessions[userID]
	if !ok {
		now := time.Now()
		sess = &Session{
			ID:          uuid.New().String(),
			UserID:      userID,
			Preferences: make(map[string]string),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.sessions[userID] = sess
	}
	return sess
}

func copySession(sess *Session) *Session {
	cp := *sess
	cp.Preferences = make(map[string]string, len(sess.Preferences))
	for k, v := range sess.Preferences {
		cp.Preferences[k] = v
	}
	return &cp
}

// Get returns a copy of the user's session, creating it if absent.
func (s *Service) Get(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.getOrCreate(userID))
}

// ConversationID returns the user's active remote conversation, or empty.
func (s *Service) ConversationID(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.ConversationID
	}
	return ""
}

// SetConversationID records the active remote conversation for the user.
func (s *Service) SetConversationID(userID, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreate(userID)
	sess.ConversationID = conversationID
	sess.UpdatedAt = time.Now()
}

// ClearConversation drops the active conversation so the next question
// starts fresh. Preferences and tokens are untouched.
func (s *Service) ClearConversation(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.ConversationID = ""
		sess.UpdatedAt = time.Now()
	}
}

// Preference returns the user's value for key, or def when unset.
func (s *Service) Preference(userID, key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		if v, ok := sess.Preferences[key]; ok {
			return v
		}
	}
	return def
}

// SetPreference records a preference for the user.
func (s *Service) SetPreference(userID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreate(userID)
	sess.Preferences[key] = value
	sess.UpdatedAt = time.Now()
}

// UpstreamToken returns the user's stored identity assertion, or empty when
// the user has not signed in.
func (s *Service) UpstreamToken(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.UpstreamToken
	}
	return ""
}

// SetUpstreamToken stores the identity assertion delivered by the transport
// sign-in flow.
func (s *Service) SetUpstreamToken(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreate(userID)
	sess.UpstreamToken = token
	sess.UpdatedAt = time.Now()
}

// ClearUpstreamToken removes the stored assertion, used on sign-out and when
// the downstream exchange rejects it.
func (s *Service) ClearUpstreamToken(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.UpstreamToken = ""
		sess.UpdatedAt = time.Now()
	}
}
