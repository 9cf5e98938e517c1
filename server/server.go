//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the bot over HTTP: an activity endpoint for the
// chat transport, plus direct GETs for stored charts and result pages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-databot-go/artifact"
	"trpc.group/trpc-go/trpc-databot-go/bot"
	"trpc.group/trpc-go/trpc-databot-go/log"
)

const shutdownGrace = 10 * time.Second

// Activity types accepted on the messages endpoint.
const (
	ActivityMessage = "message"
	ActivitySignIn  = "sign_in"
	ActivityWelcome = "welcome"
)

// Activity is one inbound transport event.
type Activity struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Text   string `json:"text,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Reply wraps the bot's messages for the transport.
type Reply struct {
	Messages []bot.Message `json:"messages"`
}

// Server is the HTTP front for a Bot.
type Server struct {
	bot       *bot.Bot
	router    *mux.Router
	publicURL string
}

// Option configures the Server.
type Option func(*Server)

// WithPublicURL sets the externally reachable base URL used to build chart
// links in replies.
func WithPublicURL(u string) Option {
	return func(s *Server) { s.publicURL = strings.TrimRight(u, "/") }
}

// New creates a Server routing to the given bot.
func New(b *bot.Bot, opts ...Option) *Server {
	s := &Server{bot: b, router: mux.NewRouter()}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/messages", s.handleMessages).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/charts/{chartID}", s.handleChart).Methods(http.MethodGet)
	s.router.HandleFunc("/results/{resultID}/pages/{page}", s.handlePage).Methods(http.MethodGet)

	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/api/messages", preflight).Methods(http.MethodOptions)
}

// Serve listens on addr until the context is cancelled, then drains with a
// grace period.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var act Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		http.Error(w, "invalid activity payload", http.StatusBadRequest)
		return
	}
	if act.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	var msgs []bot.Message
	switch act.Type {
	case ActivitySignIn:
		msgs = []bot.Message{s.bot.HandleSignIn(act.UserID, act.Token)}
	case ActivityWelcome:
		msgs = []bot.Message{s.bot.Welcome()}
	case ActivityMessage, "":
		msgs = s.bot.HandleMessage(r.Context(), act.UserID, act.Text)
	default:
		http.Error(w, "unknown activity type", http.StatusBadRequest)
		return
	}

	if s.publicURL != "" {
		for i := range msgs {
			if msgs[i].ChartID != "" {
				msgs[i].ChartURL = s.publicURL + "/charts/" + msgs[i].ChartID
			}
		}
	}
	s.writeJSON(w, Reply{Messages: msgs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	chartID := mux.Vars(r)["chartID"]
	img, err := s.bot.Chart(chartID)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			http.Error(w, "chart not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", img.MimeType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		log.Warnf("server: write chart %s: %v", chartID, err)
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		http.Error(w, "page must be an integer", http.StatusBadRequest)
		return
	}

	msg := s.bot.HandlePage(vars["resultID"], page)
	if msg.Page == nil {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, msg)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("server: encode response: %v", err)
	}
}
