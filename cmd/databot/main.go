//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

// Command databot runs the data assistant bot: HTTP transport in front of
// the session, token cache, artifact store and chart pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"trpc.group/trpc-go/trpc-databot-go/artifact"
	"trpc.group/trpc-go/trpc-databot-go/auth"
	"trpc.group/trpc-go/trpc-databot-go/bot"
	"trpc.group/trpc-go/trpc-databot-go/chart"
	"trpc.group/trpc-go/trpc-databot-go/config"
	"trpc.group/trpc-go/trpc-databot-go/genie"
	"trpc.group/trpc-go/trpc-databot-go/log"
	"trpc.group/trpc-go/trpc-databot-go/server"
	"trpc.group/trpc-go/trpc-databot-go/session"
)

// downstreamScope is the resource scope requested for the data platform in
// the on-behalf-of exchange.
const downstreamScope = "2ff814a6-3304-4ab8-85cb-cd0e6f879c1d/.default"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	renderer, err := chart.NewRenderer()
	if err != nil {
		log.Fatalf("create chart renderer: %v", err)
	}
	defer renderer.Close()

	tokens := auth.NewCache(&auth.OBOExchanger{
		TokenURL:     cfg.TokenURL(),
		ClientID:     cfg.DownstreamClientID,
		ClientSecret: cfg.DownstreamClientSecret,
		Scope:        downstreamScope,
	})

	b := bot.New(
		session.NewService(),
		tokens,
		artifact.NewStore(),
		renderer,
		genie.NewFactory(cfg.DownstreamHost, cfg.SpaceID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("databot starting on %s (space %s)", cfg.Addr(), cfg.SpaceID)
	srv := server.New(b, server.WithPublicURL(cfg.PublicURL))
	if err := srv.Serve(ctx, cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Infof("databot stopped")
}
