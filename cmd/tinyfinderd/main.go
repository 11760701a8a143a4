// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command tinyfinderd runs the multi-tenant full-text search service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/config"
	"github.com/antflydb/tinyfinder/internal/handle"
	"github.com/antflydb/tinyfinder/internal/healthserver"
	"github.com/antflydb/tinyfinder/internal/httpapi"
	"github.com/antflydb/tinyfinder/internal/llmproxy"
	"github.com/antflydb/tinyfinder/internal/logging"
	"github.com/antflydb/tinyfinder/internal/metadata"
	"github.com/antflydb/tinyfinder/internal/pinned"
	"github.com/antflydb/tinyfinder/internal/search"
	"github.com/antflydb/tinyfinder/internal/synonym"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(&logging.Config{Style: cfg.LogStyle, Level: cfg.LogLevel})
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal startup error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	metaStore, err := metadata.Open(filepath.Join(cfg.DataDir, "metadata.db"))
	if err != nil {
		return err
	}
	defer metaStore.Close()

	handles, err := handle.New(filepath.Join(cfg.DataDir, "indices"), logger)
	if err != nil {
		return err
	}
	if err := handles.RehydrateAll(); err != nil {
		return err
	}

	synonyms, err := synonym.Load(filepath.Join(cfg.DataDir, "indices", "synonyms.json"))
	if err != nil {
		return err
	}
	pinnedRules, err := pinned.Load(filepath.Join(cfg.DataDir, "indices", "pinned_rules.json"))
	if err != nil {
		return err
	}

	executor := search.NewExecutor(handles, synonyms, pinnedRules, logger)

	if err := resyncMetadata(metaStore, handles, executor, logger); err != nil {
		return err
	}

	llmClient, enabled := llmproxy.FromConfig(cfg.MistralAPIKey, cfg.MistralBaseURL, cfg.MistralModel)
	if !enabled {
		logger.Info("generative answers disabled: MISTRAL_API_KEY not set")
	}

	apiServer := httpapi.NewServer(httpapi.Config{
		Logger:      logger,
		Handles:     handles,
		Metadata:    metaStore,
		Executor:    executor,
		Synonyms:    synonyms,
		Pinned:      pinnedRules,
		LLM:         llmClient,
		APITokens:   cfg.APITokens,
		CORSOrigins: cfg.CORSOrigins,
	})

	if cfg.MetricsPort > 0 {
		healthserver.Start(logger, cfg.MetricsPort, func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return metaStore.Ping(ctx) == nil
		})
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting search service", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-serveErr
}

// resyncMetadata rebuilds the registry's per-index document sets from the
// rehydrated segment stores, so GET /indices counts stay accurate across a
// restart that lost or lagged the registry database.
func resyncMetadata(meta *metadata.Store, handles *handle.Cache, ex *search.Executor, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	now := time.Now()

	for _, name := range handles.Names() {
		if err := meta.EnsureIndex(ctx, name, now); err != nil {
			return err
		}
		ids, err := ex.EnumerateDocuments(name)
		if err != nil {
			logger.Warn("skipping document resync", zap.String("index", name), zap.Error(err))
			continue
		}
		if err := meta.ReplaceDocuments(ctx, name, ids, now); err != nil {
			return err
		}
	}
	return nil
}
