package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/fatture-in-chat/internal/backend"
	"github.com/joseph-ayodele/fatture-in-chat/internal/chat"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/llm/openai"
	"github.com/joseph-ayodele/fatture-in-chat/internal/repository"
	"github.com/joseph-ayodele/fatture-in-chat/internal/server"
	"github.com/joseph-ayodele/fatture-in-chat/internal/tools"
)

const (
	healthServiceName = "fatture.chat"
	shutdownTimeout   = 30 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat HTTP API (and the optional gRPC health service)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger := newLogger(cfg.Log.Level)
			if err := cfg.Validate(); err != nil {
				logger.Error("invalid configuration", "error", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address (HTTP_ADDR)")
	cmd.Flags().String("grpc-addr", "", "gRPC health listen address, empty disables it (GRPC_ADDR)")
	cmd.Flags().Int("max-steps", 0, "model invocations per request (CHAT_MAX_STEPS)")
	bindFlag(cmd, "http.addr", "addr")
	bindFlag(cmd, "grpc.addr", "grpc-addr")
	bindFlag(cmd, "chat.max_steps", "max-steps")
	return cmd
}

func serve(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	// Audit store is optional: the assistant keeps working without it.
	var (
		auditor tools.Auditor
		healthz func(context.Context) error
	)
	db, err := repository.Open(ctx, repository.Config{Driver: cfg.Audit.Driver, DSN: cfg.Audit.DSN, MaxConns: 5}, logger)
	if err == nil {
		err = db.Migrate(ctx)
	}
	if err != nil {
		logger.Warn("audit.disabled", "error", err, "dsn", redactDSN(cfg.Audit.DSN))
	} else {
		defer db.Close()
		auditor = repository.NewToolInvocationRepository(db, logger)
		healthz = func(ctx context.Context) error { return db.HealthCheck(ctx, 2*time.Second) }
	}

	collab := backend.NewClient(backend.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout}, logger)
	model := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	registry, err := tools.NewRegistry(tools.NewBridge(collab, logger), auditor, logger)
	if err != nil {
		return err
	}
	orchestrator := chat.NewOrchestrator(model, backend.NewResolver(collab, logger), registry, chat.Config{
		MaxSteps: cfg.Chat.MaxSteps,
		Location: cfg.Chat.Location(),
	}, logger)

	handler, err := server.New(server.Config{Chat: orchestrator, Logger: logger, Health: healthz})
	if err != nil {
		return err
	}

	httpSrv := newHTTPServer(cfg.Server.HTTPAddr, handler)

	errc := make(chan error, 2)
	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr, "app_url", cfg.Backend.BaseURL, "model", cfg.LLM.Model)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			return err
		}
		grpcSrv = grpc.NewServer()
		hs := health.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		hs.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_SERVING)
		// Reflection for grpcurl
		reflection.Register(grpcSrv)
		go func() {
			logger.Info("grpc health serving", "addr", cfg.Server.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				errc <- err
			}
		}()
		defer hs.Shutdown()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-errc:
		logger.Error("server failed", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	logger.Info("stopped")
	return nil
}

// newHTTPServer leaves WriteTimeout unset because responses are long-lived
// streams. Request contexts are not derived from the signal context, so
// Shutdown drains in-flight streams instead of cancelling them.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
