package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/face-auth/internal/auth"
	"github.com/example/face-auth/internal/grpcserver"
	"github.com/example/face-auth/internal/handlers"
)

var (
	httpAddr string
	grpcAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("http-addr") {
			cfg.HTTPAddr = httpAddr
		}
		if cmd.Flags().Changed("grpc-addr") {
			cfg.GRPCAddr = grpcAddr
		}
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "http-addr", ":5001", "HTTP listen address")
	serveCmd.Flags().StringVar(&grpcAddr, "grpc-addr", ":9090", "gRPC health listen address, empty to disable")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.RouterConfig{CORSOrigins: cfg.CORSOrigins, Logger: logger})
	opts := handlers.Options{MaxUploadBytes: cfg.MaxUploadBytes, Logger: logger}
	if cfg.JWTSecret != "" {
		opts.Auth = auth.JWTMiddleware(cfg.JWTSecret, cfg.JWTAudience)
	}
	handlers.RegisterRoutes(router, handlers.Services{
		Enrollment:   a.enrollment,
		Verification: a.verification,
		Status:       a.status,
		Attempts:     a.recorder,
	}, opts)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var health *grpcserver.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		health = grpcserver.New(logger)
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("gRPC health server failed", zap.Error(err))
			}
		}()
		health.SetServing(true)
	}

	logger.Info("face auth API listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("detector", cfg.Detector),
		zap.String("user_store", cfg.UserStore),
		zap.Bool("auth", cfg.JWTSecret != ""),
	)
	err = serveHTTPServerWithOptions(ctx, server, cfg.ShutdownTimeout, logger, nil, nil, func(context.Context) {
		if health != nil {
			health.SetServing(false)
		}
	})
	if health != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		health.Shutdown(stopCtx)
	}
	return err
}

// serveHTTPServerWithOptions serves until the server fails, a signal arrives on
// signalCh (or SIGINT/SIGTERM when nil) or ctx is cancelled. beforeShutdown runs
// before in-flight requests are drained.
func serveHTTPServerWithOptions(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal, beforeShutdown func(context.Context)) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down", zap.Error(ctx.Err()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if beforeShutdown != nil {
		beforeShutdown(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
