package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"uconnect/api/internal/auth"
	"uconnect/api/internal/campus"
	"uconnect/api/internal/chat"
	"uconnect/api/internal/config"
	"uconnect/api/internal/db"
	internalgrpc "uconnect/api/internal/grpc"
	internalhttp "uconnect/api/internal/http"
	"uconnect/api/internal/jobs"
	"uconnect/api/internal/memstore"
	"uconnect/api/internal/model"
	"uconnect/api/internal/notify"
	"uconnect/api/internal/repository"
	"uconnect/api/internal/session"
	"uconnect/api/internal/users"
)

// store is everything the services need; both backends satisfy it.
type store interface {
	users.Store
	session.Store
	chat.Store
	campus.GroupStore
	campus.PublicationStore
	campus.EventStore
	campus.AccessStore
	Ping(ctx context.Context) error
}

var (
	_ store = (*repository.Store)(nil)
	_ store = (*memstore.Store)(nil)
)

var inMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the internal gRPC port when GRPC_ADDR is set)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep all state in process memory instead of Postgres")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend store
	if inMemory {
		logger.Warn("running with the in-memory store; state is lost on exit")
		backend = memstore.New()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "db connection failed")
		}
		defer pool.Close()
		backend = repository.NewStore(pool)
	}

	redisClient, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", "err", err)
			}
		}()
	}

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	ledger := session.NewLedger(backend, tokens, logger)
	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(hub, redisClient, cfg.RedisChannel, cfg.NotifyTimeout, logger)

	server := internalhttp.NewServer(cfg, internalhttp.Deps{
		Tokens:        tokens,
		Sessions:      ledger,
		Users:         users.NewService(backend),
		Chat:          chat.NewService(backend, dispatcher, logger),
		Groups:        campus.NewGroups(backend),
		Posts:         campus.NewPublications(backend, model.KindPost),
		Announcements: campus.NewPublications(backend, model.KindAnnouncement),
		Events:        campus.NewEvents(backend, logger),
		Access:        campus.NewAccess(backend),
		Hub:           hub,
		Store:         backend,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// gRPC is set up before any goroutine starts, so an early return leaves nothing running.
	var (
		grpcServer   *grpc.Server
		grpcListener net.Listener
	)
	if cfg.GRPCAddr != "" {
		srv, _, err := internalgrpc.NewServer(cfg.ServiceAuthToken, backend, logger)
		if err != nil {
			return errors.Wrap(err, "grpc init")
		}
		grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return errors.Wrap(err, "grpc listen")
		}
		grpcServer = srv
	}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "prefix", cfg.APIPrefix)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server")
		}
	}()

	go func() {
		if err := dispatcher.Run(ctx); err != nil {
			errCh <- errors.Wrap(err, "notification relay")
		}
	}()

	sweepDone := jobs.StartSessionSweepJob(ctx, cfg.SessionSweepInterval, 0, ledger, logger)

	if grpcServer != nil {
		go func() {
			logger.Info("grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(grpcListener); err != nil {
				errCh <- errors.Wrap(err, "grpc server")
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("shutting down after failure", "err", runErr)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "err", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	<-sweepDone
	dispatcher.Wait()
	logger.Info("stopped")
	return runErr
}

// openRedis returns nil when no REDIS_ADDR is configured.
func openRedis(ctx context.Context, cfg config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}
	logger.Info("redis connected", "addr", cfg.RedisAddr)
	return client, nil
}
