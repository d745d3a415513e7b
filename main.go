package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/votedesk/auth"
	"github.com/danielhkuo/votedesk/challenge"
	"github.com/danielhkuo/votedesk/cliparse"
	"github.com/danielhkuo/votedesk/db"
	"github.com/danielhkuo/votedesk/hub"
	"github.com/danielhkuo/votedesk/mailer"
	"github.com/danielhkuo/votedesk/models"
	"github.com/danielhkuo/votedesk/router"
	"github.com/danielhkuo/votedesk/store"
)

const (
	tokenIssuer    = "votedesk"
	sweepInterval  = time.Minute
	shutdownPeriod = 10 * time.Second
)

func main() {
	setupLogging()

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// setupLogging uses readable text output on a terminal and JSON elsewhere
func setupLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	slog.Info("Store ready", "type", cfg.DatabaseType)

	tokens := auth.NewJWTAuthenticator(tokenIssuer, cfg.JWTSecret)
	events := hub.New()
	challenges := challenge.NewService(st, tokens, senders(), challenge.Config{
		IdentitySalt: cfg.IdentitySalt,
		CodeTTL:      cfg.ChallengeTTL,
		TicketTTL:    cfg.TicketTTL,
	})

	// Create server
	server := &http.Server{
		Handler: router.NewRouter(router.Services{
			Store:      st,
			Hub:        events,
			Challenges: challenges,
			Tokens:     tokens,
			AdminKey:   cfg.AdminKey,

			AllowedOrigins: cfg.AllowedOrigins,
		}),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return events.Run(gctx)
	})

	g.Go(func() error {
		return challenges.RunSweeper(gctx, sweepInterval)
	})

	g.Go(func() error {
		// Wait for Ctrl-C or a failed sibling
		<-gctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects the configured backend and prepares its schema or indexes
func openStore(ctx context.Context, cfg cliparse.Config) (store.Store, func(), error) {
	switch cfg.DatabaseType {
	case cliparse.DatabaseMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.DatabaseURL))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect failed: %w", err)
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo ping failed: %w", err)
		}

		st, err := store.NewMongoStore(ctx, client.Database(cfg.DatabaseName))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return st, closeFn, nil

	default:
		conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		// Create schema (tables)
		if err := db.CreateSchema(conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("schema creation failed: %w", err)
		}
		return store.NewSQLStore(conn), func() { closeDB(conn) }, nil
	}
}

func closeDB(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// senders delivers email through SMTP when configured and logs codes otherwise
func senders() map[string]challenge.Sender {
	out := map[string]challenge.Sender{
		models.MethodOTP:   challenge.LogSender{Method: models.MethodOTP},
		models.MethodEmail: challenge.LogSender{Method: models.MethodEmail},
	}

	mailCfg, err := mailer.LoadConfig()
	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		slog.Warn("SMTP not configured, email codes will be logged")
	case err != nil:
		slog.Error("Invalid SMTP settings, email codes will be logged", "error", err)
	default:
		out[models.MethodEmail] = mailer.New(mailCfg)
		slog.Info("Email codes sent via SMTP", "host", mailCfg.Host)
	}

	return out
}
