package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/danielhkuo/votedesk/client"
	"github.com/danielhkuo/votedesk/session"
)

type config struct {
	URL   string `env:"VOTEDESK_URL" envDefault:"http://localhost:3318"`
	Token string `env:"VOTEDESK_TOKEN"`
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	cfg, err := env.ParseAs[config]()
	if err != nil {
		fmt.Fprintln(os.Stderr, "votedesk:", err)
		os.Exit(1)
	}

	a, err := newApp(cfg, os.Stdout, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "votedesk:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = a.run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "votedesk:", err)
		os.Exit(1)
	}
}

func newApp(cfg config, out io.Writer, in io.Reader) (*app, error) {
	sess := session.New()
	if cfg.Token != "" {
		if err := sess.Set(cfg.Token); err != nil {
			return nil, fmt.Errorf("VOTEDESK_TOKEN: %w", err)
		}
	}

	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(in)
	return &app{
		api:         client.New(cfg.URL, nil, sess),
		session:     sess,
		out:         out,
		interactive: interactive,
		prompt: func(label string) (string, error) {
			fmt.Fprintf(out, "%s: ", label)
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return "", err
				}
				return "", io.EOF
			}
			return strings.TrimSpace(scanner.Text()), nil
		},
	}, nil
}
