// Command session keeps an identity API session in Redis so that shell
// scripts and operators can call protected endpoints without handling tokens.
//
//	session login <email-or-name>   (password from IDENTITY_PASSWORD)
//	session whoami
//	session status
//	session get <path>
//	session logout
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siapee/siapee/pkg/authclient"
	pkgconfig "github.com/siapee/siapee/pkg/config"
	"github.com/siapee/siapee/pkg/database"
	"github.com/siapee/siapee/pkg/httpclient"
	"github.com/siapee/siapee/pkg/logger"
)

type cliConfig struct {
	BaseURL  string `env:"IDENTITY_URL" envDefault:"http://localhost:8010"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
	Password string `env:"IDENTITY_PASSWORD"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionKey string        `env:"SESSION_KEY" envDefault:"siapee:session"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`
}

var errUsage = errors.New("usage: session login <email-or-name> | whoami | status | get <path> | logout")

func main() {
	var cfg cliConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter("identity-session", cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rdb.Close()

	transport := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("identity"),
		log,
	)
	client := authclient.New(cfg.BaseURL, transport, authclient.NewRedisStore(rdb, cfg.SessionKey, cfg.SessionTTL), log)

	if err := run(ctx, os.Args[1:], client, cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, client *authclient.Client, cfg cliConfig, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		if cfg.Password == "" {
			return errors.New("IDENTITY_PASSWORD must be set")
		}
		sess, err := client.Login(ctx, args[1], cfg.Password)
		if err != nil {
			return err
		}
		return printJSON(out, sess.User)

	case "whoami":
		u, err := client.LoadUser(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, u)

	case "status":
		_, err := fmt.Fprintln(out, client.State(ctx))
		return err

	case "get":
		if len(args) != 2 {
			return errUsage
		}
		return get(ctx, client, cfg.BaseURL+args[1], out)

	case "logout":
		return client.Logout(ctx)

	default:
		return errUsage
	}
}

func get(ctx context.Context, client *authclient.Client, url string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return httpclient.ParseResponseError(resp, "identity")
	}
	defer resp.Body.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
