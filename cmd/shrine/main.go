package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/terraincognita07/shrine/internal/api"
	"github.com/terraincognita07/shrine/internal/cli"
	"github.com/terraincognita07/shrine/internal/fortune"
	"github.com/terraincognita07/shrine/internal/i18n"
	"github.com/terraincognita07/shrine/internal/jobs"
	"github.com/terraincognita07/shrine/internal/logger"
	"github.com/terraincognita07/shrine/internal/security"
	"github.com/terraincognita07/shrine/internal/services"
	"github.com/terraincognita07/shrine/internal/store"
)

const (
	defaultAdminPasscode = "takaramono"
	minSecretKeyLength   = 32
	shutdownTimeout      = 10 * time.Second
)

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	logger.InitLogger(logger.ParseLevel(getEnv("LOG_LEVEL", "INFO")), os.Stderr)

	var err error
	if len(os.Args) > 1 {
		err = runCommand(os.Args[1], os.Args[2:])
	} else {
		err = serve()
	}
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func runCommand(name string, args []string) error {
	switch name {
	case "reset-passcode":
		return runResetPasscode(args)
	case "serve":
		return serve()
	default:
		return fmt.Errorf("unknown command %q (expected serve or reset-passcode)", name)
	}
}

func runResetPasscode(args []string) error {
	flags := flag.NewFlagSet("reset-passcode", flag.ContinueOnError)
	length := flags.Int("length", 8, "length of the generated passcode")
	prompt := flags.Bool("prompt", false, "type the new passcode instead of generating one")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := openStore(ctx, getEnv("STORE_BACKEND", "sqlite"))
	if err != nil {
		return err
	}
	defer backend.Close()

	location := mustLoadLocation(getEnv("TZ", "Local"))
	admin := services.NewAdminService(store.NewCollectionStore(backend), fortune.SystemClock(location))
	return cli.RunResetPasscodeCommand(ctx, admin, cli.ResetPasscodeOptions{
		Length: *length,
		Prompt: *prompt,
		Stdin:  os.Stdin,
		Out:    os.Stdout,
	})
}

func serve() error {
	location := mustLoadLocation(getEnv("TZ", "Local"))
	clock := fortune.SystemClock(location)

	secretKey, err := resolveSecretKey()
	if err != nil {
		return err
	}
	port, err := resolvePort()
	if err != nil {
		return err
	}
	cookieSecure, err := resolveCookieSecure()
	if err != nil {
		return err
	}

	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()

	backendName := getEnv("STORE_BACKEND", "sqlite")
	backend, err := openStore(lifecycleCtx, backendName)
	if err != nil {
		return err
	}
	defer backend.Close()

	replica := store.NewReplica(backend)
	if err := replica.Start(lifecycleCtx); err != nil {
		return fmt.Errorf("start replica: %w", err)
	}

	adminPasscode := getEnv("ADMIN_PASSCODE", defaultAdminPasscode)
	if adminPasscode == defaultAdminPasscode {
		logger.Warning("ADMIN_PASSCODE is not set, using the built-in keeper passcode")
	}
	adminHash, err := security.NewPasscodeHash(adminPasscode)
	if err != nil {
		return fmt.Errorf("hash admin passcode: %w", err)
	}

	i18nManager, err := i18n.NewManager(getEnv("DEFAULT_LANGUAGE", i18n.LangEN))
	if err != nil {
		return fmt.Errorf("i18n init failed: %w", err)
	}

	shrine := services.NewShrineService(replica, clock, security.CryptoRand{}, adminHash)
	admin := services.NewAdminService(replica, clock)
	handler, err := api.NewHandler(shrine, admin, i18nManager, api.Config{
		SecretKey:    secretKey,
		CookieSecure: cookieSecure,
		ShrineName:   getEnv("SHRINE_NAME", services.DefaultShrineName),
		ShareURL:     os.Getenv("SHARE_URL"),
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newApp(handler)

	scheduler := jobs.NewScheduler(location)
	rollover := jobs.NewMonthRolloverJob(replica, clock)
	if _, err := scheduler.AddMonthRollover(rollover); err != nil {
		return fmt.Errorf("schedule month rollover: %w", err)
	}
	scheduler.Start()
	go func() {
		if err := replica.WaitReady(lifecycleCtx); err == nil {
			rollover.Run()
		}
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scheduler.Stop(shutdownCtx)
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Errorf("server shutdown failed: %v", err)
		}
	}()

	logger.Infof("shrine listening on http://0.0.0.0:%s (store: %s, tz: %s)", port, backendName, location.String())
	if err := app.Listen(":" + port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newApp(handler *api.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Shrine",
		DisableStartupMessage: true,
		JSONEncoder:           gojson.Marshal,
		JSONDecoder:           gojson.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())

	api.RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app
}

func openStore(ctx context.Context, backend string) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "memory":
		logger.Warning("memory store selected, fortunes and history are lost on restart")
		return store.NewMemoryStore(), nil
	case "", "sqlite":
		pollInterval, err := resolveSQLitePollInterval()
		if err != nil {
			return nil, err
		}
		dbPath := getEnv("DB_PATH", filepath.Join("data", "shrine.db"))
		sqliteStore, err := store.OpenSQLiteStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		return sqliteStore.WithPollInterval(pollInterval), nil
	case "redis":
		redisDB, err := resolveRedisDB()
		if err != nil {
			return nil, err
		}
		redisStore, err := store.OpenRedisStore(ctx, store.RedisOptions{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Prefix:   getEnv("REDIS_PREFIX", store.DefaultRedisPrefix),
		})
		if err != nil {
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
		return redisStore, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (expected sqlite, redis or memory)", backend)
	}
}

func resolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return "", errors.New("SECRET_KEY is required")
	}
	if _, insecure := insecureSecretKeys[secret]; insecure {
		return "", errors.New("SECRET_KEY uses a placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return secret, nil
}

func resolvePort() (string, error) {
	raw := getEnv("PORT", "8080")
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid PORT %q", raw)
	}
	return strconv.Itoa(port), nil
}

func resolveCookieSecure() (bool, error) {
	raw := strings.TrimSpace(os.Getenv("COOKIE_SECURE"))
	if raw == "" {
		return false, nil
	}
	secure, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid COOKIE_SECURE %q", raw)
	}
	return secure, nil
}

func resolveRedisDB() (int, error) {
	raw := getEnv("REDIS_DB", "0")
	db, err := strconv.Atoi(raw)
	if err != nil || db < 0 {
		return 0, fmt.Errorf("invalid REDIS_DB %q", raw)
	}
	return db, nil
}

func resolveSQLitePollInterval() (time.Duration, error) {
	raw := getEnv("SQLITE_POLL_INTERVAL", store.DefaultSQLitePollInterval.String())
	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		return 0, fmt.Errorf("invalid SQLITE_POLL_INTERVAL %q", raw)
	}
	return interval, nil
}

func mustLoadLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		logger.Warningf("invalid TZ %q, falling back to local time", name)
		return time.Local
	}
	return location
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
