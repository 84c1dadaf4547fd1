package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/lesspaper/internal/auth"
	"github.com/pavelanni/lesspaper/internal/grading"
	"github.com/pavelanni/lesspaper/internal/handler"
	appI18n "github.com/pavelanni/lesspaper/internal/i18n"
	"github.com/pavelanni/lesspaper/internal/model"
	"github.com/pavelanni/lesspaper/internal/storage"
	"github.com/pavelanni/lesspaper/internal/store"
)

const sessionCleanupInterval = 15 * time.Minute

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lesspaper",
		Short: "Paperless exams with access codes and automatic MCQ scoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), importCmd(), instructorCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `lesspaper --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	addStoreFlags(f)
	f.String("blob-driver", "fs", "Image storage backend (fs, gcs)")
	f.String("blob-path", "assets", "Directory for images when blob-driver is fs")
	f.String("gcs-bucket", "", "Bucket for images when blob-driver is gcs")
	f.String("jwt-secret", "", "Secret for signing bearer tokens, at least 16 bytes (or set LESSPAPER_JWT_SECRET)")
	f.Duration("token-ttl", auth.DefaultTTL, "Bearer token lifetime")
	f.StringP("lang", "l", "en", "Default message language (en, fr)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (repeatable)")
	f.Bool("allow-signup", false, "Allow instructors to register themselves")
	f.String("admin-password", "", "Initial admin password (or set LESSPAPER_ADMIN_PASSWORD)")
	f.Float64("pass-threshold", grading.DefaultPassThreshold, "Share of correct MCQ answers needed to pass")
	addLogFlags(f)
	return cmd
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("db-driver", store.DriverSQLite, "Database driver (sqlite, postgres)")
	f.String("db", "lesspaper.db", "SQLite database path or PostgreSQL DSN")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("LESSPAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("lesspaper")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/lesspaper")
	v.AddConfigPath("/etc/lesspaper")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db-driver"), v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// openBlobStore returns the configured image store and a function releasing it.
func openBlobStore(ctx context.Context, v *viper.Viper) (storage.BlobStore, func() error, error) {
	switch v.GetString("blob-driver") {
	case "gcs":
		bucket := v.GetString("gcs-bucket")
		if bucket == "" {
			return nil, nil, errors.New("gcs-bucket is required when blob-driver is gcs")
		}
		gcs, err := storage.NewGCSStore(ctx, bucket)
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil
	case "fs", "":
		fs, err := storage.NewFSStore(v.GetString("blob-path"))
		if err != nil {
			return nil, nil, err
		}
		return fs, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported blob driver %q", v.GetString("blob-driver"))
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	// Seed default admin user if no instructors exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	blobs, closeBlobs, err := openBlobStore(ctx, v)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer closeBlobs()

	tokens, err := auth.NewIssuer(v.GetString("jwt-secret"), v.GetDuration("token-ttl"))
	if err != nil {
		return fmt.Errorf("create token issuer: %w", err)
	}

	h, err := handler.New(db, blobs, tokens, handler.Config{
		Lang:          lang,
		AllowSignup:   v.GetBool("allow-signup"),
		PassThreshold: v.GetFloat64("pass-threshold"),
		CORSOrigins:   v.GetStringSlice("cors-origins"),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server",
			"addr", addr,
			"db_driver", db.Driver(),
			"blob_driver", v.GetString("blob-driver"),
			"lang", lang,
			"allow_signup", v.GetBool("allow-signup"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		cleanupSessions(gctx, db, sessionCleanupInterval)
		return nil
	})
	return g.Wait()
}

// cleanupSessions purges expired auth sessions until ctx is done.
func cleanupSessions(ctx context.Context, db *store.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Warn("failed to clean up sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned up expired sessions", "count", n)
			}
		}
	}
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.InstructorCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or LESSPAPER_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateInstructor(model.Instructor{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin instructor: %w", err)
	}

	slog.Info("seeded default admin instructor", "username", "admin")
	return nil
}
