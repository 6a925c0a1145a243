// main.go
//
// Entry point for the vocabulary jumble game.
//   - `vocab-jumble serve` runs the HTTP server (pages, JSON API, daily, accounts).
//   - `vocab-jumble play`  plays one game in the terminal.
//
// Settings come from flags, then VOCAB_* env vars (.env is loaded first), then
// the optional --config file.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/vocab-jumble/assets"
	"github.com/robalobadob/vocab-jumble/internal/config"
	"github.com/robalobadob/vocab-jumble/internal/database"
	"github.com/robalobadob/vocab-jumble/internal/httpserver"
	"github.com/robalobadob/vocab-jumble/internal/store"
	"github.com/robalobadob/vocab-jumble/internal/vocab"
)

const (
	releaseVersion = "0.1.0"
	janitorEvery   = 5 * time.Minute
	shutdownGrace  = 10 * time.Second
)

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "vocab-jumble",
		Short:         "Find the vocabulary words hidden in a jumble of letters.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(cmd.Flags()); err != nil {
				return err
			}
			setupLogging(cfg)
			return nil
		},
	}
	cfg.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "play",
		Short: "Play one game in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd.Context(), cfg, surveyPrompter{}, cmd.OutOrStdout())
		},
	})

	root.SetHelpCommand(&cobra.Command{Hidden: true})
	root.SetVersionTemplate("vocab-jumble v{{.Version}}\n")
	return root
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// loadVocab reads the configured word list, exiting on a bad list.
func loadVocab(cfg *config.Config) *vocab.Vocab {
	v, err := vocab.FromConfig(cfg.Vocab)
	if err != nil {
		var ce *vocab.ConfigError
		if errors.As(err, &ce) {
			log.Fatal().Err(ce.Err).Str("source", ce.Source).Msg("cannot load vocabulary")
		}
		log.Fatal().Err(err).Msg("cannot load vocabulary")
	}
	return v
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.InsecureSecret() {
		log.Warn().Msg("using the development secret key; set VOCAB_SECRET_KEY before exposing this server")
	}

	v := loadVocab(cfg)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		return err
	}

	srv := httpserver.New(cfg, v, store.NewMemoryStore(), db)
	hs := srv.HTTPServer(cfg.Addr())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", hs.Addr).
			Int("words", v.Len()).
			Int("success_at_count", cfg.SuccessAtCount).
			Msg("starting vocab-jumble")
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Info().Msg("shutting down")
		return hs.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return srv.RunJanitor(ctx, janitorEvery)
	})
	return g.Wait()
}
