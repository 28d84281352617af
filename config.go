/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/006ZERO/GAME-OF-QUESTIONS/games/trivia"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	autoStart      bool
	bind           string
	db             string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	logger zerolog.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout <= 0 {
		return fmt.Errorf("invalid session timeout (must be positive): %s", c.sessionTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// openStore returns the configured store and a function releasing it.
func (c *Config) openStore() (trivia.Store, func(), error) {
	if c.db == "" {
		return trivia.NewMemoryStore(), func() {}, nil
	}

	store, err := trivia.OpenSQLite(c.db)
	if err != nil {
		return nil, nil, err
	}

	return store, func() {
		if err := store.Close(); err != nil {
			c.logger.Error().Err(err).Str("db", c.db).Msg("closing store")
		}
	}, nil
}

// bindEnv lets TRIVIABOX_* variables fill any flag not given on the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TRIVIABOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "triviabox",
		Short:         "A team trivia game with a countdown, served as a single-page webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.logger = newLogger(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&cfg.db, "db", "triviabox.db", "path to sqlite database holding teams and questions, empty for in-memory (env: TRIVIABOX_DB)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: TRIVIABOX_VERBOSE)")

	fs := cmd.Flags()
	fs.BoolVar(&cfg.autoStart, "auto-start", false, "start the countdown as soon as the next question is shown (env: TRIVIABOX_AUTO_START)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: TRIVIABOX_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: TRIVIABOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: TRIVIABOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: TRIVIABOX_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions and setup drafts are dropped (env: TRIVIABOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: TRIVIABOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: TRIVIABOX_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: TRIVIABOX_VERSION)")

	bindEnv(v, pfs)
	bindEnv(v, fs)

	cmd.AddCommand(newImportCmd(cfg), newExportCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("triviabox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newImportCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load teams and questions from a YAML pack into the database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			pack, err := trivia.ReadPack(f)
			if err != nil {
				return err
			}

			store, closeStore, err := cfg.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			if err := trivia.ImportPack(cmd.Context(), store, pack, cfg.logger); err != nil {
				return err
			}

			logf(cfg, "IMPORT: %d teams, %d questions from %s", len(pack.Teams), len(pack.Questions), args[0])

			return nil
		},
	}
}

func newExportCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the stored teams and questions as a YAML pack.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := cfg.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			pack, err := trivia.ExportPack(cmd.Context(), store, cfg.logger)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return trivia.WritePack(cmd.OutOrStdout(), pack)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}

			if err := trivia.WritePack(f, pack); err != nil {
				_ = f.Close()
				return err
			}

			return f.Close()
		},
	}
}
