package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cryptoguide/config"
	"cryptoguide/internal/assistant"
	"cryptoguide/internal/market"
	"cryptoguide/internal/metrics"
	"cryptoguide/internal/server"
	"cryptoguide/internal/tui"
	"cryptoguide/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// app is what every command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	log       *logger.Log
	assistant *assistant.Assistant
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "cryptoguide",
		Short:         "Chat about Bitcoin, Ethereum and Cardano prices, news and sustainability",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yml", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error, report)")

	root.AddCommand(newServeCmd(opts), newChatCmd(opts), newAskCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), opts, "")
			if err != nil {
				return err
			}

			srv, err := server.NewServer(a.cfg.Server, a.assistant, a.log)
			if err != nil {
				return err
			}
			err = srv.Run(cmd.Context(), a.cfg.App.Name)
			a.log.WithComponent("main").Info("cryptoguide stopped")
			return err
		},
	}
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Console logs would draw over the UI.
			a, err := bootstrap(cmd.Context(), opts, "discard")
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), a.assistant)
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), opts, "stderr")
			if err != nil {
				return err
			}
			reply := a.assistant.Answer(cmd.Context(), strings.Join(args, " "))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
			return err
		},
	}
}

// bootstrap loads configuration, configures logging and builds the
// assistant. consoleOutput, when set, replaces a stdout or stderr log
// output; file outputs are kept.
func bootstrap(ctx context.Context, opts *rootOptions, consoleOutput string) (*app, error) {
	log := logger.GetLogger()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	output := cfg.Logging.Output
	if consoleOutput != "" && isConsole(output) {
		output = consoleOutput
	}
	if err := log.Configure(level, cfg.Logging.Format, output, cfg.Logging.MaxAge); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}

	env := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service":     cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": env,
	}).Info("starting cryptoguide")
	if config.IsProductionLike(env) && cfg.Provider.APIKey == "" {
		log.WithComponent("main").WithEnv("APP_ENV").Warn("running without a CoinGecko API key")
	}

	if logger.IsReportLevel(level) {
		logger.StartReport(ctx, log, cfg.Logging.ReportInterval)
	}

	if cw := cfg.Metrics.CloudWatch; cw.Enabled {
		metrics.InitCloudWatch(ctx, cw.Region, cw.Namespace, cfg.App.Name)
	}

	client := market.NewClient(cfg.Provider, nil)
	fetcher := market.NewCachedFetcher(client, cfg.Provider.CacheTTL)

	return &app{
		cfg:       cfg,
		log:       log,
		assistant: assistant.New(fetcher, assistant.WithLogger(log)),
	}, nil
}

func isConsole(output string) bool {
	switch output {
	case "", "stdout", "stderr":
		return true
	default:
		return false
	}
}
