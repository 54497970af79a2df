package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pixie/config"
	"pixie/htmlproc"
	"pixie/mcp"
	"pixie/model"
	"pixie/provider"
	"pixie/server"
	"pixie/storage"
)

const Version = "0.1.0"

var (
	configFile string
	envDir     string
)

var rootCmd = &cobra.Command{
	Use:           "pixie",
	Short:         "Pixie - natural language to widget UI",
	Long:          `Pixie turns chat messages into self-contained HTML+React widgets that call backend tools.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE:  runServe,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a commented configuration template",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInitConfig,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and ping the configured LLM providers",
	RunE:  runCheck,
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Run HTML extraction and validation over a saved model response",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var (
	forceInit     bool
	finishReason  string
	extractTokens int
	extractOutput string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file (default $PIXIE_CONFIG or ./pixie.toml)")
	rootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "directory holding .env and .env.local")

	initConfigCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")

	extractCmd.Flags().StringVar(&finishReason, "finish-reason", model.FinishStop, "finish reason reported by the provider")
	extractCmd.Flags().IntVar(&extractTokens, "max-tokens", config.DefaultUIMaxTokens, "max tokens the response was generated with")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write the cleaned HTML to this file instead of stdout")

	rootCmd.AddCommand(serveCmd, initConfigCmd, checkCmd, extractCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, EnvDir: envDir})
	if err != nil {
		return nil, err
	}
	cfg.App.Version = Version
	config.InitLogger(cfg.App.LogLevel, cfg.App.Debug, nil)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := config.Logger("main")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Database ready", "driver", db.Driver())

	// The API still serves storage and health routes without a model.
	p, err := provider.FromConfig(ctx, cfg)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Warn("LLM provider not configured, chat routes disabled", "variable", cfgErr.Variable, "error", cfgErr.Message)
		} else {
			log.Warn("LLM provider unavailable, chat routes disabled", "error", err)
		}
	}

	handler := mcp.NewHandler(mcp.NewService(p), mcp.NewSessionStore(), mcp.Dialer(cfg.MCP.Timeout.Duration))
	return server.New(cfg, db, p, handler).Run(ctx)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigFile
	if len(args) == 1 {
		path = config.ExpandPath(args[0])
	}
	if err := config.WriteTemplate(path, forceInit); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range provider.PingConfigured(ctx, cfg) {
		if r.Valid {
			fmt.Fprintf(out, "ok    %-8s %s\n", r.ProviderID, r.Model)
			continue
		}
		failed++
		fmt.Fprintf(out, "FAIL  %-8s %s: %v\n", r.ProviderID, r.Model, r.Err)
	}

	if failed > 0 {
		return fmt.Errorf("%d provider(s) failed", failed)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	res := htmlproc.NewExtractor(config.Logger("htmlproc")).Process(string(raw), finishReason, extractTokens)

	if extractOutput != "" {
		if err := os.WriteFile(extractOutput, []byte(res.HTML), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", extractOutput, err)
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.HTML)
	}

	errOut := cmd.ErrOrStderr()
	for _, f := range res.Findings {
		fmt.Fprintf(errOut, "- %s\n", f)
	}
	if res.Incomplete {
		fmt.Fprintln(errOut, "document appears truncated")
	}
	return nil
}
