package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sales-support/internal/config"
)

const (
	configFilePath = "./configs/config.yaml"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ssm",
		Short: "Sales support assistant for Netec training services",
		Long: `ssm indexes course material, searches it and drafts sales answers.

Environment variables:
  OPENAI_API_KEY, OPENAI_API_ORGANIZATION   OpenAI credentials (required)
  PINECONE_API_KEY, PINECONE_ENVIRONMENT    Pinecone credentials (required)
  PINECONE_INDEX_NAME                       index every command targets (required)
  LOG_LEVEL                                 debug, info, warn or error`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", configFilePath, "Path to the YAML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		setLogLevel(cfg.LogLevel)
		log.Debug().Str("config", configPath).Str("vector_store", cfg.VectorStore.Type).Msg("Loaded config")
		return cfg, nil
	}

	rootCmd.AddCommand(
		templatesCmd(),
		splitCmd(),
		embedCmd(load),
		searchCmd(load),
		promptCmd(load),
		chatCmd(load),
		askCmd(load),
	)
	return rootCmd
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
