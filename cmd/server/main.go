package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/satyajitsk27/zania/internal/cache"
	"github.com/satyajitsk27/zania/internal/config"
	"github.com/satyajitsk27/zania/internal/embedding"
	"github.com/satyajitsk27/zania/internal/llmservice"
	"github.com/satyajitsk27/zania/internal/models"
	"github.com/satyajitsk27/zania/internal/rag"
	"github.com/satyajitsk27/zania/internal/server"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	addr := flag.String("addr", "", "Listen address, overrides config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	completer, err := llmservice.NewClient(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}

	indexes, err := cache.New(models.IndexCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating index cache")
	}

	pipeline := rag.NewPipeline(embedder, completer, indexes, cfg.RAG)
	srv := server.NewServer(pipeline, cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
