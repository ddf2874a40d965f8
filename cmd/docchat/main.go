package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/internal/types"
	"docchat/pkg/config"
	"docchat/pkg/extract"
	"docchat/pkg/llm"
	"docchat/pkg/logger"
	"docchat/pkg/processor"
	"docchat/pkg/rag"
	"docchat/pkg/scraper"
	"docchat/pkg/store"
	"docchat/server"
)

func main() {
	var configPath string
	var addr string
	var ingestGlob string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.StringVar(&ingestGlob, "ingest", "", "Ingest matching files from disk and exit")
	flag.Parse()

	if err := run(configPath, addr, ingestGlob); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, addr, ingestGlob string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Production, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	var vectorStore types.VectorStore
	if cfg.Database.URL != "" {
		vectorStore, err = store.NewWithConfig(store.VectorStoreConfig{
			ConnString:  cfg.Database.URL,
			TableName:   cfg.Database.TableName,
			VectorDim:   cfg.Database.VectorDim,
			BatchSize:   cfg.Database.BatchSize,
			SearchLimit: cfg.Database.SearchLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize vector store: %v", err)
		}
	} else {
		zlog.Info("no database configured, using in-memory index")
		vectorStore = store.NewMemoryStore()
	}
	defer vectorStore.Close()

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       cfg.Processor.ChunkSize,
		ChunkOverlap:    cfg.Processor.ChunkOverlap,
		MinChunkLength:  cfg.Processor.MinChunkLength,
		RemoveStopwords: cfg.Processor.RemoveStopwords,
	})

	clients := llm.NewCache(llm.ClientConfig{
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, clients)
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	engine := rag.NewEngine(rag.EngineConfig{
		SearchLimit: cfg.Database.SearchLimit,
		BatchSize:   cfg.Database.BatchSize,
	}, vectorStore, proc, chatEngine, clients, zlog)

	if ingestGlob != "" {
		return ingestFiles(engine, ingestGlob, cfg.LLM.APIKey)
	}

	scrape := func(ctx context.Context, target string) ([]models.Document, error) {
		s, err := scraper.NewWithConfig(scraper.ScraperConfig{
			BaseURL:           target,
			MaxDepth:          cfg.Scraper.MaxDepth,
			RateLimit:         cfg.Scraper.RateLimit,
			IgnorePatterns:    cfg.Scraper.IgnorePatterns,
			AllowedExtensions: cfg.Scraper.AllowedExtensions,
		})
		if err != nil {
			return nil, err
		}
		return s.Scrape(ctx, target)
	}

	srv := server.New(server.Config{
		Addr:          cfg.Server.Addr,
		MaxUploadMB:   cfg.Server.MaxUploadMB,
		SessionCookie: cfg.Server.SessionCookie,
		Streaming:     cfg.UI.Streaming,
		DefaultAPIKey: cfg.LLM.APIKey,
		DefaultMode:   models.ModeHybrid,
	}, engine, scrape, zlog)

	zlog.Info("starting docchat", zap.String("addr", cfg.Server.Addr))
	return srv.Start()
}

// ingestFiles is the batch path: index documents straight from disk, no UI.
func ingestFiles(engine *rag.Engine, pattern, apiKey string) error {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("bad glob pattern: %v", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %s", pattern)
	}
	if apiKey == "" {
		return fmt.Errorf("batch ingest needs an API key (set LLM_API_KEY)")
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription(color.BlueString("Ingesting documents")),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	ctx := context.Background()
	loaded := 0
	chunks := 0

	for _, path := range paths {
		bar.Add(1)

		format, err := extract.DetectFormat(path)
		if err != nil {
			color.Red("\n%s: %v", path, err)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			color.Red("\n%s: %v", path, err)
			continue
		}
		text, err := extract.Text(format, data)
		if err != nil {
			color.Red("\n%s: %v", path, err)
			continue
		}

		n, err := engine.Ingest(ctx, models.Document{
			ID:     uuid.NewString(),
			Name:   filepath.Base(path),
			Format: format,
			Source: path,
			Text:   text,
		}, apiKey)
		if err != nil {
			color.Red("\n%s: %v", path, err)
			continue
		}
		loaded++
		chunks += n
	}

	bar.Finish()
	color.Green("\n✓ Ingested %d/%d documents (%d chunks)\n", loaded, len(paths), chunks)
	return nil
}
