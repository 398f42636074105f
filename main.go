package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/catalog-agent/server/internal/agent"
	"github.com/catalog-agent/server/internal/agent/engine"
	"github.com/catalog-agent/server/internal/agent/graph"
	"github.com/catalog-agent/server/internal/agent/graph/nodes"
	"github.com/catalog-agent/server/internal/agent/index"
	"github.com/catalog-agent/server/internal/agent/llm"
	"github.com/catalog-agent/server/internal/agent/model"
	"github.com/catalog-agent/server/internal/agent/repo"
	"github.com/catalog-agent/server/internal/agent/retriever"
	"github.com/catalog-agent/server/internal/agent/store"
	"github.com/catalog-agent/server/internal/agent/synthesizer"
	"github.com/catalog-agent/server/internal/core"
	logx "github.com/catalog-agent/server/pkg/logger"
	pkgredis "github.com/catalog-agent/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the agent, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Environment string `envconfig:"APP_ENV" default:"development"`
	Redis       pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Answer       model.AnswerModelConfig
	Catalog      model.CatalogConfig
	Index        model.IndexConfig
	Conversation model.ConversationConfig
}

func main() {
	setup := flag.Bool("setup", false, "rebuild the catalog database and semantic index, then exit")
	productsPath := flag.String("products", "products.json", "product feed used by -setup")
	conversationID := flag.String("session", "local-session", "conversation id for history persistence")
	flag.Parse()

	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	catalog, err := store.Open(envCfg.Catalog.DBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer catalog.Close()

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:           envCfg.APIKey,
		BaseURL:          envCfg.BaseURL,
		ClassifierConfig: &envCfg.Classifier,
		AnswerConfig:     &envCfg.Answer,
	})
	if err != nil {
		log.Fatalf("Failed to create chat models: %v", err)
	}

	embedder := index.NewGeminiEmbedder(cms.Client, envCfg.Index.EmbeddingModel)
	semanticIndex := index.NewMemory(embedder)

	if *setup {
		if err := runSetup(ctx, catalog, semanticIndex, envCfg.Index, *productsPath); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		fmt.Println("Setup complete.")
		return
	}

	if err := loadIndex(ctx, catalog, semanticIndex, envCfg.Index); err != nil {
		log.Fatalf("Failed to prepare semantic index: %v", err)
	}

	completer := llm.NewChatCompleter(cms.Answer, cms.AnswerModelName)

	eng, err := engine.New(ctx, catalog, completer, envCfg.Catalog.TitleSample)
	if err != nil {
		log.Fatalf("Failed to initialise query engine: %v", err)
	}

	runner, err := graph.BuildReasoningGraph(ctx, &graph.GraphConfig{
		ChatModels:   cms,
		Conversation: &envCfg.Conversation,
		Engine:       eng,
		Retriever:    retriever.New(semanticIndex, envCfg.Index.TopK),
		Synthesizer:  synthesizer.New(completer),
	})
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	ag := agent.New(runner)

	// History persists across sessions only when Redis is configured.
	var turnRepo model.TurnRepository
	if envCfg.Redis.URL != "" {
		ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
		if err != nil {
			log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
		}
		rdb, err := envCfg.Redis.New()
		if err != nil {
			log.Fatalf("Failed to initialise Redis client: %v", err)
		}
		defer rdb.Close()
		turnRepo = repo.NewRedisTurnRepository(rdb, ttl)
		fmt.Println("Connected to Redis successfully")
	}

	var turns []model.ConversationTurn
	if turnRepo != nil {
		if loaded, err := turnRepo.LoadTurns(ctx, *conversationID); err != nil {
			log.Printf("Warning: Could not load history: %v", err)
		} else {
			turns = loaded
		}
	}

	fmt.Println("Product catalog agent ready. Type a question, 'clear' to reset history, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		switch {
		case query == "":
			continue
		case query == "exit" || query == "quit":
			return
		case query == "clear":
			turns = nil
			if turnRepo != nil {
				if err := turnRepo.ClearTurns(ctx, *conversationID); err != nil {
					log.Printf("Warning: Could not clear history: %v", err)
				}
			}
			fmt.Println("History cleared.")
			continue
		}

		answer, updated, err := ag.Ask(ctx, *conversationID, query, turns)
		if err != nil {
			log.Printf("Error: %v", err)
			continue
		}
		if turnRepo != nil && len(updated) >= 2 {
			if err := turnRepo.AppendTurns(ctx, *conversationID, updated[len(updated)-2:]...); err != nil {
				log.Printf("Warning: Could not persist turns: %v", err)
			}
		}
		turns = updated
		fmt.Printf("\n%s\n\n", answer)
	}
}

// runSetup rebuilds the products table from the raw feed and re-embeds the
// catalog into a fresh index snapshot.
func runSetup(ctx context.Context, catalog *store.Catalog, semanticIndex *index.Memory, cfg model.IndexConfig, productsPath string) error {
	data, err := os.ReadFile(productsPath)
	if err != nil {
		return fmt.Errorf("read product feed %q: %w", productsPath, err)
	}
	var products []map[string]any
	if err := json.Unmarshal(data, &products); err != nil {
		return fmt.Errorf("decode product feed %q: %w", productsPath, err)
	}

	if err := catalog.Bootstrap(ctx, products); err != nil {
		return err
	}
	if err := buildIndex(ctx, catalog, semanticIndex, cfg); err != nil {
		return err
	}
	return semanticIndex.SaveSnapshot(cfg.CachePath, cfg.EmbeddingModel)
}

// loadIndex restores the index snapshot, rebuilding from the catalog when no
// usable snapshot exists.
func loadIndex(ctx context.Context, catalog *store.Catalog, semanticIndex *index.Memory, cfg model.IndexConfig) error {
	ok, err := semanticIndex.LoadSnapshot(cfg.CachePath, cfg.EmbeddingModel)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := buildIndex(ctx, catalog, semanticIndex, cfg); err != nil {
		return err
	}
	return semanticIndex.SaveSnapshot(cfg.CachePath, cfg.EmbeddingModel)
}

func buildIndex(ctx context.Context, catalog *store.Catalog, semanticIndex *index.Memory, cfg model.IndexConfig) error {
	texts, err := catalog.ProductTexts(ctx)
	if err != nil {
		return fmt.Errorf("load product texts: %w", err)
	}
	sources := make([]index.ProductSource, 0, len(texts))
	for _, t := range texts {
		sources = append(sources, index.ProductSource{Title: t.Title, Text: t.Text, Metadata: t.Metadata})
	}
	return semanticIndex.BuildFromTexts(ctx, sources, cfg.ChunkSize, cfg.ChunkOverlap)
}
