// Command entitylink ingests knowledge-base seed files and resolves
// mentions against the stored entities.
//
// Usage:
//
//	entitylink ingest -entities entities.jsonl -aliases aliases.jsonl
//	entitylink ingest -seed kb.yaml
//	entitylink resolve "Natural language processing" "NLP"
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/scrypster/entitylink/internal/config"
	"github.com/scrypster/entitylink/internal/embedding"
	"github.com/scrypster/entitylink/internal/importer"
	"github.com/scrypster/entitylink/internal/kb"
	"github.com/scrypster/entitylink/internal/linker"
	"github.com/scrypster/entitylink/internal/storage"
	"github.com/scrypster/entitylink/internal/storage/memory"
	"github.com/scrypster/entitylink/internal/storage/postgres"
	"github.com/scrypster/entitylink/internal/storage/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, cfg, os.Args[2:])
	case "resolve":
		err = runResolve(ctx, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: entitylink <ingest|resolve> [flags]")
	fmt.Fprintln(os.Stderr, "  ingest  -entities FILE.jsonl -aliases FILE.jsonl | -seed FILE.yaml")
	fmt.Fprintln(os.Stderr, "  resolve [-k N] [-threshold T] MENTION...")
}

func runIngest(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	entitiesPath := fs.String("entities", "", "Path to an entities JSONL file")
	aliasesPath := fs.String("aliases", "", "Path to an aliases JSONL file")
	seedPath := fs.String("seed", "", "Path to a combined YAML seed file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seed := &importer.Seed{}
	if *seedPath != "" {
		loaded, err := importer.LoadSeed(*seedPath)
		if err != nil {
			return err
		}
		seed = loaded
	}
	if *entitiesPath != "" {
		entities, err := importer.LoadEntitiesJSONL(*entitiesPath)
		if err != nil {
			return err
		}
		seed.Entities = append(seed.Entities, entities...)
	}
	if *aliasesPath != "" {
		aliases, err := importer.LoadAliasesJSONL(*aliasesPath)
		if err != nil {
			return err
		}
		seed.Aliases = append(seed.Aliases, aliases...)
	}
	if len(seed.Entities) == 0 && len(seed.Aliases) == 0 {
		return fmt.Errorf("ingest: no seed input given, use -entities/-aliases or -seed")
	}

	knowledgeBase, cleanup, err := buildKB(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := importer.Ingest(ctx, knowledgeBase, seed)
	if err != nil {
		return err
	}
	log.Printf("Ingested %d entities and %d aliases in %s",
		result.EntitiesAdded, result.AliasesAdded, result.Duration)
	return nil
}

func runResolve(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	topK := fs.Int("k", cfg.Linking.TopK, "Number of candidates per mention")
	threshold := fs.Float64("threshold", cfg.Linking.AcceptanceThreshold, "Minimum combined score to accept a link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mentions := fs.Args()
	if len(mentions) == 0 {
		// No args: read one mention per line from stdin.
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				mentions = append(mentions, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("resolve: read stdin: %w", err)
		}
	}
	if len(mentions) == 0 {
		return fmt.Errorf("resolve: no mentions given")
	}

	knowledgeBase, cleanup, err := buildKB(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	l := linker.New(linker.Config{K: *topK, AcceptanceThreshold: *threshold})
	l.SetKB(knowledgeBase)

	results, err := l.ResolveBatch(ctx, mentions)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, result := range results {
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return nil
}

// buildKB wires the configured encoder and storage engine into a knowledge
// base. The returned cleanup closes the backend.
func buildKB(cfg *config.Config) (*kb.KnowledgeBase, func(), error) {
	encoder, err := embedding.NewEncoder(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		BaseURL:   cfg.Embedding.OllamaURL,
		APIKey:    cfg.Embedding.OpenAIAPIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		CacheSize: cfg.Embedding.CacheSize,
		RateLimit: cfg.Embedding.RateLimit,
		RateBurst: cfg.Embedding.RateBurst,
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		entityIndex storage.VectorIndex
		aliasIndex  storage.VectorIndex
		cleanup     = func() {}
	)

	switch cfg.Storage.StorageEngine {
	case "memory":
		entityIndex = memory.NewIndex(encoder.Dimension())
		aliasIndex = memory.NewIndex(encoder.Dimension())

	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		store, err := sqlite.Open(filepath.Join(cfg.Storage.DataPath, "entitylink.db"))
		if err != nil {
			return nil, nil, err
		}
		entityIndex, err = store.Index(cfg.Storage.EntityTable, encoder.Dimension())
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		aliasIndex, err = store.Index(cfg.Storage.AliasTable, encoder.Dimension())
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		cleanup = func() { _ = store.Close() }

	case "postgres":
		if encoder.Dimension() <= 0 {
			return nil, nil, fmt.Errorf("the postgres engine needs ENTITYLINK_EMBEDDING_DIMENSION set")
		}
		store, err := postgres.Open(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		entityIndex, err = store.Index(cfg.Storage.EntityTable, encoder.Dimension())
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		aliasIndex, err = store.Index(cfg.Storage.AliasTable, encoder.Dimension())
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		cleanup = func() { _ = store.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.StorageEngine)
	}

	knowledgeBase := kb.New(encoder, entityIndex, aliasIndex, kb.Config{
		MaxDistance: cfg.Linking.MaxDistance,
	})
	return knowledgeBase, cleanup, nil
}
