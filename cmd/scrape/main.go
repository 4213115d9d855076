package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/novelshelf/backend/internal/config"
	"github.com/novelshelf/backend/internal/sources"
	"github.com/novelshelf/backend/internal/sources/defaults"
)

// Ad-hoc extraction tool: runs a single source operation and prints the
// result as JSON, so selector changes can be checked without the API server.
func main() {
	var (
		sourceKey = flag.String("source", "novelight", "Source key to scrape")
		operation = flag.String("op", "popular", "Operation: popular, search, novel, chapters, content")
		query     = flag.String("q", "", "Search term (op=search)")
		path      = flag.String("path", "", "Novel or chapter path (op=novel, chapters, content)")
		page      = flag.Int("page", 1, "Page number")
		timeout   = flag.Duration("timeout", 30*time.Second, "Request timeout")
	)
	flag.Parse()

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	registry, registryErr := defaults.NewRegistry(cfg.YAMLSourcesPath)
	if registryErr != nil {
		slog.Warn("source registry loaded with warnings", "error", registryErr)
	}

	source, ok := registry.Get(*sourceKey)
	if !ok {
		slog.Error("unknown source", "source", *sourceKey)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := run(ctx, source, *operation, *query, *path, *page)
	if err != nil {
		slog.Error("scrape failed", "source", *sourceKey, "op", *operation, "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		slog.Error("encode result", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, source sources.Source, operation, query, path string, page int) (any, error) {
	switch operation {
	case "popular":
		return source.ListPopular(ctx, page)
	case "search":
		if query == "" {
			return nil, fmt.Errorf("-q is required for op=search")
		}
		return source.Search(ctx, query, page)
	case "novel":
		if path == "" {
			return nil, fmt.Errorf("-path is required for op=novel")
		}
		return source.NovelDetail(ctx, path)
	case "chapters":
		if path == "" {
			return nil, fmt.Errorf("-path is required for op=chapters")
		}
		return source.ChapterPage(ctx, path, page)
	case "content":
		if path == "" {
			return nil, fmt.Errorf("-path is required for op=content")
		}
		return source.ChapterContent(ctx, path)
	default:
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
}
