package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/motoquiz-backend/internal/catalog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/database"
	"github.com/stemsi/motoquiz-backend/internal/logger"
	"github.com/stemsi/motoquiz-backend/internal/repository"
	"github.com/stemsi/motoquiz-backend/internal/service"
)

func main() {
	input := flag.String("input", "", "Path to the question catalog JSON file")
	dryRun := flag.Bool("dry-run", false, "Validate the catalog without writing")
	verbose := flag.Bool("verbose", false, "List skipped questions")
	flag.Parse()

	if *input == "" {
		fmt.Fprintf(os.Stderr, "Usage: seed-questions -input <catalog.json> [-dry-run] [-verbose]\n")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read catalog")
	}
	cat, err := catalog.Decode(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot parse catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)
	existing, err := questionRepo.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load question bank")
	}

	insert, skipped := catalog.Plan(cat, existing)
	fmt.Printf("=== %s ===\n", cat.Title)
	fmt.Printf("Catalog: %d, new: %d, skipped: %d\n", len(cat.Questions), len(insert), len(skipped))
	if *verbose {
		for _, reason := range skipped {
			fmt.Println("  skip:", reason)
		}
	}
	if *dryRun || len(insert) == 0 {
		return
	}

	created := 0
	for _, q := range insert {
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Error().Err(err).Str("text", q.Text).Msg("Failed to insert question")
			continue
		}
		created++
	}

	// Drop the cached bank so servers pick up the new questions.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, question cache expires on its own")
	} else {
		service.NewQuestionService(questionRepo, rdb, cfg, log).Invalidate(ctx)
		rdb.Close()
	}

	fmt.Printf("Inserted %d questions\n", created)
}
