// Command seed loads the challenge catalog from a JSON file into Postgres.
// Re-running it updates challenges in place.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"
	"data_quest/internal/platform/config"
	"data_quest/internal/platform/database"
	"data_quest/internal/platform/logger"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// seedChallenge exposes the hints that the API serves one level at a time.
type seedChallenge struct {
	model.Challenge
	Hints []model.Hint `json:"hints"`
}

func main() {
	config.Load()
	zl, err := logger.New(config.AppConfig.AppEnv)
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer zl.Sync()

	path := config.AppConfig.SeedFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	challenges, err := readSeed(path)
	if err != nil {
		zl.Fatal("Could not read seed file", zap.String("path", path), zap.Error(err))
	}

	database.Connect()
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, database.DB); err != nil {
		zl.Fatal("Schema migration failed", zap.Error(err))
	}

	store := repository.NewPgStore(database.DB)
	err = store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		for i := range challenges {
			if err := repos.Challenges.Upsert(ctx, &challenges[i]); err != nil {
				return fmt.Errorf("challenge %s: %w", challenges[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		zl.Fatal("Seeding failed", zap.Error(err))
	}
	zl.Info("Challenges seeded", zap.Int("count", len(challenges)), zap.String("path", path))
}

// readSeed decodes the file and derives missing ids from the title.
func readSeed(path string) ([]model.Challenge, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []seedChallenge
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	seen := make(map[string]bool, len(entries))
	out := make([]model.Challenge, 0, len(entries))
	for i, e := range entries {
		c := e.Challenge
		c.Hints = e.Hints
		if c.ID == "" {
			c.ID = slug.Make(c.IslandID + " " + c.Title)
		}
		if c.ID == "" || c.Title == "" {
			return nil, fmt.Errorf("entry %d: id or title is required", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("entry %d: duplicate id %s", i, c.ID)
		}
		if c.Difficulty < 1 || c.Difficulty > 5 {
			return nil, fmt.Errorf("challenge %s: difficulty %d outside 1-5", c.ID, c.Difficulty)
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}
