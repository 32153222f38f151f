package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"diettracker/internal/repository"
	"diettracker/internal/repository/jsonfile"
	"diettracker/internal/repository/sqlite"
)

func main() {
	jsonPath := flag.String("json", "tracker_log.json", "JSON event log to import")
	dbPath := flag.String("db", "data/tracker.db", "Database path")
	flag.Parse()

	if err := migrate(*jsonPath, *dbPath, os.Stdout); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

// migrate copies every event of the JSON log into the database in one
// transaction, in log order. Events are appended; running it twice imports
// them twice.
func migrate(jsonPath, dbPath string, out io.Writer) error {
	source := jsonfile.New(jsonPath)
	fmt.Fprintf(out, "Migrating events from %s to database %s\n", source.Path(), dbPath)

	events, err := source.Query(nil)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintf(out, "No events found to migrate in %s\n", source.Path())
		return nil
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	repo := sqlite.NewEventRepository(db)
	defer repo.Close()

	fmt.Fprintf(out, "Inserting %d events into database...\n", len(events))
	if err := repo.AppendBatch(events); err != nil {
		return fmt.Errorf("failed to insert events: %w", err)
	}

	count, err := repo.Count()
	if err != nil {
		return err
	}

	users := make(map[string]int)
	for _, e := range events {
		users[e.User]++
	}
	fmt.Fprintf(out, "Successfully migrated %d events (%d users, %.0f kcal total)\n",
		len(events), len(users), repository.SumCalories(events))
	fmt.Fprintf(out, "Database now holds %d events\n", count)
	return nil
}
