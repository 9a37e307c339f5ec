package main

import (
	"flag"
	"fmt"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
)

const (
	migrationUp    = "up"
	migrationDown  = "down"
	migrationSteps = "steps"
)

// Applies the embedded migrations for DB_DRIVER using the same
// environment as the server.
func main() {
	var migrationType string
	var steps int
	flag.StringVar(&migrationType, "migration-type", migrationUp, "up, down or steps")
	flag.IntVar(&steps, "n", 1, "number of steps for -migration-type=steps, negative rolls back")
	flag.Parse()

	cfg := config.MustLoad()

	var (
		changed bool
		err     error
	)
	switch migrationType {
	case migrationUp:
		changed, err = database.MigrateUp(cfg.DB)
	case migrationDown:
		changed, err = database.MigrateDown(cfg.DB)
	case migrationSteps:
		changed, err = database.MigrateSteps(cfg.DB, steps)
	default:
		panic(fmt.Sprintf("unknown migration type %q", migrationType))
	}
	if err != nil {
		panic(err)
	}

	if !changed {
		fmt.Println("no migrations to apply")
		return
	}
	fmt.Printf("migrations %s applied successfully\n", migrationType)
}
