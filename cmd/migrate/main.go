package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
	"github.com/ignite/visitor-insights/internal/repository/postgres"
)

func main() {
	listOnly := flag.Bool("list", false, "list embedded migrations and exit")
	seed := flag.Bool("seed", false, "upsert the built-in company directory after migrating")
	flag.Parse()

	if *listOnly {
		ms, err := postgres.Migrations()
		if err != nil {
			fatal("read migrations", err)
		}
		for _, m := range ms {
			fmt.Println(" ", m.Version)
		}
		fmt.Printf("Total: %d migrations\n", len(ms))
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fatal("DATABASE_URL is required", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fatal("connect", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatal("ping", err)
	}
	logger.Info("connected to database")

	applied, err := postgres.Migrate(ctx, db)
	for _, v := range applied {
		logger.Info("migration applied", "version", v)
	}
	if err != nil {
		fatal("migrate", err)
	}
	logger.Info("migrations complete", "applied", len(applied))

	if *seed {
		repo := postgres.NewCompanyRepo(db)
		for _, c := range company.DefaultCompanies {
			if err := repo.Upsert(ctx, c); err != nil {
				fatal("seed companies", err)
			}
		}
		logger.Info("company directory seeded", "companies", len(company.DefaultCompanies))
	}
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
