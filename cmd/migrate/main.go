package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"rankfair/adapters/postgres"
	"rankfair/domain/core"
	"rankfair/domain/verdict"
	"rankfair/internal/migration"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	reset := flag.Bool("reset", false, "drop the fairness_reports table before migrating")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: migrate [-reset] <database_url> [report_dir]")
	}
	databaseURL := flag.Arg(0)

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	var runner migration.Migrator = migration.NewRunner()
	if *reset {
		log.Println("Resetting database - dropping fairness_reports")
		if err := runner.Reset(ctx, db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
	}
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema at version %s", runner.Version())

	if flag.NArg() < 2 {
		return
	}
	reportDir := flag.Arg(1)

	files, err := findReportFiles(reportDir)
	if err != nil {
		log.Fatalf("Failed to find report files: %v", err)
	}
	log.Printf("Found %d report files to import from %s", len(files), reportDir)

	repo := postgres.NewReportRepository(db)
	imported := 0
	skipped := 0
	for _, file := range files {
		report, err := loadReportFromFile(file)
		if err != nil {
			log.Printf("Failed to load report from %s: %v", file, err)
			skipped++
			continue
		}

		if err := repo.Save(ctx, report); err != nil {
			log.Printf("Failed to save report %s: %v", report.ID, err)
			skipped++
			continue
		}

		imported++
		log.Printf("Imported report %s from %s", report.ID, filepath.Base(file))
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

func findReportFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// loadReportFromFile reads a JSON report. Reports without a dataset hash are
// rejected. Reports without an id get a deterministic one derived from the
// file path, so re-imports collide instead of duplicating.
func loadReportFromFile(filePath string) (*verdict.Report, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var report verdict.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	if report.DatasetHash.IsEmpty() {
		return nil, fmt.Errorf("report has no dataset_hash")
	}
	if core.ID(report.ID).IsEmpty() {
		report.ID = core.ReportID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(filePath)).String())
	}
	return &report, nil
}
