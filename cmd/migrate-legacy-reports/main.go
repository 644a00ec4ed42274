package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"bitbucket.org/rutacoop/flota_backend/workflow"
)

func main() {
	start := flag.String("start", "", "Start date (YYYY-MM-DD), inclusive. Required.")
	end := flag.String("end", "", "End date (YYYY-MM-DD), inclusive. Required.")
	dry := flag.Bool("dry", false, "Read and count only; issue no writes.")
	pageSize := flag.Int("page-size", config.PageSize, "Legacy scan page size.")
	flag.Parse()

	if strings.TrimSpace(*start) == "" || strings.TrimSpace(*end) == "" {
		fmt.Fprintln(os.Stderr, "both --start and --end are required (YYYY-MM-DD)")
		os.Exit(1)
	}

	ctx := context.Background()
	// Explicit DB connect (config no longer connects DB in init()).
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserNameInContext(ctx, "MigrateLegacyReports")

	fmt.Printf("Migrating legacy reports from=%s to=%s dry=%v pageSize=%d\n",
		*start, *end, *dry, *pageSize)

	resumen, err := workflow.RunMigracionLegacy(ctx, workflow.MigracionOptions{
		Desde:    strings.TrimSpace(*start),
		Hasta:    strings.TrimSpace(*end),
		Dry:      *dry,
		PageSize: *pageSize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s\n", resumen)
	if *dry {
		fmt.Println("(dry run: no writes were issued)")
	}
}
