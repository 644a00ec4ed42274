package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"bitbucket.org/rutacoop/flota_backend/workflow"
)

func main() {
	start := flag.String("start", "", "Start date (YYYY-MM-DD), inclusive. Required.")
	end := flag.String("end", "", "End date (YYYY-MM-DD), inclusive. Required.")
	dry := flag.Bool("dry", false, "Report drift without correcting it.")
	flag.Parse()

	if strings.TrimSpace(*start) == "" || strings.TrimSpace(*end) == "" {
		fmt.Fprintln(os.Stderr, "both --start and --end are required (YYYY-MM-DD)")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx = utils.SetUserNameInContext(ctx, "RecalcPaidTotals")

	fmt.Printf("Recomputing paid totals from=%s to=%s dry=%v\n", *start, *end, *dry)

	resumen, err := workflow.RunRecalcPagado(ctx, workflow.RecalcOptions{
		Desde: strings.TrimSpace(*start),
		Hasta: strings.TrimSpace(*end),
		Dry:   *dry,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "recalc failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s\n", resumen)
}
