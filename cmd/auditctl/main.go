// Command auditctl verifies and exports the hash-chained audit log of
// spec.md §4.3 from the command line, grounded on the teacher's
// sequential-checks-with-a-summary CLI shape (cmd/verify-tables) and its
// subcommand dispatch (cmd/ocx-cli).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/originpoint/backend/internal/audit"
	"github.com/originpoint/backend/internal/config"
	"github.com/originpoint/backend/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Get()
	pool, err := db.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to open database pool: %v", err)
	}
	defer pool.Close()

	chain := audit.NewChain(pool.Lending, cfg.Audit.AdvisoryLockKey, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "verify":
		cmdVerify(ctx, chain)
	case "export":
		cmdExport(ctx, chain)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`auditctl - originpoint audit chain tool

Usage: auditctl <command>

Commands:
  verify    Walk the full hash chain and report the first broken link, if any
  export    Dump the full chain as JSON to stdout
  help      Show this message`)
}

func cmdVerify(ctx context.Context, chain *audit.Chain) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println(" originpoint audit chain verification")
	fmt.Println("═══════════════════════════════════════════════════════════════")

	result, err := chain.Verify(ctx)
	if err != nil {
		log.Fatalf("verify failed: %v", err)
	}

	fmt.Printf("total events:   %d\n", result.TotalEvents)
	if result.Valid {
		fmt.Println("status:         ✅ PASS — chain intact")
		return
	}

	fmt.Println("status:         ❌ FAIL — chain broken")
	fmt.Printf("broken at id:   %d\n", result.BrokenAtID)
	fmt.Printf("reason:         %s\n", result.BrokenReason)
	os.Exit(1)
}

func cmdExport(ctx context.Context, chain *audit.Chain) {
	data, err := chain.Export(ctx)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	os.Stdout.Write(data)
}
