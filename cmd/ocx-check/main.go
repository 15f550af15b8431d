// Command ocx-check is a pre-flight diagnostic over originpoint's own
// dependencies, adapted in place from the teacher's Component{Name, Test}
// checklist shape — same fixed list-of-checks-then-verdict structure,
// retargeted from the teacher's gRPC/jury/wallet/ledger components to this
// platform's database pools, JWKS endpoint, and blob store.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/originpoint/backend/internal/blobstore"
	"github.com/originpoint/backend/internal/config"
	"github.com/originpoint/backend/internal/db"
)

type Component struct {
	Name string
	Test func(cfg *config.Config) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, using environment variables")
	}
	cfg := config.Get()

	fmt.Println("\033[96moriginpoint backend - pre-flight diagnostic\033[0m")
	fmt.Println("---------------------------------------------------------")

	components := []Component{
		{"Database (lending_app)", checkLendingPool},
		{"Database (compliance_app)", checkCompliancePool},
		{"Auth (JWKS)", checkJWKS},
		{"Blob store", checkBlobStore},
	}

	failed := 0
	for _, c := range components {
		fmt.Printf("Checking %-28s ", c.Name+"...")
		if err := c.Test(cfg); err != nil {
			fmt.Println("\033[31m[FAIL]\033[0m")
			fmt.Printf("  >> %v\n", err)
			failed++
		} else {
			fmt.Println("\033[32m[OK]\033[0m")
		}
	}

	fmt.Println("---------------------------------------------------------")
	if failed > 0 {
		fmt.Printf("\033[31mStatus: %d component(s) not ready.\033[0m\n", failed)
		return
	}
	fmt.Println("\033[96mStatus: system ready.\033[0m")
}

func checkLendingPool(cfg *config.Config) error {
	pool, err := db.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	return pool.Lending.Ping()
}

func checkCompliancePool(cfg *config.Config) error {
	pool, err := db.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	return pool.Compliance.Ping()
}

func checkJWKS(cfg *config.Config) error {
	if cfg.Auth.JWKSURL == "" {
		return fmt.Errorf("AUTH_JWKS_URL not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Auth.JWKSURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func checkBlobStore(cfg *config.Config) error {
	if cfg.BlobStore.Endpoint == "" || cfg.BlobStore.Bucket == "" {
		return fmt.Errorf("blob store endpoint/bucket not configured")
	}
	_ = blobstore.New(cfg.BlobStore.Endpoint, cfg.BlobStore.SecretKey, cfg.BlobStore.Bucket)
	return nil
}
