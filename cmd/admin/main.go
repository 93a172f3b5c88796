package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kevin07696/gocardless-service/internal/adapters/database"
	"github.com/kevin07696/gocardless-service/internal/adapters/gocardless"
	"github.com/kevin07696/gocardless-service/internal/adapters/postgres"
	"github.com/kevin07696/gocardless-service/internal/adapters/secrets"
	"github.com/kevin07696/gocardless-service/internal/config"
	"github.com/kevin07696/gocardless-service/internal/services/mandate"
	"github.com/kevin07696/gocardless-service/internal/services/webhook"
	pkghttp "github.com/kevin07696/gocardless-service/pkg/http"
	"github.com/kevin07696/gocardless-service/pkg/security"
	"go.uber.org/zap"
)

func main() {
	var (
		action     = flag.String("action", "", "Action to perform: generate-webhook-secret, store-webhook-secret, replace-mandate")
		oldMandate = flag.String("old", "", "Mandate being replaced")
		newMandate = flag.String("new", "", "Replacement mandate")
	)
	flag.Parse()

	if *action == "" {
		fmt.Println("Usage: admin -action=<action> [options]")
		fmt.Println("Actions:")
		fmt.Println("  generate-webhook-secret - Print a new random webhook endpoint secret")
		fmt.Println("  store-webhook-secret    - Generate a secret and write it to the configured secret manager")
		fmt.Println("  replace-mandate         - Point orders and saved tokens of -old at -new")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch *action {
	case "generate-webhook-secret":
		secret, err := webhook.GenerateSecret()
		if err != nil {
			log.Fatal("Failed to generate secret:", err)
		}
		fmt.Println(secret)
	case "store-webhook-secret":
		storeWebhookSecret(ctx)
	case "replace-mandate":
		replaceMandate(ctx, strings.TrimSpace(*oldMandate), strings.TrimSpace(*newMandate))
	default:
		fmt.Printf("Unknown action: %s\n", *action)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	return cfg, logger
}

func storeWebhookSecret(ctx context.Context) {
	cfg, logger := loadConfig()
	if cfg.UsesEnvSecrets() {
		log.Fatal("SECRETS_BACKEND is env; set GOCARDLESS_WEBHOOK_SECRET directly instead")
	}

	store, err := secrets.New(ctx, cfg.Secrets, logger)
	if err != nil {
		log.Fatal("Failed to open secret manager:", err)
	}

	secret, err := webhook.GenerateSecret()
	if err != nil {
		log.Fatal("Failed to generate secret:", err)
	}

	version, err := store.PutSecret(ctx, cfg.Secrets.WebhookSecretPath, secret)
	if err != nil {
		log.Fatal("Failed to store secret:", err)
	}
	fmt.Printf("Stored webhook secret at %s (version %s)\n", cfg.Secrets.WebhookSecretPath, version)
	fmt.Println("Paste the same secret into the webhook endpoint in the GoCardless dashboard:")
	fmt.Println(secret)
}

func replaceMandate(ctx context.Context, oldID, newID string) {
	if oldID == "" || newID == "" {
		log.Fatal("Both -old and -new mandate ids are required")
	}

	cfg, logger := loadConfig()

	dbAdapter, err := database.NewPostgreSQLAdapter(ctx, database.DefaultPostgreSQLConfig(cfg.Database.URL()), logger)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer dbAdapter.Close()

	creds := secrets.GatewayCredentials{AccessToken: cfg.GoCardless.AccessToken}
	if !cfg.UsesEnvSecrets() {
		store, err := secrets.New(ctx, cfg.Secrets, logger)
		if err != nil {
			log.Fatal("Failed to open secret manager:", err)
		}
		if creds, err = secrets.LoadGatewayCredentials(ctx, store, cfg.Secrets); err != nil {
			log.Fatal("Failed to load credentials:", err)
		}
	}

	gcCfg := gocardless.DefaultConfig(creds.AccessToken, cfg.GoCardless.Sandbox)
	client := gocardless.NewClient(gcCfg, pkghttp.NewHTTPClient(pkghttp.GoCardlessClientConfig(), gcCfg.Timeout), logger)

	db := postgres.NewDBExecutor(dbAdapter.Pool())
	resolver := mandate.NewResolver(db, postgres.NewTokenRepository(db), postgres.NewResourceStore(db), client, security.NewZapLogger(logger))

	if err := resolver.ReplaceMandate(ctx, oldID, newID); err != nil {
		log.Fatal("Failed to replace mandate:", err)
	}
	fmt.Printf("Mandate %s replaced by %s\n", oldID, newID)
}
