package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"go.uber.org/zap"
)

// Backend names accepted by New
const (
	BackendEnv   = "env"
	BackendLocal = "local"
	BackendAWS   = "aws"
	BackendVault = "vault"
	BackendGCP   = "gcp"
)

// Config selects and configures a secret backend
type Config struct {
	Backend   string
	LocalPath string
	AWS       AWSConfig
	Vault     VaultConfig
	GCP       GCPConfig

	AccessTokenPath   string
	WebhookSecretPath string
}

// New creates the configured secret store
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretStore, error) {
	switch cfg.Backend {
	case "", BackendEnv:
		return EnvSecretStore{}, nil
	case BackendLocal:
		logger.Warn("Using local filesystem secret store - NOT for production use!")
		return NewLocalSecretStore(cfg.LocalPath, logger), nil
	case BackendAWS:
		return NewAWSSecretStore(ctx, cfg.AWS, logger)
	case BackendVault:
		return NewVaultSecretStore(ctx, cfg.Vault, logger)
	case BackendGCP:
		return NewGCPSecretStore(ctx, cfg.GCP, logger)
	default:
		return nil, fmt.Errorf("unknown secret backend %q", cfg.Backend)
	}
}

// GatewayCredentials are the secrets the service needs at startup
type GatewayCredentials struct {
	AccessToken   string
	WebhookSecret string
}

// LoadGatewayCredentials reads the API access token and webhook secret
func LoadGatewayCredentials(ctx context.Context, store ports.SecretStore, cfg Config) (GatewayCredentials, error) {
	var creds GatewayCredentials
	var err error

	if creds.AccessToken, err = store.GetSecret(ctx, cfg.AccessTokenPath); err != nil {
		return creds, fmt.Errorf("load access token: %w", err)
	}
	if creds.WebhookSecret, err = store.GetSecret(ctx, cfg.WebhookSecretPath); err != nil {
		return creds, fmt.Errorf("load webhook secret: %w", err)
	}
	return creds, nil
}
