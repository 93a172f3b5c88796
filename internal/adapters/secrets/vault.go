package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for the HashiCorp Vault backend
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token", "approle", "kubernetes"
	AuthMethod string

	Token string

	RoleID   string
	SecretID string

	K8sTokenPath string
	K8sRole      string

	// Vault namespace (Vault Enterprise)
	Namespace string

	// KV secrets engine mount path (default: "secret")
	MountPath string

	// KV version: "v1" or "v2" (default: "v2")
	KVVersion string

	CacheTTL time.Duration
}

// DefaultVaultConfig returns default configuration for the Vault backend
func DefaultVaultConfig(address string) VaultConfig {
	return VaultConfig{
		Address:      address,
		AuthMethod:   "token",
		MountPath:    "secret",
		KVVersion:    "v2",
		K8sTokenPath: "/var/run/secrets/kubernetes.io/serviceaccount/token",
		CacheTTL:     5 * time.Minute,
	}
}

// VaultSecretStore implements ports.SecretStore on a Vault KV engine
type VaultSecretStore struct {
	client *vault.Client
	config VaultConfig
	cache  *secretCache
	logger *zap.Logger
}

var _ ports.SecretStore = (*VaultSecretStore)(nil)

// NewVaultSecretStore creates and authenticates a Vault client
func NewVaultSecretStore(ctx context.Context, cfg VaultConfig, logger *zap.Logger) (*VaultSecretStore, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault secret store initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath))

	return &VaultSecretStore{
		client: client,
		config: cfg,
		cache:  newSecretCache(cfg.CacheTTL),
		logger: logger,
	}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg VaultConfig) error {
	var (
		loginPath string
		data      map[string]interface{}
	)

	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		loginPath = "auth/approle/login"
		data = map[string]interface{}{"role_id": cfg.RoleID, "secret_id": cfg.SecretID}

	case "kubernetes":
		if cfg.K8sRole == "" {
			return fmt.Errorf("k8s_role is required for Kubernetes auth")
		}
		jwt, err := os.ReadFile(cfg.K8sTokenPath)
		if err != nil {
			return fmt.Errorf("failed to read k8s token: %w", err)
		}
		loginPath = "auth/kubernetes/login"
		data = map[string]interface{}{"jwt": string(jwt), "role": cfg.K8sRole}

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}

	resp, err := client.Logical().WriteWithContext(ctx, loginPath, data)
	if err != nil {
		return fmt.Errorf("%s login failed: %w", cfg.AuthMethod, err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("%s login returned no auth info", cfg.AuthMethod)
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

func (s *VaultSecretStore) fullPath(path string) string {
	if s.config.KVVersion == "v2" {
		return fmt.Sprintf("%s/data/%s", s.config.MountPath, path)
	}
	return fmt.Sprintf("%s/%s", s.config.MountPath, path)
}

// GetSecret reads the "value" key of a KV secret
func (s *VaultSecretStore) GetSecret(ctx context.Context, path string) (string, error) {
	if value, ok := s.cache.get(path); ok {
		return value, nil
	}

	secret, err := s.client.Logical().ReadWithContext(ctx, s.fullPath(path))
	if err != nil {
		s.logger.Error("Failed to read secret from Vault", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("secret not found: %s", path)
	}

	data := secret.Data
	if s.config.KVVersion == "v2" {
		inner, ok := secret.Data["data"].(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("invalid secret format from Vault")
		}
		data = inner
	}

	value, ok := data["value"].(string)
	if !ok {
		return "", fmt.Errorf("secret %s has no string value", path)
	}

	s.cache.set(path, value)
	return value, nil
}

// PutSecret writes the value under the "value" key
func (s *VaultSecretStore) PutSecret(ctx context.Context, path, value string) (string, error) {
	defer s.cache.invalidate(path)

	payload := map[string]interface{}{"value": value}
	if s.config.KVVersion == "v2" {
		payload = map[string]interface{}{"data": payload}
	}

	resp, err := s.client.Logical().WriteWithContext(ctx, s.fullPath(path), payload)
	if err != nil {
		s.logger.Error("Failed to write secret to Vault", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to write secret to Vault: %w", err)
	}

	version := "1"
	if resp != nil {
		if v, ok := resp.Data["version"]; ok {
			version = fmt.Sprint(v)
		}
	}
	return version, nil
}
