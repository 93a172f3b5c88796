package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"go.uber.org/zap"
)

// LocalSecretStore keeps secrets as files under a base directory.
// WARNING: This is for development only.
type LocalSecretStore struct {
	basePath string
	logger   *zap.Logger
}

var _ ports.SecretStore = (*LocalSecretStore)(nil)

// NewLocalSecretStore creates a filesystem backed secret store
func NewLocalSecretStore(basePath string, logger *zap.Logger) *LocalSecretStore {
	return &LocalSecretStore{basePath: basePath, logger: logger}
}

type localSecretFile struct {
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// GetSecret reads a secret file. JSON files written by PutSecret and plain text are both accepted.
func (s *LocalSecretStore) GetSecret(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("secret not found: %s", path)
		}
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	var file localSecretFile
	if err := json.Unmarshal(data, &file); err == nil && file.Value != "" {
		return file.Value, nil
	}
	return strings.TrimSpace(string(data)), nil
}

// PutSecret writes the secret with 0600 permissions
func (s *LocalSecretStore) PutSecret(ctx context.Context, path, value string) (string, error) {
	full := filepath.Join(s.basePath, path)
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(localSecretFile{Value: value, CreatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret: %w", err)
	}
	if err := os.WriteFile(full, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write secret: %w", err)
	}

	s.logger.Info("Stored secret on local filesystem", zap.String("path", path))
	return "v1", nil
}

// EnvSecretStore reads secrets from environment variables named by the path
type EnvSecretStore struct{}

var _ ports.SecretStore = EnvSecretStore{}

// GetSecret returns the value of the environment variable
func (EnvSecretStore) GetSecret(ctx context.Context, path string) (string, error) {
	value, ok := os.LookupEnv(path)
	if !ok || value == "" {
		return "", fmt.Errorf("secret not found: environment variable %s is not set", path)
	}
	return value, nil
}

// PutSecret is not supported for environment variables
func (EnvSecretStore) PutSecret(ctx context.Context, path, value string) (string, error) {
	return "", fmt.Errorf("cannot write secret %s: environment secrets are read-only", path)
}
