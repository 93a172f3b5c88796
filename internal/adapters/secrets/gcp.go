package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"go.uber.org/zap"
)

// GCPConfig contains configuration for Google Cloud Secret Manager
type GCPConfig struct {
	ProjectID string
	CacheTTL  time.Duration
}

// GCPSecretStore implements ports.SecretStore on Google Cloud Secret Manager
type GCPSecretStore struct {
	client    *secretmanager.Client
	projectID string
	cache     *secretCache
	logger    *zap.Logger
}

var _ ports.SecretStore = (*GCPSecretStore)(nil)

// NewGCPSecretStore creates the client using application default credentials
func NewGCPSecretStore(ctx context.Context, cfg GCPConfig, logger *zap.Logger) (*GCPSecretStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager initialized",
		zap.String("project_id", cfg.ProjectID),
		zap.Duration("cache_ttl", cfg.CacheTTL))

	return &GCPSecretStore{
		client:    client,
		projectID: cfg.ProjectID,
		cache:     newSecretCache(cfg.CacheTTL),
		logger:    logger,
	}, nil
}

// Close closes the GCP client
func (s *GCPSecretStore) Close() error {
	return s.client.Close()
}

// GetSecret reads the latest version of a secret
func (s *GCPSecretStore) GetSecret(ctx context.Context, path string) (string, error) {
	if value, ok := s.cache.get(path); ok {
		return value, nil
	}

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, path)
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		s.logger.Error("Failed to access GCP secret", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to access GCP secret %s: %w", path, err)
	}

	value := string(result.Payload.Data)
	s.cache.set(path, value)
	return value, nil
}

// PutSecret adds a new version, creating the secret first when needed
func (s *GCPSecretStore) PutSecret(ctx context.Context, path, value string) (string, error) {
	defer s.cache.invalidate(path)

	addReq := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  fmt.Sprintf("projects/%s/secrets/%s", s.projectID, path),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}

	result, err := s.client.AddSecretVersion(ctx, addReq)
	if err != nil {
		_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   fmt.Sprintf("projects/%s", s.projectID),
			SecretId: path,
			Secret: &secretmanagerpb.Secret{
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
		if err != nil {
			s.logger.Error("Failed to create GCP secret", zap.String("path", path), zap.Error(err))
			return "", fmt.Errorf("failed to create GCP secret %s: %w", path, err)
		}

		result, err = s.client.AddSecretVersion(ctx, addReq)
		if err != nil {
			return "", fmt.Errorf("failed to add version to GCP secret %s: %w", path, err)
		}
	}

	return versionFromName(result.Name), nil
}

// versionFromName extracts "1" from projects/p/secrets/s/versions/1
func versionFromName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return "unknown"
}
