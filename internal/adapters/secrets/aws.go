package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"go.uber.org/zap"
)

// AWSConfig contains configuration for the AWS Secrets Manager backend
type AWSConfig struct {
	// AWS Region (e.g., "eu-west-2")
	Region string

	// Optional: AWS profile name (for local development)
	Profile string

	// Optional: Custom endpoint (for LocalStack testing)
	Endpoint string

	CacheTTL time.Duration
}

type awsSecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// AWSSecretStore implements ports.SecretStore on AWS Secrets Manager
type AWSSecretStore struct {
	client awsSecretsAPI
	cache  *secretCache
	logger *zap.Logger
}

var _ ports.SecretStore = (*AWSSecretStore)(nil)

// NewAWSSecretStore loads the default credential chain and creates the client
func NewAWSSecretStore(ctx context.Context, cfg AWSConfig, logger *zap.Logger) (*AWSSecretStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager initialized",
		zap.String("region", cfg.Region),
		zap.Duration("cache_ttl", cfg.CacheTTL))

	return &AWSSecretStore{
		client: secretsmanager.NewFromConfig(awsConfig, clientOptions...),
		cache:  newSecretCache(cfg.CacheTTL),
		logger: logger,
	}, nil
}

// GetSecret implements ports.SecretStore
func (s *AWSSecretStore) GetSecret(ctx context.Context, path string) (string, error) {
	if value, ok := s.cache.get(path); ok {
		return value, nil
	}

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		s.logger.Error("Failed to retrieve secret", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	value := aws.ToString(result.SecretString)
	s.cache.set(path, value)
	return value, nil
}

// PutSecret updates the secret, creating it when it does not exist yet
func (s *AWSSecretStore) PutSecret(ctx context.Context, path, value string) (string, error) {
	defer s.cache.invalidate(path)

	result, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(path),
		SecretString: aws.String(value),
	})
	if err == nil {
		s.logger.Info("Secret updated", zap.String("path", path), zap.String("version", aws.ToString(result.VersionId)))
		return aws.ToString(result.VersionId), nil
	}

	created, createErr := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(path),
		SecretString: aws.String(value),
		Description:  aws.String("GoCardless service credential"),
	})
	if createErr != nil {
		s.logger.Error("Failed to create secret", zap.String("path", path), zap.Error(createErr))
		return "", fmt.Errorf("failed to create secret: %w", createErr)
	}

	s.logger.Info("Secret created", zap.String("path", path), zap.String("version", aws.ToString(created.VersionId)))
	return aws.ToString(created.VersionId), nil
}
