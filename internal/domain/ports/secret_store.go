package ports

import "context"

// SecretStore reads and writes service credentials in a secret manager.
// Path format depends on the backend:
//   - AWS: "gocardless-service/access-token" or a full ARN
//   - GCP: secret name, resolved to projects/{project}/secrets/{name}/versions/latest
//   - Vault: path under the KV mount, value stored under the "value" key
//   - Local: file path relative to the base directory
//   - Env: environment variable name
type SecretStore interface {
	// GetSecret returns the latest value of a secret
	GetSecret(ctx context.Context, path string) (string, error)

	// PutSecret creates or updates a secret and returns the new version
	PutSecret(ctx context.Context, path, value string) (version string, err error)
}
