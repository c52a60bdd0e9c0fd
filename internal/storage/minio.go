package storage

import (
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/azamatb/objbrowse/internal/backend"
	"github.com/azamatb/objbrowse/internal/config"
)

// NewMinIOClient establishes a MinIO client using the provided configuration.
// A credentials blob, when present, overrides the configured static keys;
// its contents are forwarded untouched.
func NewMinIOClient(cfg config.MinIOConfig, creds *backend.Credentials) (*minio.Client, error) {
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, ":") {
		// default to the MinIO API port when not supplied explicitly
		endpoint = fmt.Sprintf("%s:9000", endpoint)
	}

	accessKey, secretKey, region := cfg.AccessKeyID, cfg.SecretAccessKey, cfg.Region
	if creds != nil {
		if v, ok := creds.Secrets["access_key_id"]; ok {
			accessKey = v
		}
		if v, ok := creds.Secrets["secret_access_key"]; ok {
			secretKey = v
		}
		if creds.Region != "" {
			region = creds.Region
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return client, nil
}
