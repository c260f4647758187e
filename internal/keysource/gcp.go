package keysource

import (
	"context"
	"errors"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/Gkemhcs/kavach-auth/internal/config"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// secretVersionAccessor is the subset of the Secret Manager client in use.
type secretVersionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// GCPSource reads the signing key from Google Cloud Secret Manager.
type GCPSource struct {
	client    secretVersionAccessor
	projectID string
	secret    string
	version   string
	logger    *logrus.Logger
}

// NewGCPSource creates a Secret Manager client. Credentials come from
// GCP_CREDENTIALS_FILE when set, otherwise from application default credentials.
func NewGCPSource(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*GCPSource, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}
	if cfg.GCPSecretName == "" {
		return nil, fmt.Errorf("GCP secret name is required")
	}

	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return newGCPSource(client, cfg.GCPProjectID, cfg.GCPSecretName, cfg.GCPSecretVersion, logger), nil
}

func newGCPSource(client secretVersionAccessor, projectID, secret, version string, logger *logrus.Logger) *GCPSource {
	if version == "" {
		version = "latest"
	}
	return &GCPSource{
		client:    client,
		projectID: projectID,
		secret:    secret,
		version:   version,
		logger:    logger,
	}
}

func (g *GCPSource) resourceName() string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", g.projectID, g.secret, g.version)
}

// Key accesses the configured secret version and returns its payload.
func (g *GCPSource) Key(ctx context.Context) ([]byte, error) {
	logEntry := g.logger.WithFields(logrus.Fields{
		"provider":   "gcp",
		"project_id": g.projectID,
		"secret":     g.secret,
		"version":    g.version,
	})

	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: g.resourceName(),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			logEntry.Warn("Signing key secret not found in GCP")
			return nil, ErrKeyNotFound
		}
		logEntry.WithField("error", err.Error()).Error("Failed to access GCP secret")
		return nil, fmt.Errorf("access secret version: %w", err)
	}

	key := trimKey(resp.GetPayload().GetData())
	if len(key) == 0 {
		return nil, ErrKeyNotFound
	}

	logEntry.Info("Signing key loaded from GCP Secret Manager")
	return key, nil
}

func (g *GCPSource) Name() string { return string(TypeGCP) }

// Close releases the underlying client connection.
func (g *GCPSource) Close() error {
	if g.client == nil {
		return errors.New("gcp source not initialized")
	}
	return g.client.Close()
}
