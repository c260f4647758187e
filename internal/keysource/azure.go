package keysource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/keyvault/azsecrets"
	"github.com/Gkemhcs/kavach-auth/internal/config"
	"github.com/sirupsen/logrus"
)

// secretGetter is the subset of the Key Vault secrets client in use.
type secretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureSource reads the signing key from Azure Key Vault.
type AzureSource struct {
	client   secretGetter
	vaultURL string
	secret   string
	logger   *logrus.Logger
}

// NewAzureSource authenticates with a service principal when a client
// secret is configured and with the default credential chain otherwise.
func NewAzureSource(cfg *config.Config, logger *logrus.Logger) (*AzureSource, error) {
	if cfg.AzureVaultURL == "" {
		return nil, fmt.Errorf("azure Key Vault URL is required")
	}
	if cfg.AzureSecretName == "" {
		return nil, fmt.Errorf("azure secret name is required")
	}

	var (
		cred azcore.TokenCredential
		err  error
	)
	if cfg.AzureClientSecret != "" {
		if cfg.AzureTenantID == "" || cfg.AzureClientID == "" {
			return nil, fmt.Errorf("azure tenant ID and client ID are required with a client secret")
		}
		cred, err = azidentity.NewClientSecretCredential(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret, nil)
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(cfg.AzureVaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault client: %w", err)
	}

	return newAzureSource(client, cfg.AzureVaultURL, cfg.AzureSecretName, logger), nil
}

func newAzureSource(client secretGetter, vaultURL, secret string, logger *logrus.Logger) *AzureSource {
	return &AzureSource{
		client:   client,
		vaultURL: vaultURL,
		secret:   secret,
		logger:   logger,
	}
}

// Key fetches the latest version of the configured secret.
func (a *AzureSource) Key(ctx context.Context) ([]byte, error) {
	logEntry := a.logger.WithFields(logrus.Fields{
		"provider":  "azure",
		"key_vault": a.vaultURL,
		"secret":    a.secret,
	})

	resp, err := a.client.GetSecret(ctx, a.secret, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			logEntry.Warn("Signing key secret not found in Azure Key Vault")
			return nil, ErrKeyNotFound
		}
		logEntry.WithField("error", err.Error()).Error("Failed to get Azure secret")
		return nil, fmt.Errorf("get secret: %w", err)
	}

	if resp.Value == nil {
		return nil, ErrKeyNotFound
	}
	key := trimKey([]byte(*resp.Value))
	if len(key) == 0 {
		return nil, ErrKeyNotFound
	}

	logEntry.Info("Signing key loaded from Azure Key Vault")
	return key, nil
}

func (a *AzureSource) Name() string { return string(TypeAzure) }
