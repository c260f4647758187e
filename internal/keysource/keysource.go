package keysource

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Gkemhcs/kavach-auth/internal/config"
	"github.com/sirupsen/logrus"
)

// ErrKeyNotFound is returned when the configured location holds no key.
var ErrKeyNotFound = errors.New("signing key not found")

// Type names a signing key backend.
type Type string

const (
	TypeEnv   Type = "env"
	TypeGCP   Type = "gcp"
	TypeAzure Type = "azure"
)

// Source resolves the symmetric key used to sign access tokens.
type Source interface {
	// Key returns the raw key bytes.
	Key(ctx context.Context) ([]byte, error)

	// Name returns the backend name for logging.
	Name() string
}

// New creates the Source selected by cfg.JWTKeySource.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Source, error) {
	switch Type(cfg.JWTKeySource) {
	case TypeEnv, "":
		return NewEnvSource(cfg.JWTKey), nil
	case TypeGCP:
		return NewGCPSource(ctx, cfg, logger)
	case TypeAzure:
		return NewAzureSource(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported key source: %s", cfg.JWTKeySource)
	}
}

// SupportedTypes returns every backend New understands.
func SupportedTypes() []Type {
	return []Type{TypeEnv, TypeGCP, TypeAzure}
}

// trimKey drops the line ending most tools leave behind when a secret is
// written from a shell.
func trimKey(raw []byte) []byte {
	return bytes.TrimRight(raw, "\r\n")
}

// EnvSource serves a key taken from configuration.
type EnvSource struct {
	key string
}

// NewEnvSource returns a Source holding key.
func NewEnvSource(key string) *EnvSource {
	return &EnvSource{key: key}
}

func (s *EnvSource) Key(ctx context.Context) ([]byte, error) {
	if s.key == "" {
		return nil, ErrKeyNotFound
	}
	return []byte(s.key), nil
}

func (s *EnvSource) Name() string { return string(TypeEnv) }
