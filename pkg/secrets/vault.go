package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"greenhouse-assistant/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultConfig holds configuration for Vault client
type VaultConfig struct {
	Enabled   bool
	Address   string
	Token     string
	Namespace string
	// MountPath is the KV v2 engine, SecretsPath the document holding every key
	MountPath   string
	SecretsPath string
	Timeout     time.Duration
	MaxRetries  int
	// CacheTTL bounds how long a fetched document is reused
	CacheTTL time.Duration
}

// VaultConfigFromEnv reads the VAULT_* variables
func VaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Address:     os.Getenv("VAULT_ADDR"),
		Token:       os.Getenv("VAULT_TOKEN"),
		Namespace:   os.Getenv("VAULT_NAMESPACE"),
		MountPath:   os.Getenv("VAULT_MOUNT_PATH"),
		SecretsPath: os.Getenv("VAULT_SECRETS_PATH"),
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		CacheTTL:    5 * time.Minute,
	}
	switch strings.ToLower(os.Getenv("VAULT_ENABLED")) {
	case "true", "1", "yes":
		cfg.Enabled = true
	}
	return cfg
}

// VaultManager reads secrets from one Vault KV v2 document and falls back to
// the environment for keys Vault does not hold. With Vault disabled it reads
// the environment only.
type VaultManager struct {
	client *vault.Client
	config VaultConfig
	log    *logger.Logger

	mu        sync.Mutex
	document  map[string]string
	fetchedAt time.Time
}

// NewVaultManager creates a manager from the VAULT_* environment
func NewVaultManager(log *logger.Logger) (*VaultManager, error) {
	return NewVaultManagerWithConfig(VaultConfigFromEnv(), log)
}

// NewVaultManagerWithConfig creates a manager from cfg
func NewVaultManagerWithConfig(cfg VaultConfig, log *logger.Logger) (*VaultManager, error) {
	if log == nil {
		log = logger.Discard()
	}
	m := &VaultManager{config: cfg, log: log}
	if !cfg.Enabled {
		return m, nil
	}

	if cfg.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Token == "" {
		return nil, ErrNoVaultToken
	}
	if m.config.MountPath == "" {
		m.config.MountPath = "secret"
	}
	if m.config.SecretsPath == "" {
		m.config.SecretsPath = "greenhouse"
	}
	if m.config.CacheTTL <= 0 {
		m.config.CacheTTL = 5 * time.Minute
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	vaultConfig.Timeout = cfg.Timeout
	vaultConfig.MaxRetries = cfg.MaxRetries

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}
	m.client = client

	log.Info("Vault secrets enabled", "address", cfg.Address, "path", m.config.MountPath+"/"+m.config.SecretsPath)
	return m, nil
}

// GetSecret returns the Vault value for key, or the environment variable
// EnvKey(key) when Vault is disabled or does not hold it
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if m.client != nil {
		doc, err := m.load(ctx)
		if err != nil {
			m.log.Warn("Vault read failed, falling back to environment", "key", key, "error", err)
		} else if v := doc[key]; v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(EnvKey(key)); v != "" {
		return v, nil
	}
	return "", ErrSecretNotFound
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

// load returns the cached document, reading it again once CacheTTL has passed
func (m *VaultManager) load(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.document != nil && time.Since(m.fetchedAt) < m.config.CacheTTL {
		return m.document, nil
	}

	secret, err := m.client.KVv2(m.config.MountPath).Get(ctx, m.config.SecretsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	doc := make(map[string]string)
	if secret != nil {
		for k, v := range secret.Data {
			if s, ok := v.(string); ok {
				doc[k] = s
			}
		}
	}
	m.document = doc
	m.fetchedAt = time.Now()
	return doc, nil
}

// EnvKey converts a secret key such as "gemini-api.key" to GEMINI_API_KEY
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}
