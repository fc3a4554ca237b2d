package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/roundup/pkg/config"
	"github.com/richxcame/roundup/pkg/logger"
	"go.uber.org/zap"
)

// ProviderType enumerates supported secret backends.
type ProviderType string

const (
	ProviderNone  ProviderType = ""
	ProviderVault ProviderType = "vault"
	ProviderAWS   ProviderType = "aws"
)

// SecretType classifies a secret for audit logs.
type SecretType string

const (
	SecretBankToken SecretType = "bank_api_token"
	SecretDatabase  SecretType = "database_credentials"
	SecretJWT       SecretType = "jwt_secret"
	SecretCustom    SecretType = "custom"
)

var (
	ErrProviderNotConfigured = errors.New("secrets: provider not configured")
	ErrInvalidReference      = errors.New("secrets: invalid reference")
	ErrKeyNotFound           = errors.New("secrets: key not found")
)

// Reference locates a secret inside a provider.
// Syntax: [provider://][mount::]path[@version][#key]
type Reference struct {
	Name     string
	Path     string
	Mount    string
	Key      string
	Version  string
	Provider ProviderType
	Type     SecretType
}

// CacheKey returns the cache identifier for the reference.
func (r Reference) CacheKey() string {
	var sb strings.Builder
	if r.Mount != "" {
		sb.WriteString(r.Mount)
		sb.WriteString("|")
	}
	sb.WriteString(r.Path)
	if r.Version != "" {
		sb.WriteString("@" + r.Version)
	}
	if r.Key != "" {
		sb.WriteString("#" + r.Key)
	}
	return sb.String()
}

// ParseReference converts a raw reference string into a Reference.
func ParseReference(name string, secretType SecretType, raw string) (Reference, error) {
	ref := Reference{Name: name, Type: secretType}

	rest := strings.TrimSpace(raw)
	if rest == "" {
		return ref, ErrInvalidReference
	}

	if provider, after, ok := strings.Cut(rest, "://"); ok && provider != "" {
		ref.Provider = ProviderType(provider)
		rest = after
	}
	if before, key, ok := strings.Cut(rest, "#"); ok {
		ref.Key = strings.TrimSpace(key)
		rest = before
	}
	if before, version, ok := strings.Cut(rest, "@"); ok {
		ref.Version = strings.TrimSpace(version)
		rest = before
	}

	rest = strings.Trim(strings.TrimSpace(rest), "/")
	if mount, path, ok := strings.Cut(rest, "::"); ok {
		ref.Mount = strings.TrimSpace(mount)
		rest = path
	}

	ref.Path = strings.Trim(rest, "/")
	if ref.Path == "" {
		return ref, ErrInvalidReference
	}
	return ref, nil
}

// Metadata carries provider-specific metadata about a secret.
type Metadata struct {
	Version     string
	CreatedAt   time.Time
	RetrievedAt time.Time
}

// Secret is a resolved secret payload.
type Secret struct {
	Data     map[string]string
	Metadata Metadata
}

// Value returns a non-empty entry from the payload.
func (s Secret) Value(key string) (string, bool) {
	val, ok := s.Data[key]
	return val, ok && val != ""
}

// Config is the runtime configuration for a Manager.
type Config struct {
	Provider     ProviderType
	CacheTTL     time.Duration
	AuditEnabled bool
	Vault        VaultConfig
	AWS          AWSConfig
}

// ConfigFromApp maps the application config onto a Manager config.
func ConfigFromApp(cfg config.SecretsConfig) Config {
	return Config{
		Provider:     ProviderType(strings.ToLower(cfg.Provider)),
		CacheTTL:     time.Duration(cfg.CacheTTL) * time.Second,
		AuditEnabled: cfg.AuditEnabled,
		Vault: VaultConfig{
			Address:   cfg.VaultAddress,
			Token:     cfg.VaultToken,
			Namespace: cfg.VaultNS,
			MountPath: cfg.VaultMount,
		},
		AWS: AWSConfig{
			Region:   cfg.AWSRegion,
			Profile:  cfg.AWSProfile,
			Endpoint: cfg.AWSEndpoint,
		},
	}
}

// Manager resolves secrets from the configured backend with caching.
type Manager interface {
	GetSecret(ctx context.Context, ref Reference) (Secret, error)
	GetString(ctx context.Context, ref Reference) (string, error)
	Close() error
}

type provider interface {
	Name() ProviderType
	Fetch(ctx context.Context, ref Reference) (Secret, error)
	Close() error
}

type manager struct {
	provider     provider
	cacheTTL     time.Duration
	auditEnabled bool
	now          func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	secret    Secret
	expiresAt time.Time
}

// NewManager creates a Manager for the configured provider.
func NewManager(ctx context.Context, cfg Config) (Manager, error) {
	var (
		prov provider
		err  error
	)
	switch cfg.Provider {
	case ProviderNone:
		return nil, ErrProviderNotConfigured
	case ProviderVault:
		prov, err = newVaultProvider(cfg.Vault)
	case ProviderAWS:
		prov, err = newAWSProvider(ctx, cfg.AWS)
	default:
		err = fmt.Errorf("secrets: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newManager(prov, cfg), nil
}

func newManager(prov provider, cfg Config) *manager {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &manager{
		provider:     prov,
		cacheTTL:     cfg.CacheTTL,
		auditEnabled: cfg.AuditEnabled,
		now:          time.Now,
		cache:        make(map[string]cachedSecret),
	}
}

func (m *manager) Close() error {
	return m.provider.Close()
}

// GetSecret resolves the full payload for ref, served from cache while fresh.
func (m *manager) GetSecret(ctx context.Context, ref Reference) (Secret, error) {
	if ref.Path == "" {
		return Secret{}, ErrInvalidReference
	}
	if ref.Provider != ProviderNone && ref.Provider != m.provider.Name() {
		return Secret{}, fmt.Errorf("secrets: reference provider %q does not match manager provider %q", ref.Provider, m.provider.Name())
	}

	key := ref.CacheKey()
	m.mu.RLock()
	entry, ok := m.cache[key]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expiresAt) {
		return cloneSecret(entry.secret), nil
	}

	secret, err := m.provider.Fetch(ctx, ref)
	m.audit(ref, err)
	if err != nil {
		return Secret{}, err
	}
	secret.Metadata.RetrievedAt = m.now().UTC()

	m.mu.Lock()
	m.cache[key] = cachedSecret{secret: cloneSecret(secret), expiresAt: m.now().Add(m.cacheTTL)}
	m.mu.Unlock()

	return secret, nil
}

// GetString returns ref.Key from the referenced secret.
func (m *manager) GetString(ctx context.Context, ref Reference) (string, error) {
	if ref.Key == "" {
		return "", fmt.Errorf("%w: empty key in reference %q", ErrKeyNotFound, ref.Name)
	}
	secret, err := m.GetSecret(ctx, ref)
	if err != nil {
		return "", err
	}
	if value, ok := secret.Value(ref.Key); ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref.Key)
}

func (m *manager) audit(ref Reference, err error) {
	if !m.auditEnabled {
		return
	}
	fields := []zap.Field{
		zap.String("secret_name", ref.Name),
		zap.String("secret_type", string(ref.Type)),
		zap.String("provider", string(m.provider.Name())),
	}
	if err != nil {
		logger.Warn("secret fetch failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Info("secret fetched", fields...)
}

// ResolveString parses raw and reads its value through m. An empty raw returns fallback.
func ResolveString(ctx context.Context, m Manager, name string, secretType SecretType, raw, fallback string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	if m == nil {
		return "", ErrProviderNotConfigured
	}
	ref, err := ParseReference(name, secretType, raw)
	if err != nil {
		return "", err
	}
	if ref.Key == "" {
		ref.Key = "value"
	}
	return m.GetString(ctx, ref)
}

func cloneSecret(src Secret) Secret {
	dst := Secret{Data: make(map[string]string, len(src.Data)), Metadata: src.Metadata}
	for k, v := range src.Data {
		dst.Data[k] = v
	}
	return dst
}
