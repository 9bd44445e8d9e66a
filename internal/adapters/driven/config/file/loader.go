package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aganswers/drivesync/internal/adapters/driven/secret"
	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/logger"
)

// Environment variables that override file settings.
const (
	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvGoogleRedirectURI  = "GOOGLE_REDIRECT_URI"
	EnvEncryptionKey      = "DRIVE_TOKEN_ENCRYPTION_KEY"
	EnvServiceAccountFile = "GOOGLE_SERVICE_ACCOUNT_FILE"
	EnvAdminEmail         = "GOOGLE_ADMIN_EMAIL"
	EnvGroupDomain        = "GOOGLE_GROUP_DOMAIN"
	EnvMaxFileSizeMB      = "MAX_DRIVE_FILE_SIZE_MB"
	EnvIngestURL          = "INGEST_URL"
	EnvIngestAPIKey       = "INGEST_API_KEY"
	EnvBlobBackend        = "BLOB_BACKEND"
	EnvBlobDir            = "BLOB_DIR"
	EnvS3Bucket           = "S3_BUCKET_NAME"
	EnvSecretsBackend     = "SECRETS_BACKEND"
	EnvDataDir            = "DRIVESYNC_DATA_DIR"
	EnvCallbackAddr       = "CALLBACK_ADDR"
)

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

const (
	defaultDataDirName     = "data"
	defaultBlobDirName     = "blobs"
	settingsSecretsBackend = "secrets.backend"
)

// ResolverFactory builds the secret resolver for a backend.
type ResolverFactory func(ctx context.Context, backend domain.SecretsBackend) (secret.Resolver, error)

// Loader assembles domain.Settings from every configuration layer.
type Loader struct {
	store    *ConfigStore
	dataDir  string
	envFile  string
	lookup   func(string) (string, bool)
	resolver ResolverFactory
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithEnvFile sets the dotenv file. An empty name disables it.
func WithEnvFile(name string) LoaderOption {
	return func(l *Loader) { l.envFile = name }
}

// WithDataDir overrides every other source of the data directory.
func WithDataDir(dir string) LoaderOption {
	return func(l *Loader) { l.dataDir = dir }
}

// WithLookup replaces os.LookupEnv.
func WithLookup(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) { l.lookup = fn }
}

// WithResolverFactory replaces the secret resolver construction.
func WithResolverFactory(f ResolverFactory) LoaderOption {
	return func(l *Loader) { l.resolver = f }
}

// NewLoader opens the config file at path (empty for the default).
func NewLoader(path string, opts ...LoaderOption) (*Loader, error) {
	store, err := NewConfigStore(path)
	if err != nil {
		return nil, err
	}
	l := &Loader{
		store:    store,
		envFile:  DefaultEnvFile,
		lookup:   os.LookupEnv,
		resolver: DefaultResolverFactory,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Store returns the underlying config file store.
func (l *Loader) Store() *ConfigStore {
	return l.store
}

// DefaultResolverFactory reads secrets from the environment or SSM.
func DefaultResolverFactory(ctx context.Context, backend domain.SecretsBackend) (secret.Resolver, error) {
	if backend == domain.SecretsBackendSSM {
		return secret.NewDefaultSSMResolver(ctx)
	}
	return secret.NewEnvResolver(), nil
}

// Load builds the settings. It does not validate them; callers that need
// the vault or a blob backend call Settings.Validate.
func (l *Loader) Load(ctx context.Context) (domain.Settings, error) {
	s := domain.DefaultSettings()
	l.applyFile(&s)

	lookup, err := l.envLookup()
	if err != nil {
		return s, err
	}
	if err := applyEnv(&s, lookup); err != nil {
		return s, err
	}

	if err := l.applySecrets(ctx, &s); err != nil {
		return s, err
	}

	setString(&s.DataDir, l.dataDir)
	if s.DataDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return s, fmt.Errorf("resolve data dir: %w", err)
		}
		s.DataDir = filepath.Join(dir, defaultDataDirName)
	}
	if s.Blob.Dir == "" && s.DataDir != domain.InMemoryDataDir {
		s.Blob.Dir = filepath.Join(s.DataDir, defaultBlobDirName)
	}
	return s, nil
}

func (l *Loader) applyFile(s *domain.Settings) {
	st := l.store
	setString(&s.DataDir, st.GetString("data_dir"))
	setString(&s.EncryptionKey, st.GetString("encryption_key"))
	setString(&s.CallbackAddr, st.GetString("callback_addr"))

	setString(&s.OAuth.ClientID, st.GetString("oauth.client_id"))
	setString(&s.OAuth.ClientSecret, st.GetString("oauth.client_secret"))
	setString(&s.OAuth.RedirectURI, st.GetString("oauth.redirect_uri"))
	if scopes := st.GetStringSlice("oauth.scopes"); len(scopes) > 0 {
		s.OAuth.Scopes = scopes
	}

	setString(&s.Groups.ServiceAccountFile, st.GetString("groups.service_account_file"))
	setString(&s.Groups.AdminEmail, st.GetString("groups.admin_email"))
	setString(&s.Groups.Domain, st.GetString("groups.domain"))

	setInt(&s.Sync.MaxFileSizeMB, st.GetInt("sync.max_file_size_mb"))
	setInt(&s.Sync.MaxFolderDepth, st.GetInt("sync.max_folder_depth"))
	if _, ok := st.Get("sync.include_group_shared"); ok {
		s.Sync.IncludeGroupShared = st.GetBool("sync.include_group_shared")
	}
	setDuration(&s.Sync.MetadataTimeout, st.GetDuration("sync.metadata_timeout"))
	setDuration(&s.Sync.DownloadTimeout, st.GetDuration("sync.download_timeout"))

	setString(&s.Ingest.URL, st.GetString("ingest.url"))
	setString(&s.Ingest.APIKey, st.GetString("ingest.api_key"))
	setDuration(&s.Ingest.Timeout, st.GetDuration("ingest.timeout"))

	if b := st.GetString("blob.backend"); b != "" {
		s.Blob.Backend = domain.BlobBackend(b)
	}
	setString(&s.Blob.Dir, st.GetString("blob.dir"))
	setString(&s.Blob.Bucket, st.GetString("blob.bucket"))

	if b := st.GetString(settingsSecretsBackend); b != "" {
		s.Secrets.Backend = domain.SecretsBackend(b)
	}
	setString(&s.Secrets.Prefix, st.GetString("secrets.prefix"))

	if _, ok := st.Get("scheduler.enabled"); ok {
		s.Scheduler.Enabled = st.GetBool("scheduler.enabled")
	}
	setDuration(&s.Scheduler.SyncInterval, st.GetDuration("scheduler.sync_interval"))
	setDuration(&s.Scheduler.CleanupInterval, st.GetDuration("scheduler.cleanup_interval"))
	setDuration(&s.Scheduler.FailedRetention, st.GetDuration("scheduler.failed_retention"))
	setDuration(&s.Scheduler.TempTokenTTL, st.GetDuration("scheduler.temp_token_ttl"))
}

// envLookup layers the dotenv file beneath the process environment.
func (l *Loader) envLookup() (func(string) (string, bool), error) {
	if l.envFile == "" {
		return l.lookup, nil
	}
	dotenv, err := godotenv.Read(l.envFile)
	if errors.Is(err, fs.ErrNotExist) {
		return l.lookup, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, l.envFile, err)
	}
	logger.Debug("loaded %d values from %s", len(dotenv), l.envFile)

	return func(key string) (string, bool) {
		if v, ok := l.lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func applyEnv(s *domain.Settings, lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	setString(&s.OAuth.ClientID, get(EnvGoogleClientID))
	setString(&s.OAuth.ClientSecret, get(EnvGoogleClientSecret))
	setString(&s.OAuth.RedirectURI, get(EnvGoogleRedirectURI))
	setString(&s.EncryptionKey, get(EnvEncryptionKey))
	setString(&s.Groups.ServiceAccountFile, get(EnvServiceAccountFile))
	setString(&s.Groups.AdminEmail, get(EnvAdminEmail))
	setString(&s.Groups.Domain, get(EnvGroupDomain))
	setString(&s.Ingest.URL, get(EnvIngestURL))
	setString(&s.Ingest.APIKey, get(EnvIngestAPIKey))
	setString(&s.Blob.Dir, get(EnvBlobDir))
	setString(&s.Blob.Bucket, get(EnvS3Bucket))
	setString(&s.DataDir, get(EnvDataDir))
	setString(&s.CallbackAddr, get(EnvCallbackAddr))

	if v := get(EnvBlobBackend); v != "" {
		s.Blob.Backend = domain.BlobBackend(strings.ToLower(v))
	}
	if v := get(EnvSecretsBackend); v != "" {
		s.Secrets.Backend = domain.SecretsBackend(strings.ToLower(v))
	}
	if v := get(EnvMaxFileSizeMB); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", domain.ErrConfiguration, EnvMaxFileSizeMB, v)
		}
		s.Sync.MaxFileSizeMB = n
	}
	return nil
}

func (l *Loader) applySecrets(ctx context.Context, s *domain.Settings) error {
	if !s.Secrets.Backend.IsValid() {
		return fmt.Errorf("%w: unknown secrets backend %q", domain.ErrConfiguration, s.Secrets.Backend)
	}
	r, err := l.resolver(ctx, s.Secrets.Backend)
	if err != nil {
		return err
	}
	return secret.Apply(ctx, r, s.Secrets.Prefix, s)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
