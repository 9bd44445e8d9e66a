package domain

import (
	"fmt"
	"time"
)

// Default Drive OAuth scopes requested at consent.
var DefaultDriveScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/drive.metadata.readonly",
}

// InMemoryDataDir selects the in-memory stores instead of SQLite.
const InMemoryDataDir = ":memory:"

// BlobBackend selects where staged blobs are written.
type BlobBackend string

// Available blob backends.
const (
	BlobBackendFS BlobBackend = "fs"
	BlobBackendS3 BlobBackend = "s3"
)

// IsValid returns true if the blob backend is recognised.
func (b BlobBackend) IsValid() bool {
	return b == BlobBackendFS || b == BlobBackendS3
}

// SecretsBackend selects where secret settings are resolved from.
type SecretsBackend string

// Available secrets backends.
const (
	SecretsBackendEnv SecretsBackend = "env"
	SecretsBackendSSM SecretsBackend = "ssm"
)

// IsValid returns true if the secrets backend is recognised.
func (b SecretsBackend) IsValid() bool {
	return b == SecretsBackendEnv || b == SecretsBackendSSM
}

// OAuthSettings holds the Drive OAuth client configuration.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// IsConfigured returns true if the OAuth client can run a consent flow.
func (o OAuthSettings) IsConfigured() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.RedirectURI != ""
}

// GroupSettings holds the service-account configuration used for
// Google Group provisioning.
type GroupSettings struct {
	ServiceAccountFile string
	AdminEmail         string
	Domain             string
}

// IsConfigured returns true if group provisioning can run.
func (g GroupSettings) IsConfigured() bool {
	return g.ServiceAccountFile != "" && g.AdminEmail != "" && g.Domain != ""
}

// SyncSettings tunes the sync orchestrator.
type SyncSettings struct {
	// MaxFileSizeMB is the per-file size ceiling.
	MaxFileSizeMB int
	// MaxFolderDepth bounds folder expansion. One means direct children only.
	MaxFolderDepth int
	// IncludeGroupShared adds files shared with the project group.
	IncludeGroupShared bool
	// MetadataTimeout bounds each listing, metadata, directory and token call.
	MetadataTimeout time.Duration
	// DownloadTimeout bounds each file download or export.
	DownloadTimeout time.Duration
}

// MaxFileSizeBytes returns the size ceiling in bytes.
func (s SyncSettings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// IngestSettings locates the downstream ingestion pipeline.
type IngestSettings struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// BlobSettings configures staged blob storage.
type BlobSettings struct {
	Backend BlobBackend
	Dir     string
	Bucket  string
}

// SecretSettings configures secret resolution.
type SecretSettings struct {
	Backend SecretsBackend
	// Prefix is the parameter path prefix for the SSM backend.
	Prefix string
}

// SchedulerSettings configures the background scheduler and retention.
type SchedulerSettings struct {
	Enabled         bool
	SyncInterval    time.Duration
	CleanupInterval time.Duration
	// FailedRetention is how long failed ingestion records are kept.
	FailedRetention time.Duration
	// TempTokenTTL is how long an unattached temporary token stays valid.
	TempTokenTTL time.Duration
}

// Settings holds all application settings.
type Settings struct {
	DataDir       string
	EncryptionKey string
	CallbackAddr  string
	OAuth         OAuthSettings
	Groups        GroupSettings
	Sync          SyncSettings
	Ingest        IngestSettings
	Blob          BlobSettings
	Secrets       SecretSettings
	Scheduler     SchedulerSettings
}

// DefaultSettings returns settings with sensible defaults.
// Credentials are left empty and must come from the environment.
func DefaultSettings() Settings {
	return Settings{
		CallbackAddr: "127.0.0.1:8085",
		OAuth: OAuthSettings{
			Scopes: DefaultDriveScopes,
		},
		Sync: SyncSettings{
			MaxFileSizeMB:      40,
			MaxFolderDepth:     1,
			IncludeGroupShared: true,
			MetadataTimeout:    30 * time.Second,
			DownloadTimeout:    5 * time.Minute,
		},
		Ingest: IngestSettings{
			Timeout: 30 * time.Second,
		},
		Blob: BlobSettings{
			Backend: BlobBackendFS,
		},
		Secrets: SecretSettings{
			Backend: SecretsBackendEnv,
			Prefix:  "/drivesync",
		},
		Scheduler: SchedulerSettings{
			Enabled:         true,
			SyncInterval:    1 * time.Hour,
			CleanupInterval: 24 * time.Hour,
			FailedRetention: 30 * 24 * time.Hour,
			TempTokenTTL:    1 * time.Hour,
		},
	}
}

// Validate checks settings that every command depends on.
func (s Settings) Validate() error {
	if s.EncryptionKey == "" {
		return fmt.Errorf("%w: DRIVE_TOKEN_ENCRYPTION_KEY is not set", ErrConfiguration)
	}
	if !s.Blob.Backend.IsValid() {
		return fmt.Errorf("%w: unknown blob backend %q", ErrConfiguration, s.Blob.Backend)
	}
	if s.Blob.Backend == BlobBackendS3 && s.Blob.Bucket == "" {
		return fmt.Errorf("%w: S3_BUCKET_NAME is required for the s3 blob backend", ErrConfiguration)
	}
	if !s.Secrets.Backend.IsValid() {
		return fmt.Errorf("%w: unknown secrets backend %q", ErrConfiguration, s.Secrets.Backend)
	}
	if s.Sync.MaxFileSizeMB <= 0 {
		return fmt.Errorf("%w: max file size must be positive", ErrConfiguration)
	}
	if s.Sync.MaxFolderDepth < 1 {
		return fmt.Errorf("%w: max folder depth must be at least 1", ErrConfiguration)
	}
	if s.Sync.MetadataTimeout <= 0 || s.Sync.DownloadTimeout <= 0 {
		return fmt.Errorf("%w: sync timeouts must be positive", ErrConfiguration)
	}
	return nil
}

// SchedulerConfig derives the task configuration from the settings.
func (s Settings) SchedulerConfig() SchedulerConfig {
	cfg := DefaultSchedulerConfig()
	cfg.Enabled = s.Scheduler.Enabled
	cfg.withInterval(TaskIDDriveSync, s.Scheduler.SyncInterval)
	cfg.withInterval(TaskIDIngestionCleanup, s.Scheduler.CleanupInterval)
	cfg.withInterval(TaskIDTempTokenCleanup, s.Scheduler.TempTokenTTL)
	return cfg
}
