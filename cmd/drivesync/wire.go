package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aganswers/drivesync/internal/adapters/driven/blob"
	"github.com/aganswers/drivesync/internal/adapters/driven/config/file"
	"github.com/aganswers/drivesync/internal/adapters/driven/oauth"
	"github.com/aganswers/drivesync/internal/adapters/driven/pipeline"
	"github.com/aganswers/drivesync/internal/adapters/driven/storage/memory"
	"github.com/aganswers/drivesync/internal/adapters/driven/storage/sqlite"
	"github.com/aganswers/drivesync/internal/adapters/driven/vault"
	"github.com/aganswers/drivesync/internal/adapters/driving/cli"
	"github.com/aganswers/drivesync/internal/connectors/google"
	"github.com/aganswers/drivesync/internal/connectors/google/drive"
	"github.com/aganswers/drivesync/internal/connectors/google/groups"
	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/core/services"
	"github.com/aganswers/drivesync/internal/logger"
	"github.com/aganswers/drivesync/internal/retry"
)

// stores groups the persistence ports.
type stores struct {
	projects     driven.ProjectStore
	integrations driven.IntegrationStore
	tempTokens   driven.TempTokenStore
	selections   driven.SelectionStore
	records      driven.IngestionStore
	scheduler    driven.SchedulerStore
	close        func() error
}

// bootstrap loads settings and wires every adapter into the services.
// Components whose settings are missing are left nil; the first such
// problem is reported through Services.Err.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	loader, err := file.NewLoader(opts.ConfigFile, file.WithDataDir(opts.DataDir))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settings, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := openStores(settings.DataDir)
	if err != nil {
		return nil, err
	}

	var problems []error
	note := func(component string, err error) {
		logger.Debug("%s unavailable: %v", component, err)
		problems = append(problems, err)
	}
	if err := settings.Validate(); err != nil {
		note("settings", err)
	}

	transport := &retry.Transport{Policy: retry.DefaultPolicy()}

	var tokens driving.TokenManager
	if tm, err := newTokenManager(settings, st); err != nil {
		note("token manager", err)
	} else {
		tokens = tm
	}

	var lister driving.DriveLister
	if tokens != nil {
		lister = services.NewDriveListingService(tokens, drive.NewFiles(transport).WithTimeout(settings.Sync.MetadataTimeout))
	}

	var (
		directory driven.GroupDirectory
		content   driven.ContentFetcher
	)
	if gc, err := newGroupClient(ctx, settings, transport); err != nil {
		note("group directory", err)
	} else {
		directory, content = gc, gc
	}

	var blobs driven.BlobStore
	if b, err := newBlobStore(ctx, settings.Blob); err != nil {
		note("blob store", err)
	} else {
		blobs = b
	}

	var submitter driven.IngestionPipeline
	if p, err := pipeline.NewClient(settings.Ingest, nil); err != nil {
		note("ingestion pipeline", err)
	} else {
		submitter = p
	}

	orch := services.NewSyncOrchestrator(st.projects, st.integrations, st.selections, st.records,
		lister, content, directory, blobs, submitter, services.SyncConfigFromSettings(settings))

	svc := &cli.Services{
		Settings:   settings,
		Config:     loader.Store(),
		Tokens:     tokens,
		Lister:     lister,
		Projects:   services.NewProjectService(st.projects, directory),
		Selections: services.NewSelectionService(st.projects, st.integrations, st.selections, orch),
		Sync:       orch,
		Tracker:    orch,
		Scheduler:  services.NewScheduler(settings.SchedulerConfig(), st.scheduler, orch, orch, tokens),
		Close:      st.close,
		Err:        errors.Join(problems...),
	}
	return svc, nil
}

func openStores(dataDir string) (*stores, error) {
	if dataDir == domain.InMemoryDataDir {
		return &stores{
			projects:     memory.NewProjectStore(),
			integrations: memory.NewIntegrationStore(),
			tempTokens:   memory.NewTempTokenStore(),
			selections:   memory.NewSelectionStore(),
			records:      memory.NewIngestionStore(),
			scheduler:    memory.NewSchedulerStore(),
			close:        func() error { return nil },
		}, nil
	}

	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &stores{
		projects:     db.ProjectStore(),
		integrations: db.IntegrationStore(),
		tempTokens:   db.TempTokenStore(),
		selections:   db.SelectionStore(),
		records:      db.IngestionStore(),
		scheduler:    db.SchedulerStore(),
		close:        db.Close,
	}, nil
}

func newTokenManager(s domain.Settings, st *stores) (*services.TokenManager, error) {
	v, err := vault.New(s.EncryptionKey)
	if err != nil {
		return nil, err
	}
	exchanger, err := oauth.NewExchanger(s.OAuth, oauth.WithTimeout(s.Sync.MetadataTimeout))
	if err != nil {
		return nil, err
	}
	return services.NewTokenManager(st.projects, st.integrations, st.tempTokens, v, exchanger,
		s.Scheduler.TempTokenTTL), nil
}

func newGroupClient(ctx context.Context, s domain.Settings, transport http.RoundTripper) (*groups.Client, error) {
	if !s.Groups.IsConfigured() {
		return nil, fmt.Errorf("%w: GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_ADMIN_EMAIL and GOOGLE_GROUP_DOMAIN are required",
			domain.ErrConfiguration)
	}
	client, err := google.NewServiceAccountClient(ctx, s.Groups.ServiceAccountFile, s.Groups.AdminEmail,
		&http.Client{Transport: transport, Timeout: s.Sync.DownloadTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	svcs, err := google.NewServices(ctx, client)
	if err != nil {
		return nil, err
	}
	return groups.NewClientFromServices(svcs, groups.Config{
		AdminEmail:      s.Groups.AdminEmail,
		Domain:          s.Groups.Domain,
		MaxFileSize:     s.Sync.MaxFileSizeBytes(),
		Policy:          groups.DefaultGroupPolicy(),
		MetadataTimeout: s.Sync.MetadataTimeout,
		DownloadTimeout: s.Sync.DownloadTimeout,
	}), nil
}

func newBlobStore(ctx context.Context, b domain.BlobSettings) (driven.BlobStore, error) {
	switch b.Backend {
	case domain.BlobBackendS3:
		return blob.NewDefaultS3Store(ctx, b.Bucket)
	case domain.BlobBackendFS:
		if b.Dir == "" {
			return nil, fmt.Errorf("%w: BLOB_DIR is required with an in-memory data dir", domain.ErrConfiguration)
		}
		return blob.NewFSStore(b.Dir)
	default:
		return nil, fmt.Errorf("%w: unknown blob backend %q", domain.ErrConfiguration, b.Backend)
	}
}
