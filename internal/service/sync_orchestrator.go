package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-sync/internal/catalog"
	"listing-sync/internal/models"
	"listing-sync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	exportLockTTL = 30 * time.Minute
	// recordTimeout bounds status writes and event publishes after an export
	recordTimeout = 10 * time.Second
)

// ErrExportInProgress is returned when another export holds the seller's lock
var ErrExportInProgress = errors.New("export already in progress")

// ProductRepository is the profile data the orchestrator reads and writes
type ProductRepository interface {
	GetProducts(ctx context.Context, username string) ([]models.Product, error)
	GetProduct(ctx context.Context, username, listingID string) (models.Product, error)
	RecordExportStatus(ctx context.Context, username, listingID string, status models.ExportStatus) error
}

// SettingsProvider returns the current catalog connection settings
type SettingsProvider interface {
	GetCatalogSettings(ctx context.Context) (models.CatalogSettings, error)
}

// Locker guards a seller against concurrent exports. AcquireLock returns an
// owner token and ReleaseLock only frees a lock still held under that token.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// ExportPublisher publishes export outcomes
type ExportPublisher interface {
	PublishProductExported(ctx context.Context, event *models.ProductExportedEvent) error
	PublishBatchExported(ctx context.Context, event *models.BatchExportedEvent) error
}

// SessionFactory builds a synchronizer for one export call. Reference ids
// resolved during the call are cached only for that call.
type SessionFactory func(settings models.CatalogSettings, overwrite bool) *Synchronizer

// CatalogSessionConfig holds what a catalog session needs besides settings
type CatalogSessionConfig struct {
	Doer       catalog.Doer
	Images     ImageSource
	Vocabulary Vocabulary
	Mapper     MapperConfig
	UserAgent  string
}

// NewCatalogSessionFactory returns a factory wiring the HTTP catalog client,
// a fresh Resolver and a Mapper into a Synchronizer
func NewCatalogSessionFactory(cfg CatalogSessionConfig) SessionFactory {
	return func(settings models.CatalogSettings, overwrite bool) *Synchronizer {
		client := catalog.NewClient(cfg.Doer, settings, catalog.WithUserAgent(cfg.UserAgent))
		resolver := NewResolver(client, cfg.Vocabulary)
		mapper := NewMapper(resolver, cfg.Images, cfg.Mapper)
		return NewSynchronizer(client, mapper, overwrite)
	}
}

// SyncOrchestrator exports stored products to the remote catalog and
// records the outcome of every attempt
type SyncOrchestrator struct {
	products   ProductRepository
	settings   SettingsProvider
	newSession SessionFactory
	locker     Locker
	publisher  ExportPublisher
	overwrite  bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewSyncOrchestrator creates a new sync orchestrator; locker and publisher may be nil
func NewSyncOrchestrator(
	products ProductRepository,
	settings SettingsProvider,
	newSession SessionFactory,
	locker Locker,
	publisher ExportPublisher,
	overwrite bool,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		products:   products,
		settings:   settings,
		newSession: newSession,
		locker:     locker,
		publisher:  publisher,
		overwrite:  overwrite,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// ExportProduct synchronizes one listing of a seller
func (so *SyncOrchestrator) ExportProduct(ctx context.Context, username, listingID string, overwrite *bool) (ExportResult, error) {
	ctx, span := util.StartSpan(ctx, "SyncOrchestrator.ExportProduct")
	defer span.End()

	product, err := so.products.GetProduct(ctx, username, listingID)
	if err != nil {
		return ExportResult{}, err
	}

	release, err := so.lock(ctx, username)
	if err != nil {
		return ExportResult{}, err
	}
	defer release()

	session, err := so.session(ctx, overwrite)
	if err != nil {
		return ExportResult{}, err
	}

	result := session.Sync(ctx, product)
	so.record(ctx, username, result)
	return result, nil
}

// ExportProducts synchronizes the given listings, or every listing of the
// seller when listingIDs is empty, one at a time
func (so *SyncOrchestrator) ExportProducts(ctx context.Context, username string, listingIDs []string, overwrite *bool) (*BatchResult, error) {
	ctx, span := util.StartSpan(ctx, "SyncOrchestrator.ExportProducts")
	defer span.End()

	products, err := so.selectProducts(ctx, username, listingIDs)
	if err != nil {
		return nil, err
	}

	release, err := so.lock(ctx, username)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := so.session(ctx, overwrite)
	if err != nil {
		return nil, err
	}

	so.logger.Info("Starting batch export",
		zap.String("username", username),
		zap.Int("products", len(products)))

	batch := session.SyncBatch(ctx, products, func(_ models.Product, result ExportResult) {
		so.record(ctx, username, result)
	})

	so.publishBatch(ctx, username, &batch)
	return &batch, nil
}

func (so *SyncOrchestrator) selectProducts(ctx context.Context, username string, listingIDs []string) ([]models.Product, error) {
	if len(listingIDs) == 0 {
		return so.products.GetProducts(ctx, username)
	}

	products := make([]models.Product, 0, len(listingIDs))
	for _, id := range listingIDs {
		product, err := so.products.GetProduct(ctx, username, id)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

func (so *SyncOrchestrator) session(ctx context.Context, overwrite *bool) (*Synchronizer, error) {
	settings, err := so.settings.GetCatalogSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL is not configured")
	}

	ow := so.overwrite
	if overwrite != nil {
		ow = *overwrite
	}
	return so.newSession(settings, ow), nil
}

func (so *SyncOrchestrator) lock(ctx context.Context, username string) (func(), error) {
	if so.locker == nil {
		return func() {}, nil
	}

	key := "export:" + username
	token, ok, err := so.locker.AcquireLock(ctx, key, exportLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire export lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrExportInProgress, username)
	}

	return func() {
		if err := so.locker.ReleaseLock(context.Background(), key, token); err != nil {
			so.logger.Error("Failed to release export lock", zap.String("username", username), zap.Error(err))
		}
	}, nil
}

// detached keeps the values of ctx but not its cancellation, so an outcome
// the catalog already applied is still recorded after the caller goes away
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
}

// record persists the export status and publishes the outcome; failures
// here are logged and never change the export result
func (so *SyncOrchestrator) record(ctx context.Context, username string, result ExportResult) {
	ctx, cancel := detached(ctx)
	defer cancel()

	status := models.ExportStatus{
		Exported:       result.Success(),
		RemoteID:       result.RemoteID,
		LastExportedAt: so.now(),
		Error:          result.Error,
	}
	if err := so.products.RecordExportStatus(ctx, username, result.ListingID, status); err != nil {
		so.logger.Error("Failed to record export status",
			zap.String("username", username),
			zap.String("listing_id", result.ListingID),
			zap.Error(err))
	}

	if so.publisher == nil {
		return
	}

	event := &models.ProductExportedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductExported,
			Timestamp: so.now(),
		},
		Username:  username,
		ListingID: result.ListingID,
		Outcome:   string(result.Outcome),
		Error:     result.Error,
	}
	if result.RemoteID != nil {
		event.RemoteID = *result.RemoteID
	}
	if err := so.publisher.PublishProductExported(ctx, event); err != nil {
		so.logger.Error("Failed to publish ProductExported event", zap.Error(err))
	}
}

func (so *SyncOrchestrator) publishBatch(ctx context.Context, username string, batch *BatchResult) {
	if so.publisher == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()

	event := &models.BatchExportedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBatchExported,
			Timestamp: so.now(),
		},
		Username:  username,
		Created:   batch.Created,
		Updated:   batch.Updated,
		Archived:  batch.Archived,
		Unchanged: batch.Unchanged,
		Failed:    len(batch.Errors),
	}
	if err := so.publisher.PublishBatchExported(ctx, event); err != nil {
		so.logger.Error("Failed to publish BatchExported event", zap.Error(err))
	}
}
