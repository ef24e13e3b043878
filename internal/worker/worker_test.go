package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"listing-sync/internal/api"
	"listing-sync/internal/catalog"
	"listing-sync/internal/models"
	"listing-sync/internal/service"
	"listing-sync/internal/store"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	created []string
}

func (s *stubCatalog) SearchByName(ctx context.Context, title string) (int64, bool, error) {
	return 0, false, nil
}

func (s *stubCatalog) Create(ctx context.Context, payload *catalog.ProductPayload) (int64, error) {
	s.created = append(s.created, payload.Name)
	return int64(len(s.created)), nil
}

func (s *stubCatalog) Update(ctx context.Context, id int64, payload *catalog.ProductPayload) error {
	return nil
}

func (s *stubCatalog) Archive(ctx context.Context, ids []int64) error {
	return nil
}

type stubMapper struct{}

func (stubMapper) ToPayload(ctx context.Context, product models.Product) (*catalog.ProductPayload, error) {
	return &catalog.ProductPayload{Name: product.Title}, nil
}

type workerFixture struct {
	worker   *ScrapeWorker
	listings *service.ListingService
	client   *stubCatalog
	locker   *store.LocalLocker
}

func newWorkerFixture() *workerFixture {
	kv := store.NewMemoryKV()
	listings := service.NewListingService(store.NewProfileStore(kv))
	settings := store.NewSettingsStore(kv, models.CatalogSettings{BaseURL: "https://shop.example"})
	client := &stubCatalog{}
	locker := store.NewLocalLocker()
	orchestrator := service.NewSyncOrchestrator(listings, settings,
		func(settings models.CatalogSettings, overwrite bool) *service.Synchronizer {
			return service.NewSynchronizer(client, stubMapper{}, overwrite)
		},
		locker, nil, true)

	return &workerFixture{
		worker:   NewScrapeWorker(nil, api.NewDispatcher(listings, settings, orchestrator)),
		listings: listings,
		client:   client,
		locker:   locker,
	}
}

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestListingsAndDetailEvents(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture()

	err := f.worker.HandleMessage(ctx, message(t, models.ListingsScrapedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeListingsScraped, Timestamp: time.Now()},
		Username:  "trains75",
		Listings: []models.Listing{
			{ID: "1", Title: "Wagon Jouef", Price: 20, State: models.ListingStateActive},
			{ID: "2", Title: "Wagon Lima", Price: 25, State: models.ListingStateActive},
		},
	}))
	require.NoError(t, err)

	err = f.worker.HandleMessage(ctx, message(t, models.DetailScrapedEvent{
		BaseEvent: models.BaseEvent{EventID: "e2", EventType: models.EventTypeDetailScraped},
		Username:  "trains75",
		Detail:    models.Detail{ID: "1", Description: "Bon état"},
	}))
	require.NoError(t, err)

	products, err := f.listings.GetProducts(ctx, "trains75")
	require.NoError(t, err)
	require.Len(t, products, 2)

	exists, err := f.listings.DetailsExist(ctx, "trains75", "1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFullPassEventMarksRemoved(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture()

	_, err := f.listings.SaveListings(ctx, "trains75", "", []models.Listing{
		{ID: "1", Title: "Wagon Jouef", State: models.ListingStateActive},
		{ID: "2", Title: "Wagon Lima", State: models.ListingStateActive},
	}, false)
	require.NoError(t, err)

	err = f.worker.HandleMessage(ctx, message(t, models.ListingsScrapedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeListingsScraped},
		Username:  "trains75",
		Listings:  []models.Listing{{ID: "1", Title: "Wagon Jouef", State: models.ListingStateActive}},
		FullPass:  true,
	}))
	require.NoError(t, err)

	product, err := f.listings.GetProduct(ctx, "trains75", "2")
	require.NoError(t, err)
	assert.Equal(t, models.ListingStateRemoved, product.State)
}

func TestDetailForUnknownListingFails(t *testing.T) {
	f := newWorkerFixture()

	err := f.worker.HandleMessage(context.Background(), message(t, models.DetailScrapedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeDetailScraped},
		Username:  "trains75",
		Detail:    models.Detail{ID: "1"},
	}))
	assert.ErrorIs(t, err, store.ErrProfileNotFound)
}

func TestExportRequestedEvent(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture()

	_, err := f.listings.SaveListings(ctx, "trains75", "", []models.Listing{
		{ID: "1", Title: "Wagon Jouef", State: models.ListingStateActive},
	}, false)
	require.NoError(t, err)

	request := message(t, models.ExportRequestedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeExportRequested},
		Username:  "trains75",
	})
	require.NoError(t, f.worker.HandleMessage(ctx, request))
	assert.Equal(t, []string{"Wagon Jouef"}, f.client.created)

	_, ok, err := f.locker.AcquireLock(ctx, "export:trains75", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, f.worker.HandleMessage(ctx, request))
	assert.Len(t, f.client.created, 1)
}
