package service

import (
	"context"
	"errors"
	"sync"

	"listing-sync/internal/catalog"
	"listing-sync/internal/models"
)

type fakeSearcher struct {
	mu    sync.Mutex
	ids   map[catalog.ReferenceKind]map[string][]int64
	err   error
	calls map[string]int
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		ids: map[catalog.ReferenceKind]map[string][]int64{
			catalog.ReferenceTag: {
				"Jouef": {1}, "Lima": {2}, "H0": {3}, "SNCF": {4},
			},
			catalog.ReferenceCategory:       {"Wagons": {10}, "Locomotives": {11}},
			catalog.ReferencePublicCategory: {"Wagons": {20}},
			catalog.ReferenceTax:            {"0% EXEMPT G": {30}},
		},
		calls: make(map[string]int),
	}
}

func (f *fakeSearcher) SearchReference(ctx context.Context, kind catalog.ReferenceKind, name string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[string(kind)+":"+name]++
	if f.err != nil {
		return nil, f.err
	}
	return f.ids[kind][name], nil
}

func (f *fakeSearcher) count(kind catalog.ReferenceKind, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[string(kind)+":"+name]
}

type fakeImages struct {
	data map[string]string
}

func (f *fakeImages) FetchBase64(ctx context.Context, url string) (string, error) {
	if v, ok := f.data[url]; ok {
		return v, nil
	}
	return "", &catalog.ImageFetchError{URL: url, Err: errors.New("status 404")}
}

// fakeCatalog records every call; remote holds titles already in the catalog
type fakeCatalog struct {
	remote     map[string]int64
	createErr  map[string]error
	searchErr  error
	nextID     int64
	searched   []string
	created    []*catalog.ProductPayload
	updated    map[int64]*catalog.ProductPayload
	archived   [][]int64
	updateErr  error
	archiveErr error
	// afterCreate runs once a create has succeeded
	afterCreate func()
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		remote:    make(map[string]int64),
		createErr: make(map[string]error),
		updated:   make(map[int64]*catalog.ProductPayload),
		nextID:    100,
	}
}

func (f *fakeCatalog) SearchByName(ctx context.Context, title string) (int64, bool, error) {
	f.searched = append(f.searched, title)
	if f.searchErr != nil {
		return 0, false, f.searchErr
	}
	id, ok := f.remote[title]
	return id, ok, nil
}

func (f *fakeCatalog) Create(ctx context.Context, payload *catalog.ProductPayload) (int64, error) {
	if err := f.createErr[payload.Name]; err != nil {
		return 0, err
	}
	f.created = append(f.created, payload)
	f.nextID++
	f.remote[payload.Name] = f.nextID
	if f.afterCreate != nil {
		f.afterCreate()
	}
	return f.nextID, nil
}

func (f *fakeCatalog) Update(ctx context.Context, id int64, payload *catalog.ProductPayload) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated[id] = payload
	return nil
}

func (f *fakeCatalog) Archive(ctx context.Context, ids []int64) error {
	if f.archiveErr != nil {
		return f.archiveErr
	}
	f.archived = append(f.archived, ids)
	return nil
}

// namePayloadMapper maps products without remote lookups
type namePayloadMapper struct {
	titles []string
}

func (m *namePayloadMapper) ToPayload(ctx context.Context, product models.Product) (*catalog.ProductPayload, error) {
	m.titles = append(m.titles, product.Title)
	return &catalog.ProductPayload{Name: product.Title, ListPrice: product.Price}, nil
}

type fakePublisher struct {
	products []*models.ProductExportedEvent
	batches  []*models.BatchExportedEvent
}

func (f *fakePublisher) PublishProductExported(ctx context.Context, event *models.ProductExportedEvent) error {
	f.products = append(f.products, event)
	return nil
}

func (f *fakePublisher) PublishBatchExported(ctx context.Context, event *models.BatchExportedEvent) error {
	f.batches = append(f.batches, event)
	return nil
}
