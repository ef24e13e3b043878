package service

import (
	"context"
	"fmt"
	"time"

	"listing-sync/internal/catalog"
	"listing-sync/internal/models"
	"listing-sync/internal/util"

	"go.uber.org/zap"
)

// ExportOutcome is the terminal action taken for one product
type ExportOutcome string

// Export outcomes
const (
	OutcomeCreated   ExportOutcome = "created"
	OutcomeUpdated   ExportOutcome = "updated"
	OutcomeArchived  ExportOutcome = "archived"
	OutcomeUnchanged ExportOutcome = "unchanged"
	OutcomeFailed    ExportOutcome = "failed"
)

// ExportResult is the outcome of synchronizing one product
type ExportResult struct {
	ListingID string        `json:"listingId"`
	Outcome   ExportOutcome `json:"outcome"`
	RemoteID  *int64        `json:"remoteId,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Success reports whether the product reached a terminal non-failure action
func (r ExportResult) Success() bool {
	return r.Outcome != OutcomeFailed
}

// ProductError pairs a failed product with its error message
type ProductError struct {
	ProductID string `json:"productId"`
	Error     string `json:"error"`
}

// BatchResult aggregates the outcomes of a batch synchronization
type BatchResult struct {
	Success   bool           `json:"success"`
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Archived  int            `json:"archived"`
	Unchanged int            `json:"unchanged"`
	Errors    []ProductError `json:"errors"`
	Results   []ExportResult `json:"results"`
}

func (b *BatchResult) add(r ExportResult) {
	b.Results = append(b.Results, r)
	switch r.Outcome {
	case OutcomeCreated:
		b.Created++
	case OutcomeUpdated:
		b.Updated++
	case OutcomeArchived:
		b.Archived++
	case OutcomeUnchanged:
		b.Unchanged++
	case OutcomeFailed:
		b.Errors = append(b.Errors, ProductError{ProductID: r.ListingID, Error: r.Error})
	}
	b.Success = len(b.Errors) == 0
}

// CatalogClient is the remote catalog surface used for synchronization
type CatalogClient interface {
	SearchByName(ctx context.Context, title string) (int64, bool, error)
	Create(ctx context.Context, payload *catalog.ProductPayload) (int64, error)
	Update(ctx context.Context, id int64, payload *catalog.ProductPayload) error
	Archive(ctx context.Context, ids []int64) error
}

// PayloadMapper builds catalog payloads
type PayloadMapper interface {
	ToPayload(ctx context.Context, product models.Product) (*catalog.ProductPayload, error)
}

// Synchronizer decides and executes the catalog action for products
type Synchronizer struct {
	client    CatalogClient
	mapper    PayloadMapper
	overwrite bool
	logger    *zap.Logger
}

// NewSynchronizer creates a synchronizer; overwrite controls whether active
// products already present in the catalog are updated or left alone
func NewSynchronizer(client CatalogClient, mapper PayloadMapper, overwrite bool) *Synchronizer {
	return &Synchronizer{
		client:    client,
		mapper:    mapper,
		overwrite: overwrite,
		logger:    util.GetLogger(),
	}
}

// Sync runs the search then create/update/archive/skip decision for one product.
// Errors are captured in the result rather than returned.
func (s *Synchronizer) Sync(ctx context.Context, product models.Product) ExportResult {
	ctx, span := util.StartSpan(ctx, "Synchronizer.Sync")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CatalogExportLatency.Observe(time.Since(start).Seconds())
	}()

	product.Title = NormalizeTitle(product.Title)
	s.logger.Info("Processing product",
		zap.String("listing_id", product.ID),
		zap.String("title", product.Title))

	result, err := s.sync(ctx, product)
	if err != nil {
		s.logger.Error("Product synchronization failed",
			zap.String("listing_id", product.ID),
			zap.Error(err))
		result = ExportResult{ListingID: product.ID, Outcome: OutcomeFailed, Error: err.Error()}
	}

	util.CatalogExportsTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result
}

func (s *Synchronizer) sync(ctx context.Context, product models.Product) (ExportResult, error) {
	result := ExportResult{ListingID: product.ID}

	remoteID, found, err := s.client.SearchByName(ctx, product.Title)
	if err != nil {
		return result, fmt.Errorf("failed to search product: %w", err)
	}

	if !found {
		payload, err := s.mapper.ToPayload(ctx, product)
		if err != nil {
			return result, err
		}
		id, err := s.client.Create(ctx, payload)
		if err != nil {
			return result, fmt.Errorf("failed to create product: %w", err)
		}
		result.Outcome = OutcomeCreated
		result.RemoteID = &id
		return result, nil
	}

	result.RemoteID = &remoteID

	switch {
	case product.State == models.ListingStateSold || product.State == models.ListingStateRemoved:
		if err := s.client.Archive(ctx, []int64{remoteID}); err != nil {
			return result, fmt.Errorf("failed to archive product: %w", err)
		}
		result.Outcome = OutcomeArchived

	case !s.overwrite:
		result.Outcome = OutcomeUnchanged

	default:
		payload, err := s.mapper.ToPayload(ctx, product)
		if err != nil {
			return result, err
		}
		if err := s.client.Update(ctx, remoteID, payload); err != nil {
			return result, fmt.Errorf("failed to update product: %w", err)
		}
		result.Outcome = OutcomeUpdated
	}
	return result, nil
}

// SyncBatch synchronizes products one at a time in order; a failure does
// not stop the batch. onResult, when set, is called after each product.
func (s *Synchronizer) SyncBatch(ctx context.Context, products []models.Product, onResult func(models.Product, ExportResult)) BatchResult {
	batch := BatchResult{Success: true, Errors: []ProductError{}, Results: make([]ExportResult, 0, len(products))}
	for _, product := range products {
		result := s.Sync(ctx, product)
		batch.add(result)
		if onResult != nil {
			onResult(product, result)
		}
	}

	s.logger.Info("Batch synchronization finished",
		zap.Int("created", batch.Created),
		zap.Int("updated", batch.Updated),
		zap.Int("archived", batch.Archived),
		zap.Int("unchanged", batch.Unchanged),
		zap.Int("failed", len(batch.Errors)))
	return batch
}
