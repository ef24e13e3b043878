package worker

import (
	"context"
	"errors"

	"listing-sync/internal/api"
	"listing-sync/internal/broker"
	"listing-sync/internal/models"
	"listing-sync/internal/service"
	"listing-sync/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ScrapeWorker applies scraper events and export requests read from Kafka
type ScrapeWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	dispatcher   *api.Dispatcher
	logger       *zap.Logger
}

// NewScrapeWorker creates a new scrape worker
func NewScrapeWorker(consumer *broker.Consumer, dispatcher *api.Dispatcher) *ScrapeWorker {
	w := &ScrapeWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		dispatcher:   dispatcher,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnListingsScraped(w.handleListingsScraped)
	w.eventHandler.OnDetailScraped(w.handleDetailScraped)
	w.eventHandler.OnExportRequested(w.handleExportRequested)
	return w
}

// Start starts the worker
func (w *ScrapeWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting scrape worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *ScrapeWorker) Stop() error {
	w.logger.Info("Stopping scrape worker")
	return w.consumer.Close()
}

// HandleMessage routes one Kafka message
func (w *ScrapeWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return w.eventHandler.HandleMessage(ctx, msg)
}

func (w *ScrapeWorker) handleListingsScraped(ctx context.Context, event *models.ListingsScrapedEvent) error {
	result, err := w.dispatcher.Dispatch(ctx, api.SaveListings{
		Username:    event.Username,
		DisplayName: event.DisplayName,
		Listings:    event.Listings,
		FullPass:    event.FullPass,
	})
	if err != nil {
		return err
	}

	saved := result.(*service.SaveResult)
	w.logger.Info("Applied scraped listings",
		zap.String("event_id", event.EventID),
		zap.String("username", event.Username),
		zap.Int("added", saved.Added),
		zap.Int("updated", saved.Updated),
		zap.Int("removed", saved.Removed))
	return nil
}

func (w *ScrapeWorker) handleDetailScraped(ctx context.Context, event *models.DetailScrapedEvent) error {
	_, err := w.dispatcher.Dispatch(ctx, api.SaveDetail{Username: event.Username, Detail: event.Detail})
	return err
}

// handleExportRequested drops requests for a seller whose export is running
func (w *ScrapeWorker) handleExportRequested(ctx context.Context, event *models.ExportRequestedEvent) error {
	_, err := w.dispatcher.Dispatch(ctx, api.ExportProducts{
		Username:   event.Username,
		ListingIDs: event.ListingIDs,
		Overwrite:  event.Overwrite,
	})
	if errors.Is(err, service.ErrExportInProgress) {
		w.logger.Warn("Export already running, request dropped",
			zap.String("event_id", event.EventID),
			zap.String("username", event.Username))
		return nil
	}
	return err
}
