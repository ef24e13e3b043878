package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"listing-sync/internal/models"
	"listing-sync/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes export outcome events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func sellerKey(username string) string {
	return "seller-" + username
}

// PublishProductExported publishes ProductExported event
func (ep *EventPublisher) PublishProductExported(ctx context.Context, event *models.ProductExportedEvent) error {
	return ep.producer.PublishEvent(ctx, sellerKey(event.Username), event)
}

// PublishBatchExported publishes BatchExported event
func (ep *EventPublisher) PublishBatchExported(ctx context.Context, event *models.BatchExportedEvent) error {
	return ep.producer.PublishEvent(ctx, sellerKey(event.Username), event)
}

// EventHandler routes scraper and export request events
type EventHandler struct {
	onListingsScraped func(context.Context, *models.ListingsScrapedEvent) error
	onDetailScraped   func(context.Context, *models.DetailScrapedEvent) error
	onExportRequested func(context.Context, *models.ExportRequestedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnListingsScraped registers a handler for ListingsScraped events
func (eh *EventHandler) OnListingsScraped(handler func(context.Context, *models.ListingsScrapedEvent) error) {
	eh.onListingsScraped = handler
}

// OnDetailScraped registers a handler for DetailScraped events
func (eh *EventHandler) OnDetailScraped(handler func(context.Context, *models.DetailScrapedEvent) error) {
	eh.onDetailScraped = handler
}

// OnExportRequested registers a handler for ExportRequested events
func (eh *EventHandler) OnExportRequested(handler func(context.Context, *models.ExportRequestedEvent) error) {
	eh.onExportRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeListingsScraped:
		if eh.onListingsScraped != nil {
			var event models.ListingsScrapedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ListingsScraped event: %w", err)
			}
			return eh.onListingsScraped(ctx, &event)
		}

	case models.EventTypeDetailScraped:
		if eh.onDetailScraped != nil {
			var event models.DetailScrapedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DetailScraped event: %w", err)
			}
			return eh.onDetailScraped(ctx, &event)
		}

	case models.EventTypeExportRequested:
		if eh.onExportRequested != nil {
			var event models.ExportRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ExportRequested event: %w", err)
			}
			return eh.onExportRequested(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
