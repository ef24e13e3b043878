package models

import "time"

// Event types
const (
	EventTypeListingsScraped = "LISTINGS_SCRAPED"
	EventTypeDetailScraped   = "DETAIL_SCRAPED"
	EventTypeExportRequested = "EXPORT_REQUESTED"
	EventTypeProductExported = "PRODUCT_EXPORTED"
	EventTypeBatchExported   = "BATCH_EXPORTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingsScrapedEvent is published by the scraper after a profile page pass
type ListingsScrapedEvent struct {
	BaseEvent
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Listings    []Listing `json:"listings"`
	FullPass    bool      `json:"full_pass"`
}

// DetailScrapedEvent is published by the scraper after visiting a listing page
type DetailScrapedEvent struct {
	BaseEvent
	Username string `json:"username"`
	Detail   Detail `json:"detail"`
}

// ExportRequestedEvent asks for products of a profile to be synchronized
type ExportRequestedEvent struct {
	BaseEvent
	Username   string   `json:"username"`
	ListingIDs []string `json:"listing_ids,omitempty"`
	Overwrite  *bool    `json:"overwrite,omitempty"`
}

// ProductExportedEvent reports the outcome of one product synchronization
type ProductExportedEvent struct {
	BaseEvent
	Username  string `json:"username"`
	ListingID string `json:"listing_id"`
	Outcome   string `json:"outcome"`
	RemoteID  int64  `json:"remote_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchExportedEvent summarizes a batch synchronization
type BatchExportedEvent struct {
	BaseEvent
	Username  string `json:"username"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Archived  int    `json:"archived"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
}
