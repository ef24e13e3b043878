package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"listing-sync/internal/models"
	"listing-sync/internal/service"
	"listing-sync/internal/store"
)

// ErrInvalidRequest is returned when a request is missing required fields
var ErrInvalidRequest = errors.New("invalid request")

// Request is one of the commands or queries the Dispatcher accepts
type Request interface {
	request()
}

type (
	GetProfiles struct{}

	GetProfile struct {
		Username string
	}

	GetProducts struct {
		Username string
	}

	ListingExists struct {
		Username  string
		ListingID string
	}

	DetailsExist struct {
		Username  string
		ListingID string
	}

	SaveListings struct {
		Username    string
		DisplayName string
		Listings    []models.Listing
		FullPass    bool
	}

	SaveDetail struct {
		Username string
		Detail   models.Detail
	}

	MarkMissingAsRemoved struct {
		Username   string
		CurrentIDs []string
	}

	ExportProduct struct {
		Username  string
		ListingID string
		Overwrite *bool
	}

	// ExportProducts exports ListingIDs, or the whole profile when empty
	ExportProducts struct {
		Username   string
		ListingIDs []string
		Overwrite  *bool
	}

	DeleteProfile struct {
		Username string
	}

	ClearAll struct{}

	GetCatalogSettings struct{}

	SaveCatalogSettings struct {
		Settings models.CatalogSettings
	}
)

func (GetProfiles) request()          {}
func (GetProfile) request()           {}
func (GetProducts) request()          {}
func (ListingExists) request()        {}
func (DetailsExist) request()         {}
func (SaveListings) request()         {}
func (SaveDetail) request()           {}
func (MarkMissingAsRemoved) request() {}
func (ExportProduct) request()        {}
func (ExportProducts) request()       {}
func (DeleteProfile) request()        {}
func (ClearAll) request()             {}
func (GetCatalogSettings) request()   {}
func (SaveCatalogSettings) request()  {}

// Dispatcher executes requests against the services. The HTTP handler and
// the scrape worker both go through it.
type Dispatcher struct {
	listings *service.ListingService
	settings *store.SettingsStore
	exports  *service.SyncOrchestrator
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(listings *service.ListingService, settings *store.SettingsStore, exports *service.SyncOrchestrator) *Dispatcher {
	return &Dispatcher{
		listings: listings,
		settings: settings,
		exports:  exports,
	}
}

// Dispatch runs req and returns its result:
//
//	GetProfiles          []*models.SellerProfile
//	GetProfile           *models.SellerProfile
//	GetProducts          []models.Product
//	ListingExists        bool
//	DetailsExist         bool
//	SaveListings         *service.SaveResult
//	SaveDetail           bool (whether the detail was written)
//	MarkMissingAsRemoved int (listings newly marked)
//	ExportProduct        service.ExportResult
//	ExportProducts       *service.BatchResult
//	GetCatalogSettings   models.CatalogSettings
//	DeleteProfile, ClearAll, SaveCatalogSettings return nil
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	switch r := req.(type) {
	case GetProfiles:
		return d.listings.GetProfiles(ctx)

	case GetProfile:
		if err := requireUsername(r.Username); err != nil {
			return nil, err
		}
		return d.listings.GetProfile(ctx, r.Username)

	case GetProducts:
		if err := requireUsername(r.Username); err != nil {
			return nil, err
		}
		return d.listings.GetProducts(ctx, r.Username)

	case ListingExists:
		if err := requireListing(r.Username, r.ListingID); err != nil {
			return nil, err
		}
		return d.listings.ListingExists(ctx, r.Username, r.ListingID)

	case DetailsExist:
		if err := requireListing(r.Username, r.ListingID); err != nil {
			return nil, err
		}
		return d.listings.DetailsExist(ctx, r.Username, r.ListingID)

	case SaveListings:
		if err := requireUsername(r.Username); err != nil {
			return nil, err
		}
		return d.listings.SaveListings(ctx, r.Username, r.DisplayName, r.Listings, r.FullPass)

	case SaveDetail:
		if err := requireListing(r.Username, r.Detail.ID); err != nil {
			return nil, err
		}
		return d.listings.SaveDetail(ctx, r.Username, r.Detail)

	case MarkMissingAsRemoved:
		if err := requireUsername(r.Username); err != nil {
			return nil, err
		}
		return d.listings.MarkMissingAsRemoved(ctx, r.Username, r.CurrentIDs)

	case ExportProduct:
		if err := requireListing(r.Username, r.ListingID); err != nil {
			return nil, err
		}
		return d.exports.ExportProduct(ctx, r.Username, r.ListingID, r.Overwrite)

	case ExportProducts:
		if err := requireUsername(r.Username); err != nil {
			return nil, err
		}
		return d.exports.ExportProducts(ctx, r.Username, r.ListingIDs, r.Overwrite)

	case DeleteProfile:
		if err := requireUsername(r.Username); err != nil {
			return nil, err
		}
		return nil, d.listings.DeleteProfile(ctx, r.Username)

	case ClearAll:
		return nil, d.listings.ClearAll(ctx)

	case GetCatalogSettings:
		return d.settings.GetCatalogSettings(ctx)

	case SaveCatalogSettings:
		if r.Settings.BaseURL != "" && !strings.HasPrefix(r.Settings.BaseURL, "http") {
			return nil, fmt.Errorf("%w: base URL must be http(s)", ErrInvalidRequest)
		}
		return nil, d.settings.SaveCatalogSettings(ctx, r.Settings)

	default:
		return nil, fmt.Errorf("%w: unsupported request %T", ErrInvalidRequest, req)
	}
}

func requireUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidRequest)
	}
	return nil
}

func requireListing(username, listingID string) error {
	if err := requireUsername(username); err != nil {
		return err
	}
	if strings.TrimSpace(listingID) == "" {
		return fmt.Errorf("%w: listing id is required", ErrInvalidRequest)
	}
	return nil
}
