package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ListingState is the lifecycle state of a scraped listing
type ListingState string

// Listing states
const (
	ListingStateActive  ListingState = "ACTIVE"
	ListingStateSold    ListingState = "SOLD"
	ListingStateRemoved ListingState = "REMOVED"
)

// Valid reports whether s is one of the known listing states
func (s ListingState) Valid() bool {
	switch s {
	case ListingStateActive, ListingStateSold, ListingStateRemoved:
		return true
	}
	return false
}

// ErrInvalidListing is returned when a scraped listing fails validation
var ErrInvalidListing = errors.New("invalid listing")

// Listing is a scraped summary record of one item for sale
type Listing struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Price      float64      `json:"price"`
	URL        string       `json:"url"`
	DatePosted string       `json:"datePosted"`
	Date       time.Time    `json:"date"`
	State      ListingState `json:"state"`
	Thumbnail  string       `json:"thumbnail,omitempty"`
}

// Validate checks the fields the scraper is expected to fill
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidListing)
	}
	if l.Price < 0 {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidListing, l.ID)
	}
	if !l.State.Valid() {
		return fmt.Errorf("%w: unknown state %q for %s", ErrInvalidListing, l.State, l.ID)
	}
	return nil
}

// Detail is supplementary data scraped from a listing's own page
type Detail struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Photos      []string  `json:"photos"`
	ScrapedAt   time.Time `json:"scrapedAt"`
}

// ExportStatus records the last synchronization attempt of a listing
type ExportStatus struct {
	Exported       bool      `json:"exported"`
	RemoteID       *int64    `json:"remoteId,omitempty"`
	LastExportedAt time.Time `json:"lastExportedAt"`
	Error          string    `json:"error,omitempty"`
}

// SellerProfile aggregates everything known about one seller
type SellerProfile struct {
	Username       string                  `json:"username"`
	DisplayName    string                  `json:"displayName,omitempty"`
	Listings       map[string]Listing      `json:"listings"`
	Details        map[string]Detail       `json:"details"`
	ExportStatuses map[string]ExportStatus `json:"exportStatuses"`
	LastScraped    time.Time               `json:"lastScraped"`
}

// NewSellerProfile returns an empty profile with initialized maps
func NewSellerProfile(username string) *SellerProfile {
	return &SellerProfile{
		Username:       username,
		Listings:       make(map[string]Listing),
		Details:        make(map[string]Detail),
		ExportStatuses: make(map[string]ExportStatus),
	}
}

// EnsureMaps initializes nil maps, e.g. after decoding an older record
func (p *SellerProfile) EnsureMaps() {
	if p.Listings == nil {
		p.Listings = make(map[string]Listing)
	}
	if p.Details == nil {
		p.Details = make(map[string]Detail)
	}
	if p.ExportStatuses == nil {
		p.ExportStatuses = make(map[string]ExportStatus)
	}
}

// Product is a listing joined with its detail and export status
type Product struct {
	Listing
	Description  string        `json:"description"`
	Photos       []string      `json:"photos"`
	HasDetails   bool          `json:"hasDetails"`
	ExportStatus *ExportStatus `json:"exportStatus,omitempty"`
}

// Product builds the joined view for one listing id
func (p *SellerProfile) Product(id string) (Product, bool) {
	listing, ok := p.Listings[id]
	if !ok {
		return Product{}, false
	}

	product := Product{Listing: listing, Photos: []string{}}
	if detail, ok := p.Details[id]; ok {
		product.Description = detail.Description
		product.HasDetails = true
		if detail.Photos != nil {
			product.Photos = detail.Photos
		}
	}
	if status, ok := p.ExportStatuses[id]; ok {
		s := status
		product.ExportStatus = &s
	}
	return product, true
}

// Products joins every listing of the profile, newest posting first.
// Details and export statuses without a listing are ignored.
func (p *SellerProfile) Products() []Product {
	products := make([]Product, 0, len(p.Listings))
	for id := range p.Listings {
		product, _ := p.Product(id)
		products = append(products, product)
	}
	SortProducts(products)
	return products
}

// SortProducts orders products by datePosted descending, then id
func SortProducts(products []Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].DatePosted != products[j].DatePosted {
			return products[i].DatePosted > products[j].DatePosted
		}
		return products[i].ID < products[j].ID
	})
}

// ProfileSummary is the lightweight view returned when listing all profiles
type ProfileSummary struct {
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName,omitempty"`
	ListingCount  int       `json:"listingCount"`
	ActiveCount   int       `json:"activeCount"`
	ExportedCount int       `json:"exportedCount"`
	LastScraped   time.Time `json:"lastScraped"`
}

// Summary counts listings and exports of the profile
func (p *SellerProfile) Summary() ProfileSummary {
	summary := ProfileSummary{
		Username:     p.Username,
		DisplayName:  p.DisplayName,
		ListingCount: len(p.Listings),
		LastScraped:  p.LastScraped,
	}
	for _, l := range p.Listings {
		if l.State == ListingStateActive {
			summary.ActiveCount++
		}
	}
	for _, s := range p.ExportStatuses {
		if s.Exported {
			summary.ExportedCount++
		}
	}
	return summary
}

// CatalogSettings is the remote catalog connection configuration
type CatalogSettings struct {
	BaseURL string `json:"baseUrl"`
	APIPath string `json:"apiPath"`
	APIKey  string `json:"apiKey"`
}

// CatalogSettingsView is what clients may read back: the API key is write-only
type CatalogSettingsView struct {
	BaseURL   string `json:"baseUrl"`
	APIPath   string `json:"apiPath"`
	APIKeySet bool   `json:"apiKeySet"`
}

// View hides the API key
func (s CatalogSettings) View() CatalogSettingsView {
	return CatalogSettingsView{
		BaseURL:   s.BaseURL,
		APIPath:   s.APIPath,
		APIKeySet: s.APIKey != "",
	}
}

// DefaultAPIPath is used when no API path prefix is configured
const DefaultAPIPath = "/json/2"

// Endpoint joins base URL and API path prefix
func (s CatalogSettings) Endpoint() string {
	apiPath := s.APIPath
	if apiPath == "" {
		apiPath = DefaultAPIPath
	}
	if !strings.HasPrefix(apiPath, "/") {
		apiPath = "/" + apiPath
	}
	return strings.TrimRight(s.BaseURL, "/") + strings.TrimRight(apiPath, "/")
}
