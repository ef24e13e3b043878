package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-sync/internal/models"
	"listing-sync/internal/reconcile"
	"listing-sync/internal/store"
	"listing-sync/internal/util"

	"go.uber.org/zap"
)

// ListingService owns seller profiles: scrape reconciliation, details,
// export statuses and the read-side join.
type ListingService struct {
	profiles *store.ProfileStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewListingService creates a new listing service
func NewListingService(profiles *store.ProfileStore) *ListingService {
	return &ListingService{
		profiles: profiles,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// SaveResult reports what a scrape batch changed
type SaveResult struct {
	Added    int      `json:"added"`
	Updated  int      `json:"updated"`
	Removed  int      `json:"removed"`
	Total    int      `json:"total"`
	Rejected []string `json:"rejected,omitempty"`
}

// SaveListings merges a scrape batch into the seller's profile, creating it
// on first save. With fullPass set, listings absent from the batch are
// marked removed in the same write.
func (s *ListingService) SaveListings(ctx context.Context, username, displayName string, listings []models.Listing, fullPass bool) (*SaveResult, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.SaveListings")
	defer span.End()

	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	result := &SaveResult{}
	valid := make([]models.Listing, 0, len(listings))
	seen := make([]string, 0, len(listings))
	for i := range listings {
		if listings[i].ID != "" {
			seen = append(seen, listings[i].ID)
		}
		if err := listings[i].Validate(); err != nil {
			s.logger.Warn("Rejected scraped listing", zap.String("username", username), zap.Error(err))
			util.ListingsRejectedTotal.Inc()
			result.Rejected = append(result.Rejected, err.Error())
			continue
		}
		valid = append(valid, listings[i])
	}

	scrapedAt := s.now()
	_, err := s.profiles.UpdateProfile(ctx, username, true, func(p *models.SellerProfile) error {
		for i := range valid {
			if !valid[i].Date.IsZero() {
				continue
			}
			// keep the first-seen date of known listings
			if existing, ok := p.Listings[valid[i].ID]; ok && !existing.Date.IsZero() {
				valid[i].Date = existing.Date
			} else {
				valid[i].Date = scrapedAt
			}
		}

		merged := reconcile.Merge(p.Listings, valid)
		p.Listings = merged.Listings
		result.Added = merged.Added
		result.Updated = merged.Updated

		if fullPass {
			p.Listings, result.Removed = reconcile.MarkAbsentAsRemoved(p.Listings, reconcile.IDSet(seen))
		}

		if displayName != "" {
			p.DisplayName = displayName
		}
		if scrapedAt.After(p.LastScraped) {
			p.LastScraped = scrapedAt
		}
		result.Total = len(p.Listings)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save listings: %w", err)
	}

	util.ListingsReconciledTotal.WithLabelValues("added").Add(float64(result.Added))
	util.ListingsReconciledTotal.WithLabelValues("updated").Add(float64(result.Updated))
	util.ListingsRemovedTotal.Add(float64(result.Removed))

	s.logger.Info("Listings saved",
		zap.String("username", username),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("removed", result.Removed),
		zap.Int("total", result.Total))
	return result, nil
}

// SaveDetail stores the detail of a known listing once; later calls for the
// same id are no-ops. It reports whether the detail was written.
func (s *ListingService) SaveDetail(ctx context.Context, username string, detail models.Detail) (bool, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.SaveDetail")
	defer span.End()

	saved := false
	_, err := s.profiles.UpdateProfile(ctx, username, false, func(p *models.SellerProfile) error {
		if _, ok := p.Listings[detail.ID]; !ok {
			return fmt.Errorf("%w: %s", store.ErrListingNotFound, detail.ID)
		}
		if _, exists := p.Details[detail.ID]; exists {
			return nil
		}
		if detail.ScrapedAt.IsZero() {
			detail.ScrapedAt = s.now()
		}
		if detail.Photos == nil {
			detail.Photos = []string{}
		}
		p.Details[detail.ID] = detail
		saved = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to save detail: %w", err)
	}

	result := "skipped"
	if saved {
		result = "saved"
	}
	util.DetailsSavedTotal.WithLabelValues(result).Inc()
	return saved, nil
}

// MarkMissingAsRemoved flags listings absent from currentIDs as removed.
// Only call it after a pass that covered the whole listing set.
func (s *ListingService) MarkMissingAsRemoved(ctx context.Context, username string, currentIDs []string) (int, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.MarkMissingAsRemoved")
	defer span.End()

	removed := 0
	_, err := s.profiles.UpdateProfile(ctx, username, false, func(p *models.SellerProfile) error {
		p.Listings, removed = reconcile.MarkAbsentAsRemoved(p.Listings, reconcile.IDSet(currentIDs))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark removed listings: %w", err)
	}

	util.ListingsRemovedTotal.Add(float64(removed))
	s.logger.Info("Missing listings marked removed",
		zap.String("username", username),
		zap.Int("removed", removed))
	return removed, nil
}

// RecordExportStatus overwrites the export status of a listing
func (s *ListingService) RecordExportStatus(ctx context.Context, username, listingID string, status models.ExportStatus) error {
	_, err := s.profiles.UpdateProfile(ctx, username, false, func(p *models.SellerProfile) error {
		if _, ok := p.Listings[listingID]; !ok {
			return fmt.Errorf("%w: %s", store.ErrListingNotFound, listingID)
		}
		p.ExportStatuses[listingID] = status
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record export status: %w", err)
	}
	return nil
}

// GetProfiles returns every seller profile
func (s *ListingService) GetProfiles(ctx context.Context) ([]*models.SellerProfile, error) {
	return s.profiles.GetProfiles(ctx)
}

// GetProfile returns one seller profile
func (s *ListingService) GetProfile(ctx context.Context, username string) (*models.SellerProfile, error) {
	return s.profiles.GetProfile(ctx, username)
}

// GetProducts joins listings, details and export statuses of a profile
func (s *ListingService) GetProducts(ctx context.Context, username string) ([]models.Product, error) {
	profile, err := s.profiles.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	return profile.Products(), nil
}

// GetProduct joins one listing with its detail and export status
func (s *ListingService) GetProduct(ctx context.Context, username, listingID string) (models.Product, error) {
	profile, err := s.profiles.GetProfile(ctx, username)
	if err != nil {
		return models.Product{}, err
	}
	product, ok := profile.Product(listingID)
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %s", store.ErrListingNotFound, listingID)
	}
	return product, nil
}

// ListingExists reports whether the seller has a listing with this id
func (s *ListingService) ListingExists(ctx context.Context, username, listingID string) (bool, error) {
	profile, err := s.profiles.GetProfile(ctx, username)
	if errors.Is(err, store.ErrProfileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, ok := profile.Listings[listingID]
	return ok, nil
}

// DetailsExist reports whether the listing's detail page was already scraped
func (s *ListingService) DetailsExist(ctx context.Context, username, listingID string) (bool, error) {
	profile, err := s.profiles.GetProfile(ctx, username)
	if errors.Is(err, store.ErrProfileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, ok := profile.Details[listingID]
	return ok, nil
}

// DeleteProfile removes a seller and all its data
func (s *ListingService) DeleteProfile(ctx context.Context, username string) error {
	if _, err := s.profiles.GetProfile(ctx, username); err != nil {
		return err
	}
	if err := s.profiles.DeleteProfile(ctx, username); err != nil {
		return err
	}
	s.logger.Info("Profile deleted", zap.String("username", username))
	return nil
}

// ClearAll removes every seller profile
func (s *ListingService) ClearAll(ctx context.Context) error {
	if err := s.profiles.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("All profiles deleted")
	return nil
}
