package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"listing-sync/internal/models"
)

const (
	profileKeyPrefix = "profile:"
	profileIndexKey  = "profiles:index"
)

var (
	// ErrProfileNotFound is returned when no profile exists for a username
	ErrProfileNotFound = errors.New("profile not found")
	// ErrListingNotFound is returned when a detail or export status targets an unknown listing
	ErrListingNotFound = errors.New("listing not found")
)

// ProfileStore persists one record per seller on top of a KV engine
type ProfileStore struct {
	kv    KV
	locks *keyedMutex
}

// NewProfileStore creates a profile store
func NewProfileStore(kv KV) *ProfileStore {
	return &ProfileStore{
		kv:    kv,
		locks: newKeyedMutex(),
	}
}

func profileKey(username string) string {
	return profileKeyPrefix + username
}

// GetProfile retrieves a profile by username
func (s *ProfileStore) GetProfile(ctx context.Context, username string) (*models.SellerProfile, error) {
	raw, err := s.kv.Get(ctx, profileKey(username))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", username, err)
	}

	var profile models.SellerProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", username, err)
	}
	profile.EnsureMaps()
	return &profile, nil
}

// GetProfiles retrieves every stored profile, ordered by username
func (s *ProfileStore) GetProfiles(ctx context.Context) ([]*models.SellerProfile, error) {
	usernames, err := s.usernames(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]*models.SellerProfile, 0, len(usernames))
	for _, username := range usernames {
		profile, err := s.GetProfile(ctx, username)
		if errors.Is(err, ErrProfileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// UpdateProfile runs fn on the stored profile and writes it back.
// If create is set, a missing profile is created instead of failing.
func (s *ProfileStore) UpdateProfile(ctx context.Context, username string, create bool, fn func(p *models.SellerProfile) error) (*models.SellerProfile, error) {
	unlock := s.locks.Lock(profileKey(username))
	defer unlock()

	profile, err := s.GetProfile(ctx, username)
	isNew := false
	if errors.Is(err, ErrProfileNotFound) && create {
		profile = models.NewSellerProfile(username)
		isNew = true
	} else if err != nil {
		return nil, err
	}

	if err := fn(profile); err != nil {
		return nil, err
	}

	if err := s.putProfile(ctx, profile); err != nil {
		return nil, err
	}

	if isNew {
		if err := s.addToIndex(ctx, username); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// DeleteProfile removes a profile and everything attached to it
func (s *ProfileStore) DeleteProfile(ctx context.Context, username string) error {
	unlock := s.locks.Lock(profileKey(username))
	defer unlock()

	if err := s.kv.Delete(ctx, profileKey(username)); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", username, err)
	}
	return s.removeFromIndex(ctx, username)
}

// Clear removes every profile
func (s *ProfileStore) Clear(ctx context.Context) error {
	usernames, err := s.usernames(ctx)
	if err != nil {
		return err
	}
	for _, username := range usernames {
		if err := s.DeleteProfile(ctx, username); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProfileStore) putProfile(ctx context.Context, profile *models.SellerProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", profile.Username, err)
	}
	if err := s.kv.Set(ctx, profileKey(profile.Username), raw); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", profile.Username, err)
	}
	return nil
}

func (s *ProfileStore) usernames(ctx context.Context) ([]string, error) {
	raw, err := s.kv.Get(ctx, profileIndexKey)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile index: %w", err)
	}

	var usernames []string
	if err := json.Unmarshal(raw, &usernames); err != nil {
		return nil, fmt.Errorf("failed to decode profile index: %w", err)
	}
	return usernames, nil
}

func (s *ProfileStore) addToIndex(ctx context.Context, username string) error {
	unlock := s.locks.Lock(profileIndexKey)
	defer unlock()

	usernames, err := s.usernames(ctx)
	if err != nil {
		return err
	}
	i := sort.SearchStrings(usernames, username)
	if i < len(usernames) && usernames[i] == username {
		return nil
	}
	usernames = append(usernames, "")
	copy(usernames[i+1:], usernames[i:])
	usernames[i] = username
	return s.putIndex(ctx, usernames)
}

func (s *ProfileStore) removeFromIndex(ctx context.Context, username string) error {
	unlock := s.locks.Lock(profileIndexKey)
	defer unlock()

	usernames, err := s.usernames(ctx)
	if err != nil {
		return err
	}
	out := usernames[:0]
	for _, u := range usernames {
		if u != username {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return s.kv.Delete(ctx, profileIndexKey)
	}
	return s.putIndex(ctx, out)
}

func (s *ProfileStore) putIndex(ctx context.Context, usernames []string) error {
	raw, err := json.Marshal(usernames)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, profileIndexKey, raw); err != nil {
		return fmt.Errorf("failed to write profile index: %w", err)
	}
	return nil
}
