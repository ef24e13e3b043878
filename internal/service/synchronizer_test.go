package service

import (
	"context"
	"errors"
	"testing"

	"listing-sync/internal/catalog"
	"listing-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncDecisions(t *testing.T) {
	tests := []struct {
		name      string
		state     models.ListingState
		existing  bool
		overwrite bool
		want      ExportOutcome
	}{
		{name: "new active product is created", state: models.ListingStateActive, existing: false, overwrite: true, want: OutcomeCreated},
		{name: "new sold product is created", state: models.ListingStateSold, existing: false, overwrite: true, want: OutcomeCreated},
		{name: "existing sold product is archived", state: models.ListingStateSold, existing: true, overwrite: true, want: OutcomeArchived},
		{name: "existing removed product is archived", state: models.ListingStateRemoved, existing: true, overwrite: false, want: OutcomeArchived},
		{name: "existing active product without overwrite is unchanged", state: models.ListingStateActive, existing: true, overwrite: false, want: OutcomeUnchanged},
		{name: "existing active product with overwrite is updated", state: models.ListingStateActive, existing: true, overwrite: true, want: OutcomeUpdated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeCatalog()
			if tt.existing {
				client.remote["Wagon Jouef"] = 7
			}
			s := NewSynchronizer(client, &namePayloadMapper{}, tt.overwrite)

			result := s.Sync(context.Background(), testProduct("1", "Wagon Jouef", tt.state))

			assert.Equal(t, tt.want, result.Outcome)
			assert.Empty(t, result.Error)
			require.NotNil(t, result.RemoteID)
			switch tt.want {
			case OutcomeCreated:
				assert.Equal(t, int64(101), *result.RemoteID)
				assert.Len(t, client.created, 1)
			case OutcomeArchived:
				assert.Equal(t, [][]int64{{7}}, client.archived)
			case OutcomeUpdated:
				assert.Contains(t, client.updated, int64(7))
			case OutcomeUnchanged:
				assert.Empty(t, client.created)
				assert.Empty(t, client.updated)
				assert.Empty(t, client.archived)
			}
		})
	}
}

func TestSyncNormalizesTitleBeforeSearch(t *testing.T) {
	client := newFakeCatalog()
	mapper := &namePayloadMapper{}
	s := NewSynchronizer(client, mapper, true)

	result := s.Sync(context.Background(), testProduct("1", "Train Wagon SNCF bleu", models.ListingStateActive))

	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, []string{"SNCF bleu"}, client.searched)
	assert.Equal(t, []string{"SNCF bleu"}, mapper.titles)
	assert.Equal(t, "SNCF bleu", client.created[0].Name)
}

func TestSyncCapturesErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeCatalog)
		state models.ListingState
	}{
		{
			name:  "search failure",
			setup: func(c *fakeCatalog) { c.searchErr = &catalog.TransportError{StatusCode: 500, URL: "x"} },
			state: models.ListingStateActive,
		},
		{
			name:  "update failure",
			setup: func(c *fakeCatalog) { c.remote["Wagon Jouef"] = 7; c.updateErr = errors.New("boom") },
			state: models.ListingStateActive,
		},
		{
			name:  "archive failure",
			setup: func(c *fakeCatalog) { c.remote["Wagon Jouef"] = 7; c.archiveErr = errors.New("boom") },
			state: models.ListingStateSold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeCatalog()
			tt.setup(client)
			s := NewSynchronizer(client, &namePayloadMapper{}, true)

			result := s.Sync(context.Background(), testProduct("1", "Wagon Jouef", tt.state))

			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.False(t, result.Success())
			assert.NotEmpty(t, result.Error)
		})
	}
}

func TestSyncMapperFailureIsCaptured(t *testing.T) {
	client := newFakeCatalog()
	mapper := NewMapper(NewResolver(newFakeSearcher(), DefaultVocabulary()), nil, testMapperConfig)
	s := NewSynchronizer(client, mapper, true)

	result := s.Sync(context.Background(), testProduct("1", "Locomotive Fleischmann", models.ListingStateActive))

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Error, "Label 'Fleischmann' not found in catalog")
	assert.Empty(t, client.created)
}

func TestSyncBatchContinuesAfterFailure(t *testing.T) {
	client := newFakeCatalog()
	client.createErr["Wagon Lima"] = errors.New("catalog rejected product")
	s := NewSynchronizer(client, &namePayloadMapper{}, true)

	products := []models.Product{
		testProduct("1", "Wagon Jouef", models.ListingStateActive),
		testProduct("2", "Wagon Lima", models.ListingStateActive),
		testProduct("3", "Wagon Roco", models.ListingStateActive),
	}

	var seen []string
	batch := s.SyncBatch(context.Background(), products, func(p models.Product, r ExportResult) {
		seen = append(seen, p.ID+":"+string(r.Outcome))
	})

	assert.False(t, batch.Success)
	assert.Equal(t, 2, batch.Created)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, "2", batch.Errors[0].ProductID)
	assert.Contains(t, batch.Errors[0].Error, "catalog rejected product")
	assert.Len(t, batch.Results, 3)
	assert.Equal(t, []string{"1:created", "2:failed", "3:created"}, seen)
	assert.Len(t, client.created, 2)
}

func TestSyncBatchEmpty(t *testing.T) {
	s := NewSynchronizer(newFakeCatalog(), &namePayloadMapper{}, true)

	batch := s.SyncBatch(context.Background(), nil, nil)

	assert.True(t, batch.Success)
	assert.NotNil(t, batch.Errors)
	assert.Empty(t, batch.Results)
}
