package reconcile

import "listing-sync/internal/models"

// MergeResult is the outcome of merging a scrape batch into a listing set
type MergeResult struct {
	Listings map[string]models.Listing
	Added    int
	Updated  int
}

// Merge folds incoming listings into existing and counts additions and updates.
// Listings absent from incoming are kept as they are. existing is not modified.
func Merge(existing map[string]models.Listing, incoming []models.Listing) MergeResult {
	merged := make(map[string]models.Listing, len(existing)+len(incoming))
	for id, l := range existing {
		merged[id] = l
	}

	result := MergeResult{Listings: merged}
	for _, l := range incoming {
		current, ok := merged[l.ID]
		if !ok {
			merged[l.ID] = l
			result.Added++
			continue
		}
		if Changed(current, l) {
			merged[l.ID] = l
			result.Updated++
		}
	}
	return result
}

// Changed reports whether any monitored field differs between two versions
// of the same listing. Date is derived from DatePosted and is not compared.
func Changed(current, incoming models.Listing) bool {
	return current.Title != incoming.Title ||
		current.Price != incoming.Price ||
		current.State != incoming.State ||
		current.DatePosted != incoming.DatePosted ||
		current.URL != incoming.URL ||
		current.Thumbnail != incoming.Thumbnail
}

// MarkAbsentAsRemoved flags every listing missing from currentIDs as REMOVED.
// Only call it after a pass that covered the seller's whole listing set.
func MarkAbsentAsRemoved(existing map[string]models.Listing, currentIDs map[string]struct{}) (map[string]models.Listing, int) {
	out := make(map[string]models.Listing, len(existing))
	removed := 0
	for id, l := range existing {
		if _, seen := currentIDs[id]; !seen && l.State != models.ListingStateRemoved {
			l.State = models.ListingStateRemoved
			removed++
		}
		out[id] = l
	}
	return out, removed
}

// IDSet collects listing ids into a set
func IDSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
