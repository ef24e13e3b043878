package catalog

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReferenceKind identifies a controlled vocabulary collection in the catalog
type ReferenceKind string

// Reference kinds
const (
	ReferenceTag            ReferenceKind = "tag"
	ReferenceCategory       ReferenceKind = "category"
	ReferencePublicCategory ReferenceKind = "public_category"
	ReferenceTax            ReferenceKind = "tax"
)

var referencePaths = map[ReferenceKind]string{
	ReferenceTag:            "product.tag/search",
	ReferenceCategory:       "product.category/search",
	ReferencePublicCategory: "product.public.category/search",
	ReferenceTax:            "account.tax/search",
}

// Label is the human readable name of the kind
func (k ReferenceKind) Label() string {
	switch k {
	case ReferenceTag:
		return "Tag"
	case ReferenceCategory:
		return "Category"
	case ReferencePublicCategory:
		return "Public Category"
	case ReferenceTax:
		return "Tax"
	}
	return string(k)
}

// SearchReference returns the ids of kind records named exactly name
func (c *Client) SearchReference(ctx context.Context, kind ReferenceKind, name string) ([]int64, error) {
	path, ok := referencePaths[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}

	var raw json.RawMessage
	if err := c.post(ctx, "search_"+string(kind), path, nameDomain(name), &raw); err != nil {
		return nil, err
	}

	ids, err := parseIDs(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s search result: %w", kind, err)
	}
	return ids, nil
}
