package catalog

import "encoding/json"

// replaceCommand is the catalog's "replace the whole relation set" command code
const replaceCommand = 6

// ReplaceIDs encodes a many-to-many relation as a replace-all command,
// so an update drops ids that are no longer assigned.
type ReplaceIDs []int64

// MarshalJSON encodes the ids as [[6, 0, [ids...]]]
func (r ReplaceIDs) MarshalJSON() ([]byte, error) {
	ids := []int64(r)
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal([]interface{}{[]interface{}{replaceCommand, 0, ids}})
}

// ProductPayload is the create/update body of a catalog product
type ProductPayload struct {
	Name                 string     `json:"name"`
	ListPrice            float64    `json:"list_price"`
	WebsitePublished     bool       `json:"website_published"`
	QtyAvailable         float64    `json:"qty_available"`
	DescriptionEcommerce string     `json:"description_ecommerce"`
	ProductTagIDs        ReplaceIDs `json:"product_tag_ids"`
	TaxesID              ReplaceIDs `json:"taxes_id"`
	CategID              *int64     `json:"categ_id,omitempty"`
	PublicCategIDs       ReplaceIDs `json:"public_categ_ids,omitempty"`
	Image1920            string     `json:"image_1920,omitempty"`
	CreateDate           string     `json:"create_date"`
	PublishDate          string     `json:"publish_date"`
	WriteDate            string     `json:"write_date"`
}
