package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"listing-sync/internal/catalog"
	"listing-sync/internal/models"
	"listing-sync/internal/util"

	"go.uber.org/zap"
)

// catalogTimeLayout is the datetime format the catalog expects, in UTC
const catalogTimeLayout = "2006-01-02 15:04:05"

var marketingPhrase = regexp.MustCompile(`(?i)train wagon`)

// NormalizeTitle strips the "Train wagon" marketing phrase from a title
func NormalizeTitle(title string) string {
	return strings.TrimSpace(marketingPhrase.ReplaceAllString(title, ""))
}

// ImageSource returns an image as base64 data
type ImageSource interface {
	FetchBase64(ctx context.Context, url string) (string, error)
}

// MapperConfig holds the fixed values written into every payload
type MapperConfig struct {
	TaxName    string
	SourceSite string
}

// Mapper turns a product into a catalog payload
type Mapper struct {
	resolver *Resolver
	images   ImageSource
	cfg      MapperConfig
	logger   *zap.Logger
}

// NewMapper creates a mapper; images may be nil to skip cover images
func NewMapper(resolver *Resolver, images ImageSource, cfg MapperConfig) *Mapper {
	return &Mapper{
		resolver: resolver,
		images:   images,
		cfg:      cfg,
		logger:   util.GetLogger(),
	}
}

// ToPayload builds the create/update payload of product.
// Tag and tax resolution failures abort; category and image failures do not.
func (m *Mapper) ToPayload(ctx context.Context, product models.Product) (*catalog.ProductPayload, error) {
	if product.Date.IsZero() {
		return nil, fmt.Errorf("listing %s has no date", product.ID)
	}

	tagIDs := make(catalog.ReplaceIDs, 0)
	for _, tag := range m.resolver.ClassifyTags(product.Title) {
		id, _, err := m.resolver.ResolveID(ctx, catalog.ReferenceTag, tag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tag %s: %w", tag, err)
		}
		tagIDs = append(tagIDs, id)
	}

	taxID, _, err := m.resolver.ResolveID(ctx, catalog.ReferenceTax, m.cfg.TaxName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tax: %w", err)
	}

	created := product.Date.UTC().Format(catalogTimeLayout)
	payload := &catalog.ProductPayload{
		Name:                 product.Title,
		ListPrice:            product.Price,
		WebsitePublished:     true,
		QtyAvailable:         1,
		DescriptionEcommerce: m.description(product),
		ProductTagIDs:        tagIDs,
		TaxesID:              catalog.ReplaceIDs{taxID},
		CreateDate:           created,
		PublishDate:          created,
		WriteDate:            created,
	}

	if err := m.attachCategory(ctx, product, payload); err != nil {
		return nil, err
	}
	m.attachCoverImage(ctx, product, payload)

	return payload, nil
}

func (m *Mapper) description(product models.Product) string {
	html := strings.ReplaceAll(product.Description, "\n", "<br/>")
	return fmt.Sprintf("%s<br/>Disponible également sur <a href='%s'>%s</a>", html, product.URL, m.cfg.SourceSite)
}

func (m *Mapper) attachCategory(ctx context.Context, product models.Product, payload *catalog.ProductPayload) error {
	category, ok := m.resolver.ClassifyCategory(product.Title)
	if !ok {
		return nil
	}

	categoryID, _, err := m.resolver.ResolveID(ctx, catalog.ReferenceCategory, category)
	var notFound *catalog.ReferenceNotFoundError
	switch {
	case errors.As(err, &notFound):
		m.logger.Warn("Category not resolved, exporting without it",
			zap.String("listing_id", product.ID),
			zap.String("category", category),
			zap.Error(err))
	case err != nil:
		return fmt.Errorf("failed to resolve category %s: %w", category, err)
	default:
		payload.CategID = &categoryID
	}

	publicID, found, err := m.resolver.ResolveID(ctx, catalog.ReferencePublicCategory, category)
	if err != nil {
		return fmt.Errorf("failed to resolve public category %s: %w", category, err)
	}
	if found {
		payload.PublicCategIDs = catalog.ReplaceIDs{publicID}
	}
	return nil
}

func (m *Mapper) attachCoverImage(ctx context.Context, product models.Product, payload *catalog.ProductPayload) {
	if m.images == nil || len(product.Photos) == 0 {
		return
	}

	start := time.Now()
	image, err := m.images.FetchBase64(ctx, product.Photos[0])
	if err != nil {
		m.logger.Warn("Cover image unavailable, exporting without it",
			zap.String("listing_id", product.ID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	payload.Image1920 = image
}
