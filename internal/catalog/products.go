package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const (
	productSearchPath  = "product.template/search"
	productCreatePath  = "product.template/create"
	productWritePath   = "product.template/write"
	productArchivePath = "product.template/action_archive"
)

// SearchByName returns the id of the first product named exactly title
func (c *Client) SearchByName(ctx context.Context, title string) (int64, bool, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "search", productSearchPath, nameDomain(title), &raw); err != nil {
		return 0, false, err
	}

	ids, err := parseIDs(raw)
	if err != nil {
		return 0, false, fmt.Errorf("failed to decode product search result: %w", err)
	}

	c.logger.Debug("Product search",
		zap.String("title", title),
		zap.Int64s("ids", ids))

	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// Create creates a new product and returns its id
func (c *Client) Create(ctx context.Context, payload *ProductPayload) (int64, error) {
	body := map[string]interface{}{
		"vals_list": []*ProductPayload{payload},
	}

	var raw json.RawMessage
	if err := c.post(ctx, "create", productCreatePath, body, &raw); err != nil {
		return 0, err
	}

	ids, err := parseIDs(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to decode created product id: %w", err)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("catalog returned no id for created product %q", payload.Name)
	}

	c.logger.Info("Product created", zap.Int64("remote_id", ids[0]), zap.String("name", payload.Name))
	return ids[0], nil
}

// Update overwrites product id with payload
func (c *Client) Update(ctx context.Context, id int64, payload *ProductPayload) error {
	body := map[string]interface{}{
		"ids":  []int64{id},
		"vals": payload,
	}

	if err := c.post(ctx, "update", productWritePath, body, nil); err != nil {
		return err
	}

	c.logger.Info("Product updated", zap.Int64("remote_id", id))
	return nil
}

// Archive marks products inactive without deleting them
func (c *Client) Archive(ctx context.Context, ids []int64) error {
	body := map[string]interface{}{
		"ids":     ids,
		"context": map[string]interface{}{},
	}

	if err := c.post(ctx, "archive", productArchivePath, body, nil); err != nil {
		return err
	}

	c.logger.Info("Products archived", zap.Int64s("remote_ids", ids))
	return nil
}
