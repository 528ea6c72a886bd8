package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fleetsync/server/internal/models"
)

type lastPositionRequest struct {
	Key   string   `json:"key"`
	Terid []string `json:"terid"`
}

// GetLastPositions fetches the last known GPS fix for every listed
// device in a single call; the endpoint accepts the full fleet at once.
func (c *Client) GetLastPositions(ctx context.Context, terids []string) ([]models.PositionRecord, error) {
	key, err := c.ensureKey(ctx)
	if err != nil {
		return nil, err
	}

	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetBody(lastPositionRequest{Key: key, Terid: terids}).
		Post("/api/v1/basic/gps/last")

	data, err := decode(resp, reqErr, "/api/v1/basic/gps/last")
	if err != nil {
		return nil, err
	}

	var positions []models.PositionRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &positions); err != nil {
			return nil, fmt.Errorf("malformed position list: %w", err)
		}
	}
	return positions, nil
}
