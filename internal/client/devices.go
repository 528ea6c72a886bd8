package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fleetsync/server/internal/models"
)

// GetDevices fetches the full device roster. An empty roster is a valid
// result, not an error.
func (c *Client) GetDevices(ctx context.Context) ([]models.DeviceRecord, error) {
	key, err := c.ensureKey(ctx)
	if err != nil {
		return nil, err
	}

	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		Get("/api/v1/basic/devices")

	data, err := decode(resp, reqErr, "/api/v1/basic/devices")
	if err != nil {
		return nil, err
	}

	var devices []models.DeviceRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &devices); err != nil {
			return nil, fmt.Errorf("malformed device list: %w", err)
		}
	}
	return devices, nil
}

// GetDeviceGroups fetches the device group tree.
func (c *Client) GetDeviceGroups(ctx context.Context) ([]models.GroupRecord, error) {
	key, err := c.ensureKey(ctx)
	if err != nil {
		return nil, err
	}

	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		Get("/api/v1/basic/groups")

	data, err := decode(resp, reqErr, "/api/v1/basic/groups")
	if err != nil {
		return nil, err
	}

	var groups []models.GroupRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, fmt.Errorf("malformed group list: %w", err)
		}
	}
	return groups, nil
}
