package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetsync/server/internal/models"
)

// alarmDetailRequest is the POST body of the alarm detail endpoint. An
// empty type list requests all alarm types.
type alarmDetailRequest struct {
	Key       string   `json:"key"`
	Terid     []string `json:"terid"`
	Type      []int    `json:"type"`
	StartTime string   `json:"starttime"`
	EndTime   string   `json:"endtime"`
}

// GetAlarmDetails fetches alarms for a batch of devices over an
// inclusive time window. Callers own the batching; the client sends the
// terid list as given.
func (c *Client) GetAlarmDetails(ctx context.Context, terids []string, start, end time.Time, types []int) ([]models.AlarmRecord, error) {
	key, err := c.ensureKey(ctx)
	if err != nil {
		return nil, err
	}

	if types == nil {
		types = []int{}
	}

	body := alarmDetailRequest{
		Key:       key,
		Terid:     terids,
		Type:      types,
		StartTime: FormatTime(start),
		EndTime:   FormatTime(end),
	}

	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/v1/basic/alarm/detail")

	data, err := decode(resp, reqErr, "/api/v1/basic/alarm/detail")
	if err != nil {
		return nil, err
	}

	var alarms []models.AlarmRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &alarms); err != nil {
			return nil, fmt.Errorf("malformed alarm list: %w", err)
		}
	}
	return alarms, nil
}
