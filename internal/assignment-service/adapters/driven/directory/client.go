package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/gateway"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"
)

type nearbyDriver struct {
	DriverID    string  `json:"driverId"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Distance    float64 `json:"distance"`
	VehicleType string  `json:"vehicleType"`
}

// Client queries the location service for drivers near a point.
type Client struct {
	baseURL string
	http    *http.Client
	retry   gateway.RetryConfig
	metrics *metrics.Dispatch
	log     mylogger.Logger
}

var _ ports.IDirectory = (*Client)(nil)

func New(baseURL string, httpClient *http.Client, retry gateway.RetryConfig, m *metrics.Dispatch, log mylogger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		retry:   retry,
		metrics: m,
		log:     log.Action("directory_client"),
	}
}

func (c *Client) Nearby(ctx context.Context, q model.NearbyQuery) ([]model.NearbyDriver, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Location.Lat, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(q.Location.Lng, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(q.RadiusMeters))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.VehicleType != "" {
		params.Set("vehicleType", q.VehicleType)
	}
	u := c.baseURL + "/drivers/nearby?" + params.Encode()

	var retries interface{ Inc() }
	if c.metrics != nil {
		retries = c.metrics.GatewayRetries
	}
	raw, err := gateway.Retry(ctx, c.retry, c.log, retries, "nearby", func(ctx context.Context) ([]nearbyDriver, error) {
		var out []nearbyDriver
		if err := gateway.GetJSON(ctx, c.http, u, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("nearby drivers: %w", err)
	}

	drivers := make([]model.NearbyDriver, 0, len(raw))
	for _, d := range raw {
		drivers = append(drivers, model.NearbyDriver{
			DriverID:       d.DriverID,
			Location:       model.Location{Lat: d.Lat, Lng: d.Lng},
			DistanceMeters: d.Distance,
			VehicleType:    d.VehicleType,
		})
	}
	return drivers, nil
}
