package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/gateway"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"
)

type place struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type orderDetails struct {
	OrderID     string  `json:"orderId"`
	Restaurant  place   `json:"restaurant"`
	Customer    place   `json:"customer"`
	Items       []item  `json:"items"`
	Total       float64 `json:"total"`
	DeliveryFee float64 `json:"deliveryFee"`
	VehicleType string  `json:"vehicleType"`
}

// Client reads order details from the order service.
type Client struct {
	baseURL string
	http    *http.Client
	retry   gateway.RetryConfig
	metrics *metrics.Dispatch
	log     mylogger.Logger
}

var _ ports.IOrderDetails = (*Client)(nil)

func New(baseURL string, httpClient *http.Client, retry gateway.RetryConfig, m *metrics.Dispatch, log mylogger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		retry:   retry,
		metrics: m,
		log:     log.Action("order_client"),
	}
}

// GetOrderDetails returns myerrors.ErrOrderNotFound on 404 and wraps every
// other failure in myerrors.ErrOrderServiceDown.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (model.OrderDetails, error) {
	u := c.baseURL + "/orders/" + url.PathEscape(orderID) + "/details"

	var retries interface{ Inc() }
	if c.metrics != nil {
		retries = c.metrics.GatewayRetries
	}
	raw, err := gateway.Retry(ctx, c.retry, c.log, retries, "order_details", func(ctx context.Context) (orderDetails, error) {
		var out orderDetails
		err := gateway.GetJSON(ctx, c.http, u, &out)
		return out, err
	})
	if err != nil {
		var se *gateway.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return model.OrderDetails{}, fmt.Errorf("order %s: %w", orderID, myerrors.ErrOrderNotFound)
		}
		return model.OrderDetails{}, fmt.Errorf("%w: %w", myerrors.ErrOrderServiceDown, err)
	}

	if raw.OrderID == "" {
		raw.OrderID = orderID
	}
	items := make([]model.OrderItem, 0, len(raw.Items))
	for _, it := range raw.Items {
		items = append(items, model.OrderItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return model.OrderDetails{
		OrderID:     raw.OrderID,
		Restaurant:  toPlace(raw.Restaurant),
		Customer:    toPlace(raw.Customer),
		Items:       items,
		Total:       raw.Total,
		DeliveryFee: raw.DeliveryFee,
		VehicleType: raw.VehicleType,
	}, nil
}

func toPlace(p place) model.Place {
	return model.Place{
		ID:       p.ID,
		Name:     p.Name,
		Address:  p.Address,
		Location: model.Location{Lat: p.Lat, Lng: p.Lng},
	}
}
