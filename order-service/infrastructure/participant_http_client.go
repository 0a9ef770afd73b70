package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/commercelab/order-saga/order-service/application"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/pkg/errors"
)

const defaultParticipantTimeout = 15 * time.Second

var _ application.ParticipantCaller = (*HTTPParticipantClient)(nil)

// HTTPParticipantClient calls participant services over HTTP, propagating
// the active LRA identifier in the protocol header.
type HTTPParticipantClient struct {
	inventoryBaseURL string
	paymentBaseURL   string
	httpClient       *http.Client
}

// NewHTTPParticipantClient creates a participant client. A nil httpClient
// gets a default with a bounded timeout.
func NewHTTPParticipantClient(inventoryBaseURL, paymentBaseURL string, httpClient *http.Client) *HTTPParticipantClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultParticipantTimeout}
	}
	return &HTTPParticipantClient{
		inventoryBaseURL: strings.TrimSuffix(inventoryBaseURL, "/"),
		paymentBaseURL:   strings.TrimSuffix(paymentBaseURL, "/"),
		httpClient:       httpClient,
	}
}

// ReserveInventory calls the inventory participant's try step
func (c *HTTPParticipantClient) ReserveInventory(ctx context.Context, lraID string, call *application.InventoryCall) (*application.ParticipantReply, error) {
	return c.post(ctx, c.inventoryBaseURL+"/inventory/reserve", lraID, call)
}

// AuthorizePayment calls the payment participant's try step
func (c *HTTPParticipantClient) AuthorizePayment(ctx context.Context, lraID string, call *application.PaymentCall) (*application.ParticipantReply, error) {
	return c.post(ctx, c.paymentBaseURL+"/payment/authorize", lraID, call)
}

func (c *HTTPParticipantClient) post(ctx context.Context, url, lraID string, payload interface{}) (*application.ParticipantReply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal participant request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build participant request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(lra.HeaderContext, lraID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "participant call failed: %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("participant call failed: %s status=%d body=%s", url, resp.StatusCode, string(raw))
	}

	var reply application.ParticipantReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, errors.Wrapf(err, "failed to decode participant response: %s", url)
	}
	return &reply, nil
}
