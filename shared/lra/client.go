package lra

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/commercelab/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultCoordinatorTimeout = 10 * time.Second

// CoordinatorClient speaks the Narayana LRA coordinator wire protocol:
// start, join, close and cancel.
type CoordinatorClient struct {
	coordinatorURL string
	httpClient     *http.Client
}

// NewCoordinatorClient creates a client for the coordinator at coordinatorURL.
// A nil httpClient gets a default with a bounded timeout; a request that
// times out surfaces as a protocol failure and drives the cancel path.
func NewCoordinatorClient(coordinatorURL string, httpClient *http.Client) (*CoordinatorClient, error) {
	if coordinatorURL == "" {
		return nil, errors.New("coordinator URL is required")
	}
	if _, err := url.Parse(coordinatorURL); err != nil {
		return nil, errors.Wrap(err, "invalid coordinator URL")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultCoordinatorTimeout}
	}
	return &CoordinatorClient{
		coordinatorURL: strings.TrimSuffix(coordinatorURL, "/"),
		httpClient:     httpClient,
	}, nil
}

// Start begins a new LRA and returns its identifier. parent nests the new
// LRA under an existing one and may be empty.
func (c *CoordinatorClient) Start(ctx context.Context, clientID, parent string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "lra.start",
		trace.WithAttributes(attribute.String("lra.client_id", clientID)))
	defer span.End()

	q := url.Values{}
	q.Set("ClientID", clientID)
	q.Set("TimeLimit", "0")
	q.Set("ParentLRA", parent)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.coordinatorURL+"/start?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build start request")
	}
	req.Header.Set(apiVersionHeader, apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to start LRA")
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusCreated {
		return "", errors.Errorf("failed to start LRA: coordinator returned %d", resp.StatusCode)
	}

	lraID := resp.Header.Get("Location")
	if lraID == "" {
		return "", errors.New("failed to start LRA: coordinator returned no Location header")
	}

	span.SetAttributes(attribute.String("lra.id", lraID))
	log.Printf("LRA started: %s", lraID)
	return lraID, nil
}

// Join enlists a participant in the LRA, registering its termination URIs.
// The body carries participantData when given, the link header text
// otherwise. The returned identifier is the coordinator's recovery ID when
// it assigns one, the original lraID otherwise.
func (c *CoordinatorClient) Join(ctx context.Context, lraID string, uris TerminationURIs, participantData string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "lra.join",
		trace.WithAttributes(attribute.String("lra.id", lraID)))
	defer span.End()

	linkHeader := uris.LinkHeader()
	body := participantData
	if body == "" {
		body = linkHeader
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.coordinatorURL+"/"+uid(lraID)+"?TimeLimit=0", strings.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build join request")
	}
	req.Header.Set(apiVersionHeader, apiVersion)
	req.Header.Set("Link", linkHeader)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to join LRA %s", lraID)
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("failed to join LRA %s: coordinator returned %d", lraID, resp.StatusCode)
	}

	if recovery := resp.Header.Get(HeaderRecovery); recovery != "" {
		log.Printf("LRA joined: %s recovery=%s", lraID, recovery)
		return recovery, nil
	}
	log.Printf("LRA joined: %s", lraID)
	return lraID, nil
}

// Close asks the coordinator to complete the LRA.
func (c *CoordinatorClient) Close(ctx context.Context, lraID string) error {
	return c.end(ctx, lraID, "close")
}

// Cancel asks the coordinator to compensate the LRA.
func (c *CoordinatorClient) Cancel(ctx context.Context, lraID string) error {
	return c.end(ctx, lraID, "cancel")
}

// end treats 200, 202 and 404 as success: a retried or duplicate
// termination request must not surface as an error.
func (c *CoordinatorClient) end(ctx context.Context, lraID, action string) error {
	ctx, span := telemetry.StartSpan(ctx, "lra."+action,
		trace.WithAttributes(attribute.String("lra.id", lraID)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.coordinatorURL+"/"+uid(lraID)+"/"+action, strings.NewReader(""))
	if err != nil {
		return errors.Wrapf(err, "failed to build %s request", action)
	}
	req.Header.Set(apiVersionHeader, apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to %s LRA %s", action, lraID)
	}
	defer drainAndClose(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNotFound:
		log.Printf("LRA end: id=%s action=%s status=%d", lraID, action, resp.StatusCode)
		return nil
	default:
		return errors.Errorf("failed to %s LRA %s: coordinator returned %d", action, lraID, resp.StatusCode)
	}
}

// uid extracts the unique trailing path segment of an LRA identifier; the
// coordinator addresses join/close/cancel by it.
func uid(lraID string) string {
	trimmed := strings.TrimSuffix(lraID, "/")
	if u, err := url.Parse(trimmed); err == nil && u.Path != "" {
		trimmed = u.Path
	}
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
