package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/codyseavey/minifig-tracker/internal/metrics"
	"github.com/codyseavey/minifig-tracker/internal/models"
)

const (
	minifigAPIDefaultTimeout        = 30 * time.Second
	minifigAPIDefaultRefreshTimeout = 15 * time.Minute
	minifigAPIDefaultRPS            = 5

	// maxErrorBody bounds how much of a failed response is kept for the error message
	maxErrorBody = 512
)

// Backend operation names, used in errors, logs and metrics
const (
	OpList           = "list"
	OpAdd            = "add"
	OpDelete         = "delete"
	OpRefreshAll     = "refresh_all"
	OpRefreshOne     = "refresh_one"
	OpUpdateQuantity = "update_quantity"
)

// MinifigAPI talks to the minifigure REST backend
type MinifigAPI struct {
	client         *http.Client
	baseURL        string
	limiter        *rate.Limiter
	timeout        time.Duration
	refreshTimeout time.Duration
}

// RefreshOneResponse is the backend answer to a single item refresh
type RefreshOneResponse struct {
	Message    string        `json:"message"`
	Minifigure models.Record `json:"minifigure"`
}

type updateQuantityRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// NewMinifigAPI creates a backend client. Requests are throttled to rps
// per second (burst of the same size). Each call gets its own deadline:
// refreshTimeout for the bulk /maj scrape, timeout for everything else.
func NewMinifigAPI(baseURL string, timeout, refreshTimeout time.Duration, rps float64) *MinifigAPI {
	if timeout <= 0 {
		timeout = minifigAPIDefaultTimeout
	}
	if refreshTimeout <= 0 {
		refreshTimeout = minifigAPIDefaultRefreshTimeout
	}
	if rps <= 0 {
		rps = minifigAPIDefaultRPS
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &MinifigAPI{
		client:         &http.Client{},
		baseURL:        baseURL,
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
		timeout:        timeout,
		refreshTimeout: refreshTimeout,
	}
}

// ListMinifigures fetches the whole collection
func (a *MinifigAPI) ListMinifigures(ctx context.Context) ([]models.Record, error) {
	var records []models.Record
	if err := a.do(ctx, OpList, http.MethodGet, "/minifigures", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// AddMinifigure asks the backend to look up id and add it to the collection
func (a *MinifigAPI) AddMinifigure(ctx context.Context, id string) (models.Record, error) {
	var record models.Record
	if err := a.do(ctx, OpAdd, http.MethodGet, "/minifigures/"+url.PathEscape(id), nil, &record); err != nil {
		return nil, err
	}
	// The backend stores and echoes scrape failures as {"error": "..."} with a 201
	if msg, ok := record["error"]; ok {
		text, _ := msg.Str()
		err := &RemoteCallError{Op: OpAdd, Err: fmt.Errorf("backend could not add %s: %s", id, text)}
		log.Printf("Minifig API: %v", err)
		return nil, err
	}
	return record, nil
}

// DeleteMinifigure removes id from the collection
func (a *MinifigAPI) DeleteMinifigure(ctx context.Context, id string) error {
	return a.do(ctx, OpDelete, http.MethodDelete, "/minifigures/"+url.PathEscape(id), nil, nil)
}

// RefreshAll asks the backend to refresh every current price and returns the updated collection
func (a *MinifigAPI) RefreshAll(ctx context.Context) ([]models.Record, error) {
	var records []models.Record
	if err := a.do(ctx, OpRefreshAll, http.MethodGet, "/maj", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// RefreshOne refreshes the current price of a single minifigure
func (a *MinifigAPI) RefreshOne(ctx context.Context, id string) (models.Record, error) {
	var resp RefreshOneResponse
	if err := a.do(ctx, OpRefreshOne, http.MethodGet, "/maj/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Minifigure == nil {
		return nil, &RemoteCallError{Op: OpRefreshOne, Err: errors.New("response has no minifigure")}
	}
	return resp.Minifigure, nil
}

// UpdateQuantity persists a new owned quantity for id
func (a *MinifigAPI) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	body := updateQuantityRequest{ID: id, Quantity: quantity}
	return a.do(ctx, OpUpdateQuantity, http.MethodPost, "/update_quantity", body, nil)
}

// do performs one backend call. Every failure comes back as a *RemoteCallError.
func (a *MinifigAPI) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeoutFor(op))
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		return &RemoteCallError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RemoteCallError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return &RemoteCallError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	err = a.send(req, op, out)
	metrics.ObserveRemote(op, start, err)

	if err != nil {
		log.Printf("Minifig API: %s %s failed (request %s, %v): %v", method, path, requestID, time.Since(start).Round(time.Millisecond), err)
		return err
	}
	log.Printf("Minifig API: %s %s ok (request %s, %v)", method, path, requestID, time.Since(start).Round(time.Millisecond))
	return nil
}

// timeoutFor returns the request deadline for op. The bulk refresh scrapes
// every item on the backend and takes far longer than the other calls.
func (a *MinifigAPI) timeoutFor(op string) time.Duration {
	if op == OpRefreshAll {
		return a.refreshTimeout
	}
	return a.timeout
}

func (a *MinifigAPI) send(req *http.Request, op string, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return &RemoteCallError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteCallError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(resp.Body))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteCallError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a failed response
func errorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if len(raw) == 0 {
		return "empty response"
	}
	return string(bytes.TrimSpace(raw))
}
