package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	xhttp "github.com/SeekerKids/forecast-prophet-kp/pkg/http"
)

// HTTPServiceBase is the shared client for model services: base URL handling,
// JSON requests and retry of transient failures.
type HTTPServiceBase struct {
	baseURL         string
	client          *xhttp.Client
	retryMaxElapsed time.Duration
}

// NewHTTPServiceBase builds a client for baseURL. timeout bounds a single
// request; retryMaxElapsed bounds all attempts together (0 disables retry).
func NewHTTPServiceBase(baseURL string, timeout, retryMaxElapsed time.Duration, opts ...xhttp.ClientOption) *HTTPServiceBase {
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL:         strings.TrimRight(baseURL, "/"),
		client:          xhttp.NewClient(opts...),
		retryMaxElapsed: retryMaxElapsed,
	}
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	return b.do(ctx, xhttp.MethodPost, path, payload, dest)
}

// Delete issues a DELETE for path.
func (b *HTTPServiceBase) Delete(ctx context.Context, path string) error {
	return b.do(ctx, xhttp.MethodDelete, path, nil, nil)
}

func (b *HTTPServiceBase) do(ctx context.Context, method, path string, payload, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return errors.New("model service http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: method,
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), path, err)
	}
	return nil
}

// PostJSONWithRetry retries transport errors and 5xx/429 responses with
// exponential backoff. 4xx responses fail immediately. A service that stays
// unreachable yields models.ErrEngineUnavailable.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	err := b.postWithRetry(ctx, path, payload, dest)
	if err != nil && ctx.Err() == nil && transient(err) {
		return fmt.Errorf("%w: %w", models.ErrEngineUnavailable, err)
	}
	return err
}

func (b *HTTPServiceBase) postWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.retryMaxElapsed <= 0 {
		return b.PostJSON(ctx, path, payload, dest)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = b.retryMaxElapsed

	op := func() error {
		err := b.PostJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func transient(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
