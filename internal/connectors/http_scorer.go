package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type scoreRequest struct {
	Features []float64 `json:"features"`
}

type scoreResponse struct {
	RUL *float64 `json:"rul"`
}

// HTTPScorer ходит в удалённый сервис модели: POST {"features": [...]} -> {"rul": 12.5}.
type HTTPScorer struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewHTTPScorer(url string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{
		url:    url,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

func (s *HTTPScorer) Score(ctx context.Context, features []float64) (float64, error) {
	body, err := json.Marshal(scoreRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scorer call failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), s.now()),
			Cause:      fmt.Errorf("scorer returned %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("scorer returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if out.RUL == nil {
		return 0, fmt.Errorf("%w: rul is missing", ErrBadResponse)
	}
	return *out.RUL, nil
}
