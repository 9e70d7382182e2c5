package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"github.com/EcrTech/FL-sub005/pkg/id"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnavailable shares its code with the domain-level variants so
	// errors.Is works across the adapter boundary.
	ErrUnavailable = apperr.Provider("provider_unavailable", "partner service unavailable, try again")
	ErrRejected    = apperr.Provider("provider_rejected", "partner rejected the request")
)

// RejectionError carries a 4xx response so adapters can turn it into a
// domain result instead of surfacing raw HTTP.
type RejectionError struct {
	Status int
	Body   Fields
}

func (e *RejectionError) Error() string { return fmt.Sprintf("partner responded %d", e.Status) }

// AsRejection reports the decoded body of a 4xx response.
func AsRejection(err error) (Fields, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Body, true
	}
	return nil, false
}

// HeaderTraceID tags each outbound call so partner support can find it.
const HeaderTraceID = "X-Trace-Id"

// BaseProvider holds what every partner REST client shares.
type BaseProvider struct {
	Name    string
	BaseURL string
	APIKey  string
	Client  *http.Client
	Log     logrus.FieldLogger
}

func NewBaseProvider(name, baseURL, apiKey string, timeout time.Duration, log logrus.FieldLogger) BaseProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return BaseProvider{
		Name:    name,
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
		Log:     log.WithField("provider", name),
	}
}

// MakeRequest sends body as JSON and decodes a JSON object response.
// Transport failures, 5xx and 429 wrap ErrUnavailable; other 4xx return a
// *RejectionError wrapped in ErrRejected.
func (p *BaseProvider) MakeRequest(ctx context.Context, method, path string, body any, extraHeaders map[string]string) (Fields, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	url := p.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	trace := id.NewID32()
	req.Header.Set(HeaderTraceID, trace)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	log := p.Log.WithFields(logrus.Fields{"method": method, "url": url, "trace_id": trace})
	resp, err := p.Client.Do(req)
	if err != nil {
		log.WithError(err).Warn("external request failed")
		return nil, ErrUnavailable.Wrap(err).WithMeta(map[string]any{"provider": p.Name})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration_ms": time.Since(start).Milliseconds()})
	if err != nil {
		log.WithError(err).Warn("external response unreadable")
		return nil, ErrUnavailable.Wrap(err).WithMeta(map[string]any{"provider": p.Name})
	}
	log.Info("external request")
	log.WithField("body", string(raw)).Debug("external response")

	fields := Fields{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil && resp.StatusCode < 300 {
			return nil, ErrUnavailable.Wrap(fmt.Errorf("decode %s response: %w", p.Name, err))
		}
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrUnavailable.Wrap(fmt.Errorf("%s responded %d", p.Name, resp.StatusCode)).
			WithMeta(map[string]any{"provider": p.Name})
	case resp.StatusCode >= 400:
		return fields, ErrRejected.Wrap(&RejectionError{Status: resp.StatusCode, Body: fields}).
			WithMeta(map[string]any{"provider": p.Name})
	}
	return fields, nil
}
