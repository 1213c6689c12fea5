package instrument

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPDiagnostic probes the instrument gateway's health endpoint for one
// device. A 200 means the device recovered; any other status means it is
// still down. Transport errors are returned as probe failures so callers can
// tell "device said no" apart from "gateway unreachable".
type HTTPDiagnostic struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDiagnostic(baseURL string, timeout time.Duration) *HTTPDiagnostic {
	return &HTTPDiagnostic{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDiagnostic) Probe(ctx context.Context, serialNumber string) (bool, error) {
	url := fmt.Sprintf("%s/devices/%s/health", d.baseURL, serialNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", serialNumber, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
