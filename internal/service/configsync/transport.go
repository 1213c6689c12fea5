package configsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
)

// HTTPTransport pushes the scope's current configuration to the service's
// ingest endpoint. A scope with no endpoint configured is pushed nowhere and
// reported as failed, which keeps the target visibly unconverged instead of
// silently green.
type HTTPTransport struct {
	configs   repository.ConfigRepository
	endpoints map[model.ServiceScope]string
	client    *http.Client
}

func NewHTTPTransport(configs repository.ConfigRepository, endpoints map[model.ServiceScope]string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		configs:   configs,
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Push(ctx context.Context, scope model.ServiceScope, generation int64) error {
	endpoint, ok := t.endpoints[scope]
	if !ok {
		return fmt.Errorf("no sync endpoint configured for scope %s", scope)
	}

	items, err := t.configs.List(ctx, &model.ConfigFilter{Scope: scope})
	if err != nil {
		return fmt.Errorf("load configuration for %s: %w", scope, err)
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Config-Generation", strconv.FormatInt(generation, 10))

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("push to %s: %w", scope, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push to %s: unexpected status %d", scope, resp.StatusCode)
	}
	return nil
}
