package router

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandLabels(t *testing.T) {
	cases := []struct {
		method     string
		path       string
		wantEntity string
		wantAction string
		wantOK     bool
	}{
		{http.MethodPost, "/api/v1/instruments", "instruments", "post", true},
		{http.MethodPost, "/api/v1/instruments/:id/mode", "instruments", "mode", true},
		{http.MethodPost, "/api/v1/instruments/:id/toggle-activation", "instruments", "toggle-activation", true},
		{http.MethodDelete, "/api/v1/reagents/:id", "reagents", "delete", true},
		{http.MethodPut, "/api/v1/test-orders/:id/comments/:comment_id", "test-orders", "comments", true},
		{http.MethodPost, "/api/v1/raw-results/sync-to-monitoring", "raw-results", "sync-to-monitoring", true},
		{http.MethodPost, "/api/v1/sync/force", "sync", "force", true},
		{http.MethodGet, "/api/v1/instruments", "", "", false},
		{http.MethodPost, "/metrics", "", "", false},
	}
	for _, tc := range cases {
		entity, action, ok := commandLabels(tc.method, tc.path)
		assert.Equal(t, tc.wantOK, ok, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.wantEntity, entity, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.wantAction, action, "%s %s", tc.method, tc.path)
	}
}
