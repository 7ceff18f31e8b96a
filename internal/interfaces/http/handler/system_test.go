package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/estudiomd/backoffice/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("backoffice", "test", nil)
	c, w := newTestContext(http.MethodGet, "/health")

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSystemHandler_Ready(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	broken := pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		h := NewSystemHandler("backoffice", "test", map[string]Pinger{"database": healthy})
		c, w := newTestContext(http.MethodGet, "/ready")

		h.Ready(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
	})

	t.Run("dependency down", func(t *testing.T) {
		h := NewSystemHandler("backoffice", "test", map[string]Pinger{"database": healthy, "cache": broken})
		c, w := newTestContext(http.MethodGet, "/ready")

		h.Ready(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp dto.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Checks["cache"])
		assert.NotContains(t, w.Body.String(), "refused")
	})
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("estudiomd-backoffice", "1.2.0", nil)
	c, w := newTestContext(http.MethodGet, "/api/v1/system/info/")

	h.Info(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SystemInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "estudiomd-backoffice", resp.Name)
	assert.Equal(t, "1.2.0", resp.Version)
	assert.NotEmpty(t, resp.GoVersion)
}
