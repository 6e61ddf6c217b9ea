package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubStats map[string]interface{}

func (s stubStats) GetStats() map[string]interface{} { return s }

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	r := newRouter(NewHandler("1.2.3", stubPinger{}, stubStats{"size": 3}))

	w := get(r, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.3" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Cache["size"] != float64(3) {
		t.Errorf("weather_cache = %v", resp.Cache)
	}
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		pinger     stubPinger
		wantStatus int
	}{
		{"資料庫正常", stubPinger{}, http.StatusOK},
		{"資料庫異常", stubPinger{err: errors.New("database is closed")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newRouter(NewHandler("dev", tt.pinger, nil)), "/ready")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	w := get(newRouter(NewHandler("dev", stubPinger{}, nil)), "/live")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
