package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	httperr "github.com/toolradar-lab/toolradar/internal/core/errors"
	"github.com/toolradar-lab/toolradar/internal/core/storage/storagetest"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

func newTestService(t *testing.T) (*Service, *storagetest.EventStore, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := storagetest.NewClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	store := storagetest.NewEventStore(clock)
	catalog := storagetest.NewCatalog(
		&v1.Tool{ID: 1, Slug: "grid-master", Name: "Grid Master", Platform: v1.PlatformMT4, ToolType: "ea"},
	)

	svc := NewService(store, catalog, 7, 1)
	svc.nowFn = clock.Now

	router := gin.New()
	svc.RegisterRoutes(router)
	return svc, store, router
}

func postTrack(router *gin.Engine, body string, userAgent string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/events/track", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httperr.ErrorResponse {
	t.Helper()
	var resp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTrackHandler_ViewEventPersisted(t *testing.T) {
	_, store, router := newTestService(t)

	w := postTrack(router, `{"tool_id": 1, "event_type": "view"}`, browserUA)

	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"status": "tracked"}`, w.Body.String())
	require.Equal(t, 1, store.Count())
}

func TestTrackHandler_ShareEventPersisted(t *testing.T) {
	_, store, router := newTestService(t)

	w := postTrack(router, `{"tool_id": 1, "event_type": "share", "share_platform": "line"}`, browserUA)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 1, store.Count())
}

func TestTrackHandler_BotDropped(t *testing.T) {
	_, store, router := newTestService(t)

	w := postTrack(router, `{"tool_id": 1, "event_type": "view"}`, "Googlebot/2.1 (+http://www.google.com/bot.html)")

	require.Equal(t, http.StatusAccepted, w.Code)
	require.JSONEq(t, `{"status": "not_tracked"}`, w.Body.String())
	require.Zero(t, store.Count(), "bot events must never reach the store")
}

func TestTrackHandler_EmptyUserAgentDropped(t *testing.T) {
	_, store, router := newTestService(t)

	w := postTrack(router, `{"tool_id": 1, "event_type": "view"}`, "")

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Zero(t, store.Count())
}

func TestTrackHandler_InvalidJSON(t *testing.T) {
	_, store, router := newTestService(t)

	w := postTrack(router, `{"tool_id": `, browserUA)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, httperr.HttpInvalidJsonError, decodeError(t, w).ErrorType)
	require.Zero(t, store.Count())
}

func TestTrackHandler_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing tool id", `{"event_type": "view"}`},
		{"unknown event type", `{"tool_id": 1, "event_type": "hover"}`},
		{"duration without seconds", `{"tool_id": 1, "event_type": "duration"}`},
		{"share with unknown platform", `{"tool_id": 1, "event_type": "share", "share_platform": "myspace"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, store, router := newTestService(t)

			w := postTrack(router, tc.body, browserUA)

			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, httperr.HttpValidationError, decodeError(t, w).ErrorType)
			require.Zero(t, store.Count())
		})
	}
}

func TestTrackHandler_UnknownTool(t *testing.T) {
	_, store, router := newTestService(t)

	w := postTrack(router, `{"tool_id": 999, "event_type": "view"}`, browserUA)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, httperr.HttpToolNotFoundError, decodeError(t, w).ErrorType)
	require.Zero(t, store.Count())
}

func TestTrackHandler_StoreFailure(t *testing.T) {
	_, store, router := newTestService(t)
	store.SaveErr = errors.New("connection reset")

	w := postTrack(router, `{"tool_id": 1, "event_type": "view"}`, browserUA)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, httperr.HttpInternalError, decodeError(t, w).ErrorType)
}

func TestTrackHandler_OversizedBody(t *testing.T) {
	_, store, router := newTestService(t)

	big := bytes.Repeat([]byte("a"), 1024*1024+64)
	w := postTrack(router, `{"pad": "`+string(big)+`"}`, browserUA)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Zero(t, store.Count())
}

func TestSummaryHandler(t *testing.T) {
	svc, store, router := newTestService(t)

	now := svc.nowFn()
	store.Seed(1, v1.KindView, 0, now.AddDate(0, 0, -1))
	store.Seed(1, v1.KindClick, 0, now.AddDate(0, 0, -2))
	store.Seed(1, v1.KindView, 0, now.AddDate(0, 0, -20)) // outside the window

	req := httptest.NewRequest(http.MethodGet, "/v1/events/summary", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		TotalEvents  int64            `json:"total_events"`
		WindowEvents int64            `json:"window_events"`
		ByKind       map[string]int64 `json:"by_kind"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Equal(t, int64(3), summary.TotalEvents)
	require.Equal(t, int64(2), summary.WindowEvents)
	require.Equal(t, int64(2), summary.ByKind[v1.KindView])
}
