package ads

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/config"
	httperr "github.com/toolradar-lab/toolradar/internal/core/errors"
	"github.com/toolradar-lab/toolradar/internal/core/storage/storagetest"
)

func newAdRouter(t *testing.T, store *storagetest.AdStore) (*Service, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(store, config.StrategyPriority)
	svc.nowFn = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	svc.rng = rand.New(rand.NewSource(42))

	router := gin.New()
	svc.RegisterRoutes(router)
	return svc, router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func post(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	return w
}

func TestSelectHandler_ServesCreativeAndCountsImpression(t *testing.T) {
	ad := creative("banner", 1, 10, 0)
	store := storagetest.NewAdStore(ad)
	_, router := newAdRouter(t, store)

	w := get(router, "/v1/ads?placement=sidebar-top")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID     uuid.UUID `json:"id"`
		Markup string    `json:"ad_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, ad.ID, resp.ID)
	require.Equal(t, ad.Markup, resp.Markup)

	stored, err := store.Get(t.Context(), ad.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.Impressions)
}

func TestSelectHandler_NoFillReturnsEmptyObject(t *testing.T) {
	_, router := newAdRouter(t, storagetest.NewAdStore())

	w := get(router, "/v1/ads?placement=sidebar-top")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{}`, w.Body.String())
}

func TestSelectHandler_ExpiredCreativeNotServed(t *testing.T) {
	ad := creative("expired", 1, 10, 0)
	past := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	ad.EndsAt = &past
	_, router := newAdRouter(t, storagetest.NewAdStore(ad))

	w := get(router, "/v1/ads?placement=sidebar-top")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{}`, w.Body.String())
}

func TestSelectHandler_InactiveCreativeNotServed(t *testing.T) {
	ad := creative("paused", 1, 10, 0)
	ad.Active = false
	_, router := newAdRouter(t, storagetest.NewAdStore(ad))

	w := get(router, "/v1/ads?placement=sidebar-top")
	require.JSONEq(t, `{}`, w.Body.String())
}

func TestSelectHandler_UnknownPlacement(t *testing.T) {
	_, router := newAdRouter(t, storagetest.NewAdStore())

	w := get(router, "/v1/ads?placement=popup")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectHandler_UnknownStrategy(t *testing.T) {
	_, router := newAdRouter(t, storagetest.NewAdStore(creative("a", 1, 1, 0)))

	w := get(router, "/v1/ads?placement=sidebar-top&strategy=round_robin")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectHandler_StrategyOverride(t *testing.T) {
	// priority default would always serve "first"; weighted_random with a
	// dominant weight on "second" must be able to pick it.
	first := creative("first", 1, 1, 0)
	second := creative("second", 2, 1000, 0)
	_, router := newAdRouter(t, storagetest.NewAdStore(first, second))

	var servedSecond bool
	for i := 0; i < 50 && !servedSecond; i++ {
		w := get(router, "/v1/ads?placement=sidebar-top&strategy=weighted_random")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		if resp.Name == "second" {
			servedSecond = true
		}
	}
	require.True(t, servedSecond)
}

func TestImpressionAndClickHandlers(t *testing.T) {
	ad := creative("banner", 1, 10, 0)
	store := storagetest.NewAdStore(ad)
	_, router := newAdRouter(t, store)

	require.Equal(t, http.StatusNoContent, post(router, "/v1/ads/"+ad.ID.String()+"/impression").Code)
	require.Equal(t, http.StatusNoContent, post(router, "/v1/ads/"+ad.ID.String()+"/click").Code)
	require.Equal(t, http.StatusNoContent, post(router, "/v1/ads/"+ad.ID.String()+"/click").Code)

	stored, err := store.Get(t.Context(), ad.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.Impressions)
	require.Equal(t, int64(2), stored.Clicks)
}

func TestCountHandlers_UnknownAd(t *testing.T) {
	_, router := newAdRouter(t, storagetest.NewAdStore())

	w := post(router, "/v1/ads/"+uuid.NewString()+"/click")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, httperr.HttpAdNotFoundError, resp.ErrorType)
}

func TestCountHandlers_MalformedID(t *testing.T) {
	_, router := newAdRouter(t, storagetest.NewAdStore())
	require.Equal(t, http.StatusBadRequest, post(router, "/v1/ads/not-a-uuid/click").Code)
}

func TestStatsHandler_ReportsCTR(t *testing.T) {
	ad := creative("banner", 1, 10, 0)
	ad.Impressions = 100
	ad.Clicks = 2
	idle := creative("idle", 2, 5, 0)
	idle.Placement = v1.PlacementBlogBottom
	_, router := newAdRouter(t, storagetest.NewAdStore(ad, idle))

	w := get(router, "/v1/ads/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int        `json:"count"`
		Ads   []StatsRow `json:"ads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	byName := map[string]StatsRow{}
	for _, row := range resp.Ads {
		byName[row.Name] = row
	}
	require.InDelta(t, 2.0, byName["banner"].CTR, 1e-9)
	require.Zero(t, byName["idle"].CTR, "zero impressions must report 0.0, not NaN")
}

func TestStatsHandler_PlacementFilter(t *testing.T) {
	a := creative("a", 1, 10, 0)
	b := creative("b", 1, 10, 0)
	b.Placement = v1.PlacementBlogMiddle
	_, router := newAdRouter(t, storagetest.NewAdStore(a, b))

	w := get(router, "/v1/ads/stats?placement=blog-middle")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
}
