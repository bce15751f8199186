package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"headroom-havens-backend/config"
	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/db"
	"headroom-havens-backend/internal/engagement"
	"headroom-havens-backend/internal/lead"
	"headroom-havens-backend/internal/model"
	"headroom-havens-backend/internal/session"
	"headroom-havens-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router    *gin.Engine
	store     store.Store
	collector *httptest.Server
	status    *int32
}

func newTestEnv(t *testing.T) *testEnv {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	sqlDB, _ := gormDB.DB()
	t.Cleanup(func() { sqlDB.Close() })

	status := int32(http.StatusOK)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	t.Cleanup(collector.Close)

	s := store.NewGormStore(gormDB)
	c := catalog.MustSeed()
	sessions := session.NewManager(session.Deps{
		Catalog:    c,
		Store:      s,
		Submitter:  lead.NewGateway(collector.URL, collector.Client()),
		Engagement: engagement.Options{Delay: time.Hour},
		BookingURL: "https://partner.example/book",
	}, time.Minute)
	t.Cleanup(sessions.CloseAll)

	cfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTL: time.Minute}
	handler := NewHandler(s, sessions, c, &webpush.Options{VAPIDPublicKey: "test-public-key"})
	return &testEnv{router: NewRouter(cfg, handler), store: s, collector: collector, status: &status}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestGetCatalog(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []int64
	}{
		{"no filter", "", http.StatusOK, []int64{1, 2, 3, 4, 5}},
		{"min rating", "?min_rating=200", http.StatusOK, []int64{1, 3}},
		{"low headroom", "?low_headroom=true", http.StatusOK, []int64{5}},
		{"mid-range bucket", "?price_tier=2", http.StatusOK, []int64{1, 4}},
		{"text search", "?q=lodge", http.StatusOK, []int64{3}},
		{"empty result", "?min_rating=300", http.StatusOK, []int64{}},
		{"bad rating", "?min_rating=tall", http.StatusBadRequest, nil},
		{"bad flag", "?low_headroom=maybe", http.StatusBadRequest, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/catalog"+tc.query, nil)
			require.Equal(t, tc.wantCode, w.Code)
			if tc.wantIDs == nil {
				return
			}
			cards := decode[[]struct {
				ID int64 `json:"id"`
			}](t, w)
			ids := make([]int64, 0, len(cards))
			for _, c := range cards {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestGetListing(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/catalog/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	card := decode[map[string]any](t, w)
	assert.Equal(t, "Sea Breeze Cottage", card["name"])
	assert.Equal(t, float64(215), card["safetyRatingCm"])

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/catalog/42", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/catalog/abc", nil).Code)
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/sessions", gin.H{"path": "/detail/3"})
	require.Equal(t, http.StatusCreated, w.Code)
	snap := decode[session.Snapshot](t, w)
	assert.Equal(t, "/home", snap.Page.URL, "gated deep link lands on home")
	assert.NotEmpty(t, snap.Notice)
	base := "/api/sessions/" + snap.ID

	w = env.do(t, http.MethodPost, base+"/navigate", gin.H{"view": "listings"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/home", decode[session.Snapshot](t, w).Page.URL)

	w = env.do(t, http.MethodPost, base+"/consent", gin.H{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, base+"/consent", gin.H{"decision": "accept"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engagement.ConsentAccepted, decode[session.Snapshot](t, w).Engagement.Consent)

	w = env.do(t, http.MethodPost, base+"/navigate", gin.H{"view": "detail", "entityId": 3})
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[session.Snapshot](t, w)
	assert.Equal(t, "/detail/3", snap.Page.URL)
	require.NotNil(t, snap.Page.Listing)
	assert.Equal(t, "The Glass Lodge", snap.Page.Listing.Name)

	w = env.do(t, http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/home", decode[session.Snapshot](t, w).Page.URL)

	w = env.do(t, http.MethodPost, base+"/forward", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/detail/3", decode[session.Snapshot](t, w).Page.URL)

	w = env.do(t, http.MethodPost, base+"/forms/booking", gin.H{"fields": gin.H{"email": "ada@example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[session.Outcome](t, w)
	assert.Equal(t, "https://partner.example/book?listing=3", out.RedirectURL)

	var count int64
	require.NoError(t, env.store.DB().Model(&model.Lead{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSessionFilter(t *testing.T) {
	env := newTestEnv(t)

	snap := decode[session.Snapshot](t, env.do(t, http.MethodPost, "/api/sessions", gin.H{"path": "/"}))
	base := "/api/sessions/" + snap.ID
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/consent", gin.H{"decision": "accept"}).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/navigate", gin.H{"view": "listings"}).Code)

	w := env.do(t, http.MethodPut, base+"/filter?low_headroom=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[session.Snapshot](t, w)
	require.Len(t, snap.Page.Listings, 1)
	assert.Equal(t, "Shepherd's Bothy", snap.Page.Listings[0].Name)
}

func TestSubmitFormErrors(t *testing.T) {
	env := newTestEnv(t)
	snap := decode[session.Snapshot](t, env.do(t, http.MethodPost, "/api/sessions", nil))
	base := "/api/sessions/" + snap.ID

	w := env.do(t, http.MethodPost, base+"/forms/newsletter", gin.H{"fields": gin.H{}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, base+"/forms/interest", gin.H{"fields": gin.H{"email": "tall@example.com"}})
	assert.Equal(t, http.StatusConflict, w.Code, "interest form is not offered before a consent decision")

	atomic.StoreInt32(env.status, http.StatusInternalServerError)
	w = env.do(t, http.MethodPost, base+"/forms/contact", gin.H{"fields": gin.H{"message": "hi"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	atomic.StoreInt32(env.status, http.StatusOK)
	w = env.do(t, http.MethodPost, base+"/forms/contact", gin.H{"fields": gin.H{"message": "hi"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[session.Outcome](t, w).Confirmation)
}

func TestForgetVisitor(t *testing.T) {
	env := newTestEnv(t)

	snap := decode[session.Snapshot](t, env.do(t, http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+snap.ID+"/consent", gin.H{"decision": "accept"}).Code)

	w := env.do(t, http.MethodPost, "/api/sessions", gin.H{"path": "/listings", "visitorId": snap.VisitorID})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/listings", decode[session.Snapshot](t, w).Page.URL)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodDelete, "/api/visitors/nope", nil).Code)
	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/visitors/"+snap.VisitorID, nil).Code)

	w = env.do(t, http.MethodPost, "/api/sessions", gin.H{"path": "/listings", "visitorId": snap.VisitorID})
	require.Equal(t, http.StatusCreated, w.Code)
	after := decode[session.Snapshot](t, w)
	assert.Equal(t, "/home", after.Page.URL)
	assert.Equal(t, engagement.ConsentUndecided, after.Engagement.Consent)
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/sessions/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, w.Body.String())
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())
}
