package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionRouter() *gin.Engine {
	r := gin.New()
	handler := NewHandler(nil, nil, nil, nil)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	return r
}

func TestPutSubscriptionRejectsEmptyBody(t *testing.T) {
	router := setupSubscriptionRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantBody string
	}{
		{
			name:     "missing endpoint",
			method:   http.MethodGet,
			path:     "/api/subscriptions",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown form",
			method:   http.MethodPut,
			path:     "/api/subscriptions",
			body:     gin.H{"endpoint": "https://push.example/1", "p256dh": "key", "auth": "secret", "forms": []string{"newsletter"}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "create",
			method:   http.MethodPut,
			path:     "/api/subscriptions",
			body:     gin.H{"endpoint": "https://push.example/1", "p256dh": "key", "auth": "secret", "forms": []string{"booking"}},
			wantCode: http.StatusCreated,
		},
		{
			name:     "replace forms",
			method:   http.MethodPut,
			path:     "/api/subscriptions",
			body:     gin.H{"endpoint": "https://push.example/1", "p256dh": "key", "auth": "secret", "forms": []string{"booking", "contact", "booking"}},
			wantCode: http.StatusCreated,
		},
		{
			name:     "read back",
			method:   http.MethodGet,
			path:     "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2F1",
			wantCode: http.StatusOK,
			wantBody: `{"forms":["booking","contact"]}`,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/subscriptions",
			body:     gin.H{"endpoint": "https://push.example/1"},
			wantCode: http.StatusNoContent,
		},
		{
			name:     "gone after delete",
			method:   http.MethodGet,
			path:     "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2F1",
			wantCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, w.Body.String())
			}
		})
	}
}
