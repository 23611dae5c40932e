package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/pkg/logger"
)

type stubLifecycle struct {
	confirmed []uuid.UUID
	cancelled []uuid.UUID
	result    bool
	err       error
}

func (s *stubLifecycle) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	s.confirmed = append(s.confirmed, id)
	return s.result, s.err
}

func (s *stubLifecycle) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	s.cancelled = append(s.cancelled, id)
	return s.result, s.err
}

type stubTracker struct {
	sids     []string
	statuses []string
	err      error
}

func (s *stubTracker) Record(ctx context.Context, providerSID, status string) error {
	s.sids = append(s.sids, providerSID)
	s.statuses = append(s.statuses, status)
	return s.err
}

func setup(lifecycle *stubLifecycle, tracker *stubTracker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(lifecycle, tracker, logger.NewLogger(nil))
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func postForm(engine *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHandleReplyConfirm(t *testing.T) {
	lifecycle := &stubLifecycle{result: true}
	engine := setup(lifecycle, &stubTracker{})

	id := uuid.New()
	w := postForm(engine, "/api/v1/webhooks/reply", url.Values{
		"Body":          {"CONFIRM"},
		"ButtonPayload": {id.String()},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"handled":true}`, w.Body.String())
	require.Len(t, lifecycle.confirmed, 1)
	assert.Equal(t, id, lifecycle.confirmed[0])
}

func TestHandleReplyCancelVariants(t *testing.T) {
	for _, body := range []string{"CANCEL", "Cancel appointment"} {
		lifecycle := &stubLifecycle{result: true}
		engine := setup(lifecycle, &stubTracker{})

		w := postForm(engine, "/api/v1/webhooks/reply", url.Values{
			"Body":          {body},
			"ButtonPayload": {uuid.NewString()},
		})

		assert.Equal(t, http.StatusOK, w.Code, body)
		assert.Len(t, lifecycle.cancelled, 1, body)
	}
}

func TestHandleReplyFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"unparseable payload", url.Values{"Body": {"CONFIRM"}, "ButtonPayload": {"not-a-uuid"}}},
		{"unknown body", url.Values{"Body": {"MAYBE"}, "ButtonPayload": {uuid.NewString()}}},
		{"empty form", url.Values{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lifecycle := &stubLifecycle{result: true}
			engine := setup(lifecycle, &stubTracker{})

			w := postForm(engine, "/api/v1/webhooks/reply", tt.form)

			assert.Equal(t, http.StatusOK, w.Code, "provider always gets 200")
			assert.JSONEq(t, `{"handled":false}`, w.Body.String())
			assert.Empty(t, lifecycle.confirmed)
			assert.Empty(t, lifecycle.cancelled)
		})
	}
}

func TestHandleReplyServiceErrorStill200(t *testing.T) {
	lifecycle := &stubLifecycle{err: assert.AnError}
	engine := setup(lifecycle, &stubTracker{})

	w := postForm(engine, "/api/v1/webhooks/reply", url.Values{
		"Body":          {"CONFIRM"},
		"ButtonPayload": {uuid.NewString()},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"handled":false}`, w.Body.String())
}

func TestHandleDeliveryStatus(t *testing.T) {
	tracker := &stubTracker{}
	engine := setup(&stubLifecycle{}, tracker)

	w := postForm(engine, "/api/v1/webhooks/delivery", url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"delivered"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, tracker.sids, 1)
	assert.Equal(t, "SM123", tracker.sids[0])
	assert.Equal(t, "delivered", tracker.statuses[0])
}

func TestHandleDeliveryStatusErrorStill200(t *testing.T) {
	tracker := &stubTracker{err: assert.AnError}
	engine := setup(&stubLifecycle{}, tracker)

	w := postForm(engine, "/api/v1/webhooks/delivery", url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"failed"},
	})

	assert.Equal(t, http.StatusOK, w.Code, "processing failures never bubble to the provider")
}
