package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return &l
}

func TestWhatsAppSend(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"From":             r.PostForm.Get("From"),
			"To":               r.PostForm.Get("To"),
			"ContentSid":       r.PostForm.Get("ContentSid"),
			"ContentVariables": r.PostForm.Get("ContentVariables"),
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM123"}`))
	}))
	defer srv.Close()

	g, err := NewWhatsAppGateway(WhatsAppConfig{
		AccountSID: "AC1",
		AuthToken:  "token",
		FromNumber: "+10000000000",
		BaseURL:    srv.URL,
		Timeout:    time.Second,
	}, testLogger())
	require.NoError(t, err)

	res, err := g.Send(context.Background(), "+919876543210", "HX42", map[int]string{
		1: "Dr. Rao",
		2: "2025-03-10",
		3: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "SM123", res.MessageID)

	assert.Equal(t, "whatsapp:+10000000000", gotForm["From"])
	assert.Equal(t, "whatsapp:+919876543210", gotForm["To"])
	assert.Equal(t, "HX42", gotForm["ContentSid"])
	assert.JSONEq(t, `{"1":"Dr. Rao","2":"2025-03-10","3":"10:00"}`, gotForm["ContentVariables"])
}

func TestWhatsAppSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g, err := NewWhatsAppGateway(WhatsAppConfig{
		AccountSID: "AC1",
		AuthToken:  "bad",
		FromNumber: "+10000000000",
		BaseURL:    srv.URL,
	}, testLogger())
	require.NoError(t, err)

	_, err = g.Send(context.Background(), "+919876543210", "HX42", nil)
	assert.Error(t, err)
}

func TestWhatsAppConfigValidation(t *testing.T) {
	_, err := NewWhatsAppGateway(WhatsAppConfig{}, testLogger())
	assert.Error(t, err)
}

func TestEncodeVarsRejectsZeroIndex(t *testing.T) {
	_, err := encodeVars(map[int]string{0: "x"})
	assert.Error(t, err)
}
