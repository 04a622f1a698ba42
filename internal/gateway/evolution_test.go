package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendText(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"key":{"id":"msg-1"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "santa", "secret", 5*time.Second)

	raw, err := client.SendText(context.Background(), "5548999990000", "hello", true)
	require.NoError(t, err)
	assert.Equal(t, `{"key":{"id":"msg-1"}}`, raw)

	assert.Equal(t, "/message/sendText/santa", gotPath)
	assert.Equal(t, "secret", gotAPIKey)
	assert.Equal(t, "5548999990000", gotBody["number"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, true, gotBody["linkPreview"])
}

func TestSendTextGatewayErrorKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"number not on whatsapp"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "santa", "secret", 5*time.Second)

	raw, err := client.SendText(context.Background(), "123", "hello", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, `{"error":"number not on whatsapp"}`, raw, "error body must survive for the audit log")
}

func TestSendPresence(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "santa", "secret", 5*time.Second)

	require.NoError(t, client.SendPresence(context.Background(), "5548999990000"))
	assert.Equal(t, "/chat/sendPresence/santa", gotPath)

	options, ok := gotBody["options"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "composing", options["presence"])
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient("", "", "", 5*time.Second)

	_, err := client.SendText(context.Background(), "123", "hello", false)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
