package submit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwarder_PostsForm(t *testing.T) {
	var got url.Values
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Location", "/contracts/42")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	form := url.Values{"tenant": {"7"}, "units": {"10", "11"}, "start_date": {"2024-01-01"}}
	receipt, err := NewForwarder(srv.URL, time.Second).Submit(context.Background(), form)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, receipt.Status)
	assert.Equal(t, "/contracts/42", receipt.Location)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Equal(t, []string{"10", "11"}, got["units"])
	assert.Equal(t, "7", got.Get("tenant"))
}

func TestForwarder_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unit 10 already leased", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := NewForwarder(srv.URL, time.Second).Submit(context.Background(), url.Values{})
	var be *BackendError
	require.True(t, errors.As(err, &be), "err = %v", err)
	assert.Equal(t, http.StatusConflict, be.Status)
	assert.Equal(t, "unit 10 already leased", be.Body)
}

func TestForwarder_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewForwarder(srv.URL, time.Second).Submit(ctx, url.Values{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForwarder_NoBackend(t *testing.T) {
	_, err := NewForwarder("", time.Second).Submit(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrNoBackend)
}
