package planthealth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySortsPredictions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/leaf.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/models/test/model", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "jpeg-bytes", string(body))
		_, _ = w.Write([]byte(`[{"label":"Tomato___healthy","score":0.01234},{"label":"Tomato___Late_blight","score":0.98234}]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL + "/models", Model: "test/model", Token: "hf_token"})
	require.NoError(t, err)

	result, err := client.Classify(context.Background(), server.URL+"/leaf.jpg")
	require.NoError(t, err)
	require.Len(t, result.Predictions, 2)
	assert.Equal(t, "Tomato___Late_blight", result.Top.Label)
	assert.Equal(t, 98.23, result.Top.ConfidencePercent)
	assert.Equal(t, 1.23, result.Predictions[1].ConfidencePercent)
}

func TestClassifyAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/leaf.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	})
	mux.HandleFunc("/models/m", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL + "/models", Model: "m", Token: "t"})
	require.NoError(t, err)

	_, err = client.Classify(context.Background(), server.URL+"/leaf.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClassifyImageNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL, Model: "m", Token: "t"})
	require.NoError(t, err)

	_, err = client.Classify(context.Background(), server.URL+"/missing.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not load image")
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Options{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 98.23, RoundPercent(0.982341))
	assert.Equal(t, 100.0, RoundPercent(1))
	assert.Equal(t, 0.0, RoundPercent(0))
}
