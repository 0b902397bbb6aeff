package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fetalscan/internal/config"
)

type stubEncoder struct {
	payload string
	err     error
	path    string
}

func (s *stubEncoder) EncodeBase64(inputPath string) (string, error) {
	s.path = inputPath
	return s.payload, s.err
}

func newTestClient(t *testing.T, url string, enc Encoder) *Client {
	t.Helper()
	return NewClient(&config.InferenceConfig{
		APIURL:  url + "/",
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, enc, zaptest.NewLogger(t))
}

func TestInferSendsImage(t *testing.T) {
	var gotPath, gotKey, gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("api_key")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"inference_id": "abc",
			"time": 0.2,
			"predictions": {"normal": {"confidence": 0.97, "class_id": 6}},
			"predicted_classes": ["normal"]
		}`)
	}))
	defer srv.Close()

	enc := &stubEncoder{payload: "aGVsbG8="}
	c := newTestClient(t, srv.URL, enc)

	resp, err := c.Infer(context.Background(), "/tmp/scan.png", "fetal-brain-abnormalities-ultrasound/1")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/scan.png", enc.path)
	assert.Equal(t, "/fetal-brain-abnormalities-ultrasound/1", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
	assert.Equal(t, "aGVsbG8=", gotBody)

	assert.Equal(t, "abc", resp.InferenceID)
	assert.Equal(t, []string{"normal"}, resp.PredictedClasses)
	assert.InDelta(t, 0.97, resp.Predictions["normal"].Confidence, 1e-9)
}

func TestInferStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"invalid api key"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, &stubEncoder{payload: "x"}).Infer(context.Background(), "a.png", "m/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestInferRejectsUnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"predictions": [{"class": "normal", "confidence": 0.9}]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, &stubEncoder{payload: "x"}).Infer(context.Background(), "a.png", "m/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestInferEncoderFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cause := errors.New("image: unknown format")
	_, err := newTestClient(t, srv.URL, &stubEncoder{err: cause}).Infer(context.Background(), "a.png", "m/1")
	require.ErrorIs(t, err, cause)
	assert.False(t, called)
}

func TestInferTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, &stubEncoder{payload: "x"}).Infer(context.Background(), "a.png", "m/1")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestInferHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, srv.URL, &stubEncoder{payload: "x"}).Infer(ctx, "a.png", "m/1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
