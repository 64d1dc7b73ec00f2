package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"dripmate/models"
	"dripmate/storage"
	"dripmate/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveBaseURL(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"", "http://localhost:8000/api"},
		{"localhost:5173", "http://localhost:8000/api"},
		{"192.168.1.20:5173", "http://192.168.1.20:8000/api"},
		{"192.168.1.20", "http://192.168.1.20:8000/api"},
		{"[::1]:5173", "http://[::1]:8000/api"},
	}
	for _, tc := range cases {
		t.Run(tc.host, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveBaseURL(tc.host, DefaultAPIPort, DefaultAPIPath))
		})
	}
}

func TestHostname(t *testing.T) {
	assert.Equal(t, "wardrobe.lan", Hostname("Wardrobe.LAN:5173"))
	assert.Equal(t, "::1", Hostname("[::1]:5173"))
	assert.Equal(t, "10.0.0.2", Hostname("10.0.0.2"))
	assert.Equal(t, "", Hostname(""))
}

func TestWithTimeoutLeavesGivenClientAlone(t *testing.T) {
	given := &http.Client{}
	session := storage.NewSessionStore(storage.NewMemoryBackend(), zap.NewNop())

	for _, opts := range [][]ClientOption{
		{WithHTTPClient(given), WithTimeout(3 * time.Second)},
		{WithTimeout(3 * time.Second), WithHTTPClient(given)},
	} {
		c := NewAPIClient(StaticBaseURL("http://localhost:8000/api"), session, opts...)

		assert.Equal(t, 3*time.Second, c.http.Timeout)
		assert.NotSame(t, given, c.http)
	}
	assert.Zero(t, given.Timeout)
	assert.Zero(t, http.DefaultClient.Timeout)

	c := NewAPIClient(StaticBaseURL("http://localhost:8000/api"), session, WithHTTPClient(given))
	assert.Same(t, given, c.http)
}

func TestHostBaseURLFollowsContext(t *testing.T) {
	resolve := HostBaseURL(DefaultAPIPort, DefaultAPIPath)

	assert.Equal(t, "http://localhost:8000/api", resolve(context.Background()))
	ctx := WithHost(context.Background(), "10.0.0.7:5173")
	assert.Equal(t, "http://10.0.0.7:8000/api", resolve(ctx))
}

func TestStaticBaseURLTrimsSlash(t *testing.T) {
	assert.Equal(t, "http://api.local/api", StaticBaseURL("http://api.local/api/")(context.Background()))
}

func TestExtractDetail(t *testing.T) {
	cases := map[string]string{
		`{"detail":"bad vibe"}`: "bad vibe",
		`{"detail":[{"loc":["body","item"],"msg":"field required"},{"msg":"too long"}]}`: "field required; too long",
		`{"error":"model overloaded"}`: "model overloaded",
		`{"message":"Not Found"}`:      "Not Found",
		`<html>oops</html>`:            "",
		``:                             "",
	}
	for body, want := range cases {
		assert.Equal(t, want, extractDetail([]byte(body)), body)
	}
}

func TestAPIErrorMatchesKind(t *testing.T) {
	err := &APIError{Kind: KindUnauthorized, Status: 401, Message: "expired"}

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrBackend)
	assert.Equal(t, "expired", ErrorMessage(err))
}

func TestAnalysisCacheReusesResult(t *testing.T) {
	f := setupClient(t)
	analysis, err := NewAnalysisCache(f.client, zap.NewNop())
	require.NoError(t, err)
	defer analysis.Close()
	ctx := context.Background()
	upload := models.ImageUpload{FileName: "jacket.png", Data: test.PNGBytes}

	attrs, err := analysis.AnalyzeImage(ctx, upload)
	require.NoError(t, err)
	assert.Equal(t, "Denim jacket", attrs.Name)
	require.Equal(t, 1, f.stub.AnalyzeCalls())

	renamed := models.ImageUpload{FileName: "renamed.png", Data: test.PNGBytes}
	require.Eventually(t, func() bool {
		before := f.stub.AnalyzeCalls()
		_, err := analysis.AnalyzeImage(ctx, renamed)
		return err == nil && f.stub.AnalyzeCalls() == before
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAnalysisCacheDoesNotCacheFailures(t *testing.T) {
	f := setupClient(t)
	analysis, err := NewAnalysisCache(f.client, zap.NewNop())
	require.NoError(t, err)
	defer analysis.Close()

	_, err = analysis.AnalyzeImage(context.Background(), models.ImageUpload{FileName: "notes.txt", Data: []byte("plain")})
	assert.ErrorIs(t, err, ErrBackend)

	_, err = analysis.AnalyzeImage(context.Background(), models.ImageUpload{})
	assert.ErrorIs(t, err, ErrValidation)
}
