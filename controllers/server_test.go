package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"
	"dripmate/test"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupServer(t *testing.T) (fixture, *echo.Echo) {
	t.Helper()
	f := setup(t)
	registry := prometheus.NewRegistry()
	services.NewAPIMetrics(registry)
	e := SetupServer(App{
		API:      f.api,
		Session:  f.session,
		Prefs:    f.prefs,
		Logger:   f.logger,
		Gatherer: registry,
	})
	return f, e
}

func TestHealth(t *testing.T) {
	_, e := setupServer(t)

	code, body := test.InternalRequestJSON(e, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	f, e := setupServer(t)

	for _, target := range []string{"/profile", "/wardrobe", "/saved"} {
		code, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusUnauthorized, code, target)
		var status Status
		require.NoError(t, json.Unmarshal(body, &status))
		assert.Equal(t, LoginPath, status.Redirect)
	}
	assert.Empty(t, f.stub.Requests())
}

func TestLoginThenWardrobe(t *testing.T) {
	f, e := setupServer(t)
	f.stub.CreateUser("Ada", "ada@example.com", "secret1")

	code, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/auth/login", models.LoginIn{Email: "ada@example.com", Password: "secret1"}))
	require.Equal(t, http.StatusOK, code)
	var auth AuthState
	require.NoError(t, json.Unmarshal(body, &auth))
	assert.Equal(t, HomePath, auth.Redirect)

	code, _ = test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/wardrobe", models.WardrobeItem{Category: models.CategoryClothing, Name: "Linen shirt"}))
	require.Equal(t, http.StatusOK, code)

	code, body = test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodGet, "/wardrobe", nil))
	require.Equal(t, http.StatusOK, code)
	var wardrobe WardrobeState
	require.NoError(t, json.Unmarshal(body, &wardrobe))
	require.Len(t, wardrobe.Items, 1)
	assert.Equal(t, "Linen shirt", wardrobe.Items[0].Name)
}

func TestWardrobeDeleteWithoutConfirmKeepsItem(t *testing.T) {
	f, e := setupServer(t)
	f.login(t)
	test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/wardrobe", models.WardrobeItem{Category: models.CategoryClothing, Name: "Tee"}))

	code, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodDelete, "/wardrobe/2", nil))
	require.Equal(t, http.StatusOK, code)
	var wardrobe WardrobeState
	require.NoError(t, json.Unmarshal(body, &wardrobe))
	assert.Equal(t, 0, f.stub.RequestsTo(http.MethodDelete, "/wardrobe/2"))

	code, _ = test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodDelete, "/wardrobe/2?confirm=true", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, f.stub.RequestsTo(http.MethodDelete, "/wardrobe/2"))
}

func TestChatRoute(t *testing.T) {
	_, e := setupServer(t)

	code, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/chat", map[string]interface{}{
		"item":      "Black jeans",
		"vibe":      "Casual",
		"num_ideas": 2,
	}))

	require.Equal(t, http.StatusOK, code)
	var response ChatResponse
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Len(t, response.Cards, 2)
	assert.Equal(t, "Male", response.Form.Gender)
	assert.False(t, response.Pending)
}

func TestChatRouteBackendFailure(t *testing.T) {
	f, e := setupServer(t)
	f.stub.Force("POST /api/chat", http.StatusBadRequest, map[string]string{"detail": "bad vibe"})

	code, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/chat", suggestion("Black jeans", "Casual")))

	assert.Equal(t, http.StatusBadGateway, code)
	var response ChatResponse
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Equal(t, "Could not get a suggestion. bad vibe", response.Error)
}

func TestChatImageRoute(t *testing.T) {
	_, e := setupServer(t)

	req := test.NewImageRequest("/chat/image", "look.png", "image/png", test.PNGBytes, map[string]string{"prompt": "Date night"})
	code, body := test.InternalRequestJSON(e, req)

	require.Equal(t, http.StatusOK, code)
	var response ChatResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Len(t, response.Cards, 1)
	require.Len(t, response.Messages, 2)
	assert.Equal(t, "Denim jacket", response.Messages[1].DetectedItem.Name)
}

func TestChatFitsRoute(t *testing.T) {
	f, e := setupServer(t)
	test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/chat", suggestion("Black jeans", "Casual")))

	code, _ := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/chat/fits", OutfitRef{OutfitID: 1}))
	require.Equal(t, http.StatusCreated, code)

	code, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodGet, "/fits", nil))
	require.Equal(t, http.StatusOK, code)
	var fits []models.FavoriteFit
	require.NoError(t, json.Unmarshal(body, &fits))
	require.Len(t, fits, 1)
	stored, err := f.prefs.Fits()
	require.NoError(t, err)
	assert.Equal(t, stored[0].ID, fits[0].ID)
}

func TestChatFavoritesRouteNeedsSession(t *testing.T) {
	_, e := setupServer(t)

	code, _ := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/chat/favorites", OutfitRef{OutfitID: 1}))

	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAnalyzeRoute(t *testing.T) {
	f, e := setupServer(t)
	f.login(t)

	req := test.NewImageRequest("/wardrobe/analyze", "jacket.png", "image/png", test.PNGBytes, nil)
	code, body := test.InternalRequestJSON(e, req)

	require.Equal(t, http.StatusOK, code)
	var wardrobe WardrobeState
	require.NoError(t, json.Unmarshal(body, &wardrobe))
	assert.Equal(t, "Denim jacket", wardrobe.Form.Name)
	assert.Equal(t, "solid, casual", wardrobe.Form.Notes)
}

func TestSelectedItemPrefillsChat(t *testing.T) {
	f, e := setupServer(t)
	f.login(t)

	code, _ := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPut, "/wardrobe/selected", models.WardrobeItem{ID: 4, Name: "Denim jacket", Color: "blue"}))
	require.Equal(t, http.StatusOK, code)

	_, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodGet, "/chat", nil))
	var response ChatResponse
	require.NoError(t, json.Unmarshal(body, &response))
	assert.Equal(t, "Denim jacket (blue)", response.Form.Item)
}

func TestThemeRoutes(t *testing.T) {
	_, e := setupServer(t)

	_, body := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodGet, "/preferences/theme", nil))
	assert.JSONEq(t, `{"theme":"dark"}`, string(body))

	code, _ := test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPut, "/preferences/theme", ThemeIn{Theme: "sepia"}))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPut, "/preferences/theme", ThemeIn{Theme: "light"}))
	assert.Equal(t, http.StatusOK, code)
	_, body = test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodGet, "/preferences/theme", nil))
	assert.JSONEq(t, `{"theme":"light"}`, string(body))
}

func TestResetPreferences(t *testing.T) {
	f, e := setupServer(t)
	require.NoError(t, f.prefs.SetWardrobe([]models.WardrobeItem{{Name: "Tee"}}))
	require.NoError(t, f.prefs.SetTheme(models.ThemeLight))

	test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/preferences/reset", nil))
	items, err := f.prefs.Wardrobe()
	require.NoError(t, err)
	assert.Len(t, items, 1)

	test.InternalRequestJSON(e, test.NewJSONRequest(http.MethodPost, "/preferences/reset?confirm=true", nil))
	items, err = f.prefs.Wardrobe()
	require.NoError(t, err)
	assert.Empty(t, items)
	theme, err := f.prefs.Theme()
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, theme)
}

func TestHostMiddlewareRecordsHost(t *testing.T) {
	e := echo.New()
	e.Use(HostMiddleware([]string{"192.168.1.30"}, zap.NewNop()))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, services.HostFromContext(c.Request().Context()))
	})

	cases := map[string]string{
		"192.168.1.30:5173": "192.168.1.30:5173",
		"localhost:5173":    "localhost:5173",
		"attacker.example":  "",
		"192.168.1.31:5173": "",
	}
	for host, expected := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host

		_, body := test.InternalRequestJSON(e, req)

		assert.Equal(t, expected, string(body), host)
	}
}

type recordingTransport struct {
	mu       sync.Mutex
	urls     []string
	bearers  []string
	response string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.urls = append(rt.urls, req.URL.String())
	rt.bearers = append(rt.bearers, req.Header.Get("Authorization"))
	rt.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(rt.response)),
		Request:    req,
	}, nil
}

func TestUnknownHostKeepsCallsLocal(t *testing.T) {
	backend := storage.NewMemoryBackend()
	session := storage.NewSessionStore(backend, zap.NewNop())
	require.NoError(t, session.SetToken("secret-token"))
	transport := &recordingTransport{response: `{"id":1,"name":"Ada","email":"ada@example.com"}`}
	client := services.NewAPIClient(services.HostBaseURL(services.DefaultAPIPort, services.DefaultAPIPath), session,
		services.WithHTTPClient(&http.Client{Transport: transport}))
	e := SetupServer(App{
		UIHosts: []string{"192.168.1.30"},
		API:     client,
		Session: session,
		Prefs:   storage.NewPreferenceStore(backend, zap.NewNop()),
	})

	req := test.NewJSONRequest(http.MethodGet, "/profile", nil)
	req.Host = "attacker.example"
	code, _ := test.InternalRequestJSON(e, req)
	require.Equal(t, http.StatusOK, code)

	req = test.NewJSONRequest(http.MethodGet, "/profile", nil)
	req.Host = "192.168.1.30:5173"
	code, _ = test.InternalRequestJSON(e, req)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, []string{
		"http://localhost:8000/api/profile",
		"http://192.168.1.30:8000/api/profile",
	}, transport.urls)
	for _, url := range transport.urls {
		assert.NotContains(t, url, "attacker.example")
	}
	assert.Equal(t, []string{"Bearer secret-token", "Bearer secret-token"}, transport.bearers)
}

func TestMetricsEndpoint(t *testing.T) {
	_, e := setupServer(t)

	code, _ := test.InternalRequestJSON(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, code)
}
