package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dripmate/models"
	"dripmate/storage"
	"dripmate/test"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (r *recordingReporter) Report(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

type clientFixture struct {
	stub     *test.StubAPI
	client   *APIClient
	session  *storage.SessionStore
	reporter *recordingReporter
	metrics  *APIMetrics
}

func setupClient(t *testing.T) clientFixture {
	t.Helper()
	stub := test.NewStubAPI("")
	server, baseURL := stub.Start()
	t.Cleanup(server.Close)
	return newFixture(stub, baseURL)
}

func newFixture(stub *test.StubAPI, baseURL string) clientFixture {
	session := storage.NewSessionStore(storage.NewMemoryBackend(), zap.NewNop())
	reporter := &recordingReporter{}
	metrics := NewAPIMetrics(prometheus.NewRegistry())
	client := NewAPIClient(StaticBaseURL(baseURL), session,
		WithReporter(reporter),
		WithMetrics(metrics),
		WithTimeout(5*time.Second),
	)
	return clientFixture{stub: stub, client: client, session: session, reporter: reporter, metrics: metrics}
}

func (f clientFixture) login(t *testing.T) models.Profile {
	t.Helper()
	profile, _ := f.stub.CreateUser("Ada", "ada@example.com", "secret1")
	_, err := f.client.Login(context.Background(), models.LoginIn{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	return profile
}

func outfitRequest(item string, vibe string) models.OutfitRequest {
	req := models.DefaultOutfitRequest()
	req.Item = item
	req.Vibe = vibe
	return req
}

func TestProtectedCallWithoutTokenSendsNothing(t *testing.T) {
	f := setupClient(t)

	_, err := f.client.GetProfile(context.Background())

	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, f.stub.RequestsTo(http.MethodGet, "/profile"))
}

func TestSignupStoresTokenAndUser(t *testing.T) {
	f := setupClient(t)

	out, err := f.client.Signup(context.Background(), models.SignupIn{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	token, ok := f.session.Token()
	require.True(t, ok)
	assert.Equal(t, out.AccessToken, token)
	user, ok := f.session.CachedUser()
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestSignupRejectedLocally(t *testing.T) {
	f := setupClient(t)

	_, err := f.client.Signup(context.Background(), models.SignupIn{Name: "Ada", Email: "not-an-email", Password: "secret1"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.stub.Requests())
}

func TestSignupDuplicateEmailShowsDetail(t *testing.T) {
	f := setupClient(t)
	f.stub.CreateUser("Ada", "ada@example.com", "secret1")

	_, err := f.client.Signup(context.Background(), models.SignupIn{Name: "Ada", Email: "ada@example.com", Password: "secret1"})

	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, "Email already registered", ErrorMessage(err))
}

func TestBearerHeaderOnlyWithToken(t *testing.T) {
	f := setupClient(t)

	f.client.GetOutfitSuggestion(context.Background(), outfitRequest("Black jeans", "Casual"))
	f.login(t)
	_, err := f.client.ListWardrobe(context.Background())
	require.NoError(t, err)

	token, _ := f.session.Token()
	requests := f.stub.Requests()
	require.Len(t, requests, 3)
	assert.Empty(t, requests[0].Header.Get("Authorization"))
	assert.Equal(t, "Bearer "+token, requests[2].Header.Get("Authorization"))
	assert.NotEmpty(t, requests[2].Header.Get("X-Request-ID"))
}

func TestUnauthorizedClearsSession(t *testing.T) {
	f := setupClient(t)
	require.NoError(t, f.session.SetToken("stale-token"))
	require.NoError(t, f.session.SetCachedUser(models.Profile{Name: "Ada"}))

	_, err := f.client.GetProfile(context.Background())

	assert.True(t, IsUnauthorized(err))
	_, hasToken := f.session.Token()
	_, hasUser := f.session.CachedUser()
	assert.False(t, hasToken)
	assert.False(t, hasUser)
}

func TestLogoutForgetsSessionWithoutCallingBackend(t *testing.T) {
	f := setupClient(t)
	f.login(t)
	before := len(f.stub.Requests())

	require.NoError(t, f.client.Logout())

	_, hasToken := f.session.Token()
	assert.False(t, hasToken)
	assert.Len(t, f.stub.Requests(), before)
}

func TestSuggestionTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/api"
	server.Close()
	f := newFixture(test.NewStubAPI(""), baseURL)

	result := f.client.GetOutfitSuggestion(context.Background(), outfitRequest("Black jeans", "Casual"))

	failure, ok := result.(models.SuggestionFailure)
	require.True(t, ok)
	assert.Equal(t, "Could not get a suggestion. Is the backend running?", failure.Error)
	assert.Equal(t, 1, f.reporter.count())

	_, err := f.client.ListWardrobe(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSuggestionBackendDetail(t *testing.T) {
	f := setupClient(t)
	f.stub.Force("POST /api/chat", http.StatusBadRequest, map[string]string{"detail": "bad vibe"})

	result := f.client.GetOutfitSuggestion(context.Background(), outfitRequest("Black jeans", "Casual"))

	assert.Equal(t, models.SuggestionFailure{Error: "Could not get a suggestion. bad vibe"}, result)
	assert.Equal(t, 0, f.reporter.count())
}

func TestSuggestionErrorBodyPassedThrough(t *testing.T) {
	f := setupClient(t)
	f.login(t)
	req := outfitRequest("Black jeans", "Casual")
	req.UseWardrobeOnly = true

	result := f.client.GetOutfitSuggestion(context.Background(), req)

	assert.Equal(t, models.SuggestionFailure{Error: "Your wardrobe is empty. Add a few items first."}, result)
}

func TestSuggestionUnauthorizedFlagged(t *testing.T) {
	f := setupClient(t)
	req := outfitRequest("Black jeans", "Casual")
	req.UseWardrobeOnly = true

	result := f.client.GetOutfitSuggestion(context.Background(), req)

	failure, ok := result.(models.SuggestionFailure)
	require.True(t, ok)
	assert.True(t, failure.Unauthorized)
	assert.Equal(t, "Could not get a suggestion. Log in to use your wardrobe", failure.Error)
}

func TestSuggestionSuccess(t *testing.T) {
	f := setupClient(t)
	req := outfitRequest("Black jeans", "Casual")
	req.NumIdeas = 3

	result := f.client.GetOutfitSuggestion(context.Background(), req)

	success, ok := result.(models.SuggestionSuccess)
	require.True(t, ok)
	require.Len(t, success.Outfits, 3)
	assert.Equal(t, []string{"Casual tee 1", "Black jeans", "White sneakers"}, success.Outfits[0].Names())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.requests.WithLabelValues("outfit_suggestion", "ok")))
}

func TestSuggestionValidatedBeforeSending(t *testing.T) {
	f := setupClient(t)

	result := f.client.GetOutfitSuggestion(context.Background(), outfitRequest("", "Casual"))

	failure, ok := result.(models.SuggestionFailure)
	require.True(t, ok)
	assert.Equal(t, "Please fill in item", failure.Error)
	assert.Empty(t, f.stub.Requests())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.requests.WithLabelValues("outfit_suggestion", "validation")))
}

func TestOutfitFromImage(t *testing.T) {
	f := setupClient(t)

	result := f.client.GetOutfitFromImage(context.Background(), models.ImageUpload{FileName: "look.png", Data: test.PNGBytes}, "Date night", false)

	success, ok := result.(models.SuggestionSuccess)
	require.True(t, ok)
	require.NotNil(t, success.DetectedItem)
	assert.Equal(t, "Denim jacket", success.DetectedItem.Name)
	require.Len(t, success.Outfits, 1)
}

func TestOutfitFromImageSniffsTypeWithoutExtension(t *testing.T) {
	f := setupClient(t)

	result := f.client.GetOutfitFromImage(context.Background(), models.ImageUpload{FileName: "camera-roll", Data: test.PNGBytes}, "", true)

	_, ok := result.(models.SuggestionSuccess)
	assert.True(t, ok)
}

func TestOutfitFromImageRejectedType(t *testing.T) {
	f := setupClient(t)

	result := f.client.GetOutfitFromImage(context.Background(), models.ImageUpload{FileName: "notes.txt", Data: []byte("hello")}, "", false)

	failure, ok := result.(models.SuggestionFailure)
	require.True(t, ok)
	assert.Contains(t, failure.Error, "Could not get a suggestion. Unsupported image type")
}

func TestOutfitFromImageEmptyUpload(t *testing.T) {
	f := setupClient(t)

	result := f.client.GetOutfitFromImage(context.Background(), models.ImageUpload{FileName: "look.png"}, "", false)

	assert.Equal(t, models.SuggestionFailure{Error: "Please choose an image"}, result)
	assert.Empty(t, f.stub.Requests())
}

func TestWardrobeLifecycle(t *testing.T) {
	f := setupClient(t)
	f.login(t)
	ctx := context.Background()

	created, err := f.client.AddWardrobeItem(ctx, models.WardrobeItem{Category: models.CategoryClothing, Name: "Linen shirt", Color: "white"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	items, err := f.client.ListWardrobe(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Linen shirt", items[0].Name)

	require.NoError(t, f.client.DeleteWardrobeItem(ctx, created.ID))
	items, err = f.client.ListWardrobe(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	err = f.client.DeleteWardrobeItem(ctx, created.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindBackend, apiErr.Kind)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Item not found", apiErr.Message)
}

func TestWardrobeItemValidated(t *testing.T) {
	f := setupClient(t)
	f.login(t)
	before := len(f.stub.Requests())

	_, err := f.client.AddWardrobeItem(context.Background(), models.WardrobeItem{Category: "hat", Name: "Beanie"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "category is not valid", ErrorMessage(err))
	assert.Len(t, f.stub.Requests(), before)
}

func TestFavoritesLifecycle(t *testing.T) {
	f := setupClient(t)
	f.login(t)
	ctx := context.Background()
	outfit := models.Outfit{ID: 1, Garments: []models.Garment{
		{Slot: "top", Name: "Tee"},
		{Slot: "bottom", Name: "Jeans"},
	}}

	saved, err := f.client.AddFavorite(ctx, models.NewFavoriteIn(outfit, "Jeans", "Casual"))
	require.NoError(t, err)
	assert.Equal(t, "Casual idea", saved.Title)
	assert.Equal(t, "Tee + Jeans", saved.Summary)

	favorites, err := f.client.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, outfit.Garments, favorites[0].Payload.Garments)

	require.NoError(t, f.client.DeleteFavorite(ctx, saved.ID))
	favorites, err = f.client.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestServerErrorFallsBackAndReports(t *testing.T) {
	f := setupClient(t)
	f.login(t)
	f.stub.Force("POST /api/favorites", http.StatusInternalServerError, nil)

	_, err := f.client.AddFavorite(context.Background(), models.NewFavoriteIn(models.Outfit{}, "", ""))

	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, "Failed to save favorite", ErrorMessage(err))
	assert.Equal(t, 1, f.reporter.count())
}

func TestUndecodableResponse(t *testing.T) {
	f := setupClient(t)
	f.login(t)
	f.stub.Force("GET /api/wardrobe", http.StatusOK, "not json")

	_, err := f.client.ListWardrobe(context.Background())

	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, "Could not load your wardrobe", ErrorMessage(err))
}

func TestAnalyzeImage(t *testing.T) {
	f := setupClient(t)

	attrs, err := f.client.AnalyzeImage(context.Background(), models.ImageUpload{FileName: "jacket.jpg", Data: test.PNGBytes})

	require.NoError(t, err)
	assert.Equal(t, "Denim jacket", attrs.Name)
	assert.Equal(t, "blue", attrs.Color)
}

func TestCancelledCall(t *testing.T) {
	f := setupClient(t)
	entered, release := f.stub.HoldChat()
	defer release()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan models.SuggestionResult, 1)
	go func() {
		done <- f.client.GetOutfitSuggestion(ctx, outfitRequest("Black jeans", "Casual"))
	}()
	<-entered
	cancel()

	result := <-done
	assert.Equal(t, models.SuggestionFailure{Error: "Could not get a suggestion. Request cancelled"}, result)
	assert.Equal(t, 0, f.reporter.count())
}
