package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"dripmate/models"
	"dripmate/storage"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxResponseBytes = 10 << 20

// DripMateProvider is everything the views need from the backend.
type DripMateProvider interface {
	Signup(ctx context.Context, in models.SignupIn) (models.AuthOut, error)
	Login(ctx context.Context, in models.LoginIn) (models.AuthOut, error)
	Logout() error
	GetProfile(ctx context.Context) (models.Profile, error)
	GetOutfitSuggestion(ctx context.Context, req models.OutfitRequest) models.SuggestionResult
	GetOutfitFromImage(ctx context.Context, upload models.ImageUpload, prompt string, useWardrobe bool) models.SuggestionResult
	ListWardrobe(ctx context.Context) ([]models.WardrobeItem, error)
	AddWardrobeItem(ctx context.Context, item models.WardrobeItem) (models.WardrobeItem, error)
	DeleteWardrobeItem(ctx context.Context, id uint) error
	ListFavorites(ctx context.Context) ([]models.FavoriteFit, error)
	AddFavorite(ctx context.Context, in models.FavoriteIn) (models.FavoriteFit, error)
	DeleteFavorite(ctx context.Context, id int64) error
	AnalyzeImage(ctx context.Context, upload models.ImageUpload) (models.ItemAttributes, error)
}

// APIClient talks to the DripMate backend. Every failure comes back as an
// *APIError; nothing is retried.
type APIClient struct {
	baseURL   BaseURLResolver
	http      *http.Client
	timeout   time.Duration
	session   *storage.SessionStore
	validator *validator.Validate
	logger    *zap.Logger
	reporter  ErrorReporter
	metrics   *APIMetrics
}

type ClientOption func(*APIClient)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *APIClient) {
		c.http = client
	}
}

// WithTimeout bounds each call. Zero leaves calls unbounded. It applies to the
// client's own copy of any client given through WithHTTPClient.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *APIClient) {
		c.timeout = timeout
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

func WithReporter(reporter ErrorReporter) ClientOption {
	return func(c *APIClient) {
		c.reporter = reporter
	}
}

func WithMetrics(metrics *APIMetrics) ClientOption {
	return func(c *APIClient) {
		c.metrics = metrics
	}
}

func NewAPIClient(baseURL BaseURLResolver, session *storage.SessionStore, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL:   baseURL,
		http:      &http.Client{},
		session:   session,
		validator: models.NewValidator(),
		logger:    zap.NewNop(),
		reporter:  SentryReporter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		client := *c.http
		client.Timeout = c.timeout
		c.http = &client
	}
	return c
}

type call struct {
	operation   string
	method      string
	path        string
	body        []byte
	contentType string
	requireAuth bool
	fallback    string
}

func jsonCall(operation, method, path string, payload any, fallback string) (call, error) {
	c := call{operation: operation, method: method, path: path, fallback: fallback}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return c, err
		}
		c.body = data
		c.contentType = "application/json"
	}
	return c, nil
}

func (c *APIClient) do(ctx context.Context, req call, out any) (err error) {
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = string(KindTransport)
			err = &APIError{Kind: KindTransport, Message: req.fallback, Err: fmt.Errorf("panic: %v", r)}
		}
		c.metrics.observe(req.operation, outcome)
	}()

	apiErr := c.send(ctx, req, out)
	if apiErr != nil {
		outcome = string(apiErr.Kind)
		return apiErr
	}
	return nil
}

func (c *APIClient) send(ctx context.Context, req call, out any) *APIError {
	token, hasToken := c.session.Token()
	if req.requireAuth && !hasToken {
		return &APIError{Kind: KindUnauthorized, Message: "Please log in to continue"}
	}

	url := c.baseURL(ctx) + req.path
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, url, body)
	if err != nil {
		return &APIError{Kind: KindTransport, Message: req.fallback, Err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if hasToken {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.With(
		zap.String("operation", req.operation),
		zap.String("request_id", requestID),
		zap.String("method", req.method),
		zap.String("url", url),
	)
	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("Backend call cancelled", zap.Error(err))
			return &APIError{Kind: KindTransport, Message: "Request cancelled", Err: err}
		}
		logger.Warn("Backend unreachable", zap.Error(err))
		c.reporter.Report(err, map[string]string{"operation": req.operation, "failure_type": "transport"})
		return &APIError{Kind: KindTransport, Message: backendUnreachable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Warn("Failed to read backend response", zap.Error(err))
		return &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: backendUnreachable, Err: err}
	}
	logger.Debug("Backend responded", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(started)))

	if resp.StatusCode == http.StatusUnauthorized {
		// the token is no longer accepted, so keeping it would fail every call after this one
		if err := c.session.Clear(); err != nil {
			logger.Error("Failed to clear rejected session", zap.Error(err))
		}
		message := extractDetail(data)
		if message == "" {
			message = "Your session has expired, please log in again"
		}
		return &APIError{Kind: KindUnauthorized, Status: resp.StatusCode, Message: message}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		message := extractDetail(data)
		if message == "" {
			message = req.fallback
		}
		apiErr := &APIError{Kind: KindBackend, Status: resp.StatusCode, Message: message}
		if resp.StatusCode >= http.StatusInternalServerError {
			logger.Error("Backend failed", zap.Int("status", resp.StatusCode), zap.String("detail", message))
			c.reporter.Report(fmt.Errorf("%s: backend answered %d: %s", req.operation, resp.StatusCode, message),
				map[string]string{"operation": req.operation, "failure_type": "backend"})
		} else {
			logger.Info("Backend rejected request", zap.Int("status", resp.StatusCode), zap.String("detail", message))
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Error("Undecodable backend response", zap.Error(err))
		c.reporter.Report(err, map[string]string{"operation": req.operation, "failure_type": "decode"})
		return &APIError{Kind: KindBackend, Status: resp.StatusCode, Message: req.fallback, Err: err}
	}
	return nil
}

func (c *APIClient) validate(operation string, value any) error {
	if err := c.validator.Struct(value); err != nil {
		c.metrics.observe(operation, string(KindValidation))
		return validationError(describeValidation(err), err)
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please fill in %s", field)
	case "min", "max":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s is not valid", field)
	}
}

func (c *APIClient) authenticate(ctx context.Context, operation string, path string, payload any, fallback string) (models.AuthOut, error) {
	var out models.AuthOut
	req, err := jsonCall(operation, http.MethodPost, path, payload, fallback)
	if err != nil {
		return out, validationError(fallback, err)
	}
	if err := c.do(ctx, req, &out); err != nil {
		return out, err
	}
	if out.AccessToken == "" {
		return out, &APIError{Kind: KindBackend, Message: fallback}
	}
	if err := c.session.SetToken(out.AccessToken); err != nil {
		return out, &APIError{Kind: KindBackend, Message: "Could not store your session", Err: err}
	}
	if out.User != nil {
		if err := c.session.SetCachedUser(*out.User); err != nil {
			c.logger.Warn("Failed to cache user", zap.Error(err))
		}
	}
	return out, nil
}

func (c *APIClient) Signup(ctx context.Context, in models.SignupIn) (models.AuthOut, error) {
	if err := c.validate("signup", in); err != nil {
		return models.AuthOut{}, err
	}
	return c.authenticate(ctx, "signup", "/auth/signup", in, "Signup failed")
}

func (c *APIClient) Login(ctx context.Context, in models.LoginIn) (models.AuthOut, error) {
	if err := c.validate("login", in); err != nil {
		return models.AuthOut{}, err
	}
	return c.authenticate(ctx, "login", "/auth/login", in, "Login failed")
}

// Logout only forgets the local session; the backend is not told.
func (c *APIClient) Logout() error {
	return c.session.Clear()
}

func (c *APIClient) GetProfile(ctx context.Context) (models.Profile, error) {
	var profile models.Profile
	req, _ := jsonCall("get_profile", http.MethodGet, "/profile", nil, "Could not load your profile")
	req.requireAuth = true
	err := c.do(ctx, req, &profile)
	return profile, err
}

func suggestionFailure(err error) models.SuggestionFailure {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindValidation {
		return models.SuggestionFailure{Error: apiErr.Message}
	}
	return models.SuggestionFailure{
		Error:        "Could not get a suggestion. " + ErrorMessage(err),
		Unauthorized: IsUnauthorized(err),
	}
}

func suggestionResult(out models.SuggestionOut) models.SuggestionResult {
	if out.Error != "" {
		return models.SuggestionFailure{Error: out.Error}
	}
	outfits := out.Outfits
	if outfits == nil {
		outfits = []models.Outfit{}
	}
	return models.SuggestionSuccess{DetectedItem: out.DetectedItem, Outfits: outfits}
}

func (c *APIClient) GetOutfitSuggestion(ctx context.Context, request models.OutfitRequest) models.SuggestionResult {
	if err := c.validate("outfit_suggestion", request); err != nil {
		return suggestionFailure(err)
	}
	req, err := jsonCall("outfit_suggestion", http.MethodPost, "/chat", request, backendUnreachable)
	if err != nil {
		return suggestionFailure(validationError("Could not encode the request", err))
	}
	var out models.SuggestionOut
	if err := c.do(ctx, req, &out); err != nil {
		return suggestionFailure(err)
	}
	return suggestionResult(out)
}

func (c *APIClient) GetOutfitFromImage(ctx context.Context, upload models.ImageUpload, prompt string, useWardrobe bool) models.SuggestionResult {
	fields := map[string]string{"use_wardrobe": strconv.FormatBool(useWardrobe)}
	if prompt != "" {
		fields["prompt"] = prompt
	}
	req, err := multipartCall("outfit_from_image", "/chat/image", upload, fields, backendUnreachable)
	if err != nil {
		c.metrics.observe("outfit_from_image", string(KindValidation))
		return suggestionFailure(err)
	}
	var out models.SuggestionOut
	if err := c.do(ctx, req, &out); err != nil {
		return suggestionFailure(err)
	}
	return suggestionResult(out)
}

func (c *APIClient) ListWardrobe(ctx context.Context) ([]models.WardrobeItem, error) {
	items := []models.WardrobeItem{}
	req, _ := jsonCall("list_wardrobe", http.MethodGet, "/wardrobe", nil, "Could not load your wardrobe")
	if err := c.do(ctx, req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *APIClient) AddWardrobeItem(ctx context.Context, item models.WardrobeItem) (models.WardrobeItem, error) {
	item.ID = 0
	if err := c.validate("add_wardrobe_item", item); err != nil {
		return models.WardrobeItem{}, err
	}
	var created models.WardrobeItem
	req, err := jsonCall("add_wardrobe_item", http.MethodPost, "/wardrobe", item, "Could not add the item")
	if err != nil {
		return created, validationError("Could not encode the item", err)
	}
	err = c.do(ctx, req, &created)
	return created, err
}

func (c *APIClient) DeleteWardrobeItem(ctx context.Context, id uint) error {
	path := "/wardrobe/" + strconv.FormatUint(uint64(id), 10)
	req, _ := jsonCall("delete_wardrobe_item", http.MethodDelete, path, nil, "Could not delete the item")
	return c.do(ctx, req, nil)
}

func (c *APIClient) ListFavorites(ctx context.Context) ([]models.FavoriteFit, error) {
	favorites := []models.FavoriteFit{}
	req, _ := jsonCall("list_favorites", http.MethodGet, "/favorites", nil, "Could not load your favorites")
	if err := c.do(ctx, req, &favorites); err != nil {
		return nil, err
	}
	return favorites, nil
}

func (c *APIClient) AddFavorite(ctx context.Context, in models.FavoriteIn) (models.FavoriteFit, error) {
	if err := c.validate("add_favorite", in); err != nil {
		return models.FavoriteFit{}, err
	}
	var created models.FavoriteFit
	req, err := jsonCall("add_favorite", http.MethodPost, "/favorites", in, "Failed to save favorite")
	if err != nil {
		return created, validationError("Could not encode the favorite", err)
	}
	err = c.do(ctx, req, &created)
	return created, err
}

func (c *APIClient) DeleteFavorite(ctx context.Context, id int64) error {
	path := "/favorites/" + strconv.FormatInt(id, 10)
	req, _ := jsonCall("delete_favorite", http.MethodDelete, path, nil, "Could not remove the favorite")
	return c.do(ctx, req, nil)
}

func (c *APIClient) AnalyzeImage(ctx context.Context, upload models.ImageUpload) (models.ItemAttributes, error) {
	var attrs models.ItemAttributes
	req, err := multipartCall("analyze_image", "/vision/analyze", upload, nil, "Image analysis failed")
	if err != nil {
		c.metrics.observe("analyze_image", string(KindValidation))
		return attrs, err
	}
	err = c.do(ctx, req, &attrs)
	return attrs, err
}

func multipartCall(operation string, path string, upload models.ImageUpload, fields map[string]string, fallback string) (call, error) {
	c := call{operation: operation, method: http.MethodPost, path: path, fallback: fallback}
	if len(upload.Data) == 0 {
		return c, validationError("Please choose an image", nil)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": uploadName(upload),
	}))
	header.Set("Content-Type", imageContentType(upload))
	part, err := writer.CreatePart(header)
	if err != nil {
		return c, validationError("Could not attach the image", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return c, validationError("Could not attach the image", err)
	}
	for _, key := range sortedKeys(fields) {
		if err := writer.WriteField(key, fields[key]); err != nil {
			return c, validationError("Could not attach the image", err)
		}
	}
	if err := writer.Close(); err != nil {
		return c, validationError("Could not attach the image", err)
	}
	c.body = buf.Bytes()
	c.contentType = writer.FormDataContentType()
	return c, nil
}

func uploadName(upload models.ImageUpload) string {
	if upload.FileName == "" {
		return "upload"
	}
	return filepath.Base(upload.FileName)
}

// imageContentType matters because the backend rejects parts that are not
// jpeg, png or webp.
func imageContentType(upload models.ImageUpload) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(upload.FileName))); ct != "" {
		return ct
	}
	return http.DetectContentType(upload.Data)
}

func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
