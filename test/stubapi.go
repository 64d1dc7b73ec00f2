package test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"dripmate/models"

	"github.com/go-playground/validator"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type forcedResponse struct {
	status int
	body   interface{}
}

type stubUser struct {
	profile  models.Profile
	password string
}

// StubAPI is an in-memory DripMate backend. It serves the same routes under
// /api and answers like the real one, including {"detail": ...} failures.
type StubAPI struct {
	Secret string

	mu        sync.Mutex
	users     map[string]*stubUser
	wardrobe  map[uint][]models.WardrobeItem
	favorites map[uint][]models.FavoriteFit
	lastID    uint
	lastFavID int64
	requests  []RecordedRequest
	forced    map[string]forcedResponse
	chatHold  chan struct{}
	entered   chan struct{}

	// Analysis is what /vision/analyze answers with.
	Analysis     models.ItemAttributes
	analyzeCalls int
}

func NewStubAPI(secret string) *StubAPI {
	if secret == "" {
		secret = DefaultSecret
	}
	return &StubAPI{
		Secret:    secret,
		users:     map[string]*stubUser{},
		wardrobe:  map[uint][]models.WardrobeItem{},
		favorites: map[uint][]models.FavoriteFit{},
		forced:    map[string]forcedResponse{},
		Analysis: models.ItemAttributes{
			Category: string(models.CategoryClothing),
			Name:     "Denim jacket",
			Color:    "blue",
			Season:   "spring",
			Pattern:  "solid",
			Style:    "casual",
		},
	}
}

type stubValidator struct {
	validator *validator.Validate
}

func (sv *stubValidator) Validate(i interface{}) error {
	if err := sv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// Start serves the stub on a random local port. BaseURL is the value to give
// the client.
func (s *StubAPI) Start() (server *httptest.Server, baseURL string) {
	server = httptest.NewServer(s.Echo())
	return server, server.URL + "/api"
}

func (s *StubAPI) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &stubValidator{validator: models.NewValidator()}
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		detail := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			detail = fmt.Sprint(he.Message)
		}
		c.JSON(status, echo.Map{"detail": detail})
	}
	e.Use(middleware.Recover())
	e.Use(s.record)

	api := e.Group("/api", s.force)
	api.POST("/auth/signup", s.signup)
	api.POST("/auth/login", s.login)
	api.POST("/chat", s.chat)
	api.POST("/chat/image", s.chatImage)
	api.POST("/vision/analyze", s.analyze)

	protected := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(s.Secret),
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		},
	}), s.userMiddleware)
	protected.GET("/profile", s.profile)
	protected.GET("/wardrobe", s.listWardrobe)
	protected.POST("/wardrobe", s.addWardrobe)
	protected.DELETE("/wardrobe/:id", s.deleteWardrobe)
	protected.GET("/favorites", s.listFavorites)
	protected.POST("/favorites", s.addFavorite)
	protected.DELETE("/favorites/:id", s.deleteFavorite)
	return e
}

func (s *StubAPI) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: req.Method,
			Path:   req.URL.Path,
			Header: req.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *StubAPI) force(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		forced, ok := s.forced[c.Request().Method+" "+c.Request().URL.Path]
		s.mu.Unlock()
		if !ok {
			return next(c)
		}
		if forced.body == nil {
			return c.NoContent(forced.status)
		}
		if raw, ok := forced.body.(string); ok {
			return c.Blob(forced.status, echo.MIMEApplicationJSONCharsetUTF8, []byte(raw))
		}
		return c.JSON(forced.status, forced.body)
	}
}

// Force makes "METHOD /api/path" answer status with body until Reset. A
// string body is sent as raw bytes.
func (s *StubAPI) Force(route string, status int, body interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[route] = forcedResponse{status: status, body: body}
}

func (s *StubAPI) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = map[string]forcedResponse{}
	s.requests = nil
}

// HoldChat parks every /chat call until release is called. entered fires once
// per parked call.
func (s *StubAPI) HoldChat() (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold := make(chan struct{})
	s.chatHold = hold
	s.entered = make(chan struct{}, 16)
	var once sync.Once
	return s.entered, func() {
		once.Do(func() {
			close(hold)
		})
	}
}

func (s *StubAPI) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// RequestsTo counts recorded calls whose path ends with suffix.
func (s *StubAPI) RequestsTo(method string, suffix string) int {
	count := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			count++
		}
	}
	return count
}

func (s *StubAPI) AnalyzeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzeCalls
}

// CreateUser registers a user directly and returns a valid token for them.
func (s *StubAPI) CreateUser(name string, email string, password string) (models.Profile, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.createUserLocked(models.SignupIn{Name: name, Email: email, Password: password})
	return user.profile, s.tokenFor(user.profile.ID)
}

func (s *StubAPI) createUserLocked(in models.SignupIn) *stubUser {
	s.lastID++
	user := &stubUser{
		profile: models.Profile{
			ID:         s.lastID,
			Name:       in.Name,
			Email:      strings.ToLower(in.Email),
			Gender:     in.Gender,
			AgeGroup:   in.AgeGroup,
			SkinColour: in.SkinColour,
		},
		password: in.Password,
	}
	s.users[user.profile.Email] = user
	return user
}

func (s *StubAPI) tokenFor(userID uint) string {
	return GenerateUserToken(s.Secret, strconv.FormatUint(uint64(userID), 10))
}

func (s *StubAPI) userMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userRaw := c.Get("user")
		if userRaw == nil {
			return echo.ErrUnauthorized
		}
		token := userRaw.(*jwt.Token)
		claims := token.Claims.(jwt.MapClaims)
		subject, _ := claims["sub"].(string)
		user := s.userByID(subject)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}
		c.Set("currentUser", user.profile.ID)
		return next(c)
	}
}

func (s *StubAPI) userByID(subject string) *stubUser {
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.profile.ID == uint(id) {
			return user
		}
	}
	return nil
}

// optionalUser resolves the bearer token on public routes.
func (s *StubAPI) optionalUser(c echo.Context) *stubUser {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" || raw == header {
		return nil
	}
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	return s.userByID(token.Claims.(*jwt.RegisteredClaims).Subject)
}

func (s *StubAPI) authOut(user *stubUser) models.AuthOut {
	profile := user.profile
	return models.AuthOut{
		AccessToken: s.tokenFor(profile.ID),
		TokenType:   "bearer",
		User:        &profile,
	}
}

func (s *StubAPI) signup(c echo.Context) error {
	var in models.SignupIn
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(in.Email)]; exists {
		return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	}
	return c.JSON(http.StatusOK, s.authOut(s.createUserLocked(in)))
}

func (s *StubAPI) login(c echo.Context) error {
	var in models.LoginIn
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[strings.ToLower(in.Email)]
	if !ok || user.password != in.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	return c.JSON(http.StatusOK, s.authOut(user))
}

func (s *StubAPI) profile(c echo.Context) error {
	userID := c.Get("currentUser").(uint)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.profile.ID == userID {
			profile := user.profile
			profile.WardrobeCount = len(s.wardrobe[userID])
			profile.FavoritesCount = len(s.favorites[userID])
			return c.JSON(http.StatusOK, profile)
		}
	}
	return echo.ErrNotFound
}

func (s *StubAPI) listWardrobe(c echo.Context) error {
	userID := c.Get("currentUser").(uint)
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]models.WardrobeItem{}, s.wardrobe[userID]...)
	return c.JSON(http.StatusOK, items)
}

func (s *StubAPI) addWardrobe(c echo.Context) error {
	userID := c.Get("currentUser").(uint)
	var item models.WardrobeItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	if err := c.Validate(&item); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	item.ID = s.lastID
	s.wardrobe[userID] = append(s.wardrobe[userID], item)
	return c.JSON(http.StatusCreated, item)
}

func (s *StubAPI) deleteWardrobe(c echo.Context) error {
	userID := c.Get("currentUser").(uint)
	var id uint
	if err := echo.PathParamsBinder(c).Uint("id", &id).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.wardrobe[userID]
	for i, item := range items {
		if item.ID == id {
			s.wardrobe[userID] = append(items[:i:i], items[i+1:]...)
			return c.JSON(http.StatusOK, echo.Map{"ok": true})
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Item not found")
}

func (s *StubAPI) listFavorites(c echo.Context) error {
	userID := c.Get("currentUser").(uint)
	s.mu.Lock()
	defer s.mu.Unlock()
	favorites := append([]models.FavoriteFit{}, s.favorites[userID]...)
	return c.JSON(http.StatusOK, favorites)
}

func (s *StubAPI) addFavorite(c echo.Context) error {
	userID := c.Get("currentUser").(uint)
	var in models.FavoriteIn
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFavID++
	fit := models.FavoriteFit{
		ID:         s.lastFavID,
		Title:      in.Title,
		Summary:    in.Payload.Summary(),
		SourceItem: in.SourceItem,
		Vibe:       in.Vibe,
		Payload:    in.Payload,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	s.favorites[userID] = append([]models.FavoriteFit{fit}, s.favorites[userID]...)
	return c.JSON(http.StatusCreated, fit)
}

func (s *StubAPI) deleteFavorite(c echo.Context) error {
	userID := c.Get("currentUser").(uint)
	var id int64
	if err := echo.PathParamsBinder(c).Int64("id", &id).BindError(); err != nil {
		return echo.ErrBadRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	favorites := s.favorites[userID]
	for i, fit := range favorites {
		if fit.ID == id {
			s.favorites[userID] = append(favorites[:i:i], favorites[i+1:]...)
			return c.JSON(http.StatusOK, echo.Map{"ok": true})
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Favorite not found")
}

func (s *StubAPI) waitForRelease(c echo.Context) error {
	s.mu.Lock()
	hold, entered := s.chatHold, s.entered
	s.mu.Unlock()
	if hold == nil {
		return nil
	}
	entered <- struct{}{}
	select {
	case <-hold:
		return nil
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
}

func (s *StubAPI) chat(c echo.Context) error {
	var in models.OutfitRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	if err := s.waitForRelease(c); err != nil {
		return err
	}
	var wardrobe []models.WardrobeItem
	if in.UseWardrobeOnly {
		user := s.optionalUser(c)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Log in to use your wardrobe")
		}
		s.mu.Lock()
		wardrobe = append(wardrobe, s.wardrobe[user.profile.ID]...)
		s.mu.Unlock()
		if len(wardrobe) == 0 {
			return c.JSON(http.StatusOK, models.SuggestionOut{Error: "Your wardrobe is empty. Add a few items first."})
		}
	}
	ideas := in.NumIdeas
	if ideas == 0 {
		ideas = 1
	}
	return c.JSON(http.StatusOK, models.SuggestionOut{
		Outfits: buildOutfits(in.Item, in.Vibe, ideas, wardrobe),
	})
}

func (s *StubAPI) readImage(c echo.Context) ([]byte, string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusUnprocessableEntity, "file is required")
	}
	contentType := file.Header.Get(echo.HeaderContentType)
	if !acceptedImageTypes[contentType] {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "Unsupported image type "+contentType)
	}
	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", err
	}
	return data, file.Filename, nil
}

func (s *StubAPI) chatImage(c echo.Context) error {
	if _, _, err := s.readImage(c); err != nil {
		return err
	}
	prompt := c.FormValue("prompt")
	vibe := "Casual"
	if prompt != "" {
		vibe = prompt
	}
	s.mu.Lock()
	detected := models.DetectedItem{
		Name:     s.Analysis.Name,
		Category: s.Analysis.Category,
		Color:    s.Analysis.Color,
	}
	s.mu.Unlock()
	var wardrobe []models.WardrobeItem
	if useWardrobe, _ := strconv.ParseBool(c.FormValue("use_wardrobe")); useWardrobe {
		if user := s.optionalUser(c); user != nil {
			s.mu.Lock()
			wardrobe = append(wardrobe, s.wardrobe[user.profile.ID]...)
			s.mu.Unlock()
		}
	}
	return c.JSON(http.StatusOK, models.SuggestionOut{
		DetectedItem: &detected,
		Outfits:      buildOutfits(detected.Name, vibe, 1, wardrobe),
	})
}

func (s *StubAPI) analyze(c echo.Context) error {
	if _, _, err := s.readImage(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzeCalls++
	return c.JSON(http.StatusOK, s.Analysis)
}

func buildOutfits(item string, vibe string, ideas int, wardrobe []models.WardrobeItem) []models.Outfit {
	outfits := make([]models.Outfit, 0, ideas)
	for i := 1; i <= ideas; i++ {
		top := fmt.Sprintf("%s tee %d", vibe, i)
		if len(wardrobe) > 0 {
			top = wardrobe[(i-1)%len(wardrobe)].Name
		}
		outfits = append(outfits, models.Outfit{
			ID: i,
			Garments: []models.Garment{
				{Slot: "top", Name: top, Reason: "Balances the " + item},
				{Slot: "bottom", Name: item, Reason: "Your pick"},
				{Slot: "footwear", Name: "White sneakers", Reason: "Keeps it " + strings.ToLower(vibe)},
			},
		})
	}
	return outfits
}
