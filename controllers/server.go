package controllers

import (
	"net/http"

	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"

	"github.com/go-playground/validator"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// App is what the UI host serves. Analyzer and Gatherer are optional. UIHosts
// lists the hostnames besides loopback the UI may be reached on.
type App struct {
	UIHosts  []string
	API      services.DripMateProvider
	Analyzer services.ImageAnalyzer
	Session  *storage.SessionStore
	Prefs    *storage.PreferenceStore
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
}

func SetupServer(app App) *echo.Echo {
	logger := app.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: models.NewValidator()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(HostMiddleware(app.UIHosts, logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	if app.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(app.Gatherer, promhttp.HandlerOpts{})))
	}

	guard := SessionGuard(app.Session, logger)

	authView := NewAuthView(app.API, app.Session, logger)
	chatView := NewChatView(app.API, app.Prefs, app.Session, logger)
	wardrobeView := NewWardrobeView(app.API, app.Analyzer, app.Prefs, app.Session, logger)
	savedView := NewSavedView(app.API, app.Session, logger)
	profileView := NewProfileView(app.API, app.Session, logger)
	fitsView := NewFitsView(app.Prefs)

	authController := AuthController{View: authView}
	authController.AuthRoutes(e.Group("/auth"))

	profileController := ProfileController{View: profileView}
	profileController.ProfileRoutes(e.Group("/profile", guard))

	chatController := ChatController{View: chatView}
	chatController.ChatRoutes(e.Group("/chat"), guard)

	wardrobeController := WardrobeController{View: wardrobeView, Chat: chatView}
	wardrobeController.WardrobeRoutes(e.Group("/wardrobe", guard))

	savedController := SavedController{View: savedView}
	savedController.SavedRoutes(e.Group("/saved", guard))

	preferencesController := PreferencesController{Prefs: app.Prefs, Fits: fitsView}
	preferencesController.PreferenceRoutes(e.Group("/preferences"), e.Group("/fits"))

	return e
}
