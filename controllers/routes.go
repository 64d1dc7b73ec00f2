package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"

	"github.com/labstack/echo/v4"
)

func statusFor(err error) int {
	var apiErr *services.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindBackend:
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
	}
	return http.StatusBadGateway
}

func respond(c echo.Context, err error, state interface{}) error {
	if err != nil {
		return c.JSON(statusFor(err), state)
	}
	return c.JSON(http.StatusOK, state)
}

func confirmed(c echo.Context) bool {
	ok, _ := strconv.ParseBool(c.QueryParam("confirm"))
	return ok
}

func readUpload(c echo.Context) (models.ImageUpload, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return models.ImageUpload{}, err
	}
	src, err := file.Open()
	if err != nil {
		return models.ImageUpload{}, err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return models.ImageUpload{}, err
	}
	return models.ImageUpload{FileName: file.Filename, Data: data}, nil
}

type AuthController struct {
	View *AuthView
}

func (controller *AuthController) AuthRoutes(g *echo.Group) {
	g.POST("/login", func(c echo.Context) error {
		var req models.LoginIn
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		err := controller.View.Login(c.Request().Context(), req)
		return respond(c, err, controller.View.State())
	})
	g.POST("/signup", func(c echo.Context) error {
		var req models.SignupIn
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		err := controller.View.Signup(c.Request().Context(), req)
		return respond(c, err, controller.View.State())
	})
	g.POST("/logout", func(c echo.Context) error {
		err := controller.View.Logout()
		return respond(c, err, controller.View.State())
	})
}

type ProfileController struct {
	View *ProfileView
}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("", func(c echo.Context) error {
		err := controller.View.Load(c.Request().Context())
		return respond(c, err, controller.View.State())
	})
}

type ChatResponse struct {
	ChatState
	Cards   []OutfitCard `json:"cards"`
	Pending bool         `json:"pending"`
}

type OutfitRef struct {
	OutfitID int `json:"outfit_id" validate:"required,min=1"`
}

type ChatController struct {
	View *ChatView
}

func (controller *ChatController) render(c echo.Context, err error) error {
	response := ChatResponse{
		ChatState: controller.View.State(),
		Cards:     controller.View.Cards(),
		Pending:   controller.View.Pending(),
	}
	if errors.Is(err, ErrSuggestionPending) {
		return c.JSON(http.StatusConflict, response)
	}
	return respond(c, err, response)
}

func suggestionError(result models.SuggestionResult) error {
	failure, ok := result.(models.SuggestionFailure)
	if !ok {
		return nil
	}
	if failure.Unauthorized {
		return &services.APIError{Kind: services.KindUnauthorized, Message: failure.Error}
	}
	return &services.APIError{Kind: services.KindBackend, Status: http.StatusBadGateway, Message: failure.Error}
}

func (controller *ChatController) ChatRoutes(g *echo.Group, guard echo.MiddlewareFunc) {
	g.GET("", func(c echo.Context) error {
		return controller.render(c, nil)
	})
	g.POST("", func(c echo.Context) error {
		req := models.DefaultOutfitRequest()
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		result, err := controller.View.Submit(c.Request().Context(), req)
		if err == nil {
			err = suggestionError(result)
		}
		return controller.render(c, err)
	})
	g.POST("/image", func(c echo.Context) error {
		upload, err := readUpload(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Please choose an image"})
		}
		useWardrobe, _ := strconv.ParseBool(c.FormValue("use_wardrobe"))
		result, err := controller.View.SubmitImage(c.Request().Context(), upload, c.FormValue("prompt"), useWardrobe)
		if err == nil {
			err = suggestionError(result)
		}
		return controller.render(c, err)
	})
	g.POST("/reset", func(c echo.Context) error {
		controller.View.Reset()
		return controller.render(c, nil)
	})
	g.POST("/favorites", func(c echo.Context) error {
		var req OutfitRef
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		if err := c.Validate(req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "outfit_id is required"})
		}
		saved, err := controller.View.SaveFavorite(c.Request().Context(), req.OutfitID)
		if err != nil {
			return controller.render(c, err)
		}
		return c.JSON(http.StatusCreated, saved)
	}, guard)
	g.POST("/fits", func(c echo.Context) error {
		var req OutfitRef
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		if err := c.Validate(req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "outfit_id is required"})
		}
		fit, err := controller.View.SaveLocalFit(req.OutfitID)
		if err != nil {
			return controller.render(c, err)
		}
		return c.JSON(http.StatusCreated, fit)
	})
}

type WardrobeController struct {
	View *WardrobeView
	Chat *ChatView
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.GET("", func(c echo.Context) error {
		err := controller.View.Load(c.Request().Context())
		return respond(c, err, controller.View.State())
	})
	g.POST("", func(c echo.Context) error {
		var req models.WardrobeItem
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		err := controller.View.Add(c.Request().Context(), req)
		return respond(c, err, controller.View.State())
	})
	g.DELETE("/:id", func(c echo.Context) error {
		var id uint
		if err := echo.PathParamsBinder(c).Uint("id", &id).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid item id"})
		}
		err := controller.View.Delete(c.Request().Context(), id, confirmed(c))
		return respond(c, err, controller.View.State())
	})
	g.POST("/analyze", func(c echo.Context) error {
		upload, err := readUpload(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Please choose an image"})
		}
		_, err = controller.View.Analyze(c.Request().Context(), upload)
		return respond(c, err, controller.View.State())
	})
	g.PUT("/selected", func(c echo.Context) error {
		var req models.WardrobeItem
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		if err := controller.View.Select(&req); err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not remember the selection"})
		}
		controller.Chat.Prefill(req)
		return c.JSON(http.StatusOK, controller.View.State())
	})
	g.DELETE("/selected", func(c echo.Context) error {
		if err := controller.View.Select(nil); err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not clear the selection"})
		}
		return c.JSON(http.StatusOK, controller.View.State())
	})
}

type SavedController struct {
	View *SavedView
}

func (controller *SavedController) SavedRoutes(g *echo.Group) {
	g.GET("", func(c echo.Context) error {
		err := controller.View.Load(c.Request().Context())
		return respond(c, err, controller.View.State())
	})
	g.DELETE("/:id", func(c echo.Context) error {
		var id int64
		if err := echo.PathParamsBinder(c).Int64("id", &id).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid favorite id"})
		}
		err := controller.View.Delete(c.Request().Context(), id, confirmed(c))
		return respond(c, err, controller.View.State())
	})
}

type PreferencesController struct {
	Prefs *storage.PreferenceStore
	Fits  *FitsView
}

type ThemeIn struct {
	Theme string `json:"theme" validate:"required"`
}

func (controller *PreferencesController) PreferenceRoutes(g *echo.Group, fits *echo.Group) {
	g.GET("/theme", func(c echo.Context) error {
		theme, err := controller.Prefs.Theme()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not read the theme"})
		}
		return c.JSON(http.StatusOK, ThemeIn{Theme: string(theme)})
	})
	g.PUT("/theme", func(c echo.Context) error {
		var req ThemeIn
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid request body"})
		}
		theme, err := models.ParseTheme(req.Theme)
		if err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: err.Error()})
		}
		if err := controller.Prefs.SetTheme(theme); err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not save the theme"})
		}
		return c.JSON(http.StatusOK, ThemeIn{Theme: string(theme)})
	})
	g.POST("/reset", func(c echo.Context) error {
		if !confirmed(c) {
			return c.JSON(http.StatusOK, Status{})
		}
		if err := controller.Prefs.ClearAll(); err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not clear local data"})
		}
		return c.JSON(http.StatusOK, Status{})
	})

	fits.GET("", func(c echo.Context) error {
		list, err := controller.Fits.List()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not read saved fits"})
		}
		return c.JSON(http.StatusOK, list)
	})
	fits.DELETE("/:id", func(c echo.Context) error {
		var id int64
		if err := echo.PathParamsBinder(c).Int64("id", &id).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, Status{Error: "Invalid fit id"})
		}
		if err := controller.Fits.Delete(id, confirmed(c)); err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not remove the fit"})
		}
		list, err := controller.Fits.List()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, Status{Error: "Could not read saved fits"})
		}
		return c.JSON(http.StatusOK, list)
	})
}
