package http

import (
	"net/http"

	"github.com/clicksand/clicksand/internal/infrastructure/validate"
	"github.com/clicksand/clicksand/internal/tracking"
	"github.com/labstack/echo/v4"
)

// TrackingHandler attention tracking endpoints
type TrackingHandler struct {
	trackingUseCase tracking.UseCase
	validator       validate.Validator
}

// NewTrackingHandler create a tracking controller instance
func NewTrackingHandler(
	TrackingUseCase tracking.UseCase,
	Validator validate.Validator,
) *TrackingHandler {
	handler := &TrackingHandler{TrackingUseCase, Validator}
	return handler
}

// LogRequest one activity batch from the signal collaborator
type LogRequest struct {
	UserID        string  `json:"userId"`
	Domain        string  `json:"domain"`
	ActiveSeconds float64 `json:"activeSeconds"`
	VideoSeconds  float64 `json:"videoSeconds"`
	Icon          string  `json:"icon"`
}

// UserRequest body carrying only a user identifier
type UserRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// SettingsRequest achievement rule replacement
type SettingsRequest struct {
	UserID       string                              `json:"userId" validate:"required"`
	Achievements map[string]tracking.AchievementRule `json:"achievements"`
}

// HandleLog ingest one activity tick. Batches without identifiers are
// acknowledged and dropped, matching the collector's fire-and-forget model
func (th *TrackingHandler) HandleLog(c echo.Context) (err error) {
	post := new(LogRequest)
	if err = c.Bind(post); err != nil {
		internal := err.(*echo.HTTPError).Internal
		return c.JSON(http.StatusUnprocessableEntity,
			NewRESTStandardError(http.StatusUnprocessableEntity, "Failed to bind activity batch").SetDetail(internal.Error()))
	}

	if err := th.trackingUseCase.Ingest(c.Request().Context(), &tracking.ActivityBatch{
		UserID:        post.UserID,
		Domain:        post.Domain,
		ActiveSeconds: post.ActiveSeconds,
		VideoSeconds:  post.VideoSeconds,
		Icon:          post.Icon,
	}); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// HandleHeartbeat add one browser-open second for the user
func (th *TrackingHandler) HandleHeartbeat(c echo.Context) (err error) {
	post := new(UserRequest)
	if err = c.Bind(post); err != nil {
		internal := err.(*echo.HTTPError).Internal
		return c.JSON(http.StatusUnprocessableEntity,
			NewRESTStandardError(http.StatusUnprocessableEntity, "Failed to bind heartbeat").SetDetail(internal.Error()))
	}
	if errs := th.validator.Struct(post); errs != nil {
		return c.JSON(http.StatusBadRequest,
			NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", errs))
	}

	if err := th.trackingUseCase.Heartbeat(c.Request().Context(), post.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// HandleGetStats query the live bucket or a weekly/monthly aggregate
func (th *TrackingHandler) HandleGetStats(c echo.Context) (err error) {
	userID := c.QueryParam("userId")
	view := c.QueryParam("view")
	switch view {
	case "", tracking.ViewToday, tracking.ViewWeekly, tracking.ViewMonthly:
	default:
		return c.JSON(http.StatusBadRequest,
			NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", []*validate.FieldError{
				validate.NewFieldError("view", "view must be one of (today, weekly, monthly)"),
			}))
	}

	result, err := th.trackingUseCase.Query(c.Request().Context(), userID, view)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// HandleReset clear stats and history, keep the achievement config
func (th *TrackingHandler) HandleReset(c echo.Context) (err error) {
	post := new(UserRequest)
	if err = c.Bind(post); err != nil {
		internal := err.(*echo.HTTPError).Internal
		return c.JSON(http.StatusUnprocessableEntity,
			NewRESTStandardError(http.StatusUnprocessableEntity, "Failed to bind reset request").SetDetail(internal.Error()))
	}
	if errs := th.validator.Struct(post); errs != nil {
		return c.JSON(http.StatusBadRequest,
			NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", errs))
	}

	if err := th.trackingUseCase.Reset(c.Request().Context(), post.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// HandleUpdateSettings replace the user's achievement rule set
func (th *TrackingHandler) HandleUpdateSettings(c echo.Context) (err error) {
	post := new(SettingsRequest)
	if err = c.Bind(post); err != nil {
		internal := err.(*echo.HTTPError).Internal
		return c.JSON(http.StatusUnprocessableEntity,
			NewRESTStandardError(http.StatusUnprocessableEntity, "Failed to bind settings").SetDetail(internal.Error()))
	}
	if errs := th.validator.Struct(post); errs != nil {
		return c.JSON(http.StatusBadRequest,
			NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", errs))
	}

	if err := th.trackingUseCase.UpdateRules(c.Request().Context(), post.UserID, post.Achievements); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
