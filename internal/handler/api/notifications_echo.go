package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	models "CryptoNotify/internal/domain/models"
	domrepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/internal/middleware"
	"CryptoNotify/internal/service/desktop"
	"CryptoNotify/internal/usecase"
	xhttp "CryptoNotify/pkg/http"
	xlogger "CryptoNotify/pkg/logger"
	"CryptoNotify/pkg/util"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// PayloadDecoder assigns an id and creation time to a locally raised payload.
type PayloadDecoder interface {
	FromPayload(p models.Payload) (models.Record, error)
}

// PermissionStore exposes the desktop notification permission.
type PermissionStore interface {
	Permission() desktop.Permission
	SetPermission(p desktop.Permission)
}

// ListenerStatus reports whether the real-time channel is supervised.
type ListenerStatus interface {
	Listening() bool
}

// NotificationsEchoHandler serves the notification store over HTTP.
// Every write goes through the same dispatch path as the real-time channel.
type NotificationsEchoHandler struct {
	logger     *xlogger.Logger
	dispatcher domrepo.Dispatcher
	state      domrepo.StateReader
	decoder    PayloadDecoder
	permission PermissionStore
	listener   ListenerStatus
	runtime    models.RuntimeConfig
	timeout    time.Duration
}

// the request validator is shared and must not be extended while serving
func init() {
	if err := xhttp.RegisterValidation("notification_kind", func(fl validator.FieldLevel) bool {
		return models.Kind(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("register notification_kind validation: %v", err))
	}
}

func NewNotificationsEchoHandler(
	logger *xlogger.Logger,
	d domrepo.Dispatcher,
	state domrepo.StateReader,
	dec PayloadDecoder,
	permission PermissionStore,
	listener ListenerStatus,
	runtime models.RuntimeConfig,
) *NotificationsEchoHandler {
	return &NotificationsEchoHandler{
		logger:     logger.Component("api"),
		dispatcher: d,
		state:      state,
		decoder:    dec,
		permission: permission,
		listener:   listener,
		runtime:    runtime,
		timeout:    5 * time.Second,
	}
}

func (h *NotificationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/runtime-config", h.RuntimeConfig)

	n := g.Group("/notifications")
	n.GET("", h.List)
	n.POST("", h.Trigger)
	n.DELETE("", h.ClearAll)
	n.GET("/unread-count", h.UnreadCount)
	n.POST("/read-all", h.MarkAllRead)
	n.GET("/settings", h.Settings)
	n.PATCH("/settings", h.UpdateSettings)
	n.GET("/permission", h.Permission)
	n.PUT("/permission", h.SetPermission)
	n.POST("/:id/read", h.MarkRead)
	n.DELETE("/:id", h.Remove)
}

// List returns the store state, newest first, optionally filtered.
func (h *NotificationsEchoHandler) List(c echo.Context) error {
	req := &models.ListNotificationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var since time.Time
	if req.Since != "" {
		t, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.BadRequestError("since must be RFC3339 or unix milliseconds")
		}
		since = t
	}

	st := h.state.Snapshot()
	views := make([]models.RecordView, 0, len(st.Records))
	for _, r := range st.Records {
		if !since.IsZero() && !r.CreatedAt.After(since) {
			continue
		}
		if req.UnreadOnly && r.Read {
			continue
		}
		if req.Kind != "" && string(r.Kind) != req.Kind {
			continue
		}
		views = append(views, models.NewRecordView(r))
		if len(views) == req.Limit {
			break
		}
	}
	return xhttp.SuccessResponse(c, models.StateView{
		Records:     views,
		UnreadCount: st.UnreadCount,
		Connected:   st.Connected,
		Settings:    st.Settings,
	})
}

func (h *NotificationsEchoHandler) UnreadCount(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]int{"unreadCount": h.state.Snapshot().UnreadCount})
}

// Trigger raises a local notification. It answers 202 when the record was
// filtered out by the current settings.
func (h *NotificationsEchoHandler) Trigger(c echo.Context) error {
	req := &models.TriggerNotificationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.decoder.FromPayload(req.Payload)
	if err != nil {
		return xhttp.BadRequestError(err.Error())
	}
	st, err := h.dispatch(c, models.Add{Record: rec})
	if err != nil {
		return err
	}
	if stored, ok := st.Find(rec.ID); ok {
		return xhttp.CreatedResponse(c, models.NewRecordView(stored))
	}
	return xhttp.AcceptedResponse(c, map[string]interface{}{"id": rec.ID, "inserted": false})
}

func (h *NotificationsEchoHandler) MarkRead(c echo.Context) error {
	req := &models.RecordIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.dispatch(c, models.MarkRead{ID: req.ID})
	if err != nil {
		return err
	}
	return xhttp.SuccessResponse(c, map[string]int{"unreadCount": st.UnreadCount})
}

func (h *NotificationsEchoHandler) MarkAllRead(c echo.Context) error {
	st, err := h.dispatch(c, models.MarkAllRead{})
	if err != nil {
		return err
	}
	return xhttp.SuccessResponse(c, map[string]int{"unreadCount": st.UnreadCount})
}

func (h *NotificationsEchoHandler) Remove(c echo.Context) error {
	req := &models.RecordIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if _, err := h.dispatch(c, models.Remove{ID: req.ID}); err != nil {
		return err
	}
	return xhttp.NoContentResponse(c)
}

func (h *NotificationsEchoHandler) ClearAll(c echo.Context) error {
	if _, err := h.dispatch(c, models.ClearAll{}); err != nil {
		return err
	}
	return xhttp.NoContentResponse(c)
}

func (h *NotificationsEchoHandler) Settings(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.state.Snapshot().Settings)
}

func (h *NotificationsEchoHandler) UpdateSettings(c echo.Context) error {
	patch := &models.SettingsPatch{}
	if verr := xhttp.ReadAndValidateRequest(c, patch); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.dispatch(c, models.UpdateSettings{Patch: *patch})
	if err != nil {
		return err
	}
	return xhttp.SuccessResponse(c, st.Settings)
}

func (h *NotificationsEchoHandler) Permission(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"permission": string(h.permission.Permission())})
}

func (h *NotificationsEchoHandler) SetPermission(c echo.Context) error {
	req := &models.PermissionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, err := desktop.ParsePermission(req.Permission)
	if err != nil {
		return xhttp.BadRequestError(err.Error())
	}
	h.permission.SetPermission(p)
	return xhttp.SuccessResponse(c, map[string]string{"permission": string(p)})
}

func (h *NotificationsEchoHandler) RuntimeConfig(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.SuccessResponse(c, h.runtime)
}

// Health reports liveness plus the real-time channel status.
func (h *NotificationsEchoHandler) Health(c echo.Context) error {
	st := h.state.Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"connected": st.Connected,
		"listening": h.listener != nil && h.listener.Listening(),
		"enabled":   st.Settings.Enabled,
	})
}

func (h *NotificationsEchoHandler) dispatch(c echo.Context, a models.Action) (models.State, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	st, err := h.dispatcher.Dispatch(ctx, a)
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, middleware.ErrThrottled):
		return st, xhttp.TooManyRequestsError("too many notifications")
	case errors.Is(err, middleware.ErrInvalidRecord):
		return st, xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrStoreClosed), errors.Is(err, usecase.ErrStoreNotStarted):
		return st, xhttp.ServiceUnavailableError("notification store unavailable").WithError(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return st, xhttp.ServiceUnavailableError("notification store busy").WithError(err)
	default:
		h.logger.Error("dispatch failed", xlogger.String("action", a.Type()), xlogger.Error(err))
		return st, xhttp.InternalError("dispatch failed").WithError(err)
	}
}
