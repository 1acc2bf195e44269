package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/shillspot/shillspot/pkg/app/errors"
	apphttp "github.com/shillspot/shillspot/pkg/app/http"
	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/shill"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers shill lifecycle endpoints on the given chi
// router. Every route requires an authenticated caller.
func RegisterRoutes(r chi.Router, service Service, authMW func(http.Handler) http.Handler, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", apphttp.HandleError(h.create))
		r.Get("/me", apphttp.HandleError(h.current))
		r.Get("/user/{userId}", apphttp.HandleError(h.activeForCreator))
		r.Put("/{shillId}/cancel", apphttp.HandleError(h.cancel))
		r.Put("/{shillId}/accept", apphttp.HandleError(h.accept))
		r.Put("/{shillId}/decline", apphttp.HandleError(h.decline))
		r.Post("/{shillId}/result", apphttp.HandleError(h.recordResult))
	})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	var req shill.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	sh, err := h.service.Create(r.Context(), info, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, sh)
	return nil
}

// current returns the shill the caller should see now: their own active
// shill for shillers, the next followed shill for regular members.
func (h *HTTP) current(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	sh, err := h.service.CurrentForViewer(r.Context(), info)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, sh)
	return nil
}

func (h *HTTP) activeForCreator(w http.ResponseWriter, r *http.Request) error {
	creatorID, err := idParam(r, "userId")
	if err != nil {
		return err
	}

	sh, err := h.service.ActiveShillFor(r.Context(), creatorID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, sh)
	return nil
}

func (h *HTTP) cancel(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	shillID, err := idParam(r, "shillId")
	if err != nil {
		return err
	}

	if err := h.service.Cancel(r.Context(), info.UserID, shillID); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Shill cancelled"})
	return nil
}

func (h *HTTP) accept(w http.ResponseWriter, r *http.Request) error {
	return h.resolve(w, r, h.service.Accept)
}

func (h *HTTP) decline(w http.ResponseWriter, r *http.Request) error {
	return h.resolve(w, r, h.service.Decline)
}

func (h *HTTP) resolve(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, shillID int64) (*shill.Shill, error),
) error {
	shillID, err := idParam(r, "shillId")
	if err != nil {
		return err
	}

	sh, err := fn(r.Context(), shillID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, sh)
	return nil
}

func (h *HTTP) recordResult(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	shillID, err := idParam(r, "shillId")
	if err != nil {
		return err
	}

	var req shill.ResultRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.service.RecordResult(r.Context(), info.UserID, shillID, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}

// idParam parses a numeric chi URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperrors.BadRequestError(err, "invalid "+name)
	}
	return id, nil
}
