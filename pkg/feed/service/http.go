package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/shillspot/shillspot/pkg/app/http"
	"github.com/shillspot/shillspot/pkg/auth"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// NewHTTP creates the feed HTTP surface. Its routes are split across the
// users and shills subrouters, so registration happens in two parts.
func NewHTTP(service Service, logger *zap.Logger) *HTTP {
	return &HTTP{
		service: service,
		logger:  logger,
	}
}

// RegisterUserRoutes mounts the member discovery feeds on the users
// subrouter. Both are public.
func (h *HTTP) RegisterUserRoutes(r chi.Router) {
	r.Get("/new", apphttp.HandleError(h.newUsers))
	r.Get("/top-shillers", apphttp.HandleError(h.topShillers))
}

// RegisterShillRoutes mounts the shill feeds on the shills subrouter. The
// recent feed is public; the followed feed requires an authenticated caller.
func (h *HTTP) RegisterShillRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Get("/recent", apphttp.HandleError(h.recentShills))

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Get("/followed", apphttp.HandleError(h.followedShills))
	})
}

func (h *HTTP) topShillers(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.service.TopShillers(r.Context())
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, entries)
	return nil
}

func (h *HTTP) newUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.service.NewUsers(r.Context())
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, users)
	return nil
}

func (h *HTTP) recentShills(w http.ResponseWriter, r *http.Request) error {
	shills, err := h.service.RecentShills(r.Context())
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, shills)
	return nil
}

func (h *HTTP) followedShills(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	shills, err := h.service.FollowedShills(r.Context(), info.UserID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, shills)
	return nil
}
