package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/shillspot/shillspot/pkg/app/errors"
	apphttp "github.com/shillspot/shillspot/pkg/app/http"
	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/user"
)

// maxMultipartMemory bounds the in-memory portion of avatar uploads.
const maxMultipartMemory = 8 << 20

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers user directory endpoints on the given chi router.
// authMW guards the private routes; limitMW throttles the credential
// endpoints and may be nil when rate limiting is disabled.
func RegisterRoutes(r chi.Router, service Service, authMW, limitMW func(http.Handler) http.Handler, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Group(func(r chi.Router) {
		if limitMW != nil {
			r.Use(limitMW)
		}
		r.Post("/", apphttp.HandleError(h.register))
		r.Post("/login", apphttp.HandleError(h.login))
	})

	r.Get("/", apphttp.HandleError(h.listUsers))

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Get("/profile", apphttp.HandleError(h.profile))
		r.Put("/profile/picture", apphttp.HandleError(h.updateAvatar))
		r.Post("/{id}/follow", apphttp.HandleError(h.sendFollowRequest))
		r.Get("/follow-requests", apphttp.HandleError(h.pendingFollowRequests))
		r.Put("/follow-requests/{id}", apphttp.HandleError(h.respondFollowRequest))
		r.Delete("/follow-requests/{id}", apphttp.HandleError(h.deleteFollowRequest))
		r.Get("/following", apphttp.HandleError(h.following))
		r.Get("/followers", apphttp.HandleError(h.followers))
	})
}

// register accepts either a JSON body or a multipart form with an optional
// profilePicture file.
func (h *HTTP) register(w http.ResponseWriter, r *http.Request) error {
	var (
		req    user.RegisterRequest
		avatar *Avatar
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return apperrors.BadRequestError(err, "invalid multipart form")
		}
		req.Handle = r.FormValue("handle")
		req.Password = r.FormValue("password")
		req.WalletAddress = r.FormValue("walletAddress")
		req.Role = user.Role(r.FormValue("role"))

		if file, header, err := r.FormFile("profilePicture"); err == nil {
			defer file.Close()
			avatar = &Avatar{Filename: header.Filename, Content: file}
		}
	} else {
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
	}

	resp, err := h.service.Register(r.Context(), &req, avatar)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, resp)
	return nil
}

func (h *HTTP) login(w http.ResponseWriter, r *http.Request) error {
	var req user.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) profile(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	profile, err := h.service.Profile(r.Context(), info.UserID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, profile)
	return nil
}

func (h *HTTP) updateAvatar(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return apperrors.BadRequestError(err, "invalid multipart form")
	}

	var avatar *Avatar
	if file, header, err := r.FormFile("profilePicture"); err == nil {
		defer file.Close()
		avatar = &Avatar{Filename: header.Filename, Content: file}
	}

	path, err := h.service.UpdateAvatar(r.Context(), info.UserID, avatar)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"profilePicture": path})
	return nil
}

func (h *HTTP) listUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, users)
	return nil
}

func (h *HTTP) sendFollowRequest(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	recipientID, err := idParam(r, "id")
	if err != nil {
		return err
	}

	req, err := h.service.SendFollowRequest(r.Context(), info.UserID, recipientID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, req)
	return nil
}

func (h *HTTP) respondFollowRequest(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	requestID, err := idParam(r, "id")
	if err != nil {
		return err
	}

	var body struct {
		Status user.RequestStatus `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return err
	}

	if err := h.service.RespondFollowRequest(r.Context(), info.UserID, requestID, body.Status); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request " + string(body.Status),
	})
	return nil
}

func (h *HTTP) pendingFollowRequests(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	reqs, err := h.service.PendingFollowRequests(r.Context(), info)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, reqs)
	return nil
}

func (h *HTTP) deleteFollowRequest(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	requestID, err := idParam(r, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteFollowRequest(r.Context(), info.UserID, requestID); err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Follow request deleted"})
	return nil
}

func (h *HTTP) following(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	users, err := h.service.Following(r.Context(), info.UserID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, users)
	return nil
}

func (h *HTTP) followers(w http.ResponseWriter, r *http.Request) error {
	info, err := auth.MustInfo(r.Context())
	if err != nil {
		return err
	}

	users, err := h.service.Followers(r.Context(), info.UserID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, users)
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
