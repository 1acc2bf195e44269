package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/shillspot/shillspot/pkg/app/errors"
	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/shill"
	"github.com/shillspot/shillspot/pkg/user"
)

// fakeService lets each test stub only the methods the route under test hits.
type fakeService struct {
	create       func(ctx context.Context, caller *auth.Info, req *shill.CreateRequest) (*shill.Shill, error)
	cancel       func(ctx context.Context, callerID, shillID int64) error
	accept       func(ctx context.Context, shillID int64) (*shill.Shill, error)
	decline      func(ctx context.Context, shillID int64) (*shill.Shill, error)
	recordResult func(ctx context.Context, viewerID, shillID int64, req *shill.ResultRequest) (*shill.ResultResponse, error)
	current      func(ctx context.Context, caller *auth.Info) (*shill.Shill, error)
}

func (f *fakeService) Create(ctx context.Context, caller *auth.Info, req *shill.CreateRequest) (*shill.Shill, error) {
	return f.create(ctx, caller, req)
}

func (f *fakeService) Cancel(ctx context.Context, callerID, shillID int64) error {
	return f.cancel(ctx, callerID, shillID)
}

func (f *fakeService) Accept(ctx context.Context, shillID int64) (*shill.Shill, error) {
	return f.accept(ctx, shillID)
}

func (f *fakeService) Decline(ctx context.Context, shillID int64) (*shill.Shill, error) {
	return f.decline(ctx, shillID)
}

func (f *fakeService) RecordResult(ctx context.Context, viewerID, shillID int64, req *shill.ResultRequest) (*shill.ResultResponse, error) {
	return f.recordResult(ctx, viewerID, shillID, req)
}

func (f *fakeService) ActiveShillFor(context.Context, int64) (*shill.Shill, error) {
	return nil, nil
}

func (f *fakeService) CurrentForViewer(ctx context.Context, caller *auth.Info) (*shill.Shill, error) {
	return f.current(ctx, caller)
}

// identityMW injects a fixed caller, standing in for token verification.
func identityMW(info *auth.Info) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithInfo(r.Context(), info)))
		})
	}
}

func newTestRouter(svc Service, caller *auth.Info) *chi.Mux {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, identityMW(caller), zap.NewNop())
	return r
}

func TestHTTP_Create(t *testing.T) {
	caller := &auth.Info{UserID: 1, Handle: "shiller", Role: user.RoleShiller}
	svc := &fakeService{
		create: func(_ context.Context, got *auth.Info, req *shill.CreateRequest) (*shill.Shill, error) {
			if got.UserID != 1 {
				t.Fatalf("unexpected caller: %+v", got)
			}
			return &shill.Shill{ID: 5, CreatorID: got.UserID, TokenAddress: req.TokenAddress, Reason: req.Reason, Active: true, Status: shill.StatusPending}, nil
		},
	}
	router := newTestRouter(svc, caller)

	payload := `{"tokenAddress":"0x2222222222222222222222222222222222222222","reason":"moon soon"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sh shill.Shill
	if err := json.Unmarshal(rec.Body.Bytes(), &sh); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if sh.ID != 5 || sh.Status != shill.StatusPending {
		t.Fatalf("unexpected response: %+v", sh)
	}
}

func TestHTTP_Create_RequiresAuth(t *testing.T) {
	r := chi.NewRouter()
	passthrough := func(next http.Handler) http.Handler { return next }
	RegisterRoutes(r, &fakeService{}, passthrough, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestHTTP_Accept(t *testing.T) {
	svc := &fakeService{
		accept: func(_ context.Context, shillID int64) (*shill.Shill, error) {
			if shillID != 9 {
				t.Fatalf("unexpected shill id: %d", shillID)
			}
			return &shill.Shill{ID: shillID, Status: shill.StatusAccepted, Active: true}, nil
		},
	}
	router := newTestRouter(svc, &auth.Info{UserID: 3, Role: user.RoleUser})

	req := httptest.NewRequest(http.MethodPut, "/9/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sh shill.Shill
	if err := json.Unmarshal(rec.Body.Bytes(), &sh); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if sh.Status != shill.StatusAccepted {
		t.Fatalf("unexpected status: %s", sh.Status)
	}
}

func TestHTTP_Decline_Conflict(t *testing.T) {
	svc := &fakeService{
		decline: func(context.Context, int64) (*shill.Shill, error) {
			return nil, apperrors.ConflictError(nil, "shill already resolved")
		},
	}
	router := newTestRouter(svc, &auth.Info{UserID: 3, Role: user.RoleUser})

	req := httptest.NewRequest(http.MethodPut, "/9/decline", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error != "shill already resolved" || body.Code != http.StatusConflict {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestHTTP_Cancel_BadID(t *testing.T) {
	router := newTestRouter(&fakeService{}, &auth.Info{UserID: 1, Role: user.RoleShiller})

	req := httptest.NewRequest(http.MethodPut, "/abc/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestHTTP_RecordResult(t *testing.T) {
	svc := &fakeService{
		recordResult: func(_ context.Context, viewerID, shillID int64, req *shill.ResultRequest) (*shill.ResultResponse, error) {
			if viewerID != 3 || shillID != 9 || req.Result != shill.ResultProfit {
				t.Fatalf("unexpected args: viewer=%d shill=%d result=%s", viewerID, shillID, req.Result)
			}
			return &shill.ResultResponse{ProfitCount: 2, LossCount: 1, Completed: true}, nil
		},
	}
	router := newTestRouter(svc, &auth.Info{UserID: 3, Role: user.RoleUser})

	req := httptest.NewRequest(http.MethodPost, "/9/result", strings.NewReader(`{"result":"profit"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp shill.ResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ProfitCount != 2 || resp.LossCount != 1 || !resp.Completed {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHTTP_Current(t *testing.T) {
	svc := &fakeService{
		current: func(_ context.Context, caller *auth.Info) (*shill.Shill, error) {
			return &shill.Shill{ID: 4, CreatorID: caller.UserID, Active: true, Status: shill.StatusPending}, nil
		},
	}
	router := newTestRouter(svc, &auth.Info{UserID: 1, Role: user.RoleShiller})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
