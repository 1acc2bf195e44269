package service

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/shillspot/shillspot/pkg/app/errors"
	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/user"
)

// fakeService lets each test stub only the methods the route under test hits.
type fakeService struct {
	register      func(ctx context.Context, req *user.RegisterRequest, avatar *Avatar) (*user.AuthResponse, error)
	login         func(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error)
	profile       func(ctx context.Context, userID int64) (*user.Profile, error)
	sendFollow    func(ctx context.Context, requesterID, recipientID int64) (*user.FollowRequest, error)
	respondFollow func(ctx context.Context, callerID, requestID int64, status user.RequestStatus) error
}

func (f *fakeService) Register(ctx context.Context, req *user.RegisterRequest, avatar *Avatar) (*user.AuthResponse, error) {
	return f.register(ctx, req, avatar)
}

func (f *fakeService) Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error) {
	return f.login(ctx, req)
}

func (f *fakeService) Profile(ctx context.Context, userID int64) (*user.Profile, error) {
	return f.profile(ctx, userID)
}

func (f *fakeService) UpdateAvatar(context.Context, int64, *Avatar) (string, error) {
	return "", nil
}

func (f *fakeService) ListUsers(context.Context) ([]*user.Summary, error) {
	return nil, nil
}

func (f *fakeService) SendFollowRequest(ctx context.Context, requesterID, recipientID int64) (*user.FollowRequest, error) {
	return f.sendFollow(ctx, requesterID, recipientID)
}

func (f *fakeService) RespondFollowRequest(ctx context.Context, callerID, requestID int64, status user.RequestStatus) error {
	return f.respondFollow(ctx, callerID, requestID, status)
}

func (f *fakeService) DeleteFollowRequest(context.Context, int64, int64) error {
	return nil
}

func (f *fakeService) PendingFollowRequests(context.Context, *auth.Info) ([]*user.FollowRequest, error) {
	return nil, nil
}

func (f *fakeService) Following(context.Context, int64) ([]*user.Summary, error) {
	return nil, nil
}

func (f *fakeService) Followers(context.Context, int64) ([]*user.Summary, error) {
	return nil, nil
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
	RegisterRoutes(r, svc, identityMW(caller), nil, zap.NewNop())
	return r
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) (string, int) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error, body.Code
}

func TestHTTP_Register(t *testing.T) {
	svc := &fakeService{
		register: func(_ context.Context, req *user.RegisterRequest, avatar *Avatar) (*user.AuthResponse, error) {
			if avatar != nil {
				t.Fatal("unexpected avatar on JSON registration")
			}
			return &user.AuthResponse{ID: 1, Handle: req.Handle, Role: user.RoleUser, Token: "tok"}, nil
		},
	}
	router := newTestRouter(svc, nil)

	payload := `{"handle":"alice","password":"hunter22","walletAddress":"0x1111111111111111111111111111111111111111"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp user.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Handle != "alice" || resp.Token != "tok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHTTP_Register_Multipart(t *testing.T) {
	var gotAvatar *Avatar
	svc := &fakeService{
		register: func(_ context.Context, req *user.RegisterRequest, avatar *Avatar) (*user.AuthResponse, error) {
			gotAvatar = avatar
			return &user.AuthResponse{ID: 2, Handle: req.Handle, Role: req.Role, Token: "tok"}, nil
		},
	}
	router := newTestRouter(svc, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("handle", "bob")
	_ = mw.WriteField("password", "hunter22")
	_ = mw.WriteField("walletAddress", "0x1111111111111111111111111111111111111111")
	_ = mw.WriteField("role", "shiller")
	part, err := mw.CreateFormFile("profilePicture", "me.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	_, _ = part.Write([]byte("png bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotAvatar == nil || gotAvatar.Filename != "me.png" {
		t.Fatalf("avatar not forwarded to the service: %+v", gotAvatar)
	}
}

func TestHTTP_Register_InvalidJSON(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	msg, code := decodeErrorBody(t, rec)
	if msg != "invalid JSON" || code != http.StatusBadRequest {
		t.Fatalf("unexpected error body: %q code=%d", msg, code)
	}
}

func TestHTTP_Login_Unauthorized(t *testing.T) {
	svc := &fakeService{
		login: func(context.Context, *user.LoginRequest) (*user.AuthResponse, error) {
			return nil, apperrors.UnAuthorizedError(ErrInvalidCredentials, "invalid handle or password")
		},
	}
	router := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"handle":"alice","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	msg, _ := decodeErrorBody(t, rec)
	if msg != "invalid handle or password" {
		t.Fatalf("unexpected error message: %q", msg)
	}
}

func TestHTTP_Profile_RequiresAuth(t *testing.T) {
	called := false
	svc := &fakeService{
		profile: func(context.Context, int64) (*user.Profile, error) {
			called = true
			return nil, nil
		},
	}
	// Middleware that never injects an identity.
	r := chi.NewRouter()
	passthrough := func(next http.Handler) http.Handler { return next }
	RegisterRoutes(r, svc, passthrough, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
	if called {
		t.Fatal("service reached without an authenticated caller")
	}
}

func TestHTTP_SendFollowRequest(t *testing.T) {
	caller := &auth.Info{UserID: 7, Handle: "alice", Role: user.RoleUser}
	svc := &fakeService{
		sendFollow: func(_ context.Context, requesterID, recipientID int64) (*user.FollowRequest, error) {
			if requesterID != 7 || recipientID != 42 {
				t.Fatalf("unexpected ids: requester=%d recipient=%d", requesterID, recipientID)
			}
			return &user.FollowRequest{ID: 1, RequesterID: requesterID, RecipientID: recipientID, Status: user.RequestPending}, nil
		},
	}
	router := newTestRouter(svc, caller)

	req := httptest.NewRequest(http.MethodPost, "/42/follow", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHTTP_SendFollowRequest_BadID(t *testing.T) {
	router := newTestRouter(&fakeService{}, &auth.Info{UserID: 7})

	req := httptest.NewRequest(http.MethodPost, "/abc/follow", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestHTTP_RespondFollowRequest(t *testing.T) {
	caller := &auth.Info{UserID: 9, Handle: "dave", Role: user.RoleShiller}
	svc := &fakeService{
		respondFollow: func(_ context.Context, callerID, requestID int64, status user.RequestStatus) error {
			if callerID != 9 || requestID != 3 || status != user.RequestAccepted {
				t.Fatalf("unexpected args: caller=%d request=%d status=%s", callerID, requestID, status)
			}
			return nil
		},
	}
	router := newTestRouter(svc, caller)

	req := httptest.NewRequest(http.MethodPut, "/follow-requests/3", strings.NewReader(`{"status":"accepted"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["message"] != "Follow request accepted" {
		t.Fatalf("unexpected message: %q", body["message"])
	}
}

func TestHTTP_RespondFollowRequest_Conflict(t *testing.T) {
	svc := &fakeService{
		respondFollow: func(context.Context, int64, int64, user.RequestStatus) error {
			return apperrors.ConflictError(nil, "follow request already responded to")
		},
	}
	router := newTestRouter(svc, &auth.Info{UserID: 9, Role: user.RoleShiller})

	req := httptest.NewRequest(http.MethodPut, "/follow-requests/3", strings.NewReader(`{"status":"declined"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	msg, code := decodeErrorBody(t, rec)
	if msg != "follow request already responded to" || code != http.StatusConflict {
		t.Fatalf("unexpected error body: %q code=%d", msg, code)
	}
}
