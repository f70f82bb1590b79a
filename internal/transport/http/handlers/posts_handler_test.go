package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	authsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/auth"
	modsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/moderation"
	postssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/posts"
)

type approveAllEvaluator struct{}

func (approveAllEvaluator) Evaluate(_ context.Context, candidate modsvc.Candidate) (model.ModerationDecision, error) {
	return model.ModerationDecision{
		PostID:     candidate.PostID,
		Action:     enums.ModerationActionApprove,
		Confidence: 0.9,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (approveAllEvaluator) RecordDecision(context.Context, model.ModerationDecision) error {
	return nil
}

type userLookupStub struct {
	user model.User
}

func (s userLookupStub) Get(context.Context, int64) (model.User, error) {
	return s.user, nil
}

func newPostsHandlerForTest(t *testing.T) (*PostsHandler, *postssvc.Service) {
	t.Helper()

	svc := postssvc.NewService(postssvc.NewMemoryStore(), approveAllEvaluator{}, postssvc.Config{
		TTL:          4 * time.Hour,
		DefaultLimit: 100,
		FallbackLat:  59.3733,
		FallbackLon:  28.6134,
	}, zap.NewNop())

	return NewPostsHandler(svc, userLookupStub{user: model.User{ID: 101, Name: "Иван"}}, zap.NewNop()), svc
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: 101,
		SID:    "sid-101",
		Role:   "user",
	}))
}

func TestSubmitPostReturnsEnvelope(t *testing.T) {
	h, _ := newPostsHandlerForTest(t)

	body, _ := json.Marshal(map[string]any{
		"description": "ДПС проверяют на выезде",
		"latitude":    59.38,
		"longitude":   28.60,
	})
	rr := httptest.NewRecorder()
	h.Submit(rr, authedRequest(http.MethodPost, "/api/posts", body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d, body %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var payload struct {
		Success bool       `json:"success"`
		Data    model.Post `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Success {
		t.Fatal("success=false on created post")
	}
	if payload.Data.ID == "" || payload.Data.UserID != 101 || payload.Data.UserName != "Иван" {
		t.Fatalf("unexpected post payload: %+v", payload.Data)
	}
	if payload.Data.Status != enums.ModerationStatusApproved {
		t.Fatalf("status = %s, want approved", payload.Data.Status)
	}
}

func TestSubmitPostRequiresAuth(t *testing.T) {
	h, _ := newPostsHandlerForTest(t)

	body, _ := json.Marshal(map[string]any{"description": "без токена"})
	rr := httptest.NewRecorder()
	h.Submit(rr, httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewReader(body)))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSubmitPostValidationError(t *testing.T) {
	h, _ := newPostsHandlerForTest(t)

	body, _ := json.Marshal(map[string]any{"description": "   "})
	rr := httptest.NewRecorder()
	h.Submit(rr, authedRequest(http.MethodPost, "/api/posts", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	var payload struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Success || payload.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error payload: %+v", payload)
	}
}

func TestListPostsPublic(t *testing.T) {
	h, svc := newPostsHandlerForTest(t)

	lat, lon := 59.38, 28.60
	if _, err := svc.Submit(context.Background(), postssvc.SubmitInput{
		Description: "камера на мосту",
		Latitude:    &lat,
		Longitude:   &lon,
		UserID:      101,
	}); err != nil {
		t.Fatalf("seed post: %v", err)
	}

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload struct {
		Success bool         `json:"success"`
		Data    []model.Post `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Success || len(payload.Data) != 1 {
		t.Fatalf("unexpected list payload: %+v", payload)
	}
}

func TestListPostsRejectsBadLimit(t *testing.T) {
	h, _ := newPostsHandlerForTest(t)

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/posts?limit=abc", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
