package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cafedir/internal/middleware"
	"cafedir/internal/model"
)

func TestHealthHandler_PublicResponse(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewHealthHandler(db, sm, t.TempDir()+"/cafedir.db")

	req := requestWithSession(sm, httptest.NewRequest(http.MethodGet, "/health", nil))
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assertStatus(t, rec.Code, http.StatusOK)

	var resp HealthStatusPublic
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q; want healthy", resp.Status)
	}

	// Public response must not leak check details
	var full map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &full)
	if _, ok := full["checks"]; ok {
		t.Error("public response should not include check details")
	}
}

func TestHealthHandler_AdminGetsDetails(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewHealthHandler(db, sm, t.TempDir()+"/cafedir.db")

	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Role: model.RoleAdmin})

	req := requestWithSession(sm, httptest.NewRequest(http.MethodGet, "/health", nil))
	sm.Put(req.Context(), middleware.SessionKeyUserID, admin.ID)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assertStatus(t, rec.Code, http.StatusOK)

	var resp HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Checks["database"].Status != "healthy" {
		t.Errorf("database check = %+v; want healthy", resp.Checks["database"])
	}
	if resp.Uptime == "" {
		t.Error("admin response should include uptime")
	}
}

func TestHealthHandler_MemberGetsMinimal(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewHealthHandler(db, sm, t.TempDir()+"/cafedir.db")

	member := createTestUser(t, db, testUser{Email: "member@example.com", Role: model.RoleMember})

	req := requestWithSession(sm, httptest.NewRequest(http.MethodGet, "/health", nil))
	sm.Put(req.Context(), middleware.SessionKeyUserID, member.ID)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assertStatus(t, rec.Code, http.StatusOK)

	var full map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &full); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := full["checks"]; ok {
		t.Error("member response should not include check details")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q; want %q", tt.bytes, got, tt.want)
		}
	}
}
