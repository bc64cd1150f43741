package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"cafedir/internal/model"
	"cafedir/internal/notify"
	"cafedir/internal/testutil"
)

func TestSuggestHandler_Suggest(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	// Notifier is never started, so the stored row stays pending for inspection.
	n := notify.New(db, nil, testutil.TestLoggerSilent(), notify.DefaultConfig())
	h := NewSuggestHandler(db, testRenderer(t, sm), n)

	req := requestWithSession(sm, postForm(t, "/suggest", url.Values{
		"name":      {"Hidden Gem"},
		"map_url":   {"https://maps.example.com/hidden-gem"},
		"location":  {"Margate"},
		"cafe_site": {"https://hiddengem.example.com"},
	}))
	rec := httptest.NewRecorder()

	h.Suggest(rec, req)

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != redirectRoot {
		t.Errorf("Location = %q; want %q", loc, redirectRoot)
	}

	var reference, name, status string
	err := db.QueryRow("SELECT reference, name, status FROM suggestions").Scan(&reference, &name, &status)
	if err != nil {
		t.Fatalf("reading suggestion row: %v", err)
	}
	if name != "Hidden Gem" {
		t.Errorf("name = %q; want Hidden Gem", name)
	}
	if status != model.SuggestionPending {
		t.Errorf("status = %q; want pending", status)
	}
	if _, err := uuid.Parse(reference); err != nil {
		t.Errorf("reference %q is not a valid UUID: %v", reference, err)
	}
}

func TestSuggestHandler_Suggest_Validation(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	n := notify.New(db, nil, testutil.TestLoggerSilent(), notify.DefaultConfig())
	h := NewSuggestHandler(db, testRenderer(t, sm), n)

	tests := []struct {
		name string
		form url.Values
	}{
		{
			name: "missing name",
			form: url.Values{
				"map_url":  {"https://maps.example.com/x"},
				"location": {"Margate"},
			},
		},
		{
			name: "map url not a URL",
			form: url.Values{
				"name":     {"Bad Map"},
				"map_url":  {"not a url"},
				"location": {"Margate"},
			},
		},
		{
			name: "cafe site not a URL",
			form: url.Values{
				"name":      {"Bad Site"},
				"map_url":   {"https://maps.example.com/x"},
				"location":  {"Margate"},
				"cafe_site": {"ftp://files.example.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithSession(sm, postForm(t, "/suggest", tt.form))
			rec := httptest.NewRecorder()

			h.Suggest(rec, req)

			assertStatus(t, rec.Code, http.StatusSeeOther)
			if loc := rec.Header().Get("Location"); loc != redirectSuggest {
				t.Errorf("Location = %q; want %q", loc, redirectSuggest)
			}
		})
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM suggestions").Scan(&count); err != nil {
		t.Fatalf("counting suggestions: %v", err)
	}
	if count != 0 {
		t.Errorf("invalid submissions must not be stored, count = %d", count)
	}
}

func TestSuggestHandler_SuggestForm(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	n := notify.New(db, nil, testutil.TestLoggerSilent(), notify.DefaultConfig())
	h := NewSuggestHandler(db, testRenderer(t, sm), n)

	req := requestWithSession(sm, httptest.NewRequest(http.MethodGet, "/suggest", nil))
	rec := httptest.NewRecorder()

	h.SuggestForm(rec, req)

	assertStatus(t, rec.Code, http.StatusOK)
}

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"https://", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isHTTPURL(tt.input); got != tt.want {
			t.Errorf("isHTTPURL(%q) = %v; want %v", tt.input, got, tt.want)
		}
	}
}
