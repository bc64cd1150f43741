package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"cafedir/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "cafedir-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

func createTestCafe(t *testing.T, q *Queries, name string, mutate func(*CreateCafeParams)) model.Cafe {
	t.Helper()
	params := CreateCafeParams{
		Name:     name,
		MapURL:   "https://maps.example.com/" + name,
		ImgURL:   "https://img.example.com/" + name + ".jpg",
		Location: "Springfield",
		Seats:    "20-30",
	}
	if mutate != nil {
		mutate(&params)
	}
	cafe, err := q.CreateCafe(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateCafe(%s): %v", name, err)
	}
	return cafe
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "test@example.com",
		PasswordHash: "hashed-password",
		Role:         model.RoleMember,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Error("user ID should be assigned")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "test@example.com")
	}
	if user.Role != model.RoleMember {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleMember)
	}
	if user.IsAdmin() {
		t.Error("member should not be admin")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	params := CreateUserParams{
		Email:        "dup@example.com",
		PasswordHash: "hash-1",
		Role:         model.RoleMember,
	}
	if _, err := q.CreateUser(ctx, params); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}

	params.PasswordHash = "hash-2"
	_, err := q.CreateUser(ctx, params)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("second CreateUser error = %v, want ErrDuplicateEmail", err)
	}

	// Store must be unchanged: the original hash survives
	user, err := q.GetUserByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user.PasswordHash != "hash-1" {
		t.Errorf("PasswordHash = %q, want the original %q", user.PasswordHash, "hash-1")
	}

	count, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("CountUsers = %d, want 1", count)
	}
}

func TestCreateUser_SecondAdminRejected(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	if _, err := q.CreateUser(ctx, CreateUserParams{
		Email: "first@example.com", PasswordHash: "hash-1", Role: model.RoleAdmin,
	}); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}

	_, err := q.CreateUser(ctx, CreateUserParams{
		Email: "second@example.com", PasswordHash: "hash-2", Role: model.RoleAdmin,
	})
	if !errors.Is(err, ErrAdminExists) {
		t.Fatalf("second admin CreateUser error = %v, want ErrAdminExists", err)
	}
}

// Two registrations racing on an empty table both observe a zero user count
// and both ask for the admin role. The unique index on the role column must
// let exactly one through; the loser re-inserts as a member.
func TestCreateUser_ConcurrentFirstRegistration(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	// Both requests read the count before either inserts
	countA, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	countB, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if countA != 0 || countB != 0 {
		t.Fatalf("counts = %d, %d; want 0, 0", countA, countB)
	}

	winner, err := q.CreateUser(ctx, CreateUserParams{
		Email: "a@example.com", PasswordHash: "hash-a", Role: model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("winning CreateUser: %v", err)
	}

	_, err = q.CreateUser(ctx, CreateUserParams{
		Email: "b@example.com", PasswordHash: "hash-b", Role: model.RoleAdmin,
	})
	if !errors.Is(err, ErrAdminExists) {
		t.Fatalf("losing CreateUser error = %v, want ErrAdminExists", err)
	}

	loser, err := q.CreateUser(ctx, CreateUserParams{
		Email: "b@example.com", PasswordHash: "hash-b", Role: model.RoleMember,
	})
	if err != nil {
		t.Fatalf("demoted CreateUser: %v", err)
	}

	if winner.Role != model.RoleAdmin {
		t.Errorf("winner role = %q, want %q", winner.Role, model.RoleAdmin)
	}
	if loser.Role != model.RoleMember {
		t.Errorf("loser role = %q, want %q", loser.Role, model.RoleMember)
	}

	var admins int64
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE role = ?", model.RoleAdmin).Scan(&admins); err != nil {
		t.Fatalf("counting admins: %v", err)
	}
	if admins != 1 {
		t.Errorf("admin count = %d, want 1", admins)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	_, err := New(db).GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUserByEmail error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserLastLogin(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "login@example.com",
		PasswordHash: "hash",
		Role:         model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.LastLoginAt.Valid {
		t.Error("LastLoginAt should start unset")
	}

	if err := q.UpdateUserLastLogin(ctx, user.ID, time.Now()); err != nil {
		t.Fatalf("UpdateUserLastLogin: %v", err)
	}

	user, err = q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !user.LastLoginAt.Valid {
		t.Error("LastLoginAt should be set after update")
	}
}

func TestCreateCafe_DuplicateName(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	createTestCafe(t, q, "Joe's", nil)

	_, err := q.CreateCafe(ctx, CreateCafeParams{
		Name:     "Joe's",
		MapURL:   "https://maps.example.com/other",
		ImgURL:   "https://img.example.com/other.jpg",
		Location: "Shelbyville",
		Seats:    "10",
	})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("CreateCafe error = %v, want ErrDuplicateName", err)
	}

	cafes, err := q.ListCafes(ctx, model.FilterNone)
	if err != nil {
		t.Fatalf("ListCafes: %v", err)
	}
	if len(cafes) != 1 {
		t.Errorf("len(cafes) = %d, want 1 (no duplicate row)", len(cafes))
	}
}

func TestListCafes_AmenityFilters(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	createTestCafe(t, q, "Wifi Only", func(p *CreateCafeParams) { p.HasWifi = true })
	createTestCafe(t, q, "Sockets Only", func(p *CreateCafeParams) { p.HasSockets = true })
	createTestCafe(t, q, "Everything", func(p *CreateCafeParams) {
		p.HasWifi = true
		p.HasSockets = true
		p.HasToilet = true
		p.CanTakeCalls = true
	})
	createTestCafe(t, q, "Nothing", nil)

	tests := []struct {
		filter model.AmenityFilter
		want   []string
	}{
		{model.FilterNone, []string{"Wifi Only", "Sockets Only", "Everything", "Nothing"}},
		{model.FilterWifi, []string{"Wifi Only", "Everything"}},
		{model.FilterSockets, []string{"Sockets Only", "Everything"}},
		{model.FilterToilet, []string{"Everything"}},
		{model.FilterCalls, []string{"Everything"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			cafes, err := q.ListCafes(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListCafes(%q): %v", tt.filter, err)
			}
			if len(cafes) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(cafes), len(tt.want))
			}
			for i, name := range tt.want {
				if cafes[i].Name != name {
					t.Errorf("cafes[%d].Name = %q, want %q", i, cafes[i].Name, name)
				}
			}
		})
	}
}

func TestListCafes_StableOrder(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	createTestCafe(t, q, "A", nil)
	createTestCafe(t, q, "B", nil)
	createTestCafe(t, q, "C", nil)

	first, err := q.ListCafes(ctx, model.FilterNone)
	if err != nil {
		t.Fatalf("ListCafes: %v", err)
	}
	second, err := q.ListCafes(ctx, model.FilterNone)
	if err != nil {
		t.Fatalf("ListCafes: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("order changed between calls at index %d", i)
		}
	}
}

func TestDeleteCafe(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	keep := createTestCafe(t, q, "Keep", nil)
	drop := createTestCafe(t, q, "Drop", nil)

	if err := q.DeleteCafe(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteCafe: %v", err)
	}

	if _, err := q.GetCafeByID(ctx, drop.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCafeByID(deleted) error = %v, want ErrNotFound", err)
	}
	if _, err := q.GetCafeByID(ctx, keep.ID); err != nil {
		t.Errorf("GetCafeByID(kept): %v", err)
	}
}

func TestDeleteCafe_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	createTestCafe(t, q, "Survivor", nil)

	err := q.DeleteCafe(ctx, 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteCafe(9999) error = %v, want ErrNotFound", err)
	}

	cafes, err := q.ListCafes(ctx, model.FilterNone)
	if err != nil {
		t.Fatalf("ListCafes: %v", err)
	}
	if len(cafes) != 1 {
		t.Errorf("len(cafes) = %d, want 1 (table unchanged)", len(cafes))
	}
}

func TestSuggestionLifecycle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	s, err := q.CreateSuggestion(ctx, CreateSuggestionParams{
		Reference: "ref-123",
		Name:      "Hidden Gem",
		MapURL:    "https://maps.example.com/hidden",
		Location:  "Backstreet 7",
		SiteURL:   "https://hiddengem.example.com",
	})
	if err != nil {
		t.Fatalf("CreateSuggestion: %v", err)
	}
	if s.Status != model.SuggestionPending {
		t.Errorf("Status = %q, want %q", s.Status, model.SuggestionPending)
	}

	err = q.UpdateSuggestionDelivery(ctx, UpdateSuggestionDeliveryParams{
		ID:          s.ID,
		Status:      model.SuggestionDelivered,
		DeliveredAt: sql.NullTime{Time: time.Now(), Valid: true},
	})
	if err != nil {
		t.Fatalf("UpdateSuggestionDelivery: %v", err)
	}

	s, err = q.GetSuggestionByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSuggestionByID: %v", err)
	}
	if s.Status != model.SuggestionDelivered {
		t.Errorf("Status = %q, want %q", s.Status, model.SuggestionDelivered)
	}
	if !s.DeliveredAt.Valid {
		t.Error("DeliveredAt should be set")
	}
}

func TestSeed_FirstRegistrantIsAdmin(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()

	if err := Seed(ctx, db, "admin@example.com", "changeme"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	q := New(db)
	user, err := q.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !user.IsAdmin() {
		t.Error("seeded user should be admin")
	}

	// Second seed is a no-op
	if err := Seed(ctx, db, "other@example.com", "changeme"); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if _, err := q.GetUserByEmail(ctx, "other@example.com"); !errors.Is(err, ErrNotFound) {
		t.Error("second seed should not create another user")
	}
}

func TestEventLog(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	if _, err := q.CreateEvent(ctx, CreateEventParams{
		Level:    model.EventLevelWarning,
		Category: model.EventCategoryAuth,
		Message:  "login failed",
	}); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	events, err := q.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Message != "login failed" {
		t.Errorf("Message = %q", events[0].Message)
	}

	pruned, err := q.DeleteEventsBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteEventsBefore: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
}
