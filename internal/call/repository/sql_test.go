package repository

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"restaurant-bridge/backend/internal/call/domain"
	"restaurant-bridge/backend/internal/db"
	"restaurant-bridge/backend/internal/db/dbtest"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	return NewSQLRepository(dbtest.Open(t), db.SQLite)
}

// steppingClock returns a clock that advances one second per call, starting at base.
func steppingClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	next := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func appendCall(t *testing.T, r *SQLRepository, tableID, callType, message string) *domain.CallEvent {
	t.Helper()
	c := &domain.CallEvent{TableID: tableID, CallType: callType, Message: message}
	if err := r.Append(context.Background(), c); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return c
}

func TestAppend_CreatesPending(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i, ct := range []string{domain.CallTypeCall, domain.CallTypeBill, "custom-button"} {
		c := appendCall(t, r, "3", ct, "")
		if c.ID == 0 {
			t.Errorf("call %d: ID not assigned", i)
		}
		if c.Status != domain.CallStatusPending {
			t.Errorf("call %d: status = %q, want pending", i, c.Status)
		}
		if c.RespondedAt != nil {
			t.Errorf("call %d: RespondedAt = %v, want nil", i, c.RespondedAt)
		}

		stored, err := r.GetByID(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if stored == nil {
			t.Fatalf("GetByID(%d) returned nil", c.ID)
		}
		if stored.Status != domain.CallStatusPending || stored.RespondedAt != nil {
			t.Errorf("stored call %d: status=%q responded_at=%v", c.ID, stored.Status, stored.RespondedAt)
		}
		if stored.CallType != ct {
			t.Errorf("stored call_type = %q, want %q", stored.CallType, ct)
		}
	}
}

func TestAppend_DuplicatesAreDistinct(t *testing.T) {
	r := newTestRepo(t)
	a := appendCall(t, r, "7", domain.CallTypeWater, "水をください")
	b := appendCall(t, r, "7", domain.CallTypeWater, "水をください")
	if a.ID == b.ID {
		t.Fatalf("duplicate calls share ID %d", a.ID)
	}
	if b.ID <= a.ID {
		t.Errorf("IDs not monotonic: %d then %d", a.ID, b.ID)
	}
	pending, err := r.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestAppend_MessageOptional(t *testing.T) {
	r := newTestRepo(t)
	c := appendCall(t, r, "1", domain.CallTypeMenu, "")
	stored, err := r.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Message != "" {
		t.Errorf("Message = %q, want empty", stored.Message)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	r := newTestRepo(t)
	c, err := r.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if c != nil {
		t.Errorf("GetByID(999) = %+v, want nil", c)
	}
}

func TestListPending_NewestFirst(t *testing.T) {
	r := newTestRepo(t)
	r.nowF = steppingClock(time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC))

	c1 := appendCall(t, r, "1", domain.CallTypeCall, "")
	c2 := appendCall(t, r, "2", domain.CallTypeBill, "")
	c3 := appendCall(t, r, "3", domain.CallTypeWater, "")

	pending, err := r.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	want := []int64{c3.ID, c2.ID, c1.ID}
	if len(pending) != len(want) {
		t.Fatalf("pending = %d, want %d", len(pending), len(want))
	}
	for i, id := range want {
		if pending[i].ID != id {
			t.Errorf("pending[%d].ID = %d, want %d", i, pending[i].ID, id)
		}
	}
}

func TestListPending_ExcludesResponded(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	a := appendCall(t, r, "1", domain.CallTypeCall, "")
	b := appendCall(t, r, "2", domain.CallTypeCall, "")

	if ok, err := r.Resolve(ctx, a.ID); err != nil || !ok {
		t.Fatalf("Resolve(%d) = %v, %v", a.ID, ok, err)
	}
	pending, err := r.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("pending = %+v, want only %d", pending, b.ID)
	}
	for _, c := range pending {
		if c.Status == domain.CallStatusResponded {
			t.Errorf("pending list contains responded call %d", c.ID)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	c := appendCall(t, r, "4", domain.CallTypeBill, "")

	ok, err := r.Resolve(ctx, c.ID)
	if err != nil || !ok {
		t.Fatalf("first Resolve = %v, %v; want true, nil", ok, err)
	}
	first, err := r.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if first.Status != domain.CallStatusResponded || first.RespondedAt == nil {
		t.Fatalf("after resolve: status=%q responded_at=%v", first.Status, first.RespondedAt)
	}

	ok, err = r.Resolve(ctx, c.ID)
	if err != nil || ok {
		t.Fatalf("second Resolve = %v, %v; want false, nil", ok, err)
	}
	second, err := r.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !second.RespondedAt.Equal(*first.RespondedAt) {
		t.Errorf("responded_at changed on second resolve: %v -> %v", first.RespondedAt, second.RespondedAt)
	}
}

func TestResolve_UnknownID(t *testing.T) {
	r := newTestRepo(t)
	ok, err := r.Resolve(context.Background(), 12345)
	if err != nil {
		t.Fatalf("Resolve unknown: %v", err)
	}
	if ok {
		t.Error("Resolve unknown id should report false")
	}
}

func TestResolve_ConcurrentExactlyOneWins(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	c := appendCall(t, r, "9", domain.CallTypeProblem, "")

	const callers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		errs  []error
		start = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := r.Resolve(ctx, c.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				wins++
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(errs) != 0 {
		t.Fatalf("concurrent Resolve errors: %v", errs)
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	stored, err := r.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.CallStatusResponded || stored.RespondedAt == nil {
		t.Errorf("final state: status=%q responded_at=%v", stored.Status, stored.RespondedAt)
	}
}

func TestListRecent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	r.nowF = steppingClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, appendCall(t, r, "2", domain.CallTypeCall, "").ID)
	}
	if _, err := r.Resolve(ctx, ids[4]); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	recent, err := r.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d, want 3", len(recent))
	}
	for i, want := range []int64{ids[4], ids[3], ids[2]} {
		if recent[i].ID != want {
			t.Errorf("recent[%d].ID = %d, want %d", i, recent[i].ID, want)
		}
	}
	if recent[0].Status != domain.CallStatusResponded || recent[0].RespondedAt == nil {
		t.Errorf("recent[0] should be responded: %+v", recent[0])
	}

	none, err := r.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent(0): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListRecent(0) = %d rows, want 0", len(none))
	}
}

func TestTableFiveScenario(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	c := appendCall(t, r, "5", "call", "すみません")
	pending, err := r.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != c.ID || pending[0].TableID != "5" || pending[0].Message != "すみません" {
		t.Fatalf("pending = %+v", pending)
	}

	ok, err := r.Resolve(ctx, c.ID)
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	pending, err = r.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after resolve = %d, want 0", len(pending))
	}
	recent, err := r.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 1 || recent[0].Status != domain.CallStatusResponded || recent[0].RespondedAt == nil {
		t.Errorf("recent = %+v, want one responded row", recent)
	}
}

func TestPostgresBinds(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()
	r := NewSQLRepository(conn, db.Postgres)
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	r.nowF = func() time.Time { return fixed }

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO staff_calls (table_id, call_type, message, status, created_at)\nVALUES ($1, $2, $3, $4, $5) RETURNING id")).
		WithArgs("5", "call", "すみません", "pending", fixed).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE staff_calls SET status = $1, responded_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs("responded", fixed, int64(42), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := &domain.CallEvent{TableID: "5", CallType: "call", Message: "すみません"}
	if err := r.Append(context.Background(), c); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if c.ID != 42 || !c.CreatedAt.Equal(fixed) {
		t.Errorf("Append set ID=%d CreatedAt=%v", c.ID, c.CreatedAt)
	}
	ok, err := r.Resolve(context.Background(), 42)
	if err != nil || !ok {
		t.Errorf("Resolve = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorageErrorsSurface(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()
	r := NewSQLRepository(conn, db.Postgres)
	outage := errors.New("connection refused")

	mock.ExpectQuery("INSERT INTO staff_calls").WillReturnError(outage)
	mock.ExpectExec("UPDATE staff_calls").WillReturnError(outage)
	mock.ExpectQuery("SELECT (.+) FROM staff_calls WHERE status").WillReturnError(outage)

	c := &domain.CallEvent{TableID: "5", CallType: "call"}
	if err := r.Append(context.Background(), c); !errors.Is(err, outage) {
		t.Errorf("Append err = %v, want outage", err)
	}
	if c.ID != 0 {
		t.Errorf("failed Append assigned ID %d", c.ID)
	}
	if ok, err := r.Resolve(context.Background(), 1); !errors.Is(err, outage) || ok {
		t.Errorf("Resolve = %v, %v; want false, outage", ok, err)
	}
	if _, err := r.ListPending(context.Background()); !errors.Is(err, outage) {
		t.Errorf("ListPending err = %v, want outage", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
