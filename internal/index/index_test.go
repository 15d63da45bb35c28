package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "tenderwatch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func notice(link, district, desc string) models.Notice {
	return models.Notice{
		Link:               link,
		District:           district,
		Description:        desc,
		AwardingEntityName: "Município de Sintra",
		SubmissionDeadline: "15-03-2026 17:00",
		FullDetails:        "Descrição: " + desc,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notices`).Scan(&count); err != nil {
		t.Fatalf("notices table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
}

func TestSyncActive_UpsertTouchDeactivate(t *testing.T) {
	db := testDB(t)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	st, err := db.SyncActive([]models.Notice{
		notice("a", "Lisboa", "Contentores"),
		notice("b", "Porto", "Limpeza"),
		notice("a", "Lisboa", "duplicate link"),
	}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if st.Upserted != 2 || st.Unchanged != 0 || st.Deactivated != 0 {
		t.Fatalf("first sync = %+v", st)
	}

	t1 := t0.Add(24 * time.Hour)
	changed := notice("a", "Lisboa", "Contentores")
	changed.MatchedSeed = "Resíduos"
	st, err = db.SyncActive([]models.Notice{changed}, t1)
	if err != nil {
		t.Fatal(err)
	}
	if st.Upserted != 1 || st.Deactivated != 1 {
		t.Fatalf("second sync = %+v", st)
	}

	a, err := db.GetNotice("a")
	if err != nil {
		t.Fatal(err)
	}
	if a.MatchedSeed != "Resíduos" || !a.Active {
		t.Errorf("a = %+v", a)
	}
	if !a.FirstSeen.Equal(t0) || !a.LastSeen.Equal(t1) {
		t.Errorf("seen = %v / %v", a.FirstSeen, a.LastSeen)
	}
	b, err := db.GetNotice("b")
	if err != nil {
		t.Fatal(err)
	}
	if b.Active {
		t.Error("b should be inactive")
	}

	st, err = db.SyncActive([]models.Notice{changed}, t1.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if st.Unchanged != 1 || st.Upserted != 0 {
		t.Errorf("idempotent sync = %+v", st)
	}
}

func TestSyncActive_Reactivates(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	n := notice("a", "Lisboa", "Contentores")
	_, _ = db.SyncActive([]models.Notice{n}, now)
	_, _ = db.SyncActive(nil, now)
	_, _ = db.SyncActive([]models.Notice{n}, now)

	a, err := db.GetNotice("a")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Active {
		t.Error("notice back in the active set should be active again")
	}
}

func TestGetNotice_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetNotice("nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListNotices_Filters(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	seeded := notice("c", "Lisboa", "Obras")
	seeded.MatchedSeed = "Obras"
	_, _ = db.SyncActive([]models.Notice{
		notice("a", "Lisboa", "Contentores"),
		notice("b", "Porto", "Limpeza"),
		seeded,
	}, now)

	rows, total, err := db.ListNotices(ListQuery{District: "lisboa"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(rows) != 2 {
		t.Errorf("district filter: total=%d rows=%d", total, len(rows))
	}

	rows, total, err = db.ListNotices(ListQuery{Seed: "Obras"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || rows[0].Link != "c" {
		t.Errorf("seed filter: total=%d rows=%+v", total, rows)
	}

	rows, total, err = db.ListNotices(ListQuery{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(rows) != 1 {
		t.Errorf("paging: total=%d rows=%d", total, len(rows))
	}

	_, _ = db.SyncActive([]models.Notice{seeded}, now)
	_, total, _ = db.ListNotices(ListQuery{ActiveOnly: true})
	if total != 1 {
		t.Errorf("active only total = %d, want 1", total)
	}
}

func TestRunsAndStats(t *testing.T) {
	db := testDB(t)

	st, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Runs != 0 || st.LastRun != nil {
		t.Errorf("empty stats = %+v", st)
	}

	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2"} {
		start := t0.Add(time.Duration(i) * time.Hour)
		if err := db.RecordRun(models.Run{ID: id, StartedAt: start, FinishedAt: start.Add(time.Minute), Source: "scrape", Added: i + 1}); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = db.SyncActive([]models.Notice{notice("a", "Lisboa", "x")}, t0)

	runs, err := db.Runs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "r2" || runs[0].Added != 2 {
		t.Errorf("runs = %+v", runs)
	}

	st, err = db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Notices != 1 || st.Active != 1 || st.Runs != 2 {
		t.Errorf("stats = %+v", st)
	}
	if st.LastRun == nil || !st.LastRun.Equal(t0.Add(time.Hour)) {
		t.Errorf("last run = %v", st.LastRun)
	}
}

func TestRecordRun_DuplicateID(t *testing.T) {
	db := testDB(t)
	r := models.Run{ID: "same", StartedAt: time.Now(), FinishedAt: time.Now()}
	if err := db.RecordRun(r); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordRun(r); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_, _ = db.SyncActive([]models.Notice{notice("s", "Lisboa", "contentores enterrados")}, time.Now())

	results, err := db.Search("enterrados", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Link != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}
