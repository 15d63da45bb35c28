package seeds

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/storage"
)

func testService(t *testing.T) (*Service, *storage.Collections) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	cols := storage.NewCollections(fs)
	svc := NewService(cols)
	svc.now = func() time.Time { return time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC) }
	return svc, cols
}

func TestAdd_DuplicateCodeRejected(t *testing.T) {
	svc, cols := testService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, Input{Code: "S1", Tags: []string{"contentores"}}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	before, _ := cols.Provider().Read(storage.SeedsFile)

	_, err := svc.Add(ctx, Input{Code: "S1", Tags: []string{"outra"}})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}

	list, _ := svc.List(ctx)
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
	after, _ := cols.Provider().Read(storage.SeedsFile)
	if string(before) != string(after) {
		t.Error("seed file changed after rejected add")
	}
}

func TestAdd_Defaults(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	seed, err := svc.Add(ctx, Input{
		Code:      " S2 ",
		TitleTags: []string{"contentores", " ", "Contentores"},
		Tags:      []string{"ecoponto"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if seed.Code != "S2" {
		t.Errorf("Code = %q", seed.Code)
	}
	if seed.Name != "contentores, ecoponto" {
		t.Errorf("Name = %q", seed.Name)
	}
	if len(seed.TitleTags) != 1 {
		t.Errorf("TitleTags = %v, want deduplicated", seed.TitleTags)
	}
	if seed.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestAdd_GeneratesCode(t *testing.T) {
	svc, _ := testService(t)
	seed, err := svc.Add(context.Background(), Input{District: "Lisboa"})
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^SEED[A-Z0-9]{6}$`).MatchString(seed.Code) {
		t.Errorf("generated code = %q", seed.Code)
	}
	if seed.Name != "Filtro: Lisboa" {
		t.Errorf("Name = %q", seed.Name)
	}
}

func TestAdd_WildcardAllowed(t *testing.T) {
	svc, _ := testService(t)
	seed, err := svc.Add(context.Background(), Input{Code: "ALL"})
	if err != nil {
		t.Fatal(err)
	}
	if !seed.Wildcard() || seed.Name != "ALL" {
		t.Errorf("seed = %+v", seed)
	}
}

func TestAdd_InvalidCode(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Add(context.Background(), Input{Code: "bad code!"})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestRemove(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.Add(ctx, Input{Code: "A"})
	_, _ = svc.Add(ctx, Input{Code: "B"})
	_, _ = svc.Add(ctx, Input{Code: "C"})

	if err := svc.Remove(ctx, "B"); err != nil {
		t.Fatal(err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 2 || list[0].Code != "A" || list[1].Code != "C" {
		t.Errorf("list = %+v", list)
	}
	if err := svc.Remove(ctx, "B"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetAndSearch(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.Add(ctx, Input{Code: "LX", District: "Lisboa", Tags: []string{"contentores"}})
	_, _ = svc.Add(ctx, Input{Code: "PT", District: "Porto", TitleTags: []string{"viaturas"}})

	got, err := svc.Get(ctx, "PT")
	if err != nil || got.District != "Porto" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := svc.Get(ctx, "XX"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	res, _ := svc.Search(ctx, "VIATURAS")
	if len(res) != 1 || res[0].Code != "PT" {
		t.Errorf("Search = %+v", res)
	}
	res, _ = svc.Search(ctx, "")
	if len(res) != 2 {
		t.Errorf("empty search = %d results, want 2", len(res))
	}
}

type failingStore struct{ saved int }

func (f *failingStore) LoadSeeds() ([]models.Seed, error) { return nil, errors.New("disk on fire") }
func (f *failingStore) SaveSeeds([]models.Seed) error     { f.saved++; return nil }

func TestAdd_LoadFailureWritesNothing(t *testing.T) {
	store := &failingStore{}
	svc := NewService(store)
	if _, err := svc.Add(context.Background(), Input{Code: "S1"}); err == nil {
		t.Fatal("expected error")
	}
	if store.saved != 0 {
		t.Error("save called after load failure")
	}
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := GenerateCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(c) != 10 {
			t.Fatalf("len(%q) = %d", c, len(c))
		}
		seen[c] = true
	}
	if len(seen) < 45 {
		t.Errorf("codes not random enough: %d distinct", len(seen))
	}
}
