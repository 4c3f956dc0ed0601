package memory

import (
	"context"
	"testing"
	"time"

	"sweetdiary/internal/core"
)

func TestEntryUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	user := core.UserID("u1")
	day := core.NewDay(2024, time.June, 3)

	if _, ok, _ := s.GetEntry(ctx, user, day); ok {
		t.Fatal("empty store should miss")
	}

	if err := s.PutEntry(ctx, user, core.Entry{Day: day, Price: 100, Icon: core.IconSweet}); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}
	if err := s.PutEntry(ctx, user, core.Entry{Day: day, Price: 250, Icon: core.IconHot}); err != nil {
		t.Fatalf("PutEntry overwrite: %v", err)
	}

	e, ok, err := s.GetEntry(ctx, user, day)
	if err != nil || !ok {
		t.Fatalf("GetEntry: ok=%v err=%v", ok, err)
	}
	if e.Price != 250 || e.Icon != core.IconHot {
		t.Errorf("entry = %+v, want the overwrite", e)
	}

	// Other users never see it.
	if _, ok, _ := s.GetEntry(ctx, "u2", day); ok {
		t.Error("entry leaked across users")
	}
}

func TestListEntriesRange(t *testing.T) {
	ctx := context.Background()
	s := New()
	user := core.UserID("u1")

	for _, d := range []core.Day{
		core.NewDay(2024, time.January, 31),
		core.NewDay(2024, time.February, 1),
		core.NewDay(2024, time.February, 29),
		core.NewDay(2024, time.March, 1),
	} {
		if err := s.PutEntry(ctx, user, core.Entry{Day: d, Price: 1}); err != nil {
			t.Fatalf("PutEntry: %v", err)
		}
	}

	got, err := s.ListEntries(ctx, user, core.NewDay(2024, time.February, 1), core.NewDay(2024, time.February, 29))
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("range returned %d entries, want 2", len(got))
	}
	if got[0].Day.Key() != "2024-02-01" || got[1].Day.Key() != "2024-02-29" {
		t.Errorf("range order: %s, %s", got[0].Day.Key(), got[1].Day.Key())
	}
}

func TestGoalRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	user := core.UserID("u1")
	feb := core.Month{Year: 2024, Month: time.February}

	if _, ok, _ := s.GetGoal(ctx, user, feb); ok {
		t.Fatal("absent goal should miss")
	}

	price := core.Yen(500)
	edited := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	if err := s.PutGoal(ctx, user, core.Goal{Month: feb, PriceGoal: &price, LastEdited: &edited}); err != nil {
		t.Fatalf("PutGoal: %v", err)
	}

	g, ok, err := s.GetGoal(ctx, user, feb)
	if err != nil || !ok {
		t.Fatalf("GetGoal: ok=%v err=%v", ok, err)
	}
	if g.PriceGoal == nil || *g.PriceGoal != 500 || g.CalorieGoal != nil {
		t.Errorf("goal = %+v", g)
	}
	if g.LastEdited == nil || !g.LastEdited.Equal(edited) {
		t.Errorf("LastEdited = %v", g.LastEdited)
	}
}

func TestIconCounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	user := core.UserID("u1")

	entries := []core.Entry{
		{Day: core.NewDay(2024, time.January, 1), Icon: core.IconSweet},
		{Day: core.NewDay(2024, time.February, 2), Icon: core.IconSweet},
		{Day: core.NewDay(2024, time.March, 3), Icon: core.IconSour},
		{Day: core.NewDay(2024, time.April, 4)},
	}
	for _, e := range entries {
		if err := s.PutEntry(ctx, user, e); err != nil {
			t.Fatalf("PutEntry: %v", err)
		}
	}

	counts, err := s.IconCounts(ctx, user)
	if err != nil {
		t.Fatalf("IconCounts: %v", err)
	}
	if counts.Of(core.IconSweet) != 2 || counts.Of(core.IconSour) != 1 || counts.Total() != 3 {
		t.Errorf("counts = %v", counts)
	}
}
