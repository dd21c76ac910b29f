package appointments

import (
	"errors"
	"testing"
	"time"
)

func TestKindLabel(t *testing.T) {
	t.Parallel()
	cases := []struct{ kind, want string }{
		{"primeira_consulta", "1ª Consulta"},
		{"retorno", "Retorno"},
		{"urgente", "Urgente"},
		{"audiencia", "audiencia"},
	}
	for _, tc := range cases {
		if got := kindLabel(tc.kind); got != tc.want {
			t.Errorf("kindLabel(%q) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestFreeSlotsSkipsWeekends(t *testing.T) {
	t.Parallel()
	// 2026-09-04 is a Friday.
	friday := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	slots, err := freeSlots(friday, 10, func(date string) ([]string, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("freeSlots: %v", err)
	}
	if len(slots) != 10 {
		t.Fatalf("len(slots) = %d, want 10", len(slots))
	}
	for _, slot := range slots[:8] {
		if slot.Date != "2026-09-04" {
			t.Errorf("slot date = %q, want 2026-09-04", slot.Date)
		}
	}
	// Friday fills eight slots; the rest land on Monday, not the weekend.
	for _, slot := range slots[8:] {
		if slot.Date != "2026-09-07" {
			t.Errorf("overflow slot date = %q, want 2026-09-07", slot.Date)
		}
	}
}

func TestFreeSlotsHonorsBusyTimes(t *testing.T) {
	t.Parallel()
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slots, err := freeSlots(monday, 3, func(date string) ([]string, error) {
		if date == "2026-09-07" {
			return []string{"08:00", "09:00", "11:00"}, nil
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("freeSlots: %v", err)
	}
	want := []Slot{
		{Date: "2026-09-07", Time: "10:00"},
		{Date: "2026-09-07", Time: "13:00"},
		{Date: "2026-09-07", Time: "14:00"},
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slots[%d] = %v, want %v", i, slots[i], want[i])
		}
	}
}

func TestFreeSlotsPropagatesLookupError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	if _, err := freeSlots(monday, 3, func(string) ([]string, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
