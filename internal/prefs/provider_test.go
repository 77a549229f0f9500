package prefs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/calendar"
	"github.com/starford/sowilo/internal/scheduling"
)

const customYAML = `
deep_work_windows:
  - start: "08:00"
    end: "10:30"
quiet_hours:
  - start: "21:00"
    end: "06:00"
work_day_start_hour: 8
work_day_end_hour: 17
min_slot_duration: 30m
max_slot_duration: 90m
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "preferences.yaml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := p.Current()
	want := scheduling.DefaultPreferences()
	if got.WorkDayStartHour != want.WorkDayStartHour || got.MaxSlotDuration != want.MaxSlotDuration {
		t.Errorf("got %+v, want defaults", got)
	}
	if p.Checksum() == "" {
		t.Error("defaults should still carry a checksum")
	}
}

func TestOpen_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	writeFile(t, path, customYAML)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := p.Current()
	if got.WorkDayStartHour != 8 || got.WorkDayEndHour != 17 {
		t.Errorf("work day = %d-%d", got.WorkDayStartHour, got.WorkDayEndHour)
	}
	if got.MinSlotDuration != 30*time.Minute || got.MaxSlotDuration != 90*time.Minute {
		t.Errorf("slot bounds = %v/%v", got.MinSlotDuration, got.MaxSlotDuration)
	}
	if len(got.DeepWorkWindows) != 1 || got.DeepWorkWindows[0].End != calendar.MustClock(10, 30) {
		t.Errorf("deep work = %v", got.DeepWorkWindows)
	}
	if len(got.QuietHours) != 1 || got.QuietHours[0].Start != calendar.MustClock(21, 0) {
		t.Errorf("quiet hours = %v", got.QuietHours)
	}
}

func TestOpen_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	writeFile(t, path, "work_day_end_hour: 20\n")

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := p.Current()
	if got.WorkDayEndHour != 20 || got.WorkDayStartHour != 9 || got.MinSlotDuration != 15*time.Minute {
		t.Errorf("got %+v", got)
	}
}

func TestOpen_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	writeFile(t, path, "work_day_start_hour: 18\nwork_day_end_hour: 9\n")
	if _, err := Open(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.yaml")
	p, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	before := p.Checksum()

	next := p.Current()
	next.WorkDayEndHour = 19
	sum, err := p.Save(next, before)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sum == before || sum != p.Checksum() {
		t.Errorf("checksum not rotated: before=%s after=%s current=%s", before, sum, p.Checksum())
	}
	if p.Current().WorkDayEndHour != 19 {
		t.Error("snapshot not swapped")
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Current().WorkDayEndHour != 19 || reopened.Checksum() != sum {
		t.Errorf("file content differs from saved snapshot")
	}

	if _, err := p.Save(next, before); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale If-Match err = %v, want ErrConflict", err)
	}

	bad := next
	bad.MinSlotDuration = 0
	if _, err := p.Save(bad, ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("invalid save err = %v, want ErrInvalidInput", err)
	}
	if p.Current().MinSlotDuration == 0 {
		t.Error("invalid preferences must not become current")
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	writeFile(t, path, "work_day_end_hour: 18\n")
	p, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Watch(ctx, slog.New(slog.NewJSONHandler(io.Discard, nil)), func(next scheduling.Preferences) {
			mu.Lock()
			seen = append(seen, next.WorkDayEndHour)
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// An invalid write is ignored and the old snapshot survives.
	writeFile(t, path, "work_day_end_hour: 3\n")
	time.Sleep(500 * time.Millisecond)
	if p.Current().WorkDayEndHour != 18 {
		t.Fatalf("invalid file replaced snapshot: %+v", p.Current())
	}

	writeFile(t, path, "work_day_end_hour: 21\n")
	deadline := time.Now().Add(3 * time.Second)
	for p.Current().WorkDayEndHour != 21 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if p.Current().WorkDayEndHour != 21 {
		t.Fatalf("watcher did not reload, end hour = %d", p.Current().WorkDayEndHour)
	}

	cancel()
	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != 21 {
		t.Errorf("callbacks = %v, want [21]", seen)
	}
}
