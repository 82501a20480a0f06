package statestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kimata/mohist/models"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "order.json"))

	state := store.Load()
	if state == nil {
		t.Fatalf("Load returned nil")
	}
	if len(state.Periods) != 0 || len(state.LineItems) != 0 {
		t.Fatalf("expected empty defaults, got %+v", state)
	}
	if !state.LastSyncAt.IsZero() {
		t.Fatalf("LastSyncAt must be zero on defaults, got %v", state.LastSyncAt)
	}
}

func TestLoadCorruptFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	state := NewStore(path).Load()
	if len(state.OrderIndex) != 0 || len(state.Records) != 0 {
		t.Fatalf("corrupt snapshot must degrade to defaults, got %+v", state)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.json")
	store := NewStore(path)

	state := models.NewCrawlState()
	p := models.Period{Year: 2023, Month: time.April}
	state.SetPeriods([]models.Period{p})
	state.SetOrderCount(p, 2)
	state.SetChecked(p)
	state.RecordItems("40001", []models.LineItem{
		{
			OrderNo:   "40001",
			OrderDate: time.Date(2023, time.April, 5, 10, 0, 0, 0, time.UTC),
			Name:      "bolt",
			Quantity:  10,
			UnitPrice: 110,
			Category:  []string{"fasteners", "bolts"},
			ProductID: "P1",
		},
	})

	if err := store.Save(state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := NewStore(path).Load()
	if !loaded.Checked(p) {
		t.Fatalf("checked flag lost in round trip")
	}
	count, known := loaded.OrderCount(p)
	if !known || count != 2 {
		t.Fatalf("order count lost: %d, %v", count, known)
	}
	if !loaded.OrderDone("40001") {
		t.Fatalf("order index lost")
	}
	if len(loaded.LineItems) != 1 || loaded.LineItems[0].Name != "bolt" {
		t.Fatalf("line items lost: %+v", loaded.LineItems)
	}
	if len(loaded.LineItems[0].Category) != 2 {
		t.Fatalf("category lost: %+v", loaded.LineItems[0].Category)
	}
}

func TestSaveStampsLastSyncAt(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "order.json"))
	fixed := time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	state := models.NewCrawlState()
	if err := store.Save(state); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !state.LastSyncAt.Equal(fixed) {
		t.Fatalf("LastSyncAt = %v, want %v", state.LastSyncAt, fixed)
	}

	loaded := store.Load()
	if !loaded.LastSyncAt.Equal(fixed) {
		t.Fatalf("persisted LastSyncAt = %v, want %v", loaded.LastSyncAt, fixed)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "order.json"))

	if err := store.Save(models.NewCrawlState()); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the snapshot, got %d entries", len(entries))
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "order.json")
	store := NewStore(path)

	if err := store.Save(models.NewCrawlState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
}
