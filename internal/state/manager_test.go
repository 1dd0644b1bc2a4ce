package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewManager(t *testing.T) {
	tmpDir := t.TempDir()

	manager, err := NewManager(filepath.Join(tmpDir, "data"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "data", DBFileName)); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewManager_EmptyDir(t *testing.T) {
	if _, err := NewManager(""); err == nil {
		t.Error("Expected error for empty directory, got nil")
	}
}

func TestSettings_GetSetDelete(t *testing.T) {
	m := newTestManager(t)

	if _, ok, err := m.Get("spaces"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	if err := m.Set("spaces", []byte(`[{"name":"Notes"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Set("spaces", []byte(`[]`)); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}

	value, ok, err := m.Get("spaces")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if string(value) != "[]" {
		t.Errorf("Expected overwritten value [], got %s", value)
	}

	if err := m.Delete("spaces"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := m.Get("spaces"); ok {
		t.Error("key still present after Delete")
	}
	if err := m.Delete("spaces"); err != nil {
		t.Errorf("Delete(missing) should succeed: %v", err)
	}
}

func TestSettings_EmptyValue(t *testing.T) {
	m := newTestManager(t)

	if err := m.Set("lastOpenSpace", nil); err != nil {
		t.Fatalf("Set(nil) failed: %v", err)
	}
	value, ok, err := m.Get("lastOpenSpace")
	if err != nil || !ok || len(value) != 0 {
		t.Errorf("Get = %q, ok %v, err %v", value, ok, err)
	}
}

func TestSettings_PersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := m.Set("favorites", []byte(`[{"name":"Todo"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	m.Close()

	reopened, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to reopen manager: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Get("favorites")
	if err != nil || !ok || string(value) != `[{"name":"Todo"}]` {
		t.Errorf("Get after reopen = %q, ok %v, err %v", value, ok, err)
	}
}

func TestSaveAndGetOperation(t *testing.T) {
	m := newTestManager(t)

	record := OperationRecord{
		Root:      "/ws",
		Op:        "rename",
		Path:      "/ws/a.txt",
		Result:    "/ws/c.txt",
		Status:    StatusSuccess,
		Timestamp: time.Now().Add(-time.Minute),
	}
	if err := m.SaveOperation(record); err != nil {
		t.Fatalf("Failed to save operation: %v", err)
	}

	history, err := m.GetHistory("/ws", 10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(history))
	}

	got := history[0]
	if got.Op != record.Op || got.Path != record.Path || got.Result != record.Result {
		t.Errorf("record mismatch: %+v", got)
	}
	if got.Status != StatusSuccess || got.Error != "" {
		t.Errorf("unexpected status/error: %s/%s", got.Status, got.Error)
	}
}

func TestGetHistory_OrderAndFilter(t *testing.T) {
	m := newTestManager(t)
	base := time.Now().Add(-time.Hour)

	records := []OperationRecord{
		{Root: "/ws", Op: "create file", Path: "/ws", Status: StatusSuccess, Timestamp: base},
		{Root: "/ws", Op: "delete", Path: "/ws/x", Status: StatusFailed, Error: "not found", Timestamp: base.Add(time.Minute)},
		{Root: "/other", Op: "duplicate", Path: "/other/a", Status: StatusSuccess, Timestamp: base.Add(2 * time.Minute)},
		{Root: "/ws", Op: "rename", Path: "/ws/a", Status: StatusSuccess, Timestamp: base.Add(3 * time.Minute)},
	}
	for _, r := range records {
		if err := m.SaveOperation(r); err != nil {
			t.Fatalf("SaveOperation failed: %v", err)
		}
	}

	history, err := m.GetHistory("/ws", 2)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if history[0].Op != "rename" || history[1].Op != "delete" {
		t.Errorf("Expected newest first, got %s then %s", history[0].Op, history[1].Op)
	}
	if history[1].Error != "not found" {
		t.Errorf("Expected error text to round trip, got %q", history[1].Error)
	}

	all, err := m.GetAllHistory(10)
	if err != nil {
		t.Fatalf("GetAllHistory failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 records, got %d", len(all))
	}
}

func TestSaveOperation_InvalidStatus(t *testing.T) {
	m := newTestManager(t)

	err := m.SaveOperation(OperationRecord{Root: "/ws", Op: "delete", Path: "/ws/a", Status: "partial"})
	if err == nil {
		t.Error("Expected error for invalid status, got nil")
	}
}

func TestGetHistory_InvalidLimit(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.GetHistory("/ws", 0); err == nil {
		t.Error("Expected error for zero limit")
	}
	if _, err := m.GetAllHistory(-1); err == nil {
		t.Error("Expected error for negative limit")
	}
}
