package db

import (
	"context"
	"testing"
)

func TestKV_SetGet(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()

	if err := Set(ctx, db, "execution-notepad-current", "01ABC"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := Get(ctx, db, "execution-notepad-current")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Get ok = false, want true")
	}
	if got != "01ABC" {
		t.Errorf("Get = %q, want %q", got, "01ABC")
	}
}

func TestKV_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()

	for _, v := range []string{"[]", `[{"id":"1"}]`} {
		if err := Set(ctx, db, "k", v); err != nil {
			t.Fatalf("Set(%q) failed: %v", v, err)
		}
	}

	got, _, err := Get(ctx, db, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != `[{"id":"1"}]` {
		t.Errorf("Get = %q, want last written value", got)
	}

	keys, err := Keys(ctx, db)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Keys = %v, want one key", keys)
	}
}

func TestKV_GetMissing(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()

	got, ok, err := Get(context.Background(), db, "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || got != "" {
		t.Errorf("Get = (%q, %v), want empty and false", got, ok)
	}
}

func TestKV_Delete(t *testing.T) {
	ctx := context.Background()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()

	if err := Set(ctx, db, "a", "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Delete(ctx, db, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := Delete(ctx, db, "a"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}

	if _, ok, _ := Get(ctx, db, "a"); ok {
		t.Error("key still present after Delete")
	}
}

func TestKV_ClosedDB(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	db.Close()

	if _, _, err := Get(context.Background(), db, "a"); err == nil {
		t.Error("Get on closed db: expected error")
	}
}
