package roster

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeRoster(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestCSVRoster_WithHeader(t *testing.T) {
	path := writeRoster(t, "name,kerb,room\nAda Lovelace,ada,201\nGrace Hopper,grace,305\n")

	r, err := LoadCSVRoster(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 kerbs, got %d", r.Len())
	}

	ctx := context.Background()
	if ok, _ := r.IsEligible(ctx, "ada"); !ok {
		t.Error("expected ada eligible")
	}
	if ok, _ := r.IsEligible(ctx, "ADA"); !ok {
		t.Error("expected eligibility check to be case-insensitive")
	}
	if ok, _ := r.IsEligible(ctx, "mallory"); ok {
		t.Error("expected mallory ineligible")
	}
}

func TestCSVRoster_HeaderlessList(t *testing.T) {
	path := writeRoster(t, "ada\ngrace\nuser1\n")

	r, err := LoadCSVRoster(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 kerbs, got %d", r.Len())
	}
	if ok, _ := r.IsEligible(context.Background(), "user1"); !ok {
		t.Error("expected user1 eligible")
	}
}

func TestCSVRoster_Reload(t *testing.T) {
	path := writeRoster(t, "kerb\nada\n")

	r, err := LoadCSVRoster(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if ok, _ := r.IsEligible(context.Background(), "grace"); ok {
		t.Fatal("grace must not be eligible yet")
	}

	// New term, new roster.
	if err := os.WriteFile(path, []byte("kerb\ngrace\n"), 0o644); err != nil {
		t.Fatalf("rewrite roster: %v", err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if ok, _ := r.IsEligible(context.Background(), "grace"); !ok {
		t.Error("expected grace eligible after reload")
	}
	if ok, _ := r.IsEligible(context.Background(), "ada"); ok {
		t.Error("expected ada dropped after reload")
	}
}

func TestCSVRoster_MissingFile(t *testing.T) {
	if _, err := LoadCSVRoster(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
