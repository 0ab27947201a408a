package store

import "testing"

func TestHouseholdCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)

	h, err := hs.Create("Bywater")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.Name != "Bywater" {
		t.Errorf("name = %q, want Bywater", h.Name)
	}

	got, err := hs.GetByID(h.ID)
	if err != nil {
		t.Fatalf("get household: %v", err)
	}
	if got == nil || got.ID != h.ID {
		t.Fatalf("get returned %+v", got)
	}
}

func TestHouseholdGetMissing(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)

	got, err := hs.GetByID(999999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing household, got %+v", got)
	}
}

func TestHouseholdRename(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)

	h, err := hs.Create("Old Name")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	renamed, err := hs.Rename(h.ID, "New Name")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "New Name" {
		t.Errorf("name after rename = %q", renamed.Name)
	}
}

func TestHouseholdList(t *testing.T) {
	db := setupTestDB(t)
	hs := NewHouseholdStore(db)

	for _, name := range []string{"Alpha", "Beta"} {
		if _, err := hs.Create(name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	households, err := hs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(households) != 2 {
		t.Errorf("got %d households, want 2", len(households))
	}
}
