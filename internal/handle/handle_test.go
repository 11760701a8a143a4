package handle

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/antflydb/tinyfinder/internal/schema"
)

func testFields() []schema.FieldConfig {
	return []schema.FieldConfig{
		{Name: "title", Type: schema.FieldText, Stored: true, Indexed: true},
	}
}

func TestCreateThenGet(t *testing.T) {
	c, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h, err := c.Create("books", testFields())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Index.Close()

	got, ok := c.Get("books")
	if !ok {
		t.Fatal("expected Get to find the created handle")
	}
	if got != h {
		t.Error("Get returned a different handle than Create")
	}
	if got.Schema.Fields[0].Name != "title" {
		t.Errorf("Schema.Fields[0].Name = %q, want title", got.Schema.Fields[0].Name)
	}
}

func TestCreateDuplicateNameErrors(t *testing.T) {
	c, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h, err := c.Create("books", testFields())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Index.Close()

	if _, err := c.Create("books", testFields()); err == nil {
		t.Fatal("expected error creating a duplicate index name")
	}
}

func TestGetMissingReturnsFalse(t *testing.T) {
	c, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.Get("nope"); ok {
		t.Error("expected Get to return false for a missing index")
	}
}

func TestNamesListsAllOpenIndices(t *testing.T) {
	c, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h1, err := c.Create("books", testFields())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h1.Index.Close()
	h2, err := c.Create("films", testFields())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h2.Index.Close()

	names := c.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", names)
	}
}

func TestDeleteRemovesHandleAndDirectory(t *testing.T) {
	c, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Create("books", testFields()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := c.Delete("books"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get("books"); ok {
		t.Error("expected handle to be gone after Delete")
	}
	if _, err := os.Stat(c.Path("books")); !os.IsNotExist(err) {
		t.Errorf("expected index directory to be removed, stat err = %v", err)
	}
}

func TestDeleteMissingIndexErrors(t *testing.T) {
	c, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Delete("nope"); err == nil {
		t.Fatal("expected error deleting a missing index")
	}
}

func TestRehydrateAllReopensPersistedIndices(t *testing.T) {
	base := t.TempDir()

	c1, err := New(base, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h, err := c1.Create("books", testFields())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.Index.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := New(base, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c2.RehydrateAll(); err != nil {
		t.Fatalf("RehydrateAll: %v", err)
	}

	got, ok := c2.Get("books")
	if !ok {
		t.Fatal("expected rehydrated handle to be present")
	}
	defer got.Index.Close()
	if len(got.Schema.Fields) != 1 || got.Schema.Fields[0].Name != "title" {
		t.Errorf("rehydrated schema = %+v, want one title field", got.Schema.Fields)
	}
}

func TestRehydrateAllSkipsDirectoryWithoutSchemaFile(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "stray"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	c, err := New(base, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.RehydrateAll(); err != nil {
		t.Fatalf("RehydrateAll: %v", err)
	}
	if _, ok := c.Get("stray"); ok {
		t.Error("expected directory without a schema file to be skipped")
	}
}

func TestPathJoinsBaseDirAndName(t *testing.T) {
	base := t.TempDir()
	c, err := New(base, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := c.Path("books"), filepath.Join(base, "books"); got != want {
		t.Errorf("Path(books) = %q, want %q", got, want)
	}
}
