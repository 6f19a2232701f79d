package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/storefront/internal/model"
)

func TestNew_DuplicateIDsKeepFirst(t *testing.T) {
	c := New([]model.Product{
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Other"},
		{ID: "a", Title: "Second"},
	})

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	got, ok := c.Get("a")
	if !ok || got.Title != "First" {
		t.Errorf("Get(a) = %+v, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) must report false")
	}
}

func TestAll_ReturnsCopyInOrder(t *testing.T) {
	c := New([]model.Product{{ID: "b"}, {ID: "a"}})

	all := c.All()
	all[0].ID = "mutated"

	if diff := cmp.Diff([]string{"b", "a"}, ids(c.All())); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDefault_LoadsBuiltInProducts(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("built-in catalog is empty")
	}
	for _, p := range c.All() {
		if p.ID == "" || p.Title == "" || p.Price <= 0 {
			t.Errorf("incomplete built-in product: %+v", p)
		}
	}
}

func TestDecodeYAML(t *testing.T) {
	src := `
products:
  - id: sku1
    title: Aviator
    price: 500
    img_src: a.png
`
	got, err := DecodeYAML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Product{{ID: "sku1", Title: "Aviator", Price: 500, ImgSrc: "a.png"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAML_UnknownFieldIsRejected(t *testing.T) {
	_, err := DecodeYAML(strings.NewReader("products:\n  - id: x\n    colour: red\n"))
	if err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestDecodeYAML_EmptyDocument(t *testing.T) {
	got, err := DecodeYAML(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty slice", got)
	}
}

func TestEncodeYAML_ThenLoadFile(t *testing.T) {
	products := []model.Product{
		{ID: "sku1", Title: "Aviator", Price: 2499, ImgSrc: "a.png", Description: "<p>Gold</p>"},
	}

	var buf bytes.Buffer
	if err := EncodeYAML(&buf, products); err != nil {
		t.Fatalf("EncodeYAML error: %v", err)
	}
	if !strings.Contains(buf.String(), "img_src: a.png") {
		t.Errorf("encoded yaml missing img_src:\n%s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if diff := cmp.Diff(products, c.All()); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func ids(products []model.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}
