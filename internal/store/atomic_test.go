package store

import (
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "data.json")

	in := sample{Name: "alpha", Count: 3}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out sample
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestReadJSONOrDefaultMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.json")

	out := sample{Name: "default"}
	ok, err := ReadJSONOrDefault(path, &out)
	if ok {
		t.Fatalf("expected ok=false for missing file")
	}
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if out.Name != "default" {
		t.Fatalf("expected v left untouched, got %+v", out)
	}
}

func TestReadJSONOrDefaultCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	out := sample{Name: "default"}
	ok, err := ReadJSONOrDefault(path, &out)
	if ok || err == nil {
		t.Fatalf("expected corrupt file to report !ok with an error")
	}
	if out.Name != "default" {
		t.Fatalf("expected v left untouched on corrupt file, got %+v", out)
	}
}
