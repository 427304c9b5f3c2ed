package inspect

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

func buildPDF(t *testing.T, orientations ...string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	for _, o := range orientations {
		pdf.AddPageFormat(o, pdf.GetPageSizeStr("A4"))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("building PDF: %v", err)
	}
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	info, err := Load(buildPDF(t, "P", "L", "P"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(info.Pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(info.Pages))
	}
	for i, want := range []bool{false, true, false} {
		if got := info.Pages[i].Landscape(); got != want {
			t.Errorf("page %d landscape = %v, want %v", i+1, got, want)
		}
	}
	p := info.Pages[0]
	if math.Abs(p.WidthMM()-210) > 0.5 || math.Abs(p.HeightMM()-297) > 0.5 {
		t.Errorf("page 1 = %.1fx%.1f mm, want 210x297", p.WidthMM(), p.HeightMM())
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buildPDF(t, "P", "P"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(info.Pages) != 2 {
		t.Errorf("pages = %d, want 2", len(info.Pages))
	}
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(buildPDF(t, "P", "P", "L", "P"))
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 4 {
		t.Errorf("PageCount = %d, want 4", n)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load([]byte("not a pdf")); err == nil {
		t.Error("Load accepted garbage")
	}
}
