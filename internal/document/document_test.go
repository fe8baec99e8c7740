package document

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDetectContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{name: "pdf magic", file: "resume.pdf", data: []byte("%PDF-1.7\n%âãÏÓ\n"), want: PDFContentType},
		{name: "pdf magic wrong extension", file: "resume.bin", data: []byte("%PDF-1.4\n"), want: PDFContentType},
		{name: "text renamed to pdf", file: "resume.pdf", data: []byte("just some text"), want: "text/plain"},
		{name: "empty pdf", file: "resume.PDF", data: nil, want: PDFContentType},
		{name: "empty other", file: "resume.docx", data: nil, want: "application/octet-stream"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DetectContentType(tt.file, tt.data); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	core, observed := observer.New(zapcore.DebugLevel)
	f, err := Load(path, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Name != "resume.pdf" {
		t.Fatalf("expected base name, got %q", f.Name)
	}
	if !f.IsPDF() {
		t.Fatalf("expected pdf, got %q", f.ContentType)
	}
	if f.Pages != 0 {
		t.Fatalf("expected unknown page count for a broken pdf, got %d", f.Pages)
	}
	if observed.FilterMessage("could not count pdf pages").Len() != 1 {
		t.Fatalf("expected the page count failure to be logged")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.pdf"), nil); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestIsPDFNil(t *testing.T) {
	var f *File
	if f.IsPDF() {
		t.Fatalf("nil file is not a pdf")
	}
	if f.Size() != 0 {
		t.Fatalf("expected zero size")
	}
}
