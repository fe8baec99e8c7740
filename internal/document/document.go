package document

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

const PDFContentType = "application/pdf"

// File is a resume picked by the user.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	// Pages is informational only; 0 when the document could not be parsed.
	Pages int
}

func (f *File) IsPDF() bool {
	return f != nil && f.ContentType == PDFContentType
}

func (f *File) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

// Load reads path and detects its content type from the bytes, falling back
// to the extension for empty files.
func Load(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume: %w", err)
	}

	return New(filepath.Base(path), data, logger), nil
}

// New wraps data already held in memory.
func New(name string, data []byte, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &File{
		Name:        name,
		ContentType: DetectContentType(name, data),
		Data:        data,
	}

	if f.IsPDF() {
		pages, err := CountPages(data)
		if err != nil {
			logger.Debug("could not count pdf pages", zap.String("file", name), zap.Error(err))
		}
		f.Pages = pages
	}

	return f
}

func DetectContentType(name string, data []byte) string {
	if len(data) == 0 {
		if strings.EqualFold(filepath.Ext(name), ".pdf") {
			return PDFContentType
		}
		return "application/octet-stream"
	}

	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// CountPages parses the document just far enough to read its page tree.
func CountPages(data []byte) (n int, err error) {
	if len(data) == 0 {
		return 0, errors.New("empty document")
	}

	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing pdf: %w", err)
	}

	return r.NumPage(), nil
}
