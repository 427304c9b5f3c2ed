package pdfexport

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/porticus-lab/go-pdfexport/inspect"
)

const dataURLPrefix = "data:application/pdf;base64,"

// Result holds a generated PDF and provides helpers for common output
// formats such as raw bytes, base64 encoding, and streaming readers.
//
// It is safe to call its methods multiple times; the underlying data is
// never modified.
type Result struct {
	data     []byte
	pages    int
	fileName string
}

// NewResult wraps PDF data produced elsewhere.
func NewResult(data []byte, fileName string) *Result {
	return &Result{data: data, fileName: fileName}
}

// Bytes returns the raw PDF content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Base64 returns the PDF encoded as a standard base64 string (RFC 4648),
// without any data URL prefix.
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// DataURL returns the PDF as a "data:application/pdf;base64," URL.
func (r *Result) DataURL() string {
	return dataURLPrefix + r.Base64()
}

// Reader returns an [*bytes.Reader] over the PDF content.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full PDF content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the PDF to path. The data goes to a temporary file in
// the same directory first, which is then renamed over path, so readers
// never observe a partial file.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pdfexport-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(r.data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Len returns the size of the PDF in bytes.
func (r *Result) Len() int {
	return len(r.data)
}

// Pages returns the number of pages in the PDF. For results produced by an
// export this is the number of slices; decoded results are inspected.
func (r *Result) Pages() int {
	if r.pages > 0 || len(r.data) == 0 {
		return r.pages
	}
	n, err := inspect.PageCount(r.data)
	if err != nil {
		return 0
	}
	return n
}

// FileName returns the file name requested for the export.
func (r *Result) FileName() string {
	if r.fileName == "" {
		return DefaultFileName
	}
	return r.fileName
}

// ContentType returns the MIME type sniffed from the content, normally
// "application/pdf".
func (r *Result) ContentType() string {
	return mimetype.Detect(r.data).String()
}

// DecodeBase64 turns the output of [Result.Base64] or [Result.DataURL] back
// into a Result. Failures are reported as [KindDecode] errors.
func DecodeBase64(s string) (*Result, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 || !strings.HasSuffix(s[:i], ";base64") {
			return nil, newError(KindDecode, "decoding data URL", errMalformedDataURL)
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, newError(KindDecode, "decoding base64", err)
	}
	return &Result{data: data}, nil
}
