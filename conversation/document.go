package conversation

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatTXT  DocumentFormat = "txt"
	FormatMD   DocumentFormat = "md"
	FormatHTML DocumentFormat = "html"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

var formatByExtension = map[string]DocumentFormat{
	".pdf":  FormatPDF,
	".txt":  FormatTXT,
	".md":   FormatMD,
	".html": FormatHTML,
}

// FormatForPath maps a file extension to a document format.
func FormatForPath(path string) (DocumentFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := formatByExtension[ext]
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
	return f, nil
}

// ReadDocument loads a file as a Document attachment named after its base name.
func ReadDocument(path string) (*Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("file not found: %s", path)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return &Document{
		Name:   filepath.Base(path),
		Format: format,
		Bytes:  data,
	}, nil
}

// IsText reports whether the document bytes are plain text.
func (d *Document) IsText() bool {
	return d.Format != FormatPDF
}
