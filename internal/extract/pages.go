package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupported is returned for formats whose page count cannot be read locally.
var ErrUnsupported = errors.New("page count unsupported for mime type")

// PageCount reports the number of pages in an uploaded file. PDFs are parsed
// with ledongthuc/pdf, DOCX files report the page total Word stored in
// docProps/app.xml, and single images count as one page.
func PageCount(ctx context.Context, data []byte, mimeType string, fileName string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	normalized := NormalizeMimeType(mimeType, fileName, data)
	switch {
	case normalized == mimePDF:
		return pdfPages(data)
	case normalized == mimeDOCX:
		return docxPages(data)
	case strings.HasPrefix(normalized, "image/"):
		return 1, nil
	default:
		return 0, eris.Wrap(ErrUnsupported, normalized)
	}
}

func pdfPages(data []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, eris.Wrap(err, "open pdf")
	}
	return reader.NumPage(), nil
}

type docxAppProps struct {
	Pages int `xml:"Pages"`
}

func docxPages(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, eris.Wrap(err, "open docx")
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "docProps/app.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0, eris.Wrap(err, "open app.xml")
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return 0, eris.Wrap(err, "read app.xml")
		}
		var props docxAppProps
		if err := xml.Unmarshal(raw, &props); err != nil {
			return 0, eris.Wrap(err, "parse app.xml")
		}
		if props.Pages <= 0 {
			return 0, errors.New("docx page count missing")
		}
		return props.Pages, nil
	}
	return 0, errors.New("docx page count missing")
}

// NormalizeMimeType strips parameters and resolves generic zip uploads to
// the Office format they contain.
func NormalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "application/zip" {
		return clean
	}
	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}
	if strings.ToLower(filepath.Ext(fileName)) == ".docx" {
		return mimeDOCX
	}
	return clean
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return mimeDOCX
		}
	}
	return ""
}
