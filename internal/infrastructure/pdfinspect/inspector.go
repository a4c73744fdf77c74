package pdfinspect

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

var pdfMagic = []byte("%PDF-")

// Inspector reads uploaded blobs locally before they are sent to the model.
type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

func (i *Inspector) Inspect(file domain.UploadedFile) (info domain.DocumentInfo, err error) {
	if len(file.Data) == 0 {
		return domain.DocumentInfo{}, fmt.Errorf("empty document: %s", file.Filename)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(file.Data, "\x00\t\r\n "), pdfMagic) {
		return domain.DocumentInfo{}, nil
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			info = domain.DocumentInfo{}
			err = fmt.Errorf("parse pdf %s: %v", file.Filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("parse pdf %s: %w", file.Filename, err)
	}
	return domain.DocumentInfo{IsPDF: true, Pages: reader.NumPage()}, nil
}
