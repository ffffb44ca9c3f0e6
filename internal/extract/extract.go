package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// UnreadablePageMarker replaces the text of pages that yield nothing,
	// typically scanned pages with no text layer.
	UnreadablePageMarker = "[Texto não extraído - PDF escaneado]"

	// NoTextSentinel is returned when no document yields any text at all.
	NoTextSentinel = "Nenhum texto extraído."
)

// SourceDocument holds the per-page extraction outcome for one uploaded PDF.
// An empty page text signals extraction failure for that page; Err signals a
// document-level fault (corrupt file, parser panic).
type SourceDocument struct {
	Name  string
	Pages []string
	Err   error
}

// ReadDocument extracts per-page text from raw PDF bytes. It never fails the
// caller: document-level faults are captured in SourceDocument.Err so the
// aggregator can annotate them inline and keep going.
func ReadDocument(name string, data []byte) SourceDocument {
	doc := SourceDocument{Name: name}
	pages, err := extractPages(data)
	if err != nil {
		doc.Err = err
		return doc
	}
	doc.Pages = pages
	return doc
}

func extractPages(data []byte) (pages []string, err error) {
	// The pdf library panics on some malformed inputs; a corrupt upload must
	// degrade to an inline annotation, not kill the request.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// Aggregate concatenates per-page text from all documents into one annotated
// blob: each readable page becomes a tagged block, unreadable pages keep the
// tag but carry UnreadablePageMarker, and document-level faults become inline
// error blocks. The result is never empty; NoTextSentinel stands in when
// nothing was extracted.
func Aggregate(docs []SourceDocument) string {
	var b strings.Builder
	for _, doc := range docs {
		if doc.Err != nil {
			fmt.Fprintf(&b, "[Erro ao ler %s: %v]\n", doc.Name, doc.Err)
			continue
		}
		for i, text := range doc.Pages {
			fmt.Fprintf(&b, "[%s - Página %d]\n", doc.Name, i+1)
			if strings.TrimSpace(text) != "" {
				b.WriteString(strings.TrimSpace(text))
			} else {
				b.WriteString(UnreadablePageMarker)
			}
			b.WriteString("\n\n")
		}
	}
	if b.Len() == 0 {
		return NoTextSentinel
	}
	return b.String()
}
