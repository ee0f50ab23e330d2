package pipeline

import (
	"bytes"
	"errors"
	"fmt"

	pdf "github.com/ledongthuc/pdf"

	"wotc/internal/util"
)

var ErrNoPages = errors.New("pdf has no pages")

type PageText struct {
	Number int
	Text   string
}

// ExtractPages returns the text layer of every page, numbered from 1.
// Pages without a readable text layer come back with empty text so that
// numbering stays aligned with the document.
func ExtractPages(content []byte) (pages []PageText, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	n := r.NumPage()
	if n == 0 {
		return nil, ErrNoPages
	}

	out := make([]PageText, 0, n)
	for i := 1; i <= n; i++ {
		page := PageText{Number: i}
		p := r.Page(i)
		if !p.V.IsNull() {
			if text, err := p.GetPlainText(nil); err == nil {
				page.Text = util.NormalizeSpaces(text)
			}
		}
		out = append(out, page)
	}
	return out, nil
}
