package fetcher

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText reads body page-by-page via github.com/ledongthuc/pdf
// and concatenates each page's plain text.
func ExtractPDFText(body []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("fetcher: open pdf: %w", err)
	}

	var out bytes.Buffer
	fonts := make(map[string]*pdf.Font)
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			// A single malformed page shouldn't sink the whole document.
			continue
		}

		if _, err := io.WriteString(&out, pageText); err != nil {
			return "", fmt.Errorf("fetcher: buffer pdf text: %w", err)
		}
		out.WriteByte('\n')
	}

	return out.String(), nil
}
