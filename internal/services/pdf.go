package services

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDFText concatenates the plain text of every page in page order.
func readPDFText(path string) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	numPages := r.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", pageNum, err)
		}
		builder.WriteString(pageText)
	}
	return builder.String(), nil
}
