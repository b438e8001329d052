package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
	"github.com/tidwall/gjson"
)

func extractPDF(path string) (string, error) {
	logger.Debug("extractPDF", "attempting extraction", path)
	f, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var text strings.Builder
	var pageErr error
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// keep going, one bad page should not lose the rest of the document
			logger.Error("Error parsing page content", "page", i, "error", err)
			pageErr = err
			continue
		}
		text.WriteString(content)
	}

	if text.Len() == 0 && pageErr != nil {
		return "", fmt.Errorf("no readable pages: %w", pageErr)
	}
	return text.String(), nil
}

// txt and md are both plain text as far as cat is concerned
func extractPlain(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	if !utf8.ValidString(text) {
		return "", errors.New("text is not valid utf-8")
	}
	return text, nil
}

// extractJSON flattens objects into "key: value" lines and arrays into one line per element
func extractJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read json: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", errors.New("invalid json")
	}

	parsed := gjson.ParseBytes(data)
	var text strings.Builder
	switch {
	case parsed.IsObject():
		parsed.ForEach(func(key, value gjson.Result) bool {
			text.WriteString(key.String())
			text.WriteString(": ")
			text.WriteString(value.String())
			text.WriteString("\n")
			return true
		})
	case parsed.IsArray():
		parsed.ForEach(func(_, value gjson.Result) bool {
			text.WriteString(value.String())
			text.WriteString("\n")
			return true
		})
	default:
		text.WriteString(parsed.String())
	}
	return text.String(), nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		// malformed content streams panic inside the pdf reader
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("pdf page panic: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(config.PdfPageTimeout):
		logger.Error("pageExtract", "timeout")
		return "", errors.New("timeout")
	}
}
