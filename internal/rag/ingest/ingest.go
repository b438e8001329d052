package ingest

import (
	"fmt"

	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Processor")

// ExtractText pulls plain text out of the file at path according to its declared type.
// Decode failures come back as *coreErrors.ExtractionFailedError; the caller owns the file and removes it.
func ExtractText(path string, contentType commonModels.DocType) (string, error) {
	var (
		text string
		err  error
	)
	switch contentType {
	case commonModels.PDF:
		text, err = extractPDF(path)
	case commonModels.TXT, commonModels.MD:
		text, err = extractPlain(path)
	case commonModels.JSON:
		text, err = extractJSON(path)
	default:
		return "", fmt.Errorf("%w: %q", coreErrors.ErrUnsupportedType, contentType)
	}

	if err != nil {
		logger.Error("Error extracting document content", "type", contentType, "error", err)
		return "", &coreErrors.ExtractionFailedError{Cause: err}
	}
	return text, nil
}

// ProcessDocument extracts and chunks in one step, returning the chunks and the full text.
func ProcessDocument(path string, contentType commonModels.DocType) ([]string, string, error) {
	text, err := ExtractText(path, contentType)
	if err != nil {
		return nil, "", err
	}
	chunks := Chunk(text)
	logger.Debug("Processed document", "type", contentType, "chunks", len(chunks))
	return chunks, text, nil
}
