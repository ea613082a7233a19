package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// Extractor converts PDF artifacts into plain text. Extraction is
// best-effort: any internal failure is logged and yields an empty string,
// never an error.
type Extractor struct {
	logger zerolog.Logger
}

// New constructs a text extractor.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "text_extractor").Logger(),
	}
}

// Extract returns the concatenated text of every page in document order.
// Pages that yield no text contribute nothing. On any failure the result is
// the empty string.
func (e *Extractor) Extract(artifact []byte) (text string) {
	// The pdf library panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("pdf extraction panicked")
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(artifact), int64(len(artifact)))
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to open pdf")
		return ""
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn().Int("page", i).Err(err).Msg("failed to extract page text")
			continue
		}

		builder.WriteString(content)
	}

	return builder.String()
}
