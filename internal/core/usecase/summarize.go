package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/core/ports"
)

var (
	shortParentheticalPattern = regexp.MustCompile(`\([^)]{0,30}\)`)
	decorativeSymbolPattern   = regexp.MustCompile(`[•★☆▶▲▼→※]`)
	layoutCharPattern         = regexp.MustCompile(`[\r\n\t]`)

	quoteReplacer = strings.NewReplacer(
		"\n", " ",
		"\r", " ",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
)

type SummarizeUseCase struct {
	summarizer ports.Summarizer
}

func NewSummarizeUseCase(summarizer ports.Summarizer) *SummarizeUseCase {
	return &SummarizeUseCase{summarizer: summarizer}
}

func (uc *SummarizeUseCase) Summarize(ctx context.Context, brief domain.IncidentBrief) (string, error) {
	if strings.TrimSpace(brief.Content) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "summarize", errors.New("content is required"))
	}

	brief.Content = CleanIncidentText(brief.Content)
	raw, err := uc.summarizer.Summarize(ctx, brief)
	if err != nil {
		return "", domain.WrapError(domain.ErrSummarization, "summarize incident", err)
	}
	return CleanSummary(raw), nil
}

// CleanIncidentText flattens an incident body before it is put in a prompt.
func CleanIncidentText(text string) string {
	text = quoteReplacer.Replace(text)
	text = shortParentheticalPattern.ReplaceAllString(text, "")
	text = decorativeSymbolPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// CleanSummary strips markup and layout characters from model output.
func CleanSummary(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = layoutCharPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
