package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/core/ports"
)

var errEmptyQuestion = errors.New("question is required")

var (
	questionEchoPattern = regexp.MustCompile(`(?i)질문\s*:.*`)
	htmlTagPattern      = regexp.MustCompile(`<[^>]+>`)
	controlCharPattern  = regexp.MustCompile(`[\\\n\r\t]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

type KeywordUseCase struct {
	generator ports.KeywordGenerator
}

func NewKeywordUseCase(generator ports.KeywordGenerator) *KeywordUseCase {
	return &KeywordUseCase{generator: generator}
}

func (uc *KeywordUseCase) Extract(ctx context.Context, question string) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract keywords", errEmptyQuestion)
	}

	raw, err := uc.generator.GenerateKeywords(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrKeywordGeneration, "generate keywords", err)
	}
	return CleanKeywords(raw), nil
}

// CleanKeywords turns the model's raw completion into a keyword list. Only
// the first line is used; an echoed "질문:" prompt tail, markup and control
// characters are removed before splitting on commas.
func CleanKeywords(raw string) []string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	cleaned := questionEchoPattern.ReplaceAllString(firstLine, "")
	cleaned = htmlTagPattern.ReplaceAllString(cleaned, "")
	cleaned = controlCharPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))

	out := make([]string, 0, 8)
	for _, part := range strings.Split(cleaned, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
