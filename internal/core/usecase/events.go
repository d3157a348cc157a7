package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
	"github.com/kirillkom/retailtech-search/internal/core/ports"
)

const (
	eventPreviewSize  = 3
	eventExcerptRunes = 200
)

func NewSearchEvent(question string, keywords []string, result *domain.SearchResult) domain.Event {
	event := domain.Event{
		ID:        uuid.NewString(),
		Kind:      domain.EventSearch,
		Timestamp: time.Now().UTC(),
		Question:  question,
		Keywords:  keywords,
	}
	if result == nil {
		return event
	}

	event.Tier = result.Tier
	event.Fallback = result.FellBack
	event.ResultCount = len(result.Results)
	for _, r := range trimResults(result.Results, eventPreviewSize) {
		event.TopPreview = append(event.TopPreview, domain.FormatForDisplay(r))
	}
	return event
}

func NewSummaryEvent(brief domain.IncidentBrief, summary string) domain.Event {
	return domain.Event{
		ID:           uuid.NewString(),
		Kind:         domain.EventSummarize,
		Timestamp:    time.Now().UTC(),
		StoreName:    brief.StoreName,
		Date:         brief.Date,
		FaultMajor:   brief.FaultMajor,
		OCSCause:     brief.OCSCauseMajor,
		Urgency:      brief.Urgency,
		InputExcerpt: excerptRunes(brief.Content, eventExcerptRunes),
		Summary:      summary,
	}
}

// RecordEvent hands the event to the sink. Failures are logged only: the
// request log never fails a user request.
func RecordEvent(ctx context.Context, sink ports.EventSink, event domain.Event, logger *slog.Logger) {
	if sink == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.WarnContext(ctx, "event_record_failed",
			"event_id", event.ID,
			"kind", string(event.Kind),
			"error", err,
		)
	}
}

func excerptRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
