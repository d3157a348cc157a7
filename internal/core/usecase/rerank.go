package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

const traceTextRunes = 250

// Rerank turns raw hits into ranked results: documents are normalized with
// placeholders, text keywords are matched against the file name and the
// keyword list, results are sorted by score (stable) and cut to topK.
func (uc *SearchUseCase) Rerank(
	ctx context.Context,
	hits []domain.VectorHit,
	textKeywords []string,
	topK int,
) []domain.RankedResult {
	out := make([]domain.RankedResult, 0, len(hits))
	for i, hit := range hits {
		doc := documentFromHit(hit)
		matched := matchKeywords(doc, textKeywords)

		score := hit.Score
		if uc.opts.KeywordBonus {
			score += keywordBonus(len(matched))
		}

		result := domain.RankedResult{
			Document:        doc,
			Score:           domain.RoundTo(score, 5),
			MatchedKeywords: matched,
		}
		uc.trace(ctx, i+1, result)
		out = append(out, result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return trimResults(out, topK)
}

func trimResults(results []domain.RankedResult, limit int) []domain.RankedResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

// matchKeywords returns the keywords found in the file name (substring) or in
// the document keyword list (exact member).
func matchKeywords(doc domain.Document, keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	members := make(map[string]struct{}, len(doc.Keywords))
	for _, kw := range doc.Keywords {
		members[kw] = struct{}{}
	}

	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if _, ok := members[kw]; ok || strings.Contains(doc.FileName, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// keywordBonus decays by 0.01 per matched keyword with a floor of 0.01.
func keywordBonus(matched int) float64 {
	var bonus float64
	for j := 0; j < matched; j++ {
		bonus += math.Max(0.05-float64(j)*0.01, 0.01)
	}
	return bonus
}

func documentFromHit(hit domain.VectorHit) domain.Document {
	p := hit.Payload
	return domain.Document{
		PointID:        hit.ID,
		RecordID:       p.StringOr("record_id", domain.MissingRecordID),
		StoreName:      p.StringOr(domain.FieldStoreName, domain.MissingStoreName),
		StoreCode:      p.StringOr(domain.FieldStoreCode, domain.MissingStoreCode),
		Date:           displayDate(p),
		Title:          p.StringOr("title", domain.MissingTitle),
		Text:           p.StringOr("text", domain.MissingText),
		FileName:       p.StringOr(domain.FieldFileName, ""),
		FaultMajor:     p.StringOr("fault_major", domain.MissingTaxonomy),
		FaultMid:       p.StringOr("fault_mid", domain.MissingTaxonomy),
		FaultMinor:     p.StringOr("fault_minor", domain.MissingTaxonomy),
		Urgency:        p.StringOr("urgency", domain.MissingTaxonomy),
		DepartmentMain: p.StringOr("department_main", domain.MissingTaxonomy),
		Progress:       p.StringOr("progress", domain.MissingTaxonomy),
		ElapsedTime:    p.StringOr("elapsed_time", domain.MissingElapsed),
		OCSCauseMajor:  p.StringOr("ocs_cause_major", domain.MissingTaxonomy),
		OCSCauseMid:    p.StringOr("ocs_cause_mid", domain.MissingTaxonomy),
		OCSCauseMinor:  p.StringOr("ocs_cause_minor", domain.MissingTaxonomy),
		Keywords:       p.Strings(domain.FieldKeywords),
		Similarity:     hit.Score,
	}
}

// displayDate renders year/month/day as YYYY-MM-DD, or the placeholder when
// any part is missing or empty.
func displayDate(p domain.Payload) string {
	year, okYear := p.String(domain.FieldYear)
	month, okMonth := p.String(domain.FieldMonth)
	day, okDay := p.String(domain.FieldDay)
	if !okYear || !okMonth || !okDay || year == "" || month == "" || day == "" {
		return domain.MissingDate
	}
	return year + "-" + zeroPad(month, 2) + "-" + zeroPad(day, 2)
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func (uc *SearchUseCase) trace(ctx context.Context, rank int, r domain.RankedResult) {
	if !uc.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	uc.logger.LogAttrs(ctx, slog.LevelDebug, "search_hit",
		slog.Int("rank", rank),
		slog.String("record_id", r.RecordID),
		slog.String("store", r.StoreName+" ("+r.StoreCode+")"),
		slog.String("date", r.Date),
		slog.String("elapsed_hours", r.ElapsedTime),
		slog.String("urgency", r.Urgency),
		slog.String("fault", r.FaultMajor+" > "+r.FaultMid+" > "+r.FaultMinor),
		slog.String("ocs_cause", r.OCSCauseMajor+" > "+r.OCSCauseMid+" > "+r.OCSCauseMinor),
		slog.String("department", r.DepartmentMain),
		slog.String("progress", r.Progress),
		slog.String("keywords", r.KeywordsText()),
		slog.Any("matched_keywords", r.MatchedKeywords),
		slog.Float64("score", r.Score),
		slog.String("title", r.Title),
		slog.String("text", excerpt(r.Text, traceTextRunes)),
	)
}

func excerpt(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
