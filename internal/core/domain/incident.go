package domain

import (
	"fmt"
	"math"
	"strings"
)

// Placeholders substituted for absent payload fields.
const (
	MissingRecordID  = "없음"
	MissingStoreName = "점포명 없음"
	MissingStoreCode = "코드 없음"
	MissingTitle     = "제목 없음"
	MissingText      = "내용 없음"
	MissingKeywords  = "없음"
	MissingDate      = "날짜 정보 없음"
	MissingTaxonomy  = "-"
	MissingElapsed   = "0"
)

// Document is the canonical incident record built from a vector hit.
type Document struct {
	PointID        string
	RecordID       string
	StoreName      string
	StoreCode      string
	Date           string
	Title          string
	Text           string
	FileName       string
	FaultMajor     string
	FaultMid       string
	FaultMinor     string
	Urgency        string
	DepartmentMain string
	Progress       string
	ElapsedTime    string
	OCSCauseMajor  string
	OCSCauseMid    string
	OCSCauseMinor  string
	Keywords       []string
	Similarity     float64
}

// KeywordsText joins the keyword list for display.
func (d Document) KeywordsText() string {
	if len(d.Keywords) == 0 {
		return MissingKeywords
	}
	return strings.Join(d.Keywords, ", ")
}

// RankedResult is a document with its final ranking score.
type RankedResult struct {
	Document
	Score           float64
	MatchedKeywords []string
}

// Accuracy is the score expressed as a percentage with two decimals.
func (r RankedResult) Accuracy() float64 {
	return RoundTo(r.Score*100, 2)
}

// RoundTo rounds half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// DisplayRecord is the response shape of one search result.
type DisplayRecord struct {
	RecordID       string  `json:"record_id"`
	StoreName      string  `json:"store_name"`
	StoreCode      string  `json:"store_code"`
	Date           string  `json:"date"`
	Title          string  `json:"title"`
	Text           string  `json:"text"`
	FaultMajor     string  `json:"fault_major"`
	FaultMid       string  `json:"fault_mid"`
	FaultMinor     string  `json:"fault_minor"`
	Urgency        string  `json:"urgency"`
	DepartmentMain string  `json:"department_main"`
	Progress       string  `json:"progress"`
	OCSCauseMajor  string  `json:"ocs_cause_major"`
	OCSCauseMid    string  `json:"ocs_cause_mid"`
	OCSCauseMinor  string  `json:"ocs_cause_minor"`
	Keywords       string  `json:"keywords"`
	Score          float64 `json:"score"`
	Accuracy       string  `json:"accuracy"`
}

// FormatForDisplay converts a ranked result into its response shape.
func FormatForDisplay(r RankedResult) DisplayRecord {
	return DisplayRecord{
		RecordID:       r.RecordID,
		StoreName:      r.StoreName,
		StoreCode:      r.StoreCode,
		Date:           r.Date,
		Title:          r.Title,
		Text:           r.Text,
		FaultMajor:     r.FaultMajor,
		FaultMid:       r.FaultMid,
		FaultMinor:     r.FaultMinor,
		Urgency:        r.Urgency,
		DepartmentMain: r.DepartmentMain,
		Progress:       r.Progress,
		OCSCauseMajor:  r.OCSCauseMajor,
		OCSCauseMid:    r.OCSCauseMid,
		OCSCauseMinor:  r.OCSCauseMinor,
		Keywords:       r.KeywordsText(),
		Score:          RoundTo(r.Score, 5),
		Accuracy:       fmt.Sprintf("%.2f%%", r.Accuracy()),
	}
}

// Tier names the retrieval strategy that produced a result list.
type Tier string

const (
	TierDateText   Tier = "date_text"
	TierText       Tier = "text"
	TierUnfiltered Tier = "unfiltered"
)

// SearchResult is the outcome of one cascade run. FellBack is set when the
// selected tier came back empty and the results come from the unfiltered
// semantic fallback.
type SearchResult struct {
	Tier     Tier           `json:"tier"`
	FellBack bool           `json:"fallback"`
	Results  []RankedResult `json:"-"`
}
