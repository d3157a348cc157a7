package domain

import "time"

type EventKind string

const (
	EventSearch    EventKind = "search"
	EventSummarize EventKind = "summarize"
)

// Event is one entry of the request log.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"event"`
	Timestamp time.Time `json:"timestamp"`

	Question     string          `json:"question,omitempty"`
	Keywords     []string        `json:"llm_keywords,omitempty"`
	Tier         Tier            `json:"tier,omitempty"`
	Fallback     bool            `json:"fallback,omitempty"`
	ResultCount  int             `json:"result_count"`
	TopPreview   []DisplayRecord `json:"top3_preview,omitempty"`
	StoreName    string          `json:"store_name,omitempty"`
	Date         string          `json:"date,omitempty"`
	FaultMajor   string          `json:"fault_major,omitempty"`
	OCSCause     string          `json:"ocs_cause_major,omitempty"`
	Urgency      string          `json:"urgency,omitempty"`
	InputExcerpt string          `json:"input_excerpt,omitempty"`
	Summary      string          `json:"summary,omitempty"`
}
