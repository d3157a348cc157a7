package domain

// Category is the filter family a keyword resolves to.
type Category string

const (
	CategoryYear  Category = "year"
	CategoryMonth Category = "month"
	CategoryDay   Category = "day"
	CategoryText  Category = "text"
)

// IsDate reports whether the category constrains one of the date fields.
func (c Category) IsDate() bool {
	return c == CategoryYear || c == CategoryMonth || c == CategoryDay
}

// Payload field names of an incident point.
const (
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldDay       = "day"
	FieldFileName  = "sFileName"
	FieldKeywords  = "keywords"
	FieldStoreName = "store_name"
	FieldStoreCode = "store_code"
)

// ClassifiedKeyword is a keyword together with its category and the
// conditions a matching record has to satisfy.
type ClassifiedKeyword struct {
	Keyword    string
	Category   Category
	Conditions []Condition
}

// Predicate returns the standalone lookup filter for the keyword: date
// keywords require their single equality, text keywords accept any of their
// conditions.
func (k ClassifiedKeyword) Predicate() Filter {
	if k.Category == CategoryText {
		return Filter{Should: k.Conditions}
	}
	return Filter{Must: k.Conditions}
}

// CachedPoint is a payload/vector pair captured during the metadata fan-out.
type CachedPoint struct {
	Payload Payload
	Vector  []float32
}

// CandidateSet is the merged output of the metadata fan-out.
type CandidateSet struct {
	IDs        map[string]map[string]struct{}
	Payloads   map[string]CachedPoint
	Categories map[string]Category
}

func NewCandidateSet() CandidateSet {
	return CandidateSet{
		IDs:        map[string]map[string]struct{}{},
		Payloads:   map[string]CachedPoint{},
		Categories: map[string]Category{},
	}
}
