package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/retailtech-search/internal/core/domain"
)

func TestClassifyKeywordCategories(t *testing.T) {
	cases := []struct {
		keyword string
		want    domain.Category
	}{
		{"2023", domain.CategoryYear},
		{"0012", domain.CategoryYear},
		{"1", domain.CategoryMonth},
		{"7", domain.CategoryMonth},
		{"07", domain.CategoryMonth},
		{"12", domain.CategoryMonth},
		{"13", domain.CategoryDay},
		{"31", domain.CategoryDay},
		{"32", domain.CategoryText},
		{"0", domain.CategoryText},
		{"00", domain.CategoryText},
		{"123", domain.CategoryText},
		{"POS", domain.CategoryText},
		{"포스", domain.CategoryText},
		{"12월", domain.CategoryText},
		{"", domain.CategoryText},
		{"１２", domain.CategoryText},
		{"-5", domain.CategoryText},
		{"99999999999999999999999", domain.CategoryText},
	}

	for _, tc := range cases {
		got := ClassifyKeyword(tc.keyword)
		if got.Category != tc.want {
			t.Fatalf("ClassifyKeyword(%q) = %s, want %s", tc.keyword, got.Category, tc.want)
		}
		if got.Keyword != tc.keyword {
			t.Fatalf("ClassifyKeyword(%q) kept keyword %q", tc.keyword, got.Keyword)
		}
	}
}

func TestClassifyKeywordIsDeterministic(t *testing.T) {
	for _, kw := range []string{"2023", "12", "13", "POS", "점포"} {
		first := ClassifyKeyword(kw)
		second := ClassifyKeyword(kw)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("ClassifyKeyword(%q) not deterministic: %+v vs %+v", kw, first, second)
		}
	}
}

func TestClassifyKeywordDatePredicate(t *testing.T) {
	got := ClassifyKeyword("2023").Predicate()
	want := domain.Filter{Must: []domain.Condition{{Key: domain.FieldYear, Value: 2023}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected year predicate: %+v", got)
	}

	got = ClassifyKeyword("09").Predicate()
	want = domain.Filter{Must: []domain.Condition{{Key: domain.FieldMonth, Value: 9}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected month predicate: %+v", got)
	}
}

func TestClassifyKeywordTextPredicateIsAnyOf(t *testing.T) {
	got := ClassifyKeyword("POS").Predicate()
	if len(got.Must) != 0 {
		t.Fatalf("text predicate must not have must conditions: %+v", got.Must)
	}
	want := []domain.Condition{
		{Key: domain.FieldFileName, Value: "POS"},
		{Key: domain.FieldKeywords, Any: []string{"POS"}},
		{Key: domain.FieldStoreName, Value: "POS"},
		{Key: domain.FieldStoreCode, Value: "POS"},
	}
	if !reflect.DeepEqual(got.Should, want) {
		t.Fatalf("unexpected text predicate: %+v", got.Should)
	}
}

func TestNormalizeKeywordsDropsBlanksAndDuplicates(t *testing.T) {
	got := normalizeKeywords([]string{" POS ", "", "2023", "POS", "  "})
	want := []string{"POS", "2023"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeKeywords() = %v, want %v", got, want)
	}
}
