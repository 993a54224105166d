// Package scorer ranks candidate conditions for a list of symptoms by relative
// frequency. The resulting probabilities are heuristic weightings derived from a
// fixed lookup table, not medical diagnoses.
package scorer

import (
	"errors"
	"sort"
	"strings"

	"github.com/Skufu/AfyaChecker/internal/catalog"
)

const (
	// PrimaryLimit is the size of the highlighted result list.
	PrimaryLimit = 3
	// ChartLimit is the size of the chart and report list.
	ChartLimit = 5
)

var (
	ErrNoSymptoms = errors.New("no symptoms provided")
	ErrNoMatches  = errors.New("no recognised symptoms")
)

// Ranked is one condition with its share of all matched condition entries.
type Ranked struct {
	Condition   string  `json:"condition"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

type Result struct {
	Symptoms     []string `json:"symptoms"`
	Matched      []string `json:"matched"`
	Unrecognized []string `json:"unrecognized"`
	Ranking      []Ranked `json:"ranking"`
	Total        int      `json:"total"`
}

// Normalize splits comma-separated free text, trims each piece and appends the
// selected list. Order and duplicates are kept; empty pieces are dropped. Case is
// left untouched, so only exact table keys match.
func Normalize(freeText string, selected []string) []string {
	out := make([]string, 0, len(selected)+4)
	if strings.TrimSpace(freeText) != "" {
		for _, piece := range strings.Split(freeText, ",") {
			if p := strings.TrimSpace(piece); p != "" {
				out = append(out, p)
			}
		}
	}
	for _, s := range selected {
		if p := strings.TrimSpace(s); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Score tallies the conditions of every recognised symptom and converts the
// counts into relative frequencies. Ties keep the order in which conditions were
// first encountered. Unrecognised symptoms are skipped and reported back.
func Score(table catalog.SymptomTable, symptoms []string) Result {
	res := Result{
		Symptoms:     append([]string(nil), symptoms...),
		Matched:      []string{},
		Unrecognized: []string{},
		Ranking:      []Ranked{},
	}

	counts := make(map[string]int)
	var order []string
	for _, s := range symptoms {
		conds, ok := table.Lookup(s)
		if !ok {
			res.Unrecognized = append(res.Unrecognized, s)
			continue
		}
		res.Matched = append(res.Matched, s)
		for _, c := range conds {
			if _, seen := counts[c]; !seen {
				order = append(order, c)
			}
			counts[c]++
			res.Total++
		}
	}
	if res.Total == 0 {
		return res
	}

	res.Ranking = make([]Ranked, 0, len(order))
	for _, c := range order {
		res.Ranking = append(res.Ranking, Ranked{
			Condition:   c,
			Count:       counts[c],
			Probability: float64(counts[c]) / float64(res.Total),
		})
	}
	sort.SliceStable(res.Ranking, func(i, j int) bool {
		return res.Ranking[i].Probability > res.Ranking[j].Probability
	})
	return res
}

// Top returns at most n leading entries of the ranking. The probabilities of a
// truncated list do not sum to one.
func (r Result) Top(n int) []Ranked {
	if n > len(r.Ranking) {
		n = len(r.Ranking)
	}
	if n < 0 {
		n = 0
	}
	return append([]Ranked(nil), r.Ranking[:n]...)
}

// TopCondition returns the highest ranked condition, if any.
func (r Result) TopCondition() (string, bool) {
	if len(r.Ranking) == 0 {
		return "", false
	}
	return r.Ranking[0].Condition, true
}

// Analyze normalizes the input and scores it, turning the two empty outcomes
// into ErrNoSymptoms and ErrNoMatches.
func Analyze(table catalog.SymptomTable, freeText string, selected []string) (Result, error) {
	symptoms := Normalize(freeText, selected)
	if len(symptoms) == 0 {
		return Result{}, ErrNoSymptoms
	}
	res := Score(table, symptoms)
	if res.Total == 0 {
		return res, ErrNoMatches
	}
	return res, nil
}

// Advice returns the advice for condition in lang, or the language's generic
// fallback when the table has no entry.
func Advice(table catalog.AdviceTable, condition string, lang catalog.Language) string {
	if text, ok := table.Lookup(lang, condition); ok {
		return text
	}
	return table.Fallback(lang)
}
