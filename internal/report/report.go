// Package report renders a scoring result as a downloadable plain-text report
// and as a PNG bar chart.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/scorer"
)

// Entry is one ranked condition with its display label.
type Entry struct {
	Condition   string  `json:"condition"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Percent     string  `json:"percent"`
}

type Report struct {
	Language catalog.Language `json:"language"`
	Symptoms []string         `json:"symptoms"`
	Entries  []Entry          `json:"entries"`
	Advice   string           `json:"advice"`
}

type labels struct {
	title, symptoms, results, advice, disclaimer, filename string
	chartTitle, chartAxis                                  string
	top, unrecognized, noInput, noMatches                  string
}

var text = map[catalog.Language]labels{
	catalog.Swahili: {
		title:      "Matokeo ya Uchambuzi wa Dalili:",
		symptoms:   "Dalili",
		results:    "Matokeo:",
		advice:     "Ushauri",
		disclaimer: "Hii si upimaji wa kiafya. Asilimia ni makadirio kutoka kwenye jedwali la dalili, si utambuzi. Tafuta ushauri wa matibabu kutoka kwa wataalamu wa afya.",
		filename:   "ripoti_ya_dalili.txt",
		chartTitle: "Uwezekano wa Magonjwa Kulingana na Dalili",
		chartAxis:  "Uwezekano",

		top:          "Magonjwa yanayowezekana zaidi:",
		unrecognized: "Dalili zisizotambuliwa",
		noInput:      "Tafadhali ingiza dalili au chagua kutoka kwenye orodha.",
		noMatches:    "Hakuna dalili iliyotambuliwa. Tafadhali angalia tahajia au chagua kutoka kwenye orodha.",
	},
	catalog.English: {
		title:      "Symptom Analysis Results:",
		symptoms:   "Symptoms",
		results:    "Results:",
		advice:     "Advice",
		disclaimer: "This is not a medical diagnosis. Percentages are weightings from a fixed symptom table, not diagnoses. Seek medical advice from health professionals.",
		filename:   "symptom_report.txt",
		chartTitle: "Disease Probabilities Based on Symptoms",
		chartAxis:  "Probability",

		top:          "Most likely conditions:",
		unrecognized: "Unrecognised symptoms",
		noInput:      "Please enter symptoms or choose them from the list.",
		noMatches:    "No recognised symptoms. Check the spelling or choose from the list.",
	},
}

func labelsFor(lang catalog.Language) labels {
	if l, ok := text[lang]; ok {
		return l
	}
	return text[catalog.Swahili]
}

// Percent formats a probability the way every view shows it.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// New builds the report for res: the entered symptoms, the top ChartLimit
// conditions and the advice for the top condition, rendered for lang.
func New(c *catalog.Catalog, lang catalog.Language, res scorer.Result) Report {
	top := res.Top(scorer.ChartLimit)
	entries := make([]Entry, 0, len(top))
	for _, r := range top {
		entries = append(entries, Entry{
			Condition:   r.Condition,
			Label:       c.Translations.Display(r.Condition, lang),
			Probability: r.Probability,
			Percent:     Percent(r.Probability),
		})
	}

	advice := c.Advice.Fallback(lang)
	if cond, ok := res.TopCondition(); ok {
		advice = scorer.Advice(c.Advice, cond, lang)
	}

	return Report{
		Language: lang,
		Symptoms: c.Translations.DisplayAll(res.Symptoms, lang),
		Entries:  entries,
		Advice:   advice,
	}
}

// Filename is the suggested download name.
func (r Report) Filename() string {
	return labelsFor(r.Language).filename
}

// Text renders the report body. Output depends only on the report contents.
func (r Report) Text() string {
	l := labelsFor(r.Language)
	var b strings.Builder
	b.WriteString(l.title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s: %s\n\n", l.symptoms, strings.Join(r.Symptoms, ", "))
	b.WriteString(l.results)
	b.WriteString("\n")
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.Label, e.Percent)
	}
	fmt.Fprintf(&b, "\n%s: %s\n\n", l.advice, r.Advice)
	b.WriteString(l.disclaimer)
	b.WriteString("\n")
	return b.String()
}

func (r Report) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, r.Text())
	return err
}

// Disclaimer returns the heuristic-weighting notice for lang.
func Disclaimer(lang catalog.Language) string {
	return labelsFor(lang).disclaimer
}

// Heading returns the title of the highlighted result list.
func Heading(lang catalog.Language) string {
	return labelsFor(lang).top
}

func AdviceLabel(lang catalog.Language) string {
	return labelsFor(lang).advice
}

// UnrecognizedLabel introduces the list of symptoms absent from the table.
func UnrecognizedLabel(lang catalog.Language) string {
	return labelsFor(lang).unrecognized
}

// ErrorMessage localizes the scorer's input errors. Other errors are returned
// unchanged.
func ErrorMessage(lang catalog.Language, err error) string {
	l := labelsFor(lang)
	switch {
	case errors.Is(err, scorer.ErrNoSymptoms):
		return l.noInput
	case errors.Is(err, scorer.ErrNoMatches):
		return l.noMatches
	case err == nil:
		return ""
	}
	return err.Error()
}
