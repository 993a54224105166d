// Package catalog holds the fixed reference tables of the symptom checker: the
// symptom to condition table, advice, English display names, emergency phrases and
// sensitive terms. Tables are parsed once and never mutated afterwards.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

type Language string

const (
	Swahili Language = "sw"
	English Language = "en"
)

// Languages lists every supported language, default first.
var Languages = []Language{Swahili, English}

// ParseLanguage maps a free-form language tag to a supported language. Unknown
// or empty tags fall back to Swahili.
func ParseLanguage(tag string) Language {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "en", "eng", "english", "kiingereza":
		return English
	default:
		return Swahili
	}
}

// Name returns the human-readable language name used in prompts.
func (l Language) Name() string {
	if l == English {
		return "English"
	}
	return "Swahili"
}

type Catalog struct {
	Symptoms       SymptomTable
	Advice         AdviceTable
	Translations   TranslationTable
	Emergency      EmergencyPhrases
	sensitiveTerms []string
}

// SensitiveTerms returns the phrases redacted before text leaves the process.
func (c *Catalog) SensitiveTerms() []string {
	return slices.Clone(c.sensitiveTerms)
}

type fileFormat struct {
	Symptoms []struct {
		Key        string   `yaml:"key"`
		English    string   `yaml:"english"`
		Conditions []string `yaml:"conditions"`
	} `yaml:"symptoms"`
	Conditions       map[string]string              `yaml:"conditions"`
	Advice           map[Language]map[string]string `yaml:"advice"`
	FallbackAdvice   map[Language]string            `yaml:"fallback_advice"`
	EmergencyPhrases map[Language][]string          `yaml:"emergency_phrases"`
	SensitiveTerms   []string                       `yaml:"sensitive_terms"`
}

// Default parses the tables compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultTables)
}

// MustDefault is Default for callers that cannot recover from a broken build.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile parses tables from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	symptoms := SymptomTable{conditions: make(map[string][]string, len(raw.Symptoms))}
	english := make(map[string]string, len(raw.Symptoms)+len(raw.Conditions))
	for i, s := range raw.Symptoms {
		key := s.Key
		if key == "" || key != strings.ToLower(strings.TrimSpace(key)) {
			return nil, fmt.Errorf("symptom %d: key %q must be lowercase and trimmed", i, key)
		}
		if _, dup := symptoms.conditions[key]; dup {
			return nil, fmt.Errorf("symptom %q listed twice", key)
		}
		if len(s.Conditions) == 0 {
			return nil, fmt.Errorf("symptom %q has no conditions", key)
		}
		symptoms.keys = append(symptoms.keys, key)
		symptoms.conditions[key] = slices.Clone(s.Conditions)
		if s.English != "" {
			english[key] = s.English
		}
	}
	for name, en := range raw.Conditions {
		english[name] = en
	}

	advice := AdviceTable{
		byLang:   make(map[Language]map[string]string, len(Languages)),
		fallback: make(map[Language]string, len(Languages)),
	}
	for _, lang := range Languages {
		fb := strings.TrimSpace(raw.FallbackAdvice[lang])
		if fb == "" {
			return nil, fmt.Errorf("fallback advice missing for language %q", lang)
		}
		advice.fallback[lang] = fb
		entries := make(map[string]string, len(raw.Advice[lang]))
		for cond, text := range raw.Advice[lang] {
			entries[cond] = text
		}
		advice.byLang[lang] = entries
	}
	for lang := range raw.Advice {
		if !slices.Contains(Languages, lang) {
			return nil, fmt.Errorf("advice for unsupported language %q", lang)
		}
	}

	emergency := EmergencyPhrases{byLang: make(map[Language][]string, len(raw.EmergencyPhrases))}
	for lang, phrases := range raw.EmergencyPhrases {
		if !slices.Contains(Languages, lang) {
			return nil, fmt.Errorf("emergency phrases for unsupported language %q", lang)
		}
		for _, p := range phrases {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				emergency.byLang[lang] = append(emergency.byLang[lang], p)
			}
		}
	}

	terms := make([]string, 0, len(raw.SensitiveTerms))
	for _, t := range raw.SensitiveTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}

	return &Catalog{
		Symptoms:       symptoms,
		Advice:         advice,
		Translations:   TranslationTable{english: english},
		Emergency:      emergency,
		sensitiveTerms: terms,
	}, nil
}

// SymptomTable maps a symptom key to its ordered candidate conditions.
type SymptomTable struct {
	keys       []string
	conditions map[string][]string
}

// NewSymptomTable builds a table from ordered (symptom, conditions) pairs.
func NewSymptomTable(entries ...SymptomEntry) SymptomTable {
	t := SymptomTable{conditions: make(map[string][]string, len(entries))}
	for _, e := range entries {
		if _, ok := t.conditions[e.Symptom]; !ok {
			t.keys = append(t.keys, e.Symptom)
		}
		t.conditions[e.Symptom] = slices.Clone(e.Conditions)
	}
	return t
}

type SymptomEntry struct {
	Symptom    string
	Conditions []string
}

// Lookup returns a copy of the conditions associated with symptom.
func (t SymptomTable) Lookup(symptom string) ([]string, bool) {
	c, ok := t.conditions[symptom]
	if !ok {
		return nil, false
	}
	return slices.Clone(c), true
}

// Keys returns the recognised symptoms in table order.
func (t SymptomTable) Keys() []string {
	return slices.Clone(t.keys)
}

func (t SymptomTable) Len() int {
	return len(t.keys)
}

// AdviceTable holds per-language advice for a subset of conditions.
type AdviceTable struct {
	byLang   map[Language]map[string]string
	fallback map[Language]string
}

func (a AdviceTable) Lookup(lang Language, condition string) (string, bool) {
	text, ok := a.byLang[lang][condition]
	return text, ok
}

func (a AdviceTable) Fallback(lang Language) string {
	if fb, ok := a.fallback[lang]; ok {
		return fb
	}
	return a.fallback[Swahili]
}

// TranslationTable gives English display strings for symptoms and conditions.
type TranslationTable struct {
	english map[string]string
}

// Display renders name for lang. Swahili shows the name unchanged; English uses
// the translation when one exists.
func (t TranslationTable) Display(name string, lang Language) string {
	if lang != English {
		return name
	}
	if en, ok := t.english[name]; ok {
		return en
	}
	return name
}

// DisplayAll maps Display over names.
func (t TranslationTable) DisplayAll(names []string, lang Language) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = t.Display(n, lang)
	}
	return out
}

// EmergencyPhrases are lowercase phrases whose presence marks an emergency.
type EmergencyPhrases struct {
	byLang map[Language][]string
}

func (e EmergencyPhrases) For(lang Language) []string {
	return slices.Clone(e.byLang[lang])
}

// All returns the phrases of every language, in Languages order.
func (e EmergencyPhrases) All() []string {
	var out []string
	for _, lang := range Languages {
		out = append(out, e.byLang[lang]...)
	}
	return out
}
