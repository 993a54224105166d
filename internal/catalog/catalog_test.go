package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 10, c.Symptoms.Len())
	assert.Equal(t, "kikohozi", c.Symptoms.Keys()[0])

	conds, ok := c.Symptoms.Lookup("homa")
	require.True(t, ok)
	assert.Equal(t, []string{"Malaria", "Typhoid", "Mafua", "Dengue"}, conds)

	_, ok = c.Symptoms.Lookup("Homa")
	assert.False(t, ok, "lookup is case-sensitive")
}

func TestLookupReturnsCopy(t *testing.T) {
	c := MustDefault()
	conds, _ := c.Symptoms.Lookup("homa")
	conds[0] = "Changed"

	again, _ := c.Symptoms.Lookup("homa")
	assert.Equal(t, "Malaria", again[0])
}

func TestAdviceCoversSubset(t *testing.T) {
	c := MustDefault()

	_, ok := c.Advice.Lookup(Swahili, "Malaria")
	assert.True(t, ok)
	_, ok = c.Advice.Lookup(English, "Malaria")
	assert.True(t, ok)
	_, ok = c.Advice.Lookup(Swahili, "Dengue")
	assert.False(t, ok)

	assert.Contains(t, c.Advice.Fallback(Swahili), "Tafuta ushauri")
	assert.Contains(t, c.Advice.Fallback(English), "Seek professional medical advice")
}

func TestTranslations(t *testing.T) {
	c := MustDefault()

	assert.Equal(t, "Flu", c.Translations.Display("Mafua", English))
	assert.Equal(t, "Mafua", c.Translations.Display("Mafua", Swahili))
	assert.Equal(t, "fever", c.Translations.Display("homa", English))
	assert.Equal(t, "unknown thing", c.Translations.Display("unknown thing", English))
	assert.Equal(t, []string{"cough", "HIV/AIDS"}, c.Translations.DisplayAll([]string{"kikohozi", "Ukimwi"}, English))
}

func TestEmergencyPhrases(t *testing.T) {
	c := MustDefault()
	assert.Contains(t, c.Emergency.For(English), "chest pain")
	assert.Contains(t, c.Emergency.For(Swahili), "maumivu ya kifua")
	all := c.Emergency.All()
	assert.Contains(t, all, "chest pain")
	assert.Contains(t, all, "maumivu ya kifua")
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]Language{
		"English":   English,
		" en ":      English,
		"Swahili":   Swahili,
		"kiswahili": Swahili,
		"":          Swahili,
		"french":    Swahili,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLanguage(in), "tag %q", in)
	}
	assert.Equal(t, "English", English.Name())
	assert.Equal(t, "Swahili", Swahili.Name())
}

func TestParseRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "uppercase key",
			yaml: "symptoms:\n  - key: Homa\n    conditions: [Malaria]\nfallback_advice: {sw: a, en: b}\n",
		},
		{
			name: "no conditions",
			yaml: "symptoms:\n  - key: homa\n    conditions: []\nfallback_advice: {sw: a, en: b}\n",
		},
		{
			name: "duplicate key",
			yaml: "symptoms:\n  - key: homa\n    conditions: [A]\n  - key: homa\n    conditions: [B]\nfallback_advice: {sw: a, en: b}\n",
		},
		{
			name: "missing fallback",
			yaml: "symptoms:\n  - key: homa\n    conditions: [A]\nfallback_advice: {sw: a}\n",
		},
		{
			name: "unsupported advice language",
			yaml: "symptoms:\n  - key: homa\n    conditions: [A]\nadvice:\n  fr: {A: x}\nfallback_advice: {sw: a, en: b}\n",
		},
		{
			name: "not yaml",
			yaml: "symptoms: [",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNewSymptomTable(t *testing.T) {
	tbl := NewSymptomTable(
		SymptomEntry{Symptom: "a", Conditions: []string{"X", "Y"}},
		SymptomEntry{Symptom: "b", Conditions: []string{"Y"}},
	)
	assert.Equal(t, []string{"a", "b"}, tbl.Keys())
	conds, ok := tbl.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, []string{"Y"}, conds)
}
