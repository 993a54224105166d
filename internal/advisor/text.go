package advisor

import (
	"strings"

	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/provider"
)

const (
	// MinSymptomLength is the minimum number of characters in a symptom description.
	MinSymptomLength = 3

	Redacted = "[REDACTED]"
)

const systemPrompt = "You are AfyaChecker, a friendly and compassionate health information assistant " +
	"for people in Tanzania. You give general, non-medical guidance in plain language. " +
	"You never give a diagnosis or prescribe medication, and you always encourage seeing a qualified health worker."

type messages struct {
	emptyInput, emptyDetails         string
	shortInput, shortDetails         string
	providerFailed, timeout, internal string
	banner, disclaimer               string
}

var localized = map[catalog.Language]messages{
	catalog.Swahili: {
		emptyInput:     "Hitilafu: Maelezo ya dalili hayapo. Tafadhali weka dalili.",
		emptyDetails:   "Symptoms field is empty or invalid.",
		shortInput:     "Hitilafu: Maelezo ya dalili ni mafupi mno. Tafadhali eleza dalili zako kwa undani zaidi.",
		shortDetails:   "Symptoms must be at least 3 characters long.",
		providerFailed: "Hitilafu imetokea. Tafadhali jaribu tena.",
		timeout:        "Muda wa kusubiri jibu umekwisha. Tafadhali jaribu tena.",
		internal:       "Hitilafu ya ndani imetokea. Tafadhali jaribu tena baadaye.",
		banner:         "⚠️ DHARURA: Dalili ulizoeleza zinaweza kuwa za hatari. Nenda kituo cha afya kilicho karibu mara moja au piga simu 112.",
		disclaimer:     "Huu si ushauri wa kitabibu; muone daktari.",
	},
	catalog.English: {
		emptyInput:     "Error: No symptoms provided. Please enter your symptoms.",
		emptyDetails:   "Symptoms field is empty or invalid.",
		shortInput:     "Error: The symptom description is too short. Please describe your symptoms in more detail.",
		shortDetails:   "Symptoms must be at least 3 characters long.",
		providerFailed: "An error occurred. Please try again.",
		timeout:        "The request timed out. Please try again.",
		internal:       "An internal error occurred. Please try again later.",
		banner:         "⚠️ EMERGENCY: The symptoms you describe may be serious. Go to the nearest health facility immediately or call 112.",
		disclaimer:     "This is not medical advice; consult a doctor.",
	},
}

func textFor(lang catalog.Language) messages {
	if m, ok := localized[lang]; ok {
		return m
	}
	return localized[catalog.Swahili]
}

// InternalErrorMessage is the generic message for unexpected failures.
func InternalErrorMessage(lang catalog.Language) string {
	return textFor(lang).internal
}

// EmergencyBanner is prepended to the analysis when an emergency phrase matched.
func EmergencyBanner(lang catalog.Language) string {
	return textFor(lang).banner
}

// DetectEmergency reports whether text contains any of phrases, ignoring case,
// and which phrases matched. Negations are not understood: "no chest pain"
// matches "chest pain".
func DetectEmergency(phrases []string, text string) (bool, []string) {
	lower := strings.ToLower(text)
	var matched []string
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(lower, p) {
			matched = append(matched, p)
		}
	}
	return len(matched) > 0, matched
}

// Sanitize lowercases text and replaces each sensitive term with Redacted.
func Sanitize(terms []string, text string) string {
	out := strings.ToLower(strings.TrimSpace(text))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = strings.ReplaceAll(out, t, Redacted)
		}
	}
	return out
}

// BuildPrompt assembles the system and user prompts for already sanitised text.
func BuildPrompt(lang catalog.Language, symptoms, userContext string, emergency bool) provider.Prompt {
	var parts []string
	parts = append(parts, "Analyze the following symptoms and reply in "+lang.Name()+".")
	parts = append(parts, "Suggest possible common conditions in Tanzania (e.g., malaria, typhoid) and recommend visiting local clinics like Aga Khan Hospital or Muhimbili National Hospital.")
	parts = append(parts, "Keep the answer short and easy to read.")
	parts = append(parts, "Always include: '"+textFor(lang).disclaimer+"'")
	if emergency {
		parts = append(parts, "The description contains warning signs of an emergency. Start by telling the user to seek urgent care immediately.")
	}
	parts = append(parts, "\nSymptoms: "+symptoms)
	if userContext != "" {
		parts = append(parts, "Additional context: "+userContext)
	}
	return provider.Prompt{
		System: systemPrompt,
		User:   strings.Join(parts, "\n"),
	}
}
