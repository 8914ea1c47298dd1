package answer

import "strings"

// DefaultLanguage is used when a request carries an unknown language code.
const DefaultLanguage = "en"

// languageName maps supported codes to the name used in language
// directives.
var languageName = map[string]string{
	"en": "English",
	"pl": "Polish",
	"ro": "Romanian",
}

// instructions holds the complete system instruction per supported
// language. Each one tells the model to answer only from the supplied
// context and states the response language; the language is repeated in
// the user content because models drift back to English otherwise.
var instructions = map[string]string{
	"en": `You are a knowledge base assistant for company documents. Answer the question using ONLY the context passages provided below. Quote policies and procedures accurately. If the context does not contain the answer, say that the information is not in the knowledge base — do not invent an answer. Respond in English.`,

	"pl": `Jesteś asystentem bazy wiedzy dokumentów firmowych. Odpowiedz na pytanie, korzystając WYŁĄCZNIE z fragmentów kontekstu podanych poniżej. Cytuj zasady i procedury dokładnie. Jeśli kontekst nie zawiera odpowiedzi, powiedz, że tej informacji nie ma w bazie wiedzy — nie wymyślaj odpowiedzi. Odpowiadaj po polsku.`,

	"ro": `Ești un asistent al bazei de cunoștințe pentru documentele companiei. Răspunde la întrebare folosind DOAR fragmentele de context furnizate mai jos. Citează politicile și procedurile cu exactitate. Dacă contextul nu conține răspunsul, spune că informația nu se află în baza de cunoștințe — nu inventa un răspuns. Răspunde în limba română.`,
}

// resolveLanguage normalizes a language code and falls back to the default
// when the code is not supported. It returns the effective code and its
// system instruction.
func resolveLanguage(code string) (string, string) {
	code = strings.ToLower(strings.TrimSpace(code))
	if inst, ok := instructions[code]; ok {
		return code, inst
	}
	return DefaultLanguage, instructions[DefaultLanguage]
}

// languageReminder is appended to the user content, restating the response
// language already given in the system instruction.
func languageReminder(code string) string {
	return "Respond in " + languageName[code] + "."
}
