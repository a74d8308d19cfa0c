package rag

import (
	"strings"

	wl "github.com/abadojack/whatlanggo"
)

const englishName = "English"

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"pt": "Portuguese",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"hi": "Hindi",
	"zh": "Chinese",
	"ja": "Japanese",
}

// ResolveLanguage maps a request language to the name used in the prompt.
// "auto" detects from the query and falls back to English when unsure.
func ResolveLanguage(lang, query, fallback string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = strings.TrimSpace(fallback)
	}
	switch strings.ToLower(lang) {
	case "":
		return englishName
	case "auto":
		return DetectLanguage(query)
	}
	if name, ok := languageNames[strings.ToLower(lang)]; ok {
		return name
	}
	return lang
}

func DetectLanguage(text string) string {
	info := wl.Detect(text)
	if !info.IsReliable() {
		return englishName
	}
	name := info.Lang.String()
	if name == "" {
		return englishName
	}
	return name
}

func isEnglish(lang string) bool {
	l := strings.ToLower(strings.TrimSpace(lang))
	return l == "en" || l == "english" || l == "eng"
}
