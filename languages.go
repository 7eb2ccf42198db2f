package nbtlai

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// AutoDetect is the source code asking backends that support it to detect
// the source language.
const AutoDetect = "auto"

// LanguageNames maps canonical language codes to English names for AI prompts.
var LanguageNames = map[string]string{
	"af":    "Afrikaans",
	"ar":    "Arabic",
	"bg":    "Bulgarian",
	"bn":    "Bengali",
	"ca":    "Catalan",
	"cs":    "Czech",
	"da":    "Danish",
	"de":    "German",
	"el":    "Greek",
	"en":    "English",
	"en-GB": "English (United Kingdom)",
	"en-US": "English (United States)",
	"es":    "Spanish",
	"es-MX": "Spanish (Mexico)",
	"et":    "Estonian",
	"fa":    "Persian",
	"fi":    "Finnish",
	"fr":    "French",
	"fr-CA": "French (Canada)",
	"gl":    "Galician",
	"gu":    "Gujarati",
	"he":    "Hebrew",
	"hi":    "Hindi",
	"hr":    "Croatian",
	"hu":    "Hungarian",
	"id":    "Indonesian",
	"is":    "Icelandic",
	"it":    "Italian",
	"ja":    "Japanese",
	"ka":    "Georgian",
	"kk":    "Kazakh",
	"ko":    "Korean",
	"lt":    "Lithuanian",
	"lv":    "Latvian",
	"mk":    "Macedonian",
	"ml":    "Malayalam",
	"mr":    "Marathi",
	"ms":    "Malay",
	"nb":    "Norwegian Bokmål",
	"nl":    "Dutch",
	"pa":    "Punjabi",
	"pl":    "Polish",
	"pt":    "Portuguese",
	"pt-BR": "Portuguese (Brazil)",
	"pt-PT": "Portuguese (Portugal)",
	"ro":    "Romanian",
	"ru":    "Russian",
	"sk":    "Slovak",
	"sl":    "Slovenian",
	"sq":    "Albanian",
	"sr":    "Serbian",
	"sv":    "Swedish",
	"sw":    "Swahili",
	"ta":    "Tamil",
	"te":    "Telugu",
	"th":    "Thai",
	"tl":    "Tagalog",
	"tr":    "Turkish",
	"uk":    "Ukrainian",
	"ur":    "Urdu",
	"uz":    "Uzbek",
	"vi":    "Vietnamese",
	"zh":    "Chinese (Simplified)",
	"zh-CN": "Chinese (Simplified)",
	"zh-TW": "Chinese (Traditional)",
}

// GetLanguageName returns the English name for a language code.
// Falls back to the base language, then to the code itself.
func GetLanguageName(code string) string {
	canon, err := CanonicalLanguage(code)
	if err != nil {
		return code
	}
	if name, ok := LanguageNames[canon]; ok {
		return name
	}
	if name, ok := LanguageNames[BaseLanguage(canon)]; ok {
		return name
	}
	return code
}

// CanonicalLanguage normalizes a language code to its BCP 47 form
// ("pt_br" → "pt-BR", "EN" → "en", "iw" → "he").
func CanonicalLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty language code")
	}
	if strings.EqualFold(code, AutoDetect) {
		return AutoDetect, nil
	}

	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// BaseLanguage extracts the base language ("pt" from "pt-BR").
func BaseLanguage(code string) string {
	if code == AutoDetect {
		return code
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return strings.ToLower(strings.SplitN(strings.ReplaceAll(code, "_", "-"), "-", 2)[0])
	}
	base, _ := tag.Base()
	return base.String()
}

// SameLanguage reports whether two codes share a base language.
func SameLanguage(a, b string) bool {
	if a == AutoDetect || b == AutoDetect {
		return false
	}
	return BaseLanguage(a) == BaseLanguage(b)
}

// ResolveLanguage maps a language code to the backend's own code.
// A regional code falls back to its base language when the backend has no
// regional variant.
func ResolveLanguage(b Backend, code string) (string, error) {
	table := b.Languages()

	canon, err := CanonicalLanguage(code)
	if err == nil {
		if native, ok := table[canon]; ok {
			return native, nil
		}
		if native, ok := table[BaseLanguage(canon)]; ok {
			return native, nil
		}
	}

	return "", &UnsupportedLanguageError{
		Backend:   b.Name(),
		Code:      code,
		Supported: SupportedLanguages(b),
	}
}

// SupportedLanguages returns the sorted canonical codes a backend accepts.
func SupportedLanguages(b Backend) []string {
	table := b.Languages()
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
