package speech

import "strings"

const defaultLocale = "en-US"

var localeByLanguage = map[string]string{
	"en": "en-US",
	"ja": "ja-JP",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-BR",
	"ru": "ru-RU",
	"ko": "ko-KR",
	"zh": "zh-CN",
}

// LocaleFor maps a short language code to a TTS locale. Unknown codes fall
// back to en-US.
func LocaleFor(language string) string {
	if l, ok := localeByLanguage[strings.ToLower(strings.TrimSpace(language))]; ok {
		return l
	}
	return defaultLocale
}
