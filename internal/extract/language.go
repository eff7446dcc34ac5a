package extract

import "github.com/newsscrape/engine/internal/domain"

// detectLanguage classifies text by inspecting characters for RTL ranges
// per §4.4: Hebrew characters win Hebrew, Arabic characters win Arabic,
// otherwise English, with "other" reserved for text with no Latin letters
// and no Hebrew/Arabic either (e.g. CJK, Cyrillic).
func detectLanguage(text string) domain.Language {
	var hebrew, arabic, latin int
	for _, r := range text {
		switch {
		case r >= 0x0590 && r <= 0x05FF:
			hebrew++
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}

	switch {
	case hebrew > 0 && hebrew >= arabic:
		return domain.LanguageHebrew
	case arabic > 0:
		return domain.LanguageArabic
	case latin > 0:
		return domain.LanguageEnglish
	default:
		return domain.LanguageOther
	}
}
