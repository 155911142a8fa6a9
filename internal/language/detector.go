// Package language detects the language of extracted page text.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// Lingua wraps a lingua-go detector built over every supported language.
type Lingua struct {
	detector lingua.LanguageDetector
}

// NewLingua builds the detector. Models load lazily on first use.
func NewLingua() *Lingua {
	return &Lingua{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// Detect implements crawler.LanguageDetector.
func (l *Lingua) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return crawler.LanguageOther
	}
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return crawler.LanguageOther
	}
	return NormalizeCode(lang.IsoCode639_1().String())
}

// NormalizeCode lowercases an ISO code and folds regional Chinese variants
// into "zh". Empty input maps to crawler.LanguageOther.
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "":
		return crawler.LanguageOther
	case "zh-cn", "zh-tw", "zh_cn", "zh_tw":
		return "zh"
	default:
		return code
	}
}
