// Package relevance decides whether a free-text question is about skin. The chat
// endpoint answers every question, so nothing in the request path consults it; it is
// kept for callers that want to reject off-topic queries up front.
package relevance

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// keywords holds English, Urdu-script and romanised Urdu terms. Matching is by substring,
// so short entries such as "rok" also match inside longer words.
var keywords = []string{
	// English
	"skin", "acne", "eczema", "psoriasis", "rash", "dermatitis", "fungal", "infection",
	"dry skin", "oily skin", "spots", "pimples", "blackheads", "wrinkles", "aging",
	"moles", "freckles", "pigmentation", "vitiligo", "melasma", "sunburn", "allergy",
	"itching", "scratching", "burning", "scaling", "peeling", "redness", "inflammation",
	"dermatologist", "skincare", "treatment", "cream", "ointment", "lotion",

	// Urdu
	"جلد", "کیل", "مہاسے", "خارش", "داغ", "دھبے", "علاج", "دوا", "کریم", "تیل", "خشک", "چکتے",
	"سوجن", "جلن", "لالی", "انفیکشن", "فنگل", "ایکزیما", "سوریاسس", "الرجی", "روک", "ٹھیک",

	// Romanised
	"ulaj", "ilaj", "dawai", "thik", "rok", "kese", "kaise", "medicine", "cure", "heal",
}

var folded = foldAll(keywords)

func foldAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = normalize(w)
	}
	return out
}

// normalize composes the text to NFC, so Urdu typed with decomposed characters still
// matches, and applies Unicode case folding.
func normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// IsDermatologyRelated reports whether the text contains any dermatology keyword.
func IsDermatologyRelated(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	normalized := normalize(text)
	for _, kw := range folded {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the keyword list.
func Keywords() []string {
	out := make([]string, len(keywords))
	copy(out, keywords)
	return out
}
