package relevance

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestIsDermatologyRelated(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"english keyword", "I have a rash on my arm", true},
		{"mixed case", "My SKIN is peeling", true},
		{"multi-word keyword", "remedies for Dry Skin in winter", true},
		{"urdu script", "میرے چہرے پر خارش ہے", true},
		{"romanised urdu", "iska ilaj kya hai", true},
		{"substring match", "brokers", true}, // contains "rok"
		{"unrelated", "What's the weather tomorrow?", false},
		{"empty", "", false},
		{"whitespace", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDermatologyRelated(tt.text); got != tt.want {
				t.Errorf("IsDermatologyRelated(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsDermatologyRelatedDecomposedInput(t *testing.T) {
	decomposed := norm.NFD.String("جلد کی بیماری")
	if !IsDermatologyRelated(decomposed) {
		t.Errorf("decomposed input %q should match after normalization", decomposed)
	}
}

func TestKeywordsReturnsCopy(t *testing.T) {
	kw := Keywords()
	if len(kw) == 0 {
		t.Fatal("expected keywords")
	}
	kw[0] = "changed"
	if Keywords()[0] == "changed" {
		t.Error("Keywords must return a copy")
	}
}
