package nbtlai

import (
	"errors"
	"reflect"
	"testing"
)

func TestGetLanguageName(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"pt_BR", "Portuguese (Brazil)"},
		{"zh-TW", "Chinese (Traditional)"},
		{"es-AR", "Spanish"}, // base language fallback
		{"EN", "English"},
		{"not a code", "not a code"}, // fallback
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result := GetLanguageName(tt.code)
			if result != tt.expected {
				t.Errorf("GetLanguageName(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}

func TestCanonicalLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pt_br", "pt-BR"},
		{"EN", "en"},
		{" fr ", "fr"},
		{"iw", "he"},
		{"Auto", "auto"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := CanonicalLanguage(tt.input)
			if err != nil {
				t.Fatalf("CanonicalLanguage(%q) failed: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("CanonicalLanguage(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}

	for _, bad := range []string{"", "  ", "not a code"} {
		if _, err := CanonicalLanguage(bad); err == nil {
			t.Errorf("CanonicalLanguage(%q) should fail", bad)
		}
	}
}

func TestBaseAndSameLanguage(t *testing.T) {
	if got := BaseLanguage("pt-BR"); got != "pt" {
		t.Errorf("BaseLanguage(pt-BR) = %q", got)
	}
	if got := BaseLanguage("zh_TW"); got != "zh" {
		t.Errorf("BaseLanguage(zh_TW) = %q", got)
	}
	if got := BaseLanguage(AutoDetect); got != AutoDetect {
		t.Errorf("BaseLanguage(auto) = %q", got)
	}

	tests := []struct {
		a, b string
		same bool
	}{
		{"en", "en-GB", true},
		{"pt-BR", "pt-PT", true},
		{"en", "es", false},
		{"auto", "en", false},
		{"en", "auto", false},
	}
	for _, tt := range tests {
		if got := SameLanguage(tt.a, tt.b); got != tt.same {
			t.Errorf("SameLanguage(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestResolveLanguage(t *testing.T) {
	b := newMockBackend()

	tests := []struct {
		code     string
		expected string
	}{
		{"he", "iw"},
		{"pt_BR", "pt-BR"},
		{"pt-PT", "pt"}, // regional falls back to base
		{"ES", "es"},
		{"auto", "auto"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result, err := ResolveLanguage(b, tt.code)
			if err != nil {
				t.Fatalf("ResolveLanguage(%q) failed: %v", tt.code, err)
			}
			if result != tt.expected {
				t.Errorf("ResolveLanguage(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}

	_, err := ResolveLanguage(b, "ja")
	var langErr *UnsupportedLanguageError
	if !errors.As(err, &langErr) {
		t.Fatalf("expected *UnsupportedLanguageError, got %v", err)
	}
	if langErr.Code != "ja" || langErr.Backend != "mock" {
		t.Errorf("unexpected error fields: %+v", langErr)
	}
}

func TestSupportedLanguages(t *testing.T) {
	want := []string{"auto", "de", "en", "es", "fr", "he", "pt", "pt-BR"}
	if got := SupportedLanguages(newMockBackend()); !reflect.DeepEqual(got, want) {
		t.Errorf("SupportedLanguages() = %v, want %v", got, want)
	}
}
