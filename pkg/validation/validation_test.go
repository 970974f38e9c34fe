package validation

import "testing"

func TestValidatePhone(t *testing.T) {
	valid := []string{"5511999999999", "+5511999999999", "551199"}
	for _, p := range valid {
		if err := ValidatePhone(p); err != nil {
			t.Errorf("ValidatePhone(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{"", "   ", "011999999999", "55 11 9999", "abc123456", "12345"}
	for _, p := range invalid {
		if err := ValidatePhone(p); err == nil {
			t.Errorf("ValidatePhone(%q) = nil, want error", p)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"5511999999999@s.whatsapp.net":    "5511999999999",
		"5511999999999:12@s.whatsapp.net": "5511999999999",
		"+55 (11) 99999-9999":             "5511999999999",
		"":                                "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("http://localhost:8080"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, raw := range []string{"", "not a url", "/relative/path"} {
		if err := ValidateURL(raw); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", raw)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hell…" {
		t.Errorf("Truncate = %q, want %q", got, "hell…")
	}
	// Family emoji is one grapheme made of several code points.
	family := "👨‍👩‍👧‍👦"
	if got := Truncate(family+family+family, 2); got != family+"…" {
		t.Errorf("Truncate emoji = %q", got)
	}
}
