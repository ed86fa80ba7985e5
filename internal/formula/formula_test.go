package formula

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"(totalAmount * capPercent / 100) / term",
		"min(totalAmount, 5000)",
		"round(totalAmount / (term / amortizationFrequency))",
		"totalAmount",
	}
	for _, f := range valid {
		if err := Validate(f); err != nil {
			t.Errorf("Validate(%q): unexpected error %v", f, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		formula string
		reason  string
	}{
		{"", "empty"},
		{"   ", "empty"},
		{"eval(totalAmount)", "forbidden keyword"},
		{"__import__('os')", "forbidden keyword"},
		{"DROP TABLE setups", "forbidden keyword"},
		{"(totalAmount * capPercent", "unbalanced parentheses"},
		{"totalAmount) + (term", "unbalanced parentheses"},
		{"totalAmount * bonusRate", "unknown identifier"},
		{"sqrt(totalAmount)", "unknown identifier"},
	}
	for _, tt := range tests {
		err := Validate(tt.formula)
		if err == nil {
			t.Errorf("Validate(%q): expected error", tt.formula)
			continue
		}
		if !strings.Contains(err.Error(), tt.reason) {
			t.Errorf("Validate(%q): expected error about %q, got %q", tt.formula, tt.reason, err)
		}
	}
}

func TestParseResponse(t *testing.T) {
	raw := "Formula: (totalAmount * capPercent / 100) / term\nExplanation: Splits the capped total over the term."
	result := parseResponse(raw)
	if !result.IsValid {
		t.Fatalf("expected valid result, got error %q", result.Error)
	}
	if result.Formula != "(totalAmount * capPercent / 100) / term" {
		t.Errorf("unexpected formula %q", result.Formula)
	}
	if result.Explanation == "" {
		t.Error("expected explanation")
	}
}

func TestParseResponseWithFences(t *testing.T) {
	raw := "```\nFormula: totalAmount / term\nExplanation: Even split.\n```"
	result := parseResponse(raw)
	if !result.IsValid {
		t.Fatalf("expected valid result, got error %q", result.Error)
	}
	if result.Formula != "totalAmount / term" {
		t.Errorf("unexpected formula %q", result.Formula)
	}
}

func TestParseResponseRefusal(t *testing.T) {
	result := parseResponse(RefusalMessage)
	if result.IsValid {
		t.Fatal("expected refusal to be invalid")
	}
	if result.Error != RefusalMessage {
		t.Errorf("expected refusal message, got %q", result.Error)
	}
}

func TestParseResponseBadFormula(t *testing.T) {
	result := parseResponse("Formula: eval(totalAmount)\nExplanation: Bad.")
	if result.IsValid {
		t.Fatal("expected invalid result for forbidden keyword")
	}
	if result.Error == "" {
		t.Error("expected error message")
	}
}
