package formula

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// RefusalMessage is returned verbatim when the request is not about
// amortization formulas.
const RefusalMessage = "I can only help with amortization formula generation"

// Result is the outcome of one generation request. A validation failure or a
// refusal produces IsValid false with Error set; it is never a server error.
type Result struct {
	Formula     string `json:"formula"`
	Explanation string `json:"explanation"`
	IsValid     bool   `json:"isValid"`
	Error       string `json:"error,omitempty"`
}

// Generator produces formulas through a hosted model.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a generator. Credentials come from the environment,
// the same way the rest of the Google API surface is configured.
func NewGenerator(ctx context.Context, model string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

const systemPrompt = `You translate natural-language amortization rules into a single arithmetic formula.

The only variables you may use are:
- totalAmount: the grouped incentive total
- capPercent: the cap percentage (0-100)
- term: the amortization term in months
- amortizationFrequency: months between installments
- payrollClassification: the payroll classification string

Respond with exactly two lines:
Formula: <the formula>
Explanation: <one sentence explaining it>

Do not use code fences or Markdown. Do not define new variables or functions other than min, max, round, floor, ceil, abs.

If the request is not about amortization formulas, respond with exactly:
` + RefusalMessage + `

Examples:

Request: split the capped total evenly over the term
Formula: (totalAmount * capPercent / 100) / term
Explanation: Applies the cap to the total and divides it into equal monthly parts over the term.

Request: amount paid per installment period
Formula: (totalAmount * capPercent / 100) / (term / amortizationFrequency)
Explanation: Caps the total and divides it by the number of installment periods the term yields.

Request: cap the payout at half the total
Formula: min(totalAmount * capPercent / 100, totalAmount / 2)
Explanation: Takes the smaller of the capped total and half of the original total.`

// Generate asks the model for a formula and validates the answer. Model or
// transport failures return an error; bad model output returns an invalid
// Result instead.
func (g *Generator) Generate(ctx context.Context, prompt string) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{IsValid: false, Error: "prompt is empty"}, nil
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt + "\n\nRequest: " + prompt},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return Result{}, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return Result{}, fmt.Errorf("empty response from model")
	}

	return parseResponse(raw), nil
}

// parseResponse extracts the formula and explanation from model output and
// runs validation. Tolerates code fences and stray prefixes the model was
// told not to emit.
func parseResponse(raw string) Result {
	text := stripFences(strings.TrimSpace(raw))

	if strings.Contains(text, RefusalMessage) {
		return Result{IsValid: false, Error: RefusalMessage}
	}

	var formula, explanation string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Formula:"):
			formula = strings.TrimSpace(strings.TrimPrefix(line, "Formula:"))
		case strings.HasPrefix(line, "Explanation:"):
			explanation = strings.TrimSpace(strings.TrimPrefix(line, "Explanation:"))
		case formula == "" && line != "":
			// Some responses skip the prefix and lead with the formula.
			formula = line
		}
	}

	if err := Validate(formula); err != nil {
		return Result{Formula: formula, Explanation: explanation, IsValid: false, Error: err.Error()}
	}
	return Result{Formula: formula, Explanation: explanation, IsValid: true}
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
