// Package parser turns raw LLM output or raw transcript text into a
// structurally valid recipe. It is deterministic and performs no I/O, so a
// parse failure can always be recovered locally by the fallback path.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/reelchef/reelchef/internal/domain"
)

// ErrInvalidRecipe is returned when model output cannot be parsed into a
// recipe with at least one ingredient and one instruction. It is distinct
// from transport errors so callers can tell "bad output" from "no output"
// and only fall back in the former case.
var ErrInvalidRecipe = errors.New("invalid or empty recipe structure")

// Placeholder values used by the fallback parser.
const (
	fallbackRecipeName     = "Recipe from Social Media video"
	fallbackIngredientNote = "See transcription"
)

// quoteNormalizer maps typographic quotation marks to their ASCII
// equivalents before JSON parsing. Models trained on prose emit these often.
var quoteNormalizer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

// rawRecipe mirrors the expected model output shape, with instructions kept
// raw because models return them as strings, lists of strings, or lists of
// objects depending on their mood.
type rawRecipe struct {
	Name               string          `json:"name"`
	RecipeYield        string          `json:"recipeYield"`
	TotalTime          string          `json:"totalTime"`
	Description        string          `json:"description"`
	RecipeIngredient   []string        `json:"recipeIngredient"`
	RecipeInstructions json.RawMessage `json:"recipeInstructions"`
}

// ParseStructured extracts a validated recipe from free-form model output.
//
// It strips markdown code fences, normalizes typographic quotes, takes the
// span between the first '{' and the last '}' as the candidate JSON object,
// and requires the result to contain a non-empty ingredient list and a
// non-empty instruction list. Any failure is reported as ErrInvalidRecipe.
func ParseStructured(text string) (*domain.Recipe, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = quoteNormalizer.Replace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrInvalidRecipe)
	}

	var raw rawRecipe
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}

	if len(raw.RecipeIngredient) == 0 {
		return nil, fmt.Errorf("%w: missing recipeIngredient", ErrInvalidRecipe)
	}

	steps, err := normalizeInstructions(raw.RecipeInstructions)
	if err != nil {
		return nil, err
	}

	return &domain.Recipe{
		Name:               raw.Name,
		RecipeYield:        raw.RecipeYield,
		TotalTime:          raw.TotalTime,
		Description:        raw.Description,
		RecipeIngredient:   raw.RecipeIngredient,
		RecipeInstructions: steps,
	}, nil
}

// normalizeInstructions coerces the recipeInstructions field into a list of
// instruction steps: a scalar value becomes a single step, a list of
// scalars becomes one step per entry, and a list of objects has the text
// field of each entry taken as-is.
func normalizeInstructions(raw json.RawMessage) ([]domain.InstructionStep, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing recipeInstructions", ErrInvalidRecipe)
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}

	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("%w: missing recipeInstructions", ErrInvalidRecipe)
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty recipeInstructions", ErrInvalidRecipe)
		}
		steps := make([]domain.InstructionStep, 0, len(v))
		for _, entry := range v {
			steps = append(steps, domain.InstructionStep{Text: stringifyEntry(entry)})
		}
		return steps, nil
	default:
		return []domain.InstructionStep{{Text: stringifyEntry(v)}}, nil
	}
}

// stringifyEntry renders an instruction entry as plain text. Objects keep
// their text field when present; anything else is stringified.
func stringifyEntry(entry any) string {
	switch e := entry.(type) {
	case string:
		return e
	case map[string]any:
		if text, ok := e["text"].(string); ok {
			return text
		}
		return fmt.Sprint(e)
	default:
		return fmt.Sprint(e)
	}
}

// NaiveParse is the safety net: a heuristic parser over raw transcript text
// that always produces a structurally valid recipe, even from degenerate
// input. Fragments are split on sentence-terminating punctuation; a fragment
// containing at least one numeral is classified as an ingredient, everything
// else as an instruction step.
func NaiveParse(text string) *domain.Recipe {
	fragments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var ingredients []string
	var steps []domain.InstructionStep
	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if containsDigit(fragment) {
			ingredients = append(ingredients, fragment)
		} else {
			steps = append(steps, domain.InstructionStep{Text: fragment})
		}
	}

	if len(ingredients) == 0 {
		ingredients = []string{fallbackIngredientNote}
	}
	if steps == nil {
		steps = []domain.InstructionStep{}
	}

	return &domain.Recipe{
		Name:               fallbackRecipeName,
		RecipeIngredient:   ingredients,
		RecipeInstructions: steps,
	}
}

// ParseWithFallback tries the structured parser on the model output and
// falls back to the naive parse of the raw transcription when the output is
// unusable. The returned flag reports whether the fallback path was taken.
// This combinator cannot fail: a parse failure is recovered locally and must
// never surface as a task failure by itself.
func ParseWithFallback(modelText, transcription string) (*domain.Recipe, bool) {
	recipe, err := ParseStructured(modelText)
	if err != nil {
		return NaiveParse(transcription), true
	}
	return recipe, false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
