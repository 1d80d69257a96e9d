package domain

// InstructionStep is a single recipe instruction. Mealie expects every
// instruction as an object with a text field, never a bare string.
type InstructionStep struct {
	Text string `json:"text"`
}

// Recipe is the structured extraction result sent to the recipe store.
// Field names follow the schema.org recipe vocabulary used by Mealie.
type Recipe struct {
	Name               string            `json:"name"`
	RecipeYield        string            `json:"recipeYield,omitempty"`
	TotalTime          string            `json:"totalTime,omitempty"`
	RecipeIngredient   []string          `json:"recipeIngredient"`
	RecipeInstructions []InstructionStep `json:"recipeInstructions"`
	Description        string            `json:"description,omitempty"`
	OrgURL             string            `json:"orgURL,omitempty"`
}

// Valid reports whether the recipe carries the minimum structure the store
// requires: at least one ingredient and at least one instruction.
func (r *Recipe) Valid() bool {
	return len(r.RecipeIngredient) > 0 && len(r.RecipeInstructions) > 0
}
