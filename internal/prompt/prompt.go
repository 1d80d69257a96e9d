// Package prompt builds the deterministic system and user prompts for
// recipe extraction.
package prompt

import (
	"fmt"
	"os"
)

// DefaultSystemPrompt instructs the model to return a schema.org-shaped
// recipe as strict JSON. Kept as a compiled-in default so the service works
// without any prompt file on disk.
const DefaultSystemPrompt = `You are a recipe parsing assistant. Your task is to carefully extract and format recipe information.

IMPORTANT RULES:
0. Always use English language and translate to English
1. Check spelling carefully for each word
2. Separate ingredients properly with commas
3. Use proper spacing between words
4. Format measurements consistently (e.g., "1 tsp", "2 tablespoons")
5. Each ingredient should be a complete, understandable phrase
6. Each instruction should be a complete sentence
7. Double-check the recipe name for accuracy
8. Use JSON format for the output, making sure it's valid and formatted correctly

Extract and format the following information:
1. Recipe name (clear and properly spelled)
2. List of ingredients (each with quantity and unit)
3. Step-by-step instructions that contain specific actions from the context of the Transcribed Audio (clear, complete sentences)
4. Servings/yield (if mentioned)
5. Total time (if mentioned)

Format the response EXACTLY as this JSON schema:
{
    "name": "Recipe Name Here",
    "recipeYield": "Serves X",
    "totalTime": "X minutes",
    "recipeIngredient": [
        "1 cup ingredient one",
        "2 tsp ingredient two"
    ],
    "recipeInstructions": [
        {"text": "Step one instruction."},
        {"text": "Step two instruction."}
    ]
}

If any field is not clearly present in the input, omit it from the JSON output.
Double-check your response for spelling and formatting before returning.

RETURN ONLY THE AFFOREMENTIONED JSON SCHEMA AND NOTHING ELSE.`

const userPromptTemplate = `Parse this recipe information into structured data.

This is the caption of the video, use it to get the exact ingredients and quantities:
%s

This is the Transcribed Audio. Use this to deduce what the recipe instructions are:
%s

Extract all recipe information and return it in JSON format as specified.`

// Build combines caption and transcription into the user prompt.
func Build(caption, transcription string) string {
	return fmt.Sprintf(userPromptTemplate, caption, transcription)
}

// LoadSystemPrompt reads the system prompt from the given path, falling
// back to the compiled-in default when the path is empty.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt from %s: %w", path, err)
	}
	return string(content), nil
}
