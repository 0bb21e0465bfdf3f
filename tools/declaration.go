package tools

import (
	"encoding/json"
	"fmt"

	"github.com/carelinq/datachat/llm"
)

// DataToolDefinition builds the declared tool from remotely managed
// prompt text: a description and a JSON-schema parameters document.
func DataToolDefinition(description string, parametersJSON string) (llm.ToolDefinition, error) {
	var parameters map[string]any
	if err := json.Unmarshal([]byte(parametersJSON), &parameters); err != nil {
		return llm.ToolDefinition{}, fmt.Errorf("invalid tool parameters schema: %w", err)
	}
	return llm.ToolDefinition{
		Name:        DataToolName,
		Description: description,
		Parameters:  parameters,
	}, nil
}

// DefaultDataToolDefinition is the built-in declaration used when the
// remote configuration does not supply one.
func DefaultDataToolDefinition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: DataToolName,
		Description: "Only use this tool if there is explicit reference to a " +
			"\"Diabetes Datamart\" dataset. Retrieves and analyzes diabetes " +
			"management data: glycemic control, medication adherence, " +
			"complications, healthcare utilization, preventive care, risk " +
			"factors, treatment programs, costs, and demographics. Handles " +
			"individual-level and aggregate analyses.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				QuestionArg: map[string]any{
					"type": "string",
					"description": "A specific question or analysis request " +
						"related to the diabetes dataset, from simple retrieval " +
						"to comparative studies.",
				},
			},
			"required": []string{QuestionArg},
		},
	}
}
