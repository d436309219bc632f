package extract

import "github.com/abhisek/lumen/internal/llm"

// DocumentSchema is the response shape for document-wide extraction.
var DocumentSchema = &llm.Schema{
	Name:        "document-concepts",
	Description: "Key concepts a student must master from a document, each anchored to source chunks",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concepts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string", "description": "Concise concept name, 2-5 words"},
						"topic":       map[string]any{"type": "string", "description": "Broader topic the concept belongs to"},
						"description": map[string]any{"type": "string", "description": "One-sentence description"},
						"source_chunk_ids": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Ids of the chunks where the concept appears, copied from the source list",
						},
					},
					"required":             []any{"name", "topic", "description", "source_chunk_ids"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"concepts"},
		"additionalProperties": false,
	},
}

// ChunkSchema is the response shape for single-chunk extraction. The chunk
// is the only source, so no ids are requested.
var ChunkSchema = &llm.Schema{
	Name:        "chunk-concepts",
	Description: "One to three key concepts found in a single text excerpt",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concepts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"topic":       map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
					},
					"required":             []any{"name", "topic", "description"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"concepts"},
		"additionalProperties": false,
	},
}
