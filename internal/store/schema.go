package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions migrated by Open. Migration is append-only: new columns
// and tables are added, nothing is dropped.
var (
	// DocumentsColumns holds the columns for the "documents" table.
	DocumentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "uploaded_at", Type: field.TypeTime},
	}
	// DocumentsTable holds the schema information for the "documents" table.
	DocumentsTable = &schema.Table{
		Name:       "documents",
		Columns:    DocumentsColumns,
		PrimaryKey: []*schema.Column{DocumentsColumns[0]},
	}

	// ChunksColumns holds the columns for the "chunks" table.
	ChunksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "document_id", Type: field.TypeString},
		{Name: "page_number", Type: field.TypeInt},
		{Name: "seq", Type: field.TypeInt, Default: 0},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "status", Type: field.TypeString, Default: string(ChunkPending)},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ChunksTable holds the schema information for the "chunks" table.
	ChunksTable = &schema.Table{
		Name:       "chunks",
		Columns:    ChunksColumns,
		PrimaryKey: []*schema.Column{ChunksColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "chunks_documents_chunks",
				Columns:    []*schema.Column{ChunksColumns[1]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "chunk_status",
				Unique:  false,
				Columns: []*schema.Column{ChunksColumns[5]},
			},
			{
				Name:    "chunk_document_id_seq",
				Unique:  false,
				Columns: []*schema.Column{ChunksColumns[1], ChunksColumns[3]},
			},
		},
	}

	// ConceptsColumns holds the columns for the "concepts" table.
	ConceptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "document_id", Type: field.TypeString, Nullable: true},
		{Name: "name", Type: field.TypeString},
		{Name: "topic", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: 2147483647},
		{Name: "bloom_level", Type: field.TypeInt, Default: 1},
		{Name: "mastery_score", Type: field.TypeFloat64, Default: 0},
		{Name: "correct_streak", Type: field.TypeInt, Default: 0},
		{Name: "last_reviewed_at", Type: field.TypeTime, Nullable: true},
		{Name: "review_count", Type: field.TypeInt, Default: 0},
		{Name: "needs_generation_level", Type: field.TypeInt, Default: 1},
		{Name: "source_chunk_ids", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ConceptsTable holds the schema information for the "concepts" table.
	ConceptsTable = &schema.Table{
		Name:       "concepts",
		Columns:    ConceptsColumns,
		PrimaryKey: []*schema.Column{ConceptsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "concepts_documents_concepts",
				Columns:    []*schema.Column{ConceptsColumns[1]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "concept_topic",
				Unique:  false,
				Columns: []*schema.Column{ConceptsColumns[3]},
			},
		},
	}

	// FlashcardsColumns holds the columns for the "flashcards" table.
	FlashcardsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "concept_id", Type: field.TypeString, Nullable: true},
		{Name: "document_id", Type: field.TypeString},
		{Name: "page_number", Type: field.TypeInt},
		{Name: "source_snippet", Type: field.TypeString, Size: 2147483647},
		{Name: "question", Type: field.TypeString, Size: 2147483647},
		{Name: "explanation", Type: field.TypeString, Size: 2147483647},
		{Name: "bloom_level", Type: field.TypeInt},
		{Name: "options", Type: field.TypeJSON, Nullable: true},
		{Name: "correct_answer", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// FlashcardsTable holds the schema information for the "flashcards" table.
	FlashcardsTable = &schema.Table{
		Name:       "flashcards",
		Columns:    FlashcardsColumns,
		PrimaryKey: []*schema.Column{FlashcardsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "flashcards_concepts_flashcards",
				Columns:    []*schema.Column{FlashcardsColumns[1]},
				RefColumns: []*schema.Column{ConceptsColumns[0]},
				OnDelete:   schema.SetNull,
			},
			{
				Symbol:     "flashcards_documents_flashcards",
				Columns:    []*schema.Column{FlashcardsColumns[2]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "flashcard_concept_id_bloom_level",
				Unique:  false,
				Columns: []*schema.Column{FlashcardsColumns[1], FlashcardsColumns[7]},
			},
		},
	}

	// InteractionsColumns holds the columns for the "review_interactions" table.
	InteractionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "flashcard_id", Type: field.TypeString},
		{Name: "concept_id", Type: field.TypeString, Nullable: true},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "confidence_before", Type: field.TypeInt},
		{Name: "bloom_level", Type: field.TypeInt},
		{Name: "time_taken_ms", Type: field.TypeInt64},
		{Name: "xp_earned", Type: field.TypeInt},
		{Name: "coins_earned", Type: field.TypeInt},
		{Name: "calibration_accuracy", Type: field.TypeFloat64},
		{Name: "timestamp", Type: field.TypeTime},
	}
	// InteractionsTable holds the schema information for the "review_interactions" table.
	InteractionsTable = &schema.Table{
		Name:       "review_interactions",
		Columns:    InteractionsColumns,
		PrimaryKey: []*schema.Column{InteractionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "review_interactions_flashcards_interactions",
				Columns:    []*schema.Column{InteractionsColumns[1]},
				RefColumns: []*schema.Column{FlashcardsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "review_interaction_concept_id",
				Unique:  false,
				Columns: []*schema.Column{InteractionsColumns[2]},
			},
		},
	}

	// PlayerResourcesColumns holds the columns for the "player_resources" table.
	PlayerResourcesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "capital", Type: field.TypeInt64, Default: 0},
		{Name: "venture_level", Type: field.TypeInt, Default: 1},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// PlayerResourcesTable holds the schema information for the "player_resources" table.
	PlayerResourcesTable = &schema.Table{
		Name:       "player_resources",
		Columns:    PlayerResourcesColumns,
		PrimaryKey: []*schema.Column{PlayerResourcesColumns[0]},
	}

	// LLMRequestEventsColumns holds the columns for the "llm_request_events" table.
	LLMRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	// LLMRequestEventsTable holds the schema information for the "llm_request_events" table.
	LLMRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LLMRequestEventsColumns,
		PrimaryKey: []*schema.Column{LLMRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "llmrequestevent_purpose",
				Unique:  false,
				Columns: []*schema.Column{LLMRequestEventsColumns[4]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DocumentsTable,
		ChunksTable,
		ConceptsTable,
		FlashcardsTable,
		InteractionsTable,
		PlayerResourcesTable,
		LLMRequestEventsTable,
	}
)

func init() {
	ChunksTable.ForeignKeys[0].RefTable = DocumentsTable
	ConceptsTable.ForeignKeys[0].RefTable = DocumentsTable
	FlashcardsTable.ForeignKeys[0].RefTable = ConceptsTable
	FlashcardsTable.ForeignKeys[1].RefTable = DocumentsTable
	InteractionsTable.ForeignKeys[0].RefTable = FlashcardsTable
}
