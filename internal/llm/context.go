package llm

import "context"

// Purpose labels why a request was made. It is persisted with every
// llm_request event and drives the per-purpose usage report.
const (
	PurposeChunkExtract   = "chunk-extract"
	PurposeConceptExtract = "concept-extract"
	PurposeQuestionGen    = "question-gen"
	PurposeAnswerEval     = "answer-eval"
	PurposeRemediate      = "remediate"

	purposeUnknown = "unknown"
)

type purposeKey struct{}

func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return purposeUnknown
}
