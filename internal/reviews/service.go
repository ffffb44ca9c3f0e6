package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"phelipe-backend/internal/extract"
	"phelipe-backend/internal/llm"
	"phelipe-backend/internal/shared/metrics"
	"phelipe-backend/internal/shared/telemetry"
)

const (
	// analysisDateLayout matches the review timestamps shown in exports.
	analysisDateLayout = "02/01/2006 15:04"

	// MsgNoHistoryData is the answer when the question matched nothing.
	MsgNoHistoryData = "Nenhum dado encontrado na memória histórica."

	// MsgHistoryUnavailable is the answer when the record table could not be
	// read at all.
	MsgHistoryUnavailable = "Memória histórica indisponível."

	historyContextHeader = "📌 Casos semelhantes encontrados:"
)

// Service runs the review pipeline: aggregate uploaded documents, call the
// model, parse and normalize the result, classify the verdict and persist the
// terminal review row.
type Service struct {
	Repo Repo
	LLM  llm.Client

	// IssuingBody substitutes an empty orgao_decisao field.
	IssuingBody string

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// Answer is the result of a history question. HistoryAvailable distinguishes
// a readable-but-empty table from a table that could not be read.
type Answer struct {
	Text             string   `json:"answer"`
	Matches          []string `json:"matches"`
	HistoryAvailable bool     `json:"historyAvailable"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit runs one full synchronous review. The returned Review always carries
// a terminal status; on model failure the failed row is still persisted so the
// session leaves a trace, and the error is returned alongside it.
func (s *Service) Submit(ctx context.Context, docs []extract.SourceDocument, meta Metadata) (Review, error) {
	metrics.IncReviewStarted()
	started := s.now()
	reviewID := uuid.NewString()
	analysisDate := started.Format(analysisDateLayout)
	if strings.TrimSpace(meta.IssuingBody) == "" {
		meta.IssuingBody = s.IssuingBody
	}

	aggregated := extract.Aggregate(docs)
	telemetry.Info("review started", map[string]any{
		"review_id": reviewID,
		"documents": len(docs),
		"chars":     len(aggregated),
		"decision":  meta.DecisionNumber,
	})

	raw, err := s.LLM.Complete(ctx, BuildAnalysisPrompt(aggregated))
	if err != nil {
		review := s.failedReview(reviewID, meta, analysisDate, started, err)
		if createErr := s.Repo.Create(ctx, review); createErr != nil {
			telemetry.Error("persist failed review", map[string]any{"review_id": reviewID, "error": createErr.Error()})
		}
		metrics.IncReviewFailed()
		telemetry.Error("analysis call failed", map[string]any{"review_id": reviewID, "error": err.Error()})
		return review, fmt.Errorf("%w: %v", ErrLLMFailure, err)
	}

	fields, parsed := ParseResponse(raw)

	// The verdict is a second, isolated call; its failure degrades the
	// classification to unclassified but does not fail the review.
	verdict, verr := s.LLM.Complete(ctx, BuildVerdictPrompt(meta))
	if verr != nil {
		telemetry.Warn("verdict call failed", map[string]any{"review_id": reviewID, "error": verr.Error()})
		verdict = ""
	}
	label := Classify(verdict)

	record := BuildCaseRecord(fields, meta, label, analysisDate)
	completedAt := s.now()
	review := Review{
		ID:     reviewID,
		Status: StatusCompleted,
		Record: record,
		Insights: Insights{
			Patterns:      PatternInsights(fields),
			Prevention:    PreventionInsights(fields),
			ModusOperandi: ModusOperandi(fields),
		},
		DamageJustification: DamageJustification(fields),
		Verdict:             verdict,
		CreatedAt:           started,
		CompletedAt:         &completedAt,
	}
	if !parsed {
		// Keep the undecodable raw response for later inspection.
		review.RawResponse = &raw
	}

	if err := s.Repo.Create(ctx, review); err != nil {
		metrics.IncReviewFailed()
		return Review{}, fmt.Errorf("persist review: %w", err)
	}

	metrics.IncReviewCompleted()
	metrics.ObserveReviewDurationMs(float64(completedAt.Sub(started).Milliseconds()))
	telemetry.Info("review completed", map[string]any{
		"review_id":      reviewID,
		"classification": string(label),
		"parsed":         parsed,
		"duration_ms":    completedAt.Sub(started).Milliseconds(),
	})
	return review, nil
}

func (s *Service) failedReview(reviewID string, meta Metadata, analysisDate string, started time.Time, cause error) Review {
	msg := cause.Error()
	record := BuildCaseRecord(map[string]any{}, meta, LabelUnclassified, analysisDate)
	return Review{
		ID:           reviewID,
		Status:       StatusFailed,
		Record:       record,
		CreatedAt:    started,
		ErrorMessage: &msg,
	}
}

// AnswerQuestion answers a free-text question against the historical record
// table. The model is only called when at least one record matched; a table
// that cannot be read degrades to an unavailable answer instead of failing
// the question.
func (s *Service) AnswerQuestion(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("%w: empty question", ErrInvalidInput)
	}

	records, err := s.Repo.ListRecords(ctx)
	if err != nil {
		telemetry.Error("load history", map[string]any{"error": err.Error()})
		return Answer{Text: MsgHistoryUnavailable}, nil
	}

	matches := SearchHistory(records, question)
	if len(matches) == 0 {
		return Answer{Text: MsgNoHistoryData, HistoryAvailable: true}, nil
	}

	matchContext := historyContextHeader + "\n" + strings.Join(matches, "\n")
	text, err := s.LLM.Complete(ctx, BuildQuestionPrompt(question, matchContext))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrLLMFailure, err)
	}

	metrics.IncQuestionAnswered()
	telemetry.Info("question answered", map[string]any{"matches": len(matches)})
	return Answer{Text: text, Matches: matches, HistoryAvailable: true}, nil
}

// Export renders the CSV download for a completed review.
func (s *Service) Export(ctx context.Context, reviewID string) (string, []byte, error) {
	review, err := s.Repo.GetByID(ctx, reviewID)
	if err != nil {
		return "", nil, err
	}
	if review.Status != StatusCompleted {
		return "", nil, ErrExportUnavailable
	}
	data, err := ExportCSV(review.Record)
	if err != nil {
		return "", nil, err
	}
	return ExportFileName(review.Record.DecisionNumber), data, nil
}
