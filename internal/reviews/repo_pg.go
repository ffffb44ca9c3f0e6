package reviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const reviewColumns = `
id, status, data_analise, servidor_uniseci, num_decisao, data_decisao,
num_processo_tce, num_ppci, num_recomendacao, cod_responsavel, orgao_decisao,
gestor, recomendacao, acao_gestor, status_acao, data_implementacao_gestor,
relatorio_tecnico, analise_contextual, classificacao_final, insights_prevencao,
indicio_dano, detalhe_dano, observacoes_memoria, insights_capacitacao,
fundamentacao_dano, veredito, resposta_bruta, error_message, created_at,
completed_at`

// Create appends one review row.
func (r *PGRepo) Create(ctx context.Context, review Review) error {
	const query = `
INSERT INTO reviews (` + reviewColumns + `
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
          $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`

	insights, err := json.Marshal(review.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	var rawResponse sql.NullString
	if review.RawResponse != nil {
		rawResponse = sql.NullString{String: *review.RawResponse, Valid: true}
	}
	var errorMessage sql.NullString
	if review.ErrorMessage != nil {
		errorMessage = sql.NullString{String: *review.ErrorMessage, Valid: true}
	}
	var completedAt sql.NullTime
	if review.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *review.CompletedAt, Valid: true}
	}

	rec := review.Record
	_, err = r.DB.ExecContext(
		ctx,
		query,
		review.ID,
		review.Status,
		rec.AnalysisDate,
		rec.Reviewer,
		rec.DecisionNumber,
		rec.DecisionDate,
		rec.ProcessNumber,
		rec.PPCINumber,
		rec.RecommendationNumber,
		rec.ResponsibleCode,
		rec.IssuingBody,
		rec.Manager,
		rec.Recommendation,
		rec.ManagerAction,
		rec.ActionStatus,
		rec.ManagerReportedDate,
		rec.TechnicalReport,
		rec.ContextualAnalysis,
		string(rec.Classification),
		rec.PreventionInsights,
		rec.DamageIndicated,
		rec.DamageDetail,
		rec.MemoryNotes,
		string(insights),
		review.DamageJustification,
		review.Verdict,
		rawResponse,
		errorMessage,
		review.CreatedAt,
		completedAt,
	)
	return err
}

// GetByID fetches one review.
func (r *PGRepo) GetByID(ctx context.Context, reviewID string) (Review, error) {
	const query = `
SELECT ` + reviewColumns + `
FROM reviews
WHERE id = $1
LIMIT 1`
	review, err := scanReview(r.DB.QueryRowContext(ctx, query, reviewID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, err
	}
	return review, nil
}

// List returns reviews newest-first with limit/offset.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Review, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + reviewColumns + `
FROM reviews
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, review)
	}
	return out, rows.Err()
}

// ListRecords returns the records of completed reviews in append order.
func (r *PGRepo) ListRecords(ctx context.Context) ([]CaseRecord, error) {
	const query = `
SELECT data_analise, servidor_uniseci, num_decisao, data_decisao,
       num_processo_tce, num_ppci, num_recomendacao, cod_responsavel,
       orgao_decisao, gestor, recomendacao, acao_gestor, status_acao,
       data_implementacao_gestor, relatorio_tecnico, analise_contextual,
       classificacao_final, insights_prevencao, indicio_dano, detalhe_dano,
       observacoes_memoria
FROM reviews
WHERE status = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CaseRecord
	for rows.Next() {
		var rec CaseRecord
		var classification string
		if err := rows.Scan(
			&rec.AnalysisDate,
			&rec.Reviewer,
			&rec.DecisionNumber,
			&rec.DecisionDate,
			&rec.ProcessNumber,
			&rec.PPCINumber,
			&rec.RecommendationNumber,
			&rec.ResponsibleCode,
			&rec.IssuingBody,
			&rec.Manager,
			&rec.Recommendation,
			&rec.ManagerAction,
			&rec.ActionStatus,
			&rec.ManagerReportedDate,
			&rec.TechnicalReport,
			&rec.ContextualAnalysis,
			&classification,
			&rec.PreventionInsights,
			&rec.DamageIndicated,
			&rec.DamageDetail,
			&rec.MemoryNotes,
		); err != nil {
			return nil, err
		}
		rec.Classification = Label(classification)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (Review, error) {
	var review Review
	var classification string
	var insights string
	var rawResponse sql.NullString
	var errorMessage sql.NullString
	var completedAt sql.NullTime
	rec := &review.Record
	if err := row.Scan(
		&review.ID,
		&review.Status,
		&rec.AnalysisDate,
		&rec.Reviewer,
		&rec.DecisionNumber,
		&rec.DecisionDate,
		&rec.ProcessNumber,
		&rec.PPCINumber,
		&rec.RecommendationNumber,
		&rec.ResponsibleCode,
		&rec.IssuingBody,
		&rec.Manager,
		&rec.Recommendation,
		&rec.ManagerAction,
		&rec.ActionStatus,
		&rec.ManagerReportedDate,
		&rec.TechnicalReport,
		&rec.ContextualAnalysis,
		&classification,
		&rec.PreventionInsights,
		&rec.DamageIndicated,
		&rec.DamageDetail,
		&rec.MemoryNotes,
		&insights,
		&review.DamageJustification,
		&review.Verdict,
		&rawResponse,
		&errorMessage,
		&review.CreatedAt,
		&completedAt,
	); err != nil {
		return Review{}, err
	}
	rec.Classification = Label(classification)
	if insights != "" {
		if err := json.Unmarshal([]byte(insights), &review.Insights); err != nil {
			return Review{}, fmt.Errorf("unmarshal insights: %w", err)
		}
	}
	if rawResponse.Valid {
		review.RawResponse = &rawResponse.String
	}
	if errorMessage.Valid {
		review.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		review.CompletedAt = &completedAt.Time
	}
	return review, nil
}

var _ Repo = (*PGRepo)(nil)
