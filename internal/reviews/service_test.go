package reviews

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"phelipe-backend/internal/extract"
)

// scriptedLLM returns canned responses in call order.
type scriptedLLM struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	s.prompts = append(s.prompts, prompt)
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 8, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestSubmitHappyPath(t *testing.T) {
	repo := NewMemoryRepo()
	client := &scriptedLLM{responses: []string{
		"```json\n" +
			`{"relatorio_tecnico": "relatório ok", "analise_contextual": "viável",
			  "insights_capacitacao": {
			    "padroes_identificados": ["compras fracionadas"],
			    "sugestoes_prevencao": ["treinamento"],
			    "modus_operandi": ["pedidos abaixo do limite de licitação"]
			  },
			  "indicios_dano_erario": {"consta_dano": false, "descricao": "Não consta", "fundamentacao": "segundo o PPCI"}}` +
			"\n```",
		"✅ Compatível: ação comprovada.",
	}}
	svc := &Service{Repo: repo, LLM: client, Now: fixedClock()}

	docs := []extract.SourceDocument{{Name: "decisao.pdf", Pages: []string{"conteúdo"}}}
	review, err := svc.Submit(context.Background(), docs, sampleMetadata())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if review.Status != StatusCompleted {
		t.Fatalf("Status = %q", review.Status)
	}
	if review.Record.Classification != LabelCompatible {
		t.Fatalf("Classification = %q", review.Record.Classification)
	}
	if review.Record.TechnicalReport != "relatório ok" {
		t.Fatalf("TechnicalReport = %q", review.Record.TechnicalReport)
	}
	if review.Record.AnalysisDate != "15/08/2025 10:30" {
		t.Fatalf("AnalysisDate = %q", review.Record.AnalysisDate)
	}
	if review.RawResponse != nil {
		t.Fatal("RawResponse must be empty when the payload decoded")
	}
	if len(review.Insights.Patterns) != 1 || review.Insights.Patterns[0] != "compras fracionadas" {
		t.Fatalf("Insights.Patterns = %v", review.Insights.Patterns)
	}
	if len(review.Insights.ModusOperandi) != 1 || review.Insights.ModusOperandi[0] != "pedidos abaixo do limite de licitação" {
		t.Fatalf("Insights.ModusOperandi = %v", review.Insights.ModusOperandi)
	}
	if review.DamageJustification != "segundo o PPCI" {
		t.Fatalf("DamageJustification = %q", review.DamageJustification)
	}
	if client.calls != 2 {
		t.Fatalf("llm calls = %d", client.calls)
	}
	if !strings.Contains(client.prompts[0], "[decisao.pdf - Página 1]") {
		t.Fatal("analysis prompt missing aggregated document text")
	}
	if !strings.Contains(client.prompts[1], "Implementada") {
		t.Fatal("verdict prompt missing action status")
	}

	stored, err := repo.GetByID(context.Background(), review.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("stored Status = %q", stored.Status)
	}
}

func TestSubmitAnalysisFailurePersistsFailedReview(t *testing.T) {
	repo := NewMemoryRepo()
	client := &scriptedLLM{errs: []error{errors.New("quota exceeded")}}
	svc := &Service{Repo: repo, LLM: client, Now: fixedClock()}

	review, err := svc.Submit(context.Background(), nil, sampleMetadata())
	if !errors.Is(err, ErrLLMFailure) {
		t.Fatalf("err = %v, want ErrLLMFailure", err)
	}
	if review.Status != StatusFailed {
		t.Fatalf("Status = %q", review.Status)
	}
	if review.ErrorMessage == nil || !strings.Contains(*review.ErrorMessage, "quota exceeded") {
		t.Fatalf("ErrorMessage = %v", review.ErrorMessage)
	}

	stored, err := repo.GetByID(context.Background(), review.ID)
	if err != nil {
		t.Fatalf("failed review was not persisted: %v", err)
	}
	if stored.Status != StatusFailed {
		t.Fatalf("stored Status = %q", stored.Status)
	}
	if client.calls != 1 {
		t.Fatalf("llm calls = %d, verdict call must be skipped", client.calls)
	}
}

func TestSubmitVerdictFailureDegradesToUnclassified(t *testing.T) {
	repo := NewMemoryRepo()
	client := &scriptedLLM{
		responses: []string{"```json\n{\"relatorio_tecnico\": \"ok\"}\n```", ""},
		errs:      []error{nil, errors.New("timeout")},
	}
	svc := &Service{Repo: repo, LLM: client, Now: fixedClock()}

	review, err := svc.Submit(context.Background(), nil, sampleMetadata())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if review.Status != StatusCompleted {
		t.Fatalf("Status = %q", review.Status)
	}
	if review.Record.Classification != LabelUnclassified {
		t.Fatalf("Classification = %q", review.Record.Classification)
	}
}

func TestSubmitUnparsableResponseKeepsRawAndCompletes(t *testing.T) {
	repo := NewMemoryRepo()
	raw := "Desculpe, não consigo retornar JSON."
	client := &scriptedLLM{responses: []string{raw, "❌ Incompatível."}}
	svc := &Service{Repo: repo, LLM: client, Now: fixedClock()}

	review, err := svc.Submit(context.Background(), nil, sampleMetadata())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if review.Status != StatusCompleted {
		t.Fatalf("Status = %q", review.Status)
	}
	if review.Record.TechnicalReport != MsgNoJSON {
		t.Fatalf("TechnicalReport = %q", review.Record.TechnicalReport)
	}
	if review.Record.Classification != LabelIncompatible {
		t.Fatalf("Classification = %q", review.Record.Classification)
	}
	if review.RawResponse == nil || *review.RawResponse != raw {
		t.Fatalf("RawResponse = %v", review.RawResponse)
	}
	if len(review.Insights.Prevention) != 1 || review.Insights.Prevention[0] != "Nenhuma" {
		t.Fatalf("Insights.Prevention = %v", review.Insights.Prevention)
	}
	if review.DamageJustification != "Não consta" {
		t.Fatalf("DamageJustification = %q", review.DamageJustification)
	}
}

func TestSubmitSubstitutesDefaultIssuingBody(t *testing.T) {
	repo := NewMemoryRepo()
	client := &scriptedLLM{responses: []string{"{}", "✅ Compatível."}}
	svc := &Service{Repo: repo, LLM: client, IssuingBody: "TCE-MT", Now: fixedClock()}

	meta := sampleMetadata()
	meta.IssuingBody = ""
	review, err := svc.Submit(context.Background(), nil, meta)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if review.Record.IssuingBody != "TCE-MT" {
		t.Fatalf("IssuingBody = %q", review.Record.IssuingBody)
	}
}

func TestAnswerQuestionWithMatches(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	seed := Review{
		ID:     "r-1",
		Status: StatusCompleted,
		Record: CaseRecord{DecisionNumber: "123/2025", Recommendation: "Controle de estoque de medicamentos."},
	}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	client := &scriptedLLM{responses: []string{"Já ocorreu em 123/2025."}}
	svc := &Service{Repo: repo, LLM: client, Now: fixedClock()}

	answer, err := svc.AnswerQuestion(ctx, "estoque")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if answer.Text != "Já ocorreu em 123/2025." {
		t.Fatalf("Text = %q", answer.Text)
	}
	if len(answer.Matches) != 1 {
		t.Fatalf("Matches = %v", answer.Matches)
	}
	if !answer.HistoryAvailable {
		t.Fatal("HistoryAvailable must be true")
	}
	if !strings.Contains(client.prompts[0], "📌 Casos semelhantes encontrados:") {
		t.Fatal("prompt missing match context header")
	}
	if !strings.Contains(client.prompts[0], "- 123/2025: ") {
		t.Fatal("prompt missing match line")
	}
}

func TestAnswerQuestionNoMatchesSkipsModel(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: &scriptedLLM{}, Now: fixedClock()}

	answer, err := svc.AnswerQuestion(context.Background(), "nada parecido")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if answer.Text != MsgNoHistoryData {
		t.Fatalf("Text = %q", answer.Text)
	}
	if len(answer.Matches) != 0 {
		t.Fatalf("Matches = %v", answer.Matches)
	}
	if !answer.HistoryAvailable {
		t.Fatal("an empty-but-readable table still counts as available")
	}
}

type failingRepo struct {
	Repo
}

func (failingRepo) ListRecords(ctx context.Context) ([]CaseRecord, error) {
	return nil, errors.New("connection refused")
}

func TestAnswerQuestionHistoryUnavailableDegrades(t *testing.T) {
	client := &scriptedLLM{}
	svc := &Service{Repo: failingRepo{}, LLM: client, Now: fixedClock()}

	answer, err := svc.AnswerQuestion(context.Background(), "estoque")
	if err != nil {
		t.Fatalf("an unreadable table must degrade, not fail: %v", err)
	}
	if answer.Text != MsgHistoryUnavailable {
		t.Fatalf("Text = %q", answer.Text)
	}
	if answer.HistoryAvailable {
		t.Fatal("HistoryAvailable must be false when the table cannot be read")
	}
	if client.calls != 0 {
		t.Fatalf("llm calls = %d, model must not be called", client.calls)
	}
}

func TestAnswerQuestionBlankIsInvalid(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: &scriptedLLM{}, Now: fixedClock()}
	if _, err := svc.AnswerQuestion(context.Background(), "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestExportOnlyForCompleted(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	msg := "boom"
	if err := repo.Create(ctx, Review{ID: "failed", Status: StatusFailed, ErrorMessage: &msg}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, Review{
		ID:     "done",
		Status: StatusCompleted,
		Record: CaseRecord{DecisionNumber: "9/2025"},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc := &Service{Repo: repo, LLM: &scriptedLLM{}, Now: fixedClock()}

	if _, _, err := svc.Export(ctx, "failed"); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("Export(failed) = %v, want ErrExportUnavailable", err)
	}
	if _, _, err := svc.Export(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Export(missing) = %v, want ErrNotFound", err)
	}

	name, data, err := svc.Export(ctx, "done")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "phelipe_9-2025.csv" {
		t.Fatalf("name = %q", name)
	}
	if !strings.Contains(string(data), "9/2025") {
		t.Fatal("csv missing decision number")
	}
}
