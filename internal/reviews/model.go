package reviews

import (
	"strings"
	"time"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ActionStatus is the manager-reported implementation status of the remedial
// action, one of a fixed set selected by the reviewer.
type ActionStatus string

const (
	ActionStatusPending     ActionStatus = "pending-selection"
	ActionStatusImplemented ActionStatus = "implemented"
	ActionStatusInProgress  ActionStatus = "in-progress"
)

// ParseActionStatus accepts both the canonical enum values and the Portuguese
// form labels the UI submits.
func ParseActionStatus(raw string) (ActionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ActionStatusImplemented), "implementada":
		return ActionStatusImplemented, true
	case string(ActionStatusInProgress), "em implementação", "em implementacao":
		return ActionStatusInProgress, true
	case string(ActionStatusPending), "selecione...", "":
		return ActionStatusPending, true
	default:
		return ActionStatusPending, false
	}
}

// Display returns the Portuguese form label.
func (s ActionStatus) Display() string {
	switch s {
	case ActionStatusImplemented:
		return "Implementada"
	case ActionStatusInProgress:
		return "Em Implementação"
	default:
		return "selecione..."
	}
}

// Metadata carries the reviewer-entered decision fields. Recommendation and
// ManagerAction hold the full, untruncated text; truncation happens only when
// building the tabular CaseRecord.
type Metadata struct {
	DecisionNumber       string       `json:"num_decisao"`
	DecisionDate         string       `json:"data_decisao"`
	ProcessNumber        string       `json:"num_processo_tce"`
	IssuingBody          string       `json:"orgao_decisao"`
	Reviewer             string       `json:"servidor_uniseci"`
	PPCINumber           string       `json:"num_ppci"`
	RecommendationNumber string       `json:"num_recomendacao"`
	ResponsibleCode      string       `json:"cod_responsavel"`
	Manager              string       `json:"gestor"`
	Recommendation       string       `json:"recomendacao"`
	ManagerAction        string       `json:"acao_gestor"`
	ActionStatus         ActionStatus `json:"status_acao"`
	ManagerReportedDate  string       `json:"data_implementacao_gestor"`
}

// CaseRecord is one flat row of the append-only history table, also the CSV
// export unit. Field order mirrors the export column order.
type CaseRecord struct {
	AnalysisDate         string `json:"data_analise"`
	Reviewer             string `json:"servidor_uniseci"`
	DecisionNumber       string `json:"num_decisao"`
	DecisionDate         string `json:"data_decisao"`
	ProcessNumber        string `json:"num_processo_tce"`
	PPCINumber           string `json:"num_ppci"`
	RecommendationNumber string `json:"num_recomendacao"`
	ResponsibleCode      string `json:"cod_responsavel"`
	IssuingBody          string `json:"orgao_decisao"`
	Manager              string `json:"gestor"`
	Recommendation       string `json:"recomendacao"`
	ManagerAction        string `json:"acao_gestor"`
	ActionStatus         string `json:"status_acao"`
	ManagerReportedDate  string `json:"data_implementacao_gestor"`
	TechnicalReport      string `json:"relatorio_tecnico"`
	ContextualAnalysis   string `json:"analise_contextual"`
	Classification       Label  `json:"classificacao_final"`
	PreventionInsights   string `json:"insights_prevencao"`
	DamageIndicated      string `json:"indicio_dano"`
	DamageDetail         string `json:"detalhe_dano"`
	MemoryNotes          string `json:"observacoes_memoria"`
}

// Insights groups the capacity-building lists of the analysis payload. The
// tabular record keeps only the joined prevention list; the full lists live
// here.
type Insights struct {
	Patterns      []string `json:"padroes_identificados"`
	Prevention    []string `json:"sugestoes_prevencao"`
	ModusOperandi []string `json:"modus_operandi"`
}

// Review is one completed (or failed) analysis session. Reviews are
// append-only: a row is written once with its terminal status and never
// mutated.
type Review struct {
	ID                  string     `json:"id"`
	Status              string     `json:"status"`
	Record              CaseRecord `json:"record"`
	Insights            Insights   `json:"insights_capacitacao"`
	DamageJustification string     `json:"fundamentacao_dano"`
	Verdict             string     `json:"veredito"`
	RawResponse         *string    `json:"resposta_bruta,omitempty"`
	ErrorMessage        *string    `json:"error,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
}
