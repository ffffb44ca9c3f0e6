package reviews

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// csvHeader is the fixed export column order.
var csvHeader = []string{
	"data_analise",
	"servidor_uniseci",
	"num_decisao",
	"data_decisao",
	"num_processo_tce",
	"num_ppci",
	"num_recomendacao",
	"cod_responsavel",
	"orgao_decisao",
	"gestor",
	"recomendacao",
	"acao_gestor",
	"status_acao",
	"data_implementacao_gestor",
	"relatorio_tecnico",
	"analise_contextual",
	"classificacao_final",
	"insights_prevencao",
	"indicio_dano",
	"detalhe_dano",
	"observacoes_memoria",
}

// ExportCSV renders one CaseRecord as a UTF-8 CSV with a byte order mark, a
// header row and a single data row. The BOM keeps spreadsheet tools from
// mangling the accented Portuguese text.
func ExportCSV(rec CaseRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	row := []string{
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
		rec.Classification.Display(),
		rec.PreventionInsights,
		rec.DamageIndicated,
		rec.DamageDetail,
		rec.MemoryNotes,
	}
	if err := w.Write(row); err != nil {
		return nil, fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

var fileNameReplacer = strings.NewReplacer("/", "-", " ", "-")

// ExportFileName derives the download name from the decision number, with
// path separators and spaces replaced.
func ExportFileName(decisionNumber string) string {
	clean := fileNameReplacer.Replace(strings.TrimSpace(decisionNumber))
	if clean == "" {
		clean = "sem-decisao"
	}
	return fmt.Sprintf("phelipe_%s.csv", clean)
}
