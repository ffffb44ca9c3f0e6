package reviews

import "strings"

const (
	notAvailable = "Não disponível"
	notOnRecord  = "Não consta"
	noneListed   = "Nenhuma"

	// exportTruncateLen bounds the two long free-text inputs in the tabular
	// record; classification always sees the untruncated Metadata text.
	exportTruncateLen = 200
)

// damagePresentKeys lists every historical spelling of the damage-indication
// boolean, checked in fixed order. Older model revisions used the misspelled
// consta_rano.
var damagePresentKeys = []string{"consta_dano", "consta_rano", "consta_dano_erario"}

// BuildCaseRecord maps a parsed (possibly fallback) analysis result plus the
// reviewer metadata into one flat CaseRecord. The result object is
// model-controlled and may omit or mistype any field, so every access
// substitutes an explicit default instead of failing.
func BuildCaseRecord(fields map[string]any, meta Metadata, label Label, analysisDate string) CaseRecord {
	insights := nestedObject(fields, "insights_capacitacao")
	damage := nestedObject(fields, "indicios_dano_erario")

	damageIndicated := "Não"
	if damagePresent(damage) {
		damageIndicated = "Sim"
	}

	return CaseRecord{
		AnalysisDate:         analysisDate,
		Reviewer:             meta.Reviewer,
		DecisionNumber:       meta.DecisionNumber,
		DecisionDate:         meta.DecisionDate,
		ProcessNumber:        meta.ProcessNumber,
		PPCINumber:           meta.PPCINumber,
		RecommendationNumber: meta.RecommendationNumber,
		ResponsibleCode:      meta.ResponsibleCode,
		IssuingBody:          meta.IssuingBody,
		Manager:              meta.Manager,
		Recommendation:       truncateRunes(meta.Recommendation, exportTruncateLen),
		ManagerAction:        truncateRunes(meta.ManagerAction, exportTruncateLen),
		ActionStatus:         meta.ActionStatus.Display(),
		ManagerReportedDate:  meta.ManagerReportedDate,
		TechnicalReport:      stringField(fields, "relatorio_tecnico", notAvailable),
		ContextualAnalysis:   stringField(fields, "analise_contextual", notAvailable),
		Classification:       label,
		PreventionInsights:   strings.Join(listField(insights, "sugestoes_prevencao", noneListed), ", "),
		DamageIndicated:      damageIndicated,
		DamageDetail:         stringField(damage, "descricao", notOnRecord),
		MemoryNotes:          stringField(fields, "observacoes_memoria", noneListed),
	}
}

// PatternInsights returns the padroes_identificados list with defaults applied.
func PatternInsights(fields map[string]any) []string {
	return listField(nestedObject(fields, "insights_capacitacao"), "padroes_identificados", noneListed)
}

// PreventionInsights returns the sugestoes_prevencao list with defaults applied.
func PreventionInsights(fields map[string]any) []string {
	return listField(nestedObject(fields, "insights_capacitacao"), "sugestoes_prevencao", noneListed)
}

// ModusOperandi returns the modus_operandi list with defaults applied.
func ModusOperandi(fields map[string]any) []string {
	return listField(nestedObject(fields, "insights_capacitacao"), "modus_operandi", noneListed)
}

// DamageJustification returns the fundamentacao field of the damage object.
func DamageJustification(fields map[string]any) string {
	return stringField(nestedObject(fields, "indicios_dano_erario"), "fundamentacao", notOnRecord)
}

func damagePresent(damage map[string]any) bool {
	for _, key := range damagePresentKeys {
		if truthy(damage[key]) {
			return true
		}
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "sim":
			return true
		}
	}
	return false
}

func stringField(fields map[string]any, key, def string) string {
	if raw, ok := fields[key]; ok {
		if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}

// listField reads a list of strings, coercing a scalar value to a
// single-element list and dropping non-string entries.
func listField(fields map[string]any, key, def string) []string {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return []string{def}
	}
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return []string{def}
		}
		return out
	case []string:
		if len(v) == 0 {
			return []string{def}
		}
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{def}
		}
		return []string{v}
	default:
		return []string{def}
	}
}

func nestedObject(fields map[string]any, key string) map[string]any {
	if raw, ok := fields[key]; ok {
		if m, ok := raw.(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
