package reviews

import (
	"encoding/json"
	"strings"
)

const (
	// MsgNoJSON is the diagnostic carried by the fallback result when the
	// response holds no JSON payload at all.
	MsgNoJSON = "Erro: não foi possível extrair o JSON da resposta do modelo."

	// MsgInvalidJSON is the diagnostic carried by the fallback result when a
	// payload was found but did not decode.
	MsgInvalidJSON = "Erro: o modelo retornou um JSON inválido."

	jsonFenceOpen  = "```json"
	jsonFenceClose = "```"
)

// ParseResponse extracts a single JSON object from a free-form model response.
// A fenced ```json block wins; the first opener is paired with the nearest
// subsequent closing fence. Without a fence, a response that is one trimmed
// {...} object is decoded whole. Nested braces are handled by the decoder, not
// by brace counting.
//
// The second return value reports whether a real payload was decoded. On any
// failure the result is a fallback carrying only a diagnostic
// relatorio_tecnico; missing fields are defaulted later by BuildCaseRecord.
func ParseResponse(raw string) (map[string]any, bool) {
	payload, found := extractPayload(raw)
	if !found {
		return map[string]any{"relatorio_tecnico": MsgNoJSON}, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields == nil {
		return map[string]any{"relatorio_tecnico": MsgInvalidJSON}, false
	}
	return fields, true
}

func extractPayload(raw string) (string, bool) {
	if start := strings.Index(raw, jsonFenceOpen); start != -1 {
		rest := raw[start+len(jsonFenceOpen):]
		end := strings.Index(rest, jsonFenceClose)
		if end == -1 {
			return "", false
		}
		return strings.TrimSpace(rest[:end]), true
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, true
	}
	return "", false
}
