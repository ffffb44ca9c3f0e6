package reviews

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func multipartSubmission(t *testing.T, fields map[string]string, fileNames []string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for _, name := range fileNames {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write([]byte("%PDF-1.4 fake content")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &body, w.FormDataContentType()
}

func validFormFields() map[string]string {
	return map[string]string{
		"num_decisao":  "123/2025",
		"status_acao":  "Implementada",
		"recomendacao": "Instituir controle de estoque.",
		"acao_gestor":  "Implantado sistema.",
		"gestor":       "Carlos Lima",
	}
}

func TestSubmitEndpointCreatesReview(t *testing.T) {
	repo := NewMemoryRepo()
	client := &scriptedLLM{responses: []string{
		"```json\n" +
			`{"relatorio_tecnico": "ok",
			  "insights_capacitacao": {"padroes_identificados": ["compras fracionadas"], "modus_operandi": ["pedidos fatiados"]},
			  "indicios_dano_erario": {"fundamentacao": "conforme mencionado na decisão"}}` +
			"\n```",
		"✅ Compatível.",
	}}
	router := newTestRouter(&Service{Repo: repo, LLM: client, Now: fixedClock()})

	body, contentType := multipartSubmission(t, validFormFields(), []string{"decisao.pdf"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if payload["status"] != StatusCompleted {
		t.Fatalf("status = %v", payload["status"])
	}
	reviewID, _ := payload["reviewId"].(string)
	if reviewID == "" {
		t.Fatal("missing reviewId")
	}
	if _, err := repo.GetByID(context.Background(), reviewID); err != nil {
		t.Fatalf("review not persisted: %v", err)
	}

	// The full insight lists and the damage grounding must reach the caller,
	// not just the tabular record.
	insights, _ := payload["insights"].(map[string]any)
	if insights == nil {
		t.Fatalf("missing insights block: %v", payload)
	}
	patterns, _ := insights["padroes_identificados"].([]any)
	if len(patterns) != 1 || patterns[0] != "compras fracionadas" {
		t.Fatalf("padroes_identificados = %v", insights["padroes_identificados"])
	}
	modus, _ := insights["modus_operandi"].([]any)
	if len(modus) != 1 || modus[0] != "pedidos fatiados" {
		t.Fatalf("modus_operandi = %v", insights["modus_operandi"])
	}
	if payload["damageJustification"] != "conforme mencionado na decisão" {
		t.Fatalf("damageJustification = %v", payload["damageJustification"])
	}
}

func TestSubmitEndpointValidation(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		files  []string
		want   string
	}{
		{
			name:   "missing files",
			fields: validFormFields(),
			files:  nil,
			want:   "at least one PDF file is required",
		},
		{
			name: "missing decision number",
			fields: map[string]string{
				"status_acao": "Implementada",
			},
			files: []string{"a.pdf"},
			want:  "num_decisao is required",
		},
		{
			name: "pending action status",
			fields: map[string]string{
				"num_decisao": "123/2025",
				"status_acao": "selecione...",
			},
			files: []string{"a.pdf"},
			want:  "status_acao must be selected",
		},
		{
			name: "unknown action status",
			fields: map[string]string{
				"num_decisao": "123/2025",
				"status_acao": "talvez",
			},
			files: []string{"a.pdf"},
			want:  "status_acao is not a recognized value",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&Service{Repo: NewMemoryRepo(), LLM: &scriptedLLM{}, Now: fixedClock()})

			body, contentType := multipartSubmission(t, tc.fields, tc.files)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", body)
			req.Header.Set("Content-Type", contentType)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
			}
			if !strings.Contains(resp.Body.String(), tc.want) {
				t.Fatalf("body = %s, want %q", resp.Body.String(), tc.want)
			}
		})
	}
}

func TestSubmitEndpointLLMFailure(t *testing.T) {
	client := &scriptedLLM{errs: []error{errors.New("quota exceeded")}}
	router := newTestRouter(&Service{Repo: NewMemoryRepo(), LLM: client, Now: fixedClock()})

	body, contentType := multipartSubmission(t, validFormFields(), []string{"a.pdf"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "reviewId") {
		t.Fatalf("body missing failed review id: %s", resp.Body.String())
	}
}

func TestExportEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	review := Review{
		ID:     "done",
		Status: StatusCompleted,
		Record: CaseRecord{DecisionNumber: "123/2025", Classification: LabelCompatible},
	}
	if err := repo.Create(context.Background(), review); err != nil {
		t.Fatalf("Create: %v", err)
	}
	router := newTestRouter(&Service{Repo: repo, LLM: &scriptedLLM{}, Now: fixedClock()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/done/export", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename="phelipe_123-2025.csv"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(resp.Body.String(), "\ufeff") {
		t.Fatal("export body missing BOM")
	}
}

func TestExportEndpointUnavailableForFailed(t *testing.T) {
	repo := NewMemoryRepo()
	msg := "boom"
	if err := repo.Create(context.Background(), Review{ID: "bad", Status: StatusFailed, ErrorMessage: &msg}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	router := newTestRouter(&Service{Repo: repo, LLM: &scriptedLLM{}, Now: fixedClock()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/bad/export", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d", resp.Code)
	}
}

func TestQuestionEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	seed := Review{
		ID:     "r-1",
		Status: StatusCompleted,
		Record: CaseRecord{DecisionNumber: "123/2025", Recommendation: "Controle de estoque."},
	}
	if err := repo.Create(context.Background(), seed); err != nil {
		t.Fatalf("Create: %v", err)
	}
	client := &scriptedLLM{responses: []string{"Caso recorrente."}}
	router := newTestRouter(&Service{Repo: repo, LLM: client, Now: fixedClock()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions", strings.NewReader(`{"question": "estoque"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var answer Answer
	if err := json.Unmarshal(resp.Body.Bytes(), &answer); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if answer.Text != "Caso recorrente." {
		t.Fatalf("Text = %q", answer.Text)
	}
	if len(answer.Matches) != 1 {
		t.Fatalf("Matches = %v", answer.Matches)
	}
	if !answer.HistoryAvailable {
		t.Fatal("HistoryAvailable must be true")
	}
}

func TestQuestionEndpointHistoryUnavailableDegrades(t *testing.T) {
	client := &scriptedLLM{}
	router := newTestRouter(&Service{Repo: failingRepo{}, LLM: client, Now: fixedClock()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions", strings.NewReader(`{"question": "estoque"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, an unreadable table must not fail the question", resp.Code)
	}

	var answer Answer
	if err := json.Unmarshal(resp.Body.Bytes(), &answer); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if answer.Text != MsgHistoryUnavailable {
		t.Fatalf("Text = %q", answer.Text)
	}
	if answer.HistoryAvailable {
		t.Fatal("HistoryAvailable must be false")
	}
	if client.calls != 0 {
		t.Fatalf("llm calls = %d", client.calls)
	}
}

func TestListEndpoint(t *testing.T) {
	repo := NewMemoryRepo()
	for _, review := range []Review{
		{ID: "a", Status: StatusCompleted, Record: CaseRecord{DecisionNumber: "1/2025"}},
		{ID: "b", Status: StatusFailed, Record: CaseRecord{DecisionNumber: "2/2025"}},
	} {
		if err := repo.Create(context.Background(), review); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	router := newTestRouter(&Service{Repo: repo, LLM: &scriptedLLM{}, Now: fixedClock()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews?limit=10", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	router := newTestRouter(&Service{Repo: NewMemoryRepo(), LLM: &scriptedLLM{}, Now: fixedClock()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d", resp.Code)
	}
}
