package reviews

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"phelipe-backend/internal/extract"
	"phelipe-backend/internal/shared/server/respond"
)

const maxUploadSize = 20 << 20 // 20MB across all files

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches review routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.submit)
	rg.GET("/reviews", h.list)
	rg.GET("/reviews/:id", h.get)
	rg.GET("/reviews/:id/export", h.export)
	rg.POST("/questions", h.question)
}

func (h *Handler) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid multipart form", nil)
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "at least one PDF file is required", nil)
		return
	}

	meta, verr := metadataFromForm(c)
	if verr != "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, verr, nil)
		return
	}

	docs := make([]extract.SourceDocument, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		file, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read "+fh.Filename, nil)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read "+fh.Filename, nil)
			return
		}
		docs = append(docs, extract.ReadDocument(fh.Filename, data))
	}

	review, err := h.Svc.Submit(c.Request.Context(), docs, meta)
	if err != nil {
		switch {
		case errors.Is(err, ErrLLMFailure):
			// The failed review was still persisted; surface its ID so the
			// session can be inspected.
			respond.Error(c, http.StatusBadGateway, ErrorCodeLLM, "analysis call failed", gin.H{"reviewId": review.ID})
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to run review", nil)
		}
		return
	}

	c.Set("reviewId", review.ID)
	c.Set("classification", string(review.Record.Classification))
	respond.JSON(c, http.StatusCreated, toResponse(review))
}

func metadataFromForm(c *gin.Context) (Metadata, string) {
	status, ok := ParseActionStatus(c.PostForm("status_acao"))
	if !ok {
		return Metadata{}, "status_acao is not a recognized value"
	}
	if status == ActionStatusPending {
		return Metadata{}, "status_acao must be selected"
	}

	meta := Metadata{
		DecisionNumber:       strings.TrimSpace(c.PostForm("num_decisao")),
		DecisionDate:         strings.TrimSpace(c.PostForm("data_decisao")),
		ProcessNumber:        strings.TrimSpace(c.PostForm("num_processo_tce")),
		IssuingBody:          strings.TrimSpace(c.PostForm("orgao_decisao")),
		Reviewer:             strings.TrimSpace(c.PostForm("servidor_uniseci")),
		PPCINumber:           strings.TrimSpace(c.PostForm("num_ppci")),
		RecommendationNumber: strings.TrimSpace(c.PostForm("num_recomendacao")),
		ResponsibleCode:      strings.TrimSpace(c.PostForm("cod_responsavel")),
		Manager:              strings.TrimSpace(c.PostForm("gestor")),
		Recommendation:       c.PostForm("recomendacao"),
		ManagerAction:        c.PostForm("acao_gestor"),
		ActionStatus:         status,
		ManagerReportedDate:  strings.TrimSpace(c.PostForm("data_implementacao_gestor")),
	}
	if meta.DecisionNumber == "" {
		return Metadata{}, "num_decisao is required"
	}
	return meta, ""
}

func (h *Handler) get(c *gin.Context) {
	review, err := h.Svc.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "review not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch review", nil)
		}
		return
	}
	respond.OK(c, toResponse(review))
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 100 {
		limit = 100
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Svc.Repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list reviews", nil)
		return
	}

	resp := make([]gin.H, 0, len(list))
	for _, review := range list {
		resp = append(resp, gin.H{
			"reviewId":       review.ID,
			"status":         review.Status,
			"decisionNumber": review.Record.DecisionNumber,
			"classification": review.Record.Classification,
			"createdAt":      review.CreatedAt,
		})
	}
	respond.OK(c, resp)
}

func (h *Handler) export(c *gin.Context) {
	name, data, err := h.Svc.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "review not found", nil)
		case errors.Is(err, ErrExportUnavailable):
			respond.Error(c, http.StatusConflict, ErrorCodeExport, "export only available for completed reviews", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to export review", nil)
		}
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

type questionRequest struct {
	Question string `json:"question"`
}

func (h *Handler) question(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	answer, err := h.Svc.AnswerQuestion(c.Request.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "question is required", nil)
		case errors.Is(err, ErrLLMFailure):
			respond.Error(c, http.StatusBadGateway, ErrorCodeLLM, "question call failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to answer question", nil)
		}
		return
	}
	respond.OK(c, answer)
}

func toResponse(review Review) gin.H {
	resp := gin.H{
		"reviewId":            review.ID,
		"status":              review.Status,
		"record":              review.Record,
		"insights":            review.Insights,
		"damageJustification": review.DamageJustification,
		"verdict":             review.Verdict,
		"createdAt":           review.CreatedAt,
	}
	if review.CompletedAt != nil {
		resp["completedAt"] = review.CompletedAt
	}
	if review.RawResponse != nil {
		resp["rawResponse"] = *review.RawResponse
	}
	if review.ErrorMessage != nil {
		resp["error"] = *review.ErrorMessage
	}
	return resp
}
