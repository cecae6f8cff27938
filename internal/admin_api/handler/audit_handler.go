package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/financial-reconciliation-engine/internal/domain/audit"
	"github.com/financial-reconciliation-engine/internal/engine/export"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/gin-gonic/gin"
)

// AuditHandler handles HTTP requests for the audit trail
type AuditHandler struct {
	auditTrailService service.AuditTrailService
	exporter          *export.Exporter
	presenter         *Presenter
	logger            *slog.Logger
}

func NewAuditHandler(logger *slog.Logger, auditTrailService service.AuditTrailService, exporter *export.Exporter, presenter *Presenter) *AuditHandler {
	return &AuditHandler{
		auditTrailService: auditTrailService,
		exporter:          exporter,
		presenter:         presenter,
		logger:            logger,
	}
}

// AuditTrailResponse is the structured audit trail with the total formatted for display
type AuditTrailResponse struct {
	*audit.TrailReport
	FormattedTotal string `json:"formatted_total_amount"`
}

// Trail reports activity in [start, end). format=csv or format=xlsx returns a download
// instead of the JSON envelope.
func (h *AuditHandler) Trail(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	report, err := h.auditTrailService.GenerateAuditTrail(c.Request.Context(), c.Query("start"), c.Query("end"))
	if err != nil {
		respondServiceError(c, h.logger, "Audit trail generation", err)
		return
	}

	if format == export.FormatJSON {
		RespondOK(c, AuditTrailResponse{
			TrailReport:    report,
			FormattedTotal: h.presenter.formatter.Format(report.Summary.TotalAmount),
		})
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, format, report); err != nil {
		var formatErr export.ErrUnsupportedFormat
		if errors.As(err, &formatErr) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to encode audit trail", "format", string(format), "error", err)
		RespondInternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+format.FileName(report)+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// VerifyChain recomputes the audit hash chain. A broken chain is reported with 200 and valid=false.
func (h *AuditHandler) VerifyChain(c *gin.Context) {
	result, err := h.auditTrailService.VerifyChain(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, "Audit chain verification", err)
		return
	}
	RespondOK(c, result)
}
