package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"zoning_portal_backend/internal/permits/transport"
	"zoning_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

var exportHeaders = []string{
	"Request ID",
	"Applicant",
	"Address",
	"Contact Number",
	"Corporation",
	"Project Type",
	"Project Nature",
	"Project Location",
	"Lot Area (sqm)",
	"Project Cost",
	"Status",
	"Workflow Status",
	"Assessed Amount",
	"Submitted At",
}

// Export writes the filtered request list as CSV.
func (h *Handler) Export(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListRequestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	rows, err := h.svc.ExportRows(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=land-use-requests.csv")
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(exportHeaders); err != nil {
		return
	}
	for _, row := range rows {
		if err := writer.Write(exportRecord(row)); err != nil {
			return
		}
	}
	writer.Flush()
}

func exportRecord(row transport.ExportRow) []string {
	assessed := ""
	if row.AssessedAmount != nil {
		assessed = row.AssessedAmount.StringFixed(2)
	}
	return []string{
		strconv.FormatInt(row.RequestID, 10),
		row.ApplicantName,
		row.ApplicantAddress,
		row.ContactNumber,
		row.CorporationName,
		row.ProjectType,
		row.ProjectNature,
		row.ProjectLocation,
		row.LotAreaSqm.String(),
		row.ProjectCost.StringFixed(2),
		row.EffectiveStatus,
		row.WorkflowStatus,
		assessed,
		row.SubmittedAt.UTC().Format(time.RFC3339),
	}
}
