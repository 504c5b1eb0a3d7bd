package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/outcomes"
)

type OutcomeController struct {
	Outcomes *outcomes.Service
	Log      *zap.Logger
}

// Report serves the per-student CLO table of a session:
// GET /sessions/:id/outcomes?type=graduation&source=council&rubric_id=...
func (oc *OutcomeController) Report(c *gin.Context) {
	rubricID := c.Query("rubric_id")
	if rubricID == "" {
		badRequest(c, "rubric_id is required")
		return
	}
	report, err := oc.Outcomes.Build(c.Request.Context(), c.Param("id"),
		models.EvaluationType(c.Query("type")), outcomes.Source(c.Query("source")), rubricID)
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"headers":          report.Headers,
		"rows":             report.Rows,
		"has_outcome_data": report.HasOutcomeData(),
	})
}
