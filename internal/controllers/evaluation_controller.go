package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/evaluation"
	"github.com/zaqqye/defense_backend_v1/internal/middleware"
	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/registration"
)

type EvaluationController struct {
	Evaluations   *evaluation.Service
	Registrations *registration.Service
	Log           *zap.Logger
}

// Upsert records the caller's score sheet. The evaluator role is the caller's
// account role.
func (ec *EvaluationController) Upsert(c *gin.Context) {
	var req evaluation.NewEvaluation
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, _ := middleware.CurrentPrincipal(c)
	who := evaluation.Evaluator{ID: p.ID, Role: models.EvaluatorRole(p.Role)}
	ev, created, err := ec.Evaluations.Upsert(c.Request.Context(), who, req)
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, ev)
}

func (ec *EvaluationController) ListForRegistration(c *gin.Context) {
	ctx := c.Request.Context()
	p, _ := middleware.CurrentPrincipal(c)
	reg, err := ec.Registrations.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	if !canView(p, reg) {
		forbidden(c)
		return
	}
	evals, err := ec.Evaluations.ListByRegistrations(ctx, []string{reg.ID},
		models.EvaluationType(c.Query("type")), c.Query("rubric_id"))
	if err != nil {
		respondError(c, ec.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": evals})
}
