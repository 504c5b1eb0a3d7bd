package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/rubric"
	"github.com/zaqqye/defense_backend_v1/internal/utils"
)

type RubricController struct {
	Rubrics *rubric.Service
	Log     *zap.Logger
}

func (rc *RubricController) List(c *gin.Context) {
	rubrics, err := rc.Rubrics.List(c.Request.Context(), models.EvaluationType(c.Query("type")))
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	page, meta := utils.Paginate(c, rubrics)
	c.JSON(http.StatusOK, gin.H{"data": page, "meta": meta})
}

func (rc *RubricController) Get(c *gin.Context) {
	r, err := rc.Rubrics.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (rc *RubricController) Create(c *gin.Context) {
	var req rubric.NewRubric
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := rc.Rubrics.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// Revise stores a new version of the rubric; earlier versions stay readable.
func (rc *RubricController) Revise(c *gin.Context) {
	var req rubric.Revision
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := rc.Rubrics.Revise(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
