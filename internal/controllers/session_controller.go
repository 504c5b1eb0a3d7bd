package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/session"
	"github.com/zaqqye/defense_backend_v1/internal/utils"
)

type SessionController struct {
	Sessions *session.Service
	Log      *zap.Logger
}

func (sc *SessionController) List(c *gin.Context) {
	sessions, err := sc.Sessions.List(c.Request.Context())
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	page, meta := utils.Paginate(c, sessions)
	c.JSON(http.StatusOK, gin.H{"data": page, "meta": meta})
}

func (sc *SessionController) Get(c *gin.Context) {
	s, err := sc.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (sc *SessionController) Create(c *gin.Context) {
	var req session.NewSession
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s, err := sc.Sessions.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

type updateSessionStatusRequest struct {
	Status models.SessionStatus `json:"status"`
}

func (sc *SessionController) UpdateStatus(c *gin.Context) {
	var req updateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s, err := sc.Sessions.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type reportDateRequest struct {
	ExpectedReportDate *time.Time `json:"expected_report_date"`
}

func (sc *SessionController) SetExpectedReportDate(c *gin.Context) {
	var req reportDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s, err := sc.Sessions.SetExpectedReportDate(c.Request.Context(), c.Param("id"), req.ExpectedReportDate)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
