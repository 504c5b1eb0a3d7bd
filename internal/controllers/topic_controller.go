package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/middleware"
	"github.com/zaqqye/defense_backend_v1/internal/topic"
	"github.com/zaqqye/defense_backend_v1/internal/utils"
)

type TopicController struct {
	Topics *topic.Service
	Log    *zap.Logger
}

// ListAvailable is the student-facing topic browser.
func (tc *TopicController) ListAvailable(c *gin.Context) {
	avail, err := tc.Topics.ListAvailable(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": avail})
}

func (tc *TopicController) List(c *gin.Context) {
	topics, err := tc.Topics.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	page, meta := utils.Paginate(c, topics)
	c.JSON(http.StatusOK, gin.H{"data": page, "meta": meta})
}

func (tc *TopicController) Get(c *gin.Context) {
	t, err := tc.Topics.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Create stores a draft. Supervisors always propose under their own id.
func (tc *TopicController) Create(c *gin.Context) {
	var req topic.NewTopic
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, _ := middleware.CurrentPrincipal(c)
	if p.Role == middleware.RoleSupervisor {
		req.SupervisorID = p.ID
		if req.SupervisorName == "" {
			req.SupervisorName = p.Name
		}
	}
	t, err := tc.Topics.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (tc *TopicController) Update(c *gin.Context) {
	var req topic.UpdateTopic
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	p, _ := middleware.CurrentPrincipal(c)
	if !p.IsAdmin() {
		current, err := tc.Topics.Get(ctx, c.Param("id"))
		if err != nil {
			respondError(c, tc.Log, err)
			return
		}
		if current.SupervisorID != p.ID {
			forbidden(c)
			return
		}
	}
	t, err := tc.Topics.Update(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (tc *TopicController) Approve(c *gin.Context) {
	t, err := tc.Topics.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type importTopicsRequest struct {
	Topics []topic.NewTopic `json:"topics"`
}

func (tc *TopicController) Import(c *gin.Context) {
	var req importTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := tc.Topics.Import(c.Request.Context(), c.Param("id"), req.Topics)
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created, "meta": gin.H{"total": len(created)}})
}

func (tc *TopicController) Delete(c *gin.Context) {
	if err := tc.Topics.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
