package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/allocation"
	"github.com/zaqqye/defense_backend_v1/internal/middleware"
	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/registration"
	"github.com/zaqqye/defense_backend_v1/internal/topic"
	"github.com/zaqqye/defense_backend_v1/internal/utils"
	"github.com/zaqqye/defense_backend_v1/internal/workflow"
)

type RegistrationController struct {
	Registrations *registration.Service
	Engine        *allocation.Engine
	Topics        *topic.Service
	Log           *zap.Logger
}

// canView reports whether p may read reg.
func canView(p middleware.Principal, reg models.Registration) bool {
	switch p.Role {
	case middleware.RoleAdmin, middleware.RoleCouncil:
		return true
	case middleware.RoleStudent:
		return reg.StudentID == p.ID
	case middleware.RoleSupervisor:
		return reg.SupervisorID != "" && reg.SupervisorID == p.ID
	case middleware.RoleCompany:
		return reg.InternshipSupervisorID != "" && reg.InternshipSupervisorID == p.ID
	}
	return false
}

// canReview reports whether p may approve or reject a track of reg.
func canReview(p middleware.Principal, reg models.Registration, t workflow.Track) bool {
	if p.IsAdmin() {
		return true
	}
	if t == workflow.TrackInternship {
		return p.Role == middleware.RoleCompany && reg.InternshipSupervisorID == p.ID
	}
	return p.Role == middleware.RoleSupervisor && reg.SupervisorID == p.ID
}

// load fetches the registration named by :id and checks the caller may see it.
// It writes the response and returns false when the handler should stop.
func (rc *RegistrationController) load(c *gin.Context) (models.Registration, middleware.Principal, bool) {
	p, _ := middleware.CurrentPrincipal(c)
	reg, err := rc.Registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, rc.Log, err)
		return models.Registration{}, p, false
	}
	if !canView(p, reg) {
		forbidden(c)
		return models.Registration{}, p, false
	}
	return reg, p, true
}

type createRegistrationRequest struct {
	StudentID      FlexibleString `json:"student_id"`
	StudentDocID   FlexibleString `json:"student_doc_id"`
	StudentName    string         `json:"student_name"`
	SubCommitteeID *string        `json:"sub_committee_id"`
}

func (rc *RegistrationController) Create(c *gin.Context) {
	var req createRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	reg, err := rc.Registrations.Create(c.Request.Context(), registration.NewRegistration{
		SessionID:      c.Param("id"),
		StudentID:      req.StudentID.String(),
		StudentDocID:   req.StudentDocID.String(),
		StudentName:    req.StudentName,
		SubCommitteeID: req.SubCommitteeID,
	})
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// List returns the session ledger. Supervisors only see the students bound to
// their topics.
func (rc *RegistrationController) List(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	var (
		regs []models.Registration
		err  error
	)
	if p.Role == middleware.RoleSupervisor {
		regs, err = rc.Registrations.ListBySupervisor(c.Request.Context(), c.Param("id"), p.ID)
	} else {
		regs, err = rc.Registrations.List(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	page, meta := utils.Paginate(c, regs)
	c.JSON(http.StatusOK, gin.H{"data": page, "meta": meta})
}

func (rc *RegistrationController) Me(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	reg, err := rc.Registrations.FindByStudent(c.Request.Context(), c.Param("id"), p.ID)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

func (rc *RegistrationController) Get(c *gin.Context) {
	reg, _, ok := rc.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reg)
}

type registerTopicRequest struct {
	TopicID string `json:"topic_id" binding:"required"`
}

// RegisterTopic binds the caller's registration to a topic. A refusal because
// the topic filled up carries the remaining choices.
func (rc *RegistrationController) RegisterTopic(c *gin.Context) {
	var req registerTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	reg, p, ok := rc.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	guards, err := rc.guards(c, p)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	out, err := rc.Engine.Register(ctx, req.TopicID, reg.ID, guards...)
	if errors.Is(err, allocation.ErrCapacityExceeded) {
		avail, lerr := rc.Topics.ListAvailable(ctx, reg.SessionID)
		if lerr != nil {
			respondError(c, rc.Log, lerr)
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":  err.Error(),
			"code":   "CAPACITY_EXCEEDED",
			"topics": avail,
		})
		return
	}
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// guards returns the project-track policy for the caller. Admins may move any
// binding, including a rejected one that would otherwise hold its slot.
func (rc *RegistrationController) guards(c *gin.Context, p middleware.Principal) ([]allocation.Guard, error) {
	if p.IsAdmin() {
		return nil, nil
	}
	g, err := rc.Registrations.ProjectGuard(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return []allocation.Guard{g}, nil
}

func (rc *RegistrationController) Cancel(c *gin.Context) {
	reg, p, ok := rc.load(c)
	if !ok {
		return
	}
	guards, err := rc.guards(c, p)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	if err := rc.Engine.Cancel(c.Request.Context(), reg.ID, guards...); err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancelled"})
}

func (rc *RegistrationController) Track(c *gin.Context) {
	track, err := workflow.ParseTrack(c.Param("track"))
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	reg, _, ok := rc.load(c)
	if !ok {
		return
	}
	view, err := rc.Registrations.Track(c.Request.Context(), reg.ID, track)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (rc *RegistrationController) Submit(c *gin.Context) {
	track, err := workflow.ParseTrack(c.Param("track"))
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	var req registration.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	reg, p, ok := rc.load(c)
	if !ok {
		return
	}
	if !p.IsAdmin() && reg.StudentID != p.ID {
		forbidden(c)
		return
	}
	out, err := rc.Registrations.Submit(c.Request.Context(), reg.ID, track, req)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type reviewRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

func (rc *RegistrationController) Review(c *gin.Context) {
	track, err := workflow.ParseTrack(c.Param("track"))
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	reg, p, ok := rc.load(c)
	if !ok {
		return
	}
	if !canReview(p, reg, track) {
		forbidden(c)
		return
	}
	out, err := rc.Registrations.Review(c.Request.Context(), reg.ID, track, *req.Approve)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type reportingRequest struct {
	Type   models.EvaluationType  `json:"type"`
	Status models.ReportingStatus `json:"status"`
}

func (rc *RegistrationController) SetReporting(c *gin.Context) {
	var req reportingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := rc.Registrations.SetReportingStatus(c.Request.Context(), c.Param("id"), req.Type, req.Status)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
