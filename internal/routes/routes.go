package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/allocation"
	"github.com/zaqqye/defense_backend_v1/internal/config"
	"github.com/zaqqye/defense_backend_v1/internal/controllers"
	"github.com/zaqqye/defense_backend_v1/internal/evaluation"
	"github.com/zaqqye/defense_backend_v1/internal/middleware"
	"github.com/zaqqye/defense_backend_v1/internal/outcomes"
	"github.com/zaqqye/defense_backend_v1/internal/registration"
	"github.com/zaqqye/defense_backend_v1/internal/rubric"
	"github.com/zaqqye/defense_backend_v1/internal/session"
	"github.com/zaqqye/defense_backend_v1/internal/settings"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/topic"
)

func Register(r *gin.Engine, st store.Store, cfg *config.Config, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	// Services
	settingsSvc := settings.NewService(st)
	sessionSvc := session.NewService(st)
	topicSvc := topic.NewService(st)
	regSvc := registration.NewService(st, settingsSvc, log)
	rubricSvc := rubric.NewService(st)
	evalSvc := evaluation.NewService(st)
	outcomeSvc := outcomes.NewService(st, log)
	engine := allocation.NewEngine(st, log, allocation.WithMaxAttempts(cfg.AllocationMaxAttempts))

	// Controllers
	sessionCtrl := &controllers.SessionController{Sessions: sessionSvc, Log: log}
	topicCtrl := &controllers.TopicController{Topics: topicSvc, Log: log}
	regCtrl := &controllers.RegistrationController{Registrations: regSvc, Engine: engine, Topics: topicSvc, Log: log}
	rubricCtrl := &controllers.RubricController{Rubrics: rubricSvc, Log: log}
	evalCtrl := &controllers.EvaluationController{Evaluations: evalSvc, Registrations: regSvc, Log: log}
	outcomeCtrl := &controllers.OutcomeController{Outcomes: outcomeSvc, Log: log}
	settingsCtrl := &controllers.SettingsController{Settings: settingsSvc, Log: log}

	adminOnly := middleware.RequireRoles(middleware.RoleAdmin)
	staff := middleware.RequireRoles(middleware.RoleSupervisor, middleware.RoleCouncil)
	students := middleware.RequireRoles(middleware.RoleStudent)
	evaluators := middleware.RequireRoles(middleware.RoleCouncil, middleware.RoleSupervisor, middleware.RoleCompany)

	api := r.Group("/api/v1", middleware.AuthMiddleware(middleware.AuthConfig{JWTSecret: cfg.JWTSecret}))
	{
		// Sessions
		api.GET("/sessions", sessionCtrl.List)
		api.GET("/sessions/:id", sessionCtrl.Get)
		api.POST("/sessions", adminOnly, sessionCtrl.Create)
		api.PUT("/sessions/:id/status", adminOnly, sessionCtrl.UpdateStatus)
		api.PUT("/sessions/:id/report-date", adminOnly, sessionCtrl.SetExpectedReportDate)

		// Topic catalog
		api.GET("/sessions/:id/topics", topicCtrl.List)
		api.GET("/sessions/:id/topics/available", topicCtrl.ListAvailable)
		api.POST("/sessions/:id/topics", middleware.RequireRoles(middleware.RoleSupervisor), topicCtrl.Create)
		api.POST("/sessions/:id/topics/import", adminOnly, topicCtrl.Import)
		api.GET("/topics/:id", topicCtrl.Get)
		api.PUT("/topics/:id", middleware.RequireRoles(middleware.RoleSupervisor), topicCtrl.Update)
		api.POST("/topics/:id/approve", adminOnly, topicCtrl.Approve)
		api.DELETE("/topics/:id", adminOnly, topicCtrl.Delete)

		// Registration ledger
		api.POST("/sessions/:id/registrations", adminOnly, regCtrl.Create)
		api.GET("/sessions/:id/registrations", staff, regCtrl.List)
		api.GET("/sessions/:id/registrations/me", students, regCtrl.Me)
		api.GET("/registrations/:id", regCtrl.Get)
		api.POST("/registrations/:id/topic", students, regCtrl.RegisterTopic)
		api.DELETE("/registrations/:id/topic", students, regCtrl.Cancel)
		api.GET("/registrations/:id/tracks/:track", regCtrl.Track)
		api.POST("/registrations/:id/tracks/:track", students, regCtrl.Submit)
		api.POST("/registrations/:id/tracks/:track/review",
			middleware.RequireRoles(middleware.RoleSupervisor, middleware.RoleCompany), regCtrl.Review)
		api.PUT("/registrations/:id/reporting", adminOnly, regCtrl.SetReporting)

		// Rubrics
		api.GET("/rubrics", rubricCtrl.List)
		api.GET("/rubrics/:id", rubricCtrl.Get)
		api.POST("/rubrics", adminOnly, rubricCtrl.Create)
		api.POST("/rubrics/:id/revisions", adminOnly, rubricCtrl.Revise)

		// Evaluations and outcomes
		api.PUT("/evaluations", evaluators, evalCtrl.Upsert)
		api.GET("/registrations/:id/evaluations", evalCtrl.ListForRegistration)
		api.GET("/sessions/:id/outcomes", middleware.RequireRoles(middleware.RoleCouncil), outcomeCtrl.Report)

		admin := api.Group("/admin", adminOnly)
		{
			admin.GET("/settings", settingsCtrl.List)
			admin.PUT("/settings/:key", settingsCtrl.Set)
		}
	}
}
