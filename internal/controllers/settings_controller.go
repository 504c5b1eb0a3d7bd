package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/settings"
)

type SettingsController struct {
	Settings *settings.Service
	Log      *zap.Logger
}

func (sc *SettingsController) List(c *gin.Context) {
	items, err := sc.Settings.List(c.Request.Context())
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (sc *SettingsController) Set(c *gin.Context) {
	var req settings.SetSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s, err := sc.Settings.Set(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
