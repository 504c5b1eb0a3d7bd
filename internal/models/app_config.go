package models

import "time"

// Setting keys for policies owned outside the core workflow.
const (
	SettingAllowEditApproved = "allow_edit_approved"
	SettingForceOpenReport   = "force_open_report"
)

// AppSetting stores key/value policy flags managed via the admin API.
type AppSetting struct {
	Key         string    `gorm:"size:128;primaryKey" json:"key"`
	Value       string    `gorm:"type:text" json:"value"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
