// Package settings manages the key/value policy flags admins can toggle.
package settings

import (
	"context"
	"errors"
	"strconv"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
	"github.com/zaqqye/defense_backend_v1/internal/workflow"
)

var ErrUnknownSetting = errors.New("unknown setting")

// Defaults lists every recognised setting with its initial value.
var Defaults = []models.AppSetting{
	{Key: models.SettingAllowEditApproved, Value: "false", Description: "Allow students to resubmit an approved topic or document"},
	{Key: models.SettingForceOpenReport, Value: "false", Description: "Open report submission regardless of the report window"},
}

func known(key string) bool {
	for _, d := range Defaults {
		if d.Key == key {
			return true
		}
	}
	return false
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Policy reads the workflow override flags. Missing or unparsable values
// count as false.
func (s *Service) Policy(ctx context.Context) (workflow.Policy, error) {
	allowEdit, err := s.flag(ctx, models.SettingAllowEditApproved)
	if err != nil {
		return workflow.Policy{}, err
	}
	forceOpen, err := s.flag(ctx, models.SettingForceOpenReport)
	if err != nil {
		return workflow.Policy{}, err
	}
	return workflow.Policy{AllowEditApproved: allowEdit, ForceOpenReport: forceOpen}, nil
}

func (s *Service) flag(ctx context.Context, key string) (bool, error) {
	setting, err := s.store.Settings().Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(setting.Value)
	if err != nil {
		return false, nil
	}
	return v, nil
}

type SetSetting struct {
	Value       string `json:"value" validate:"required"`
	Description string `json:"description"`
}

func (s *Service) Set(ctx context.Context, key string, in SetSetting) (models.AppSetting, error) {
	if !known(key) {
		return models.AppSetting{}, ErrUnknownSetting
	}
	if err := validation.Struct(in); err != nil {
		return models.AppSetting{}, err
	}
	if _, err := strconv.ParseBool(in.Value); err != nil {
		return models.AppSetting{}, validation.New("invalid setting value",
			validation.FieldError{Field: "value", Error: "value must be true or false"})
	}
	setting := models.AppSetting{Key: key, Value: in.Value, Description: in.Description}
	if setting.Description == "" {
		for _, d := range Defaults {
			if d.Key == key {
				setting.Description = d.Description
			}
		}
	}
	if err := s.store.Settings().Put(ctx, &setting); err != nil {
		return models.AppSetting{}, err
	}
	return setting, nil
}

func (s *Service) List(ctx context.Context) ([]models.AppSetting, error) {
	return s.store.Settings().List(ctx)
}

// Seed stores every default that is not present yet.
func (s *Service) Seed(ctx context.Context) error {
	for _, d := range Defaults {
		_, err := s.store.Settings().Get(ctx, d.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		setting := d
		if err := s.store.Settings().Put(ctx, &setting); err != nil {
			return err
		}
	}
	return nil
}
