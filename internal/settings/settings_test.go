package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/store/memstore"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
	"github.com/zaqqye/defense_backend_v1/internal/workflow"
)

func TestPolicyDefaultsToClosed(t *testing.T) {
	svc := NewService(memstore.New())
	p, err := svc.Policy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.Policy{}, p)
}

func TestSetAndReadPolicy(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())
	require.NoError(t, svc.Seed(ctx))

	_, err := svc.Set(ctx, models.SettingForceOpenReport, SetSetting{Value: "true"})
	require.NoError(t, err)

	p, err := svc.Policy(ctx)
	require.NoError(t, err)
	assert.True(t, p.ForceOpenReport)
	assert.False(t, p.AllowEditApproved)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// seeding again keeps the admin's value
	require.NoError(t, svc.Seed(ctx))
	p, err = svc.Policy(ctx)
	require.NoError(t, err)
	assert.True(t, p.ForceOpenReport)
}

func TestSetRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	_, err := svc.Set(ctx, "maintenance_mode", SetSetting{Value: "true"})
	assert.ErrorIs(t, err, ErrUnknownSetting)

	_, err = svc.Set(ctx, models.SettingAllowEditApproved, SetSetting{Value: "sometimes"})
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Map(), "value")
}
