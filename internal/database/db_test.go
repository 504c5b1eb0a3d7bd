package database

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/zaqqye/defense_backend_v1/internal/models"
)

func TestMigrateAndSeed(t *testing.T) {
	db, err := Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), true)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []interface{}{&models.DefenseSession{}, &models.Topic{}, &models.Registration{}, &models.Rubric{}, &models.Evaluation{}, &models.AppSetting{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Registration{}, "uniq_session_student"))

	require.NoError(t, SeedSettings(db))
	require.NoError(t, db.Model(&models.AppSetting{}).Where("key = ?", models.SettingForceOpenReport).Update("value", "true").Error)
	require.NoError(t, SeedSettings(db))

	var got models.AppSetting
	require.NoError(t, db.First(&got, "key = ?", models.SettingForceOpenReport).Error)
	assert.Equal(t, "true", got.Value)

	var n int64
	require.NoError(t, db.Model(&models.AppSetting{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}
