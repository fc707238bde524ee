package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stockRow struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100"`
	Available int64
	CreatedAt time.Time
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&stockRow{}))
	return db
}

func TestSQLVerb(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM stock_rows":      "SELECT",
		"  insert into stock_rows ...":  "INSERT",
		"\nUpdate stock_rows SET a = 1": "UPDATE",
		"delete from stock_rows":        "DELETE",
		"WITH x AS (SELECT 1) SELECT 1": "OTHER",
		"":                              "OTHER",
	}
	for sql, want := range tests {
		assert.Equal(t, want, sqlVerb(sql), sql)
	}
}

func TestRegisterAround(t *testing.T) {
	db := openTestDB(t)

	var befores int
	var verbs []string
	var timed []bool
	require.NoError(t, registerAround(db, "timing",
		func(tx *gorm.DB) {
			befores++
			markQueryStart(tx)
		},
		func(tx *gorm.DB, verb string) {
			verbs = append(verbs, verb)
			_, ok := queryElapsed(tx)
			timed = append(timed, ok)
		}))

	require.NoError(t, db.Create(&stockRow{Name: "Steel Beam", Available: 4}).Error)
	var found stockRow
	require.NoError(t, db.First(&found).Error)
	require.NoError(t, db.Model(&found).Update("available", 3).Error)
	require.NoError(t, db.Exec("DELETE FROM stock_rows WHERE available < 0").Error)
	var n int64
	require.NoError(t, db.Raw("SELECT count(*) FROM stock_rows").Row().Scan(&n))
	require.NoError(t, db.Delete(&found).Error)

	assert.Equal(t, []string{"INSERT", "SELECT", "UPDATE", "DELETE", "SELECT", "DELETE"}, verbs)
	assert.Equal(t, len(verbs), befores)
	for _, ok := range timed {
		assert.True(t, ok)
	}
	assert.Equal(t, int64(1), n)
}

func TestQueryElapsed_WithoutStart(t *testing.T) {
	db := openTestDB(t)
	_, ok := queryElapsed(db.Session(&gorm.Session{}))
	assert.False(t, ok)
}
