package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSeedTestData(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:seed?mode=memory&cache=shared"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, Migrate(gdb))

	account := NewUser(42)
	require.NoError(t, gdb.Create(account).Error)

	// twice: the second run replaces the first
	require.NoError(t, SeedTestData(gdb))
	require.NoError(t, SeedTestData(gdb))

	var users int64
	require.NoError(t, gdb.Model(&User{}).Count(&users).Error)
	assert.Equal(t, int64(21), users, "real accounts survive reseeding")

	var matches []Match
	require.NoError(t, gdb.Find(&matches).Error)
	for _, m := range matches {
		assert.Less(t, m.User1ID, m.User2ID)
		var n int64
		require.NoError(t, gdb.Model(&Interaction{}).
			Where("action = ? AND ((user_id = ? AND target_user_id = ?) OR (user_id = ? AND target_user_id = ?))",
				ActionLike, m.User1ID, m.User2ID, m.User2ID, m.User1ID).
			Count(&n).Error)
		assert.Equal(t, int64(2), n, "every match is backed by two likes")
	}
}
