package services

import (
	"testing"

	"streetpass-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForPoints(t *testing.T) {
	assert.Equal(t, 1, LevelForPoints(0))
	assert.Equal(t, 1, LevelForPoints(499))
	assert.Equal(t, 2, LevelForPoints(500))
	// level 2 → 3 needs floor(500 * 2^1.2) = 1148 more
	assert.Equal(t, 2, LevelForPoints(1647))
	assert.Equal(t, 3, LevelForPoints(1648))
}

func TestEnsureUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	t.Run("creates on first association and normalizes the wallet", func(t *testing.T) {
		user, err := svc.EnsureUser("  0xAbCdEf0123456789  ")
		require.NoError(t, err)
		assert.Equal(t, "0xabcdef0123456789", user.WalletAddress)
		assert.Equal(t, int64(0), user.TotalPoints)
		assert.Equal(t, 1, user.Level)
	})

	t.Run("idempotent per normalized wallet", func(t *testing.T) {
		first, err := svc.EnsureUser("0xAAAA")
		require.NoError(t, err)
		second, err := svc.EnsureUser("0xaaaa")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		require.NoError(t, db.Model(&models.User{}).Where("wallet_address = ?", "0xaaaa").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects empty wallet", func(t *testing.T) {
		_, err := svc.EnsureUser("   ")
		assert.Error(t, err)
	})
}

func TestSetUsername(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	alice := seedUser(t, db, "0x1111", 0)
	bob := seedUser(t, db, "0x2222", 0)

	updated, err := svc.SetUsername(alice.ID, "wanderer")
	require.NoError(t, err)
	require.NotNil(t, updated.Username)
	assert.Equal(t, "wanderer", *updated.Username)

	_, err = svc.SetUsername(bob.ID, "wanderer")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.SetUsername("no-such-user", "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreditPoints(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, "0x3333", 100)

	// Two credits issued against the same stale snapshot must both land:
	// the increment happens in SQL, not via read-add-write.
	_, err := svc.CreditPoints(db, user.ID, 50, "first")
	require.NoError(t, err)
	after, err := svc.CreditPoints(db, user.ID, 50, "second")
	require.NoError(t, err)
	assert.Equal(t, int64(200), after.TotalPoints)

	t.Run("recomputes level past the threshold", func(t *testing.T) {
		leveled, err := svc.CreditPoints(db, user.ID, 400, "level up")
		require.NoError(t, err)
		assert.Equal(t, int64(600), leveled.TotalPoints)
		assert.Equal(t, 2, leveled.Level)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.CreditPoints(db, "no-such-user", 10, "noop")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
