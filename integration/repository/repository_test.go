package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/pkg/crypto"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openGorm(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestChannelRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sealer, err := crypto.NewSealer("secret")
	require.NoError(t, err)
	db := openGorm(t)
	repo := NewChannelRepository(db, sealer)
	require.NoError(t, repo.InitSchema(ctx))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	passed := true
	ch := channel.New("bot-1", channel.ChannelTypeWhatsApp, now)
	ch.Status = channel.StatusConnected
	ch.Config = channel.ChannelConfig{AccessToken: "EAAB-secret", Settings: map[string]string{"phone_number_id": "111"}}
	ch.Metrics.TotalMessages = 42
	ch.LastSyncAt = &now
	ch.LastTestResult = &passed
	ch.Generation = 3
	require.NoError(t, repo.SaveChannel(ctx, ch))

	var raw ChannelModel
	require.NoError(t, db.First(&raw, "id = ?", ch.ID).Error)
	assert.NotContains(t, raw.AccessToken, "EAAB-secret")

	got, err := repo.LoadChannels(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EAAB-secret", got[0].Config.AccessToken)
	assert.Equal(t, "111", got[0].Config.Setting("phone_number_id"))
	assert.Equal(t, channel.StatusConnected, got[0].Status)
	assert.Equal(t, uint64(3), got[0].Generation)
	assert.Equal(t, int64(42), got[0].Metrics.TotalMessages)
	require.NotNil(t, got[0].LastTestResult)
	assert.True(t, *got[0].LastTestResult)

	ch.Status = channel.StatusError
	ch.ErrorMessage = "token revoked"
	require.NoError(t, repo.SaveChannel(ctx, ch))
	got, err = repo.LoadChannels(ctx, "bot-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "token revoked", got[0].ErrorMessage)

	other, err := repo.LoadChannels(ctx, "bot-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestBrandingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewBrandingRepository(openGorm(t))
	require.NoError(t, repo.InitSchema(ctx))

	b, err := repo.Branding(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, channel.DefaultBranding("bot-1"), b)

	b.Name = "Acme Helper"
	b.PrimaryColor = "#000000"
	require.NoError(t, repo.Save(ctx, b))
	b.WelcomeMessage = "Hola"
	require.NoError(t, repo.Save(ctx, b))

	got, err := repo.Branding(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestTestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	repo := NewTestHistoryRepository(db, "sqlite3")
	require.NoError(t, repo.InitSchema(ctx))
	require.NoError(t, repo.InitSchema(ctx))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, channel.TestRecord{
			ID:          string(rune('a' + i)),
			ChatbotID:   "bot-1",
			ChannelType: channel.ChannelTypeTelegram,
			Passed:      i%2 == 0,
			DurationMs:  int64(i * 10),
			TestedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Record(ctx, channel.TestRecord{ID: "z", ChatbotID: "bot-1", ChannelType: channel.ChannelTypeSMS, TestedAt: base}))

	recs, err := repo.List(ctx, "bot-1", channel.ChannelTypeTelegram, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "e", recs[0].ID)
	assert.Equal(t, "c", recs[2].ID)
	assert.True(t, recs[0].TestedAt.Equal(base.Add(4*time.Minute)))
	assert.Equal(t, channel.ChannelTypeTelegram, recs[0].ChannelType)
}

func TestRebind(t *testing.T) {
	pg := NewTestHistoryRepository(nil, "postgres")
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := NewTestHistoryRepository(nil, "sqlite3")
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
