package application

import (
	"context"
	"testing"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_ConnectedOnly(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	ing := NewMetricsIngestor(f.store)
	ctx := context.Background()

	last := time.Now().UTC()
	ch, err := ing.Ingest(ctx, "bot-1", channel.ChannelTypeWebsite, channel.ChannelMetrics{
		TotalMessages: 120, ResponseRate: 95.5, ActiveUsers: 30, LastMessageAt: &last,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(120), ch.Metrics.TotalMessages)

	_, err = ing.Ingest(ctx, "bot-1", channel.ChannelTypeSMS, channel.ChannelMetrics{TotalMessages: 1})
	var is pkgError.InvalidStateError
	assert.ErrorAs(t, err, &is)
	assert.Zero(t, f.get(t, channel.ChannelTypeSMS).Metrics.TotalMessages)
}

func TestIngest_RejectsOutOfRange(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	ing := NewMetricsIngestor(f.store)

	_, err := ing.Ingest(context.Background(), "bot-1", channel.ChannelTypeWebsite, channel.ChannelMetrics{ResponseRate: 140})
	var ve pkgError.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = ing.Ingest(context.Background(), "bot-1", channel.ChannelTypeWebsite, channel.ChannelMetrics{TotalMessages: -1})
	assert.ErrorAs(t, err, &ve)
}

func TestIngest_MetricsResetOnDisconnect(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	ing := NewMetricsIngestor(f.store)
	ctx := context.Background()

	_, err := ing.Ingest(ctx, "bot-1", channel.ChannelTypeWebsite, channel.ChannelMetrics{TotalMessages: 5})
	require.NoError(t, err)
	ch, err := f.orch.Disconnect(ctx, "bot-1", channel.ChannelTypeWebsite)
	require.NoError(t, err)
	assert.Zero(t, ch.Metrics.TotalMessages)
}
