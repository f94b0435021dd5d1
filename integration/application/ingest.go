package application

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/AzielCF/az-connect/validations"
)

// MetricsIngestor stores telemetry samples reported for connected channels.
type MetricsIngestor struct {
	store ChannelStore
}

func NewMetricsIngestor(store ChannelStore) *MetricsIngestor {
	return &MetricsIngestor{store: store}
}

// Ingest replaces the metrics of a Connected channel.
func (i *MetricsIngestor) Ingest(ctx context.Context, chatbotID string, t channel.ChannelType, m channel.ChannelMetrics) (channel.Channel, error) {
	if err := validations.ValidateMetrics(ctx, m); err != nil {
		return channel.Channel{}, err
	}
	return i.store.Update(ctx, chatbotID, t, func(ch *channel.Channel) error {
		if ch.Status != channel.StatusConnected {
			return pkgError.InvalidStateError(fmt.Sprintf("metrics can only be reported for connected channels, %s is %s", ch.ID, ch.Status))
		}
		ch.Metrics = m
		if m.LastMessageAt != nil {
			at := *m.LastMessageAt
			ch.Metrics.LastMessageAt = &at
		}
		return nil
	})
}
