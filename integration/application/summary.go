package application

import "github.com/AzielCF/az-connect/integration/domain/channel"

// Summary holds the dashboard figures computed over a chatbot's channels.
type Summary struct {
	TotalChannels       int     `json:"total_channels"`
	ConnectedCount      int     `json:"connected_count"`
	PendingCount        int     `json:"pending_count"`
	ErrorCount          int     `json:"error_count"`
	TotalMessages       int64   `json:"total_messages"`
	AverageResponseRate float64 `json:"average_response_rate"`
	TotalActiveUsers    int64   `json:"total_active_users"`
}

// Summarize aggregates the metrics of the connected channels. With nothing
// connected the average is 0.
func Summarize(channels []channel.Channel) Summary {
	s := Summary{TotalChannels: len(channels)}
	var rateSum float64
	for _, ch := range channels {
		switch ch.Status {
		case channel.StatusConnected:
			s.ConnectedCount++
			s.TotalMessages += ch.Metrics.TotalMessages
			s.TotalActiveUsers += ch.Metrics.ActiveUsers
			rateSum += ch.Metrics.ResponseRate
		case channel.StatusPending:
			s.PendingCount++
		case channel.StatusError:
			s.ErrorCount++
		case channel.StatusDisconnected:
		}
	}
	if s.ConnectedCount > 0 {
		s.AverageResponseRate = rateSum / float64(s.ConnectedCount)
	}
	return s
}
