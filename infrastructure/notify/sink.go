package notify

import (
	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/sirupsen/logrus"
)

// LogSink writes notifications to the application log.
type LogSink struct{}

func (LogSink) Notify(kind channel.NotificationKind, message string) {
	entry := logrus.WithField("kind", string(kind))
	switch kind {
	case channel.NotificationError:
		entry.Warn("[NOTIFY] " + message)
	default:
		entry.Info("[NOTIFY] " + message)
	}
}

// Multi fans a notification out to every sink.
type Multi []channel.NotificationSink

func (m Multi) Notify(kind channel.NotificationKind, message string) {
	for _, s := range m {
		if s != nil {
			s.Notify(kind, message)
		}
	}
}
