package channel

import "fmt"

type ChannelStatus string

const (
	StatusDisconnected ChannelStatus = "disconnected"
	StatusPending      ChannelStatus = "pending"
	StatusConnected    ChannelStatus = "connected"
	StatusError        ChannelStatus = "error"
)

// CanConnect reports whether connect is allowed from s.
func (s ChannelStatus) CanConnect() bool {
	switch s {
	case StatusDisconnected, StatusError:
		return true
	case StatusPending, StatusConnected:
		return false
	default:
		panic(fmt.Sprintf("channel: unknown status %q", string(s)))
	}
}

// CanDisconnect reports whether disconnect is allowed from s. Disconnecting a
// Pending channel abandons the running attempt.
func (s ChannelStatus) CanDisconnect() bool {
	switch s {
	case StatusConnected, StatusError, StatusPending:
		return true
	case StatusDisconnected:
		return false
	default:
		panic(fmt.Sprintf("channel: unknown status %q", string(s)))
	}
}

// Editable reports whether the channel config may be replaced.
func (s ChannelStatus) Editable() bool {
	switch s {
	case StatusDisconnected, StatusError:
		return true
	case StatusPending, StatusConnected:
		return false
	default:
		panic(fmt.Sprintf("channel: unknown status %q", string(s)))
	}
}

func (s ChannelStatus) Valid() bool {
	switch s {
	case StatusDisconnected, StatusPending, StatusConnected, StatusError:
		return true
	}
	return false
}
