package polyquery

import "time"

// ConnState is the enumerated connection lifecycle state.
type ConnState string

const (
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
	StateReconnecting ConnState = "reconnecting"
	StateClosed       ConnState = "closed"
)

// PoolStatus reports connection-pool figures.
type PoolStatus struct {
	Active  int
	Idle    int
	Waiting int
	Max     int
}

// ReconnectStatus reports reconnect-controller figures.
type ReconnectStatus struct {
	Enabled        bool
	Attempts       int
	LastDisconnect time.Time
}

// Status is the uniform connection-status shape returned by the
// router's status operation.
type Status struct {
	State     ConnState
	Backend   string
	Driver    string
	URI       string // redacted: credentials stripped
	Database  string
	Uptime    time.Duration
	Pool      PoolStatus
	Reconnect ReconnectStatus
}
