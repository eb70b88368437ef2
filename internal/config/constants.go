package config

import "time"

const (
	// Realtime transport
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = 1 * time.Second
	WriteWait                = 10 * time.Second
	PongWait                 = 60 * time.Second
	PingPeriod               = (PongWait * 9) / 10
	MaxFrameSize             = 64 * 1024
	OutboundQueueLimit       = 100

	// REST
	DefaultHTTPTimeout = 10 * time.Second
	HistoryPageSize    = 50

	// Local storage keys
	TokenKey   = "jwt_token"
	ProfileKey = "user_info"
)
