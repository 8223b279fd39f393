package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive live websocket sessions
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Live websocket sessions",
		},
	)

	// ConnectionsRejected gate refusals by reason
	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_connections_rejected_total",
			Help: "Connection attempts refused at the gate",
		},
		[]string{"reason"},
	)

	// EventsReceived inbound events by name, "invalid" for undecodable frames
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_received_total",
			Help: "Inbound websocket events",
		},
		[]string{"event"},
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_posted_total",
			Help: "Room messages appended to the log",
		},
	)

	PrivateMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_private_messages_sent_total",
			Help: "Private messages delivered to at least one session",
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rooms_created_total",
			Help: "Rooms created, explicitly or by joining an unknown id",
		},
	)

	// FramesDropped outbound frames lost to a full send buffer
	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_frames_dropped_total",
			Help: "Outbound frames dropped for slow consumers",
		},
	)

	MirrorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_side_channel_errors_total",
			Help: "Failed writes to the redis mirror or mongo archive",
		},
		[]string{"channel"},
	)
)
