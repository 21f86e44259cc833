package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Admission metrics
	ParticipantsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coboard_participants_connected",
			Help: "Currently admitted participants (host excluded)",
		},
	)

	AdmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coboard_admissions_total",
			Help: "Total participants admitted",
		},
	)

	AdmissionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coboard_admissions_rejected_total",
			Help: "Total admissions rejected for duplicate names",
		},
	)

	// Relay metrics
	DrawOpsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coboard_draw_ops_relayed_total",
			Help: "Total draw operations relayed by the host",
		},
		[]string{"kind"},
	)

	ChatRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coboard_chat_relayed_total",
			Help: "Total chat messages relayed by the host",
		},
	)

	SnapshotsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coboard_bootstrap_snapshots_total",
			Help: "Total canvas snapshots sent during join bootstrap",
		},
	)

	BroadcastErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coboard_broadcast_errors_total",
			Help: "Total per-recipient send failures during fan-out",
		},
	)
)
