package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|invalid|disabled).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sprintboard_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// RoleDecisions counts role authority evaluations by capability and outcome (granted|denied).
	RoleDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sprintboard_role_decisions_total",
			Help: "Total number of role authority decisions",
		},
		[]string{"capability", "result"},
	)

	// SprintActivations counts activation attempts by result (activated|noop|conflict|error).
	SprintActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sprintboard_sprint_activations_total",
			Help: "Total number of sprint activation attempts",
		},
		[]string{"result"},
	)

	// TasksRolledOver counts unfinished tasks carried into a newly activated sprint.
	TasksRolledOver = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sprintboard_tasks_rolled_over_total",
			Help: "Total number of unfinished tasks rolled over between sprints",
		},
	)

	// Mutations counts committed board mutations by event type.
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sprintboard_mutations_total",
			Help: "Total number of committed board mutations",
		},
		[]string{"event"},
	)

	// ActiveSprints tracks how many workspaces currently have an active sprint.
	ActiveSprints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sprintboard_active_sprints",
			Help: "Number of active sprints across all workspaces",
		},
	)

	// OverdueSprints tracks active sprints whose end date has passed.
	OverdueSprints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sprintboard_overdue_sprints",
			Help: "Number of active sprints past their end date",
		},
	)

	// BacklogTasks tracks tasks without a sprint across all workspaces.
	BacklogTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sprintboard_backlog_tasks",
			Help: "Number of tasks in backlogs",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sprintboard_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
