package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DropOffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locker_dropoffs_total",
		Help: "Total number of successful drop-off allocations.",
	})

	PickupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locker_pickups_total",
		Help: "Total number of paid pick-ups.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "locker_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	RevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "locker_revenue_total",
		Help: "Accumulated revenue across all paid reservations.",
	})

	LockersAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "locker_pool_available",
		Help: "Current number of lockers available for allocation.",
	})
)
