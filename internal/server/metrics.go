package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	solvesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "manopt_solves_started_total",
		Help: "Number of solve jobs accepted by the API.",
	})

	solvesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manopt_solves_finished_total",
		Help: "Number of solve jobs finished, by outcome.",
	}, []string{"outcome"})

	solveIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "manopt_solve_iterations",
		Help:    "Iterations taken by completed solve jobs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "manopt_solve_duration_seconds",
		Help:    "Wall-clock duration of completed solve jobs.",
		Buckets: prometheus.DefBuckets,
	})
)
