package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "podquest_queries_total",
	Help: "User queries dispatched, by mode.",
}, []string{"mode"})
