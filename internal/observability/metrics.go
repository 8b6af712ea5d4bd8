package observability

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterMetricsEndpoint exposes Prometheus metrics on /metrics.
func RegisterMetricsEndpoint(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

var (
	// EvaluationsTotal counts engine evaluation passes served over HTTP.
	EvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formbuilder_evaluations_total",
		Help: "Number of form evaluation passes served.",
	})

	// SubmissionsProcessed counts response submissions by outcome.
	SubmissionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formbuilder_submissions_processed_total",
		Help: "Number of response submissions processed by the worker.",
	}, []string{"result"})

	// OTPSends counts outbound OTP send calls by outcome.
	OTPSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formbuilder_otp_sends_total",
		Help: "Number of OTP send requests relayed.",
	}, []string{"outcome"})

	// OTPVerifies counts outbound OTP verify calls by outcome.
	OTPVerifies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formbuilder_otp_verifies_total",
		Help: "Number of OTP verify requests relayed.",
	}, []string{"outcome"})
)
