// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Results recorded against AjaxRequests.
const (
	ResultSuccess      = "success"
	ResultError        = "error"
	ResultUnrecognized = "unrecognized"
	ResultSecurity     = "security"
	ResultRaw          = "raw"
)

var (
	AjaxRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wcpe_ajax_requests_total",
		Help: "Storefront AJAX requests by action and result.",
	}, []string{"action", "result"})

	EnquiriesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wcpe_enquiries_submitted_total",
		Help: "Enquiries accepted and stored.",
	})
)

// ObserveAjax counts one AJAX request. Unknown actions are folded into a single label value.
func ObserveAjax(action, result string, known bool) {
	if !known {
		action = "unknown"
	}
	AjaxRequests.WithLabelValues(action, result).Inc()
}
