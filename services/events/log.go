package eventsvc

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
)

// LogSink writes triggered events to the application log and counts them per event name.
type LogSink struct {
	hostURL   string
	logger    core.Logger
	triggered *prometheus.CounterVec
}

var _ gradereview.EventSink = (*LogSink)(nil) // interface compliance check

// NewLogSink registers the event counter with reg; a nil reg skips registration.
func NewLogSink(hostURL string, logger core.Logger, reg prometheus.Registerer) *LogSink {
	triggered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gradereviews",
		Name:      "events_triggered_total",
		Help:      "Number of grade review events triggered.",
	}, []string{"event"})
	if reg != nil {
		reg.MustRegister(triggered)
	}
	return &LogSink{hostURL: hostURL, logger: logger, triggered: triggered}
}

func (s *LogSink) Trigger(ev gradereview.Triggerable) {
	rec := ev.Record()
	s.triggered.WithLabelValues(rec.Name).Inc()
	s.logger.Info(ev.Description(), map[string]interface{}{
		"event":     rec.Name,
		"objectid":  rec.ObjectID,
		"contextid": rec.ContextID,
		"other":     rec.Other,
		"url":       ev.URL(s.hostURL).String(),
		"time":      rec.TimeCreated,
	}, core.UserRef{ID: rec.UserID})
}
