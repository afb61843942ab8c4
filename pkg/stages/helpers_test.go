package stages

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/metrics"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
}
