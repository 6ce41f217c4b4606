// Package metrics provides build observability for docsite.
//
// Components receive a Recorder. NoopRecorder is the default so call sites
// never check for nil. PrometheusRecorder backs the preview server's
// /metrics endpoint and the optional node_exporter textfile written after
// each build:
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	builder := site.NewBuilder(cfg, site.WithRecorder(rec))
//	...
//	_ = metrics.WriteTextfile(cfg.Metrics.Textfile, rec.Registry())
package metrics
