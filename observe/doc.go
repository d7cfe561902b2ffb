// Package observe instruments stream transforms with OpenTelemetry traces,
// metrics and structured logs.
//
// Instrument wraps a Transform without touching its data path: values and
// errors come out exactly as the wrapped stage produced them. Each call of
// the wrapped Transform is one run, identified by a UUID.
//
//	obs, err := observe.New()
//	groups := observe.Instrument(obs, "batch", stream.MustBatch[string](100))
//
// Setup wires OTLP/HTTP exporters for traces and metrics; without it the
// global no-op providers are used.
package observe
