package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldService     = "service"
	FieldComponent   = "component"
	FieldTraceID     = "trace_id"
	FieldSpanID      = "span_id"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldStage       = "stage"
	FieldRunID       = "run_id"
	FieldGroupSeq    = "group_seq"
	FieldElementsIn  = "elements_in"
	FieldElementsOut = "elements_out"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("stage", "batch", "groups", 3))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

// StageFields creates the common fields of one stage run.
func StageFields(stage, runID string) map[string]interface{} {
	return map[string]interface{}{
		FieldStage: stage,
		FieldRunID: runID,
	}
}

// Merge copies every key of extra into fields and returns fields.
func Merge(fields map[string]interface{}, extra ...map[string]interface{}) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	for _, m := range extra {
		for k, v := range m {
			fields[k] = v
		}
	}
	return fields
}
