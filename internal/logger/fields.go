package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	FieldRequestID    = "request_id"
	FieldSearchID     = "search_id"
	FieldJobID        = "job_id"
	FieldMediaItemID  = "media_item_id"
	FieldPlatform     = "platform"
	FieldComponent    = "component"
	FieldInvocationID = "invocation_id"
	FieldChainDepth   = "chain_depth"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
