// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldRequestID = "request_id"
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldService   = "upstream_service"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldTarget    = "target_url"
	FieldErrorKind = "error_kind"
)
