// Package validation provides Laravel-style input validation for the debug
// endpoints and the CLI.
//
// Rules are expressed as pipe-separated strings on a map of field names.
//
//	v := validation.Make(map[string]string{
//	    "status": r.URL.Query().Get("status"),
//	}, validation.Rules{
//	    "status": "sometimes|in:constructible,removed,synthetic",
//	})
//
//	if v.Fails() {
//	    // JSON: {"errors": {"status": ["The selected status is invalid."]}}
//	}
//
// # Available Rules
//
//   - required: field must be present and non-empty
//   - sometimes, nullable: skip the remaining rules when the field is empty
//   - max:n: length limit in UTF-8 characters
//   - integer, boolean: parseable as int / strconv.ParseBool
//   - gte:n, lte:n: numeric bounds
//   - in:a,b,c: membership
//   - service_key: non-empty, printable, no whitespace
//
// Fields are validated in sorted order and each field stops at its first
// failing rule.
package validation
