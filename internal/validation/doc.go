// Package validation implements the declarative request-body validation engine.
//
// # Design Decisions
//
//   - Schemas are trees of Rule nodes (a Kind enum plus parameters) walked by a
//     single interpreter, instead of closures capturing shared mutable state.
//   - Parallel runs independent field chains concurrently and merges their
//     errors in declaration order, so the reported order never depends on
//     goroutine scheduling.
//   - Within one field chain rules short-circuit left to right: a failed
//     required() suppresses the type/format checks that would only add noise.
//   - While installs a gate over the rest of a chain (used for patch-mode
//     semantics, where a field is only validated when it is present).
//   - Custom checks may perform I/O (e.g. an email-availability query); they
//     receive the request context and report structural problems through
//     Context.AddError, reserving the returned error for infrastructure
//     failures.
//
// # Usage
//
//	errs, err := validation.Validate(ctx, body,
//	    validation.Parallel(
//	        validation.Field("/email", validation.Required(), validation.Type("string"), validation.Email()),
//	        validation.Field("/password", validation.Required(), validation.Type("string"), validation.NotBlank()),
//	    ),
//	)
package validation
