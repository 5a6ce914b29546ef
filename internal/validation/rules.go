package validation

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies what a Rule node does. Composite kinds (field, group,
// parallel, if, while) structure the evaluation; the rest are leaf checks.
type Kind int

const (
	KindRequired Kind = iota
	KindType
	KindNotBlank
	KindNotEmpty
	KindStringLength
	KindEmail
	KindISO8601
	KindInclusion
	KindCustom
	KindField
	KindGroup
	KindParallel
	KindIf
	KindWhile
)

// CheckFunc is a custom, possibly asynchronous check. It reports validation
// failures through Context.AddError; a non-nil return value signals an
// infrastructure failure (e.g. the store being unavailable) and aborts the
// whole evaluation.
type CheckFunc func(ctx context.Context, c *Context) error

// Predicate decides branch and gate conditions against the evaluation state.
type Predicate func(c *Context) bool

// Rule is one node of a validation schema.
type Rule struct {
	Kind     Kind
	Location string   // KindField
	Types    []string // KindType
	Min, Max int      // KindStringLength
	In       []any // KindInclusion
	Check    CheckFunc
	Cond     Predicate // KindIf, KindWhile
	Then     *Rule     // KindIf
	Else     *Rule     // KindIf, may be nil
	Rules    []*Rule   // KindField, KindGroup, KindParallel
}

// Required fails when the location is absent or null.
func Required() *Rule { return &Rule{Kind: KindRequired} }

// Type fails when the value's JSON type is none of the given ones
// ("string", "number", "boolean", "array", "object", "null").
func Type(types ...string) *Rule { return &Rule{Kind: KindType, Types: types} }

// NotBlank fails when a string value is empty or whitespace only.
func NotBlank() *Rule { return &Rule{Kind: KindNotBlank} }

// NotEmpty fails when a string value has length zero.
func NotEmpty() *Rule { return &Rule{Kind: KindNotEmpty} }

// StringLength bounds the rune count of a string value.
func StringLength(min, max int) *Rule { return &Rule{Kind: KindStringLength, Min: min, Max: max} }

// Email checks the basic shape of an e-mail address.
func Email() *Rule { return &Rule{Kind: KindEmail} }

// ISO8601 checks that a string value parses as an ISO-8601 date.
func ISO8601() *Rule { return &Rule{Kind: KindISO8601} }

// Inclusion fails when the value is not one of the allowed ones.
func Inclusion(in ...any) *Rule { return &Rule{Kind: KindInclusion, In: in} }

// Custom runs a caller-provided check. The check names its own validator when
// reporting through Context.AddError.
func Custom(check CheckFunc) *Rule {
	return &Rule{Kind: KindCustom, Check: check}
}

// Field resolves a JSON pointer and runs its rules left to right,
// short-circuiting on the first error recorded for the field.
func Field(location string, rules ...*Rule) *Rule {
	return &Rule{Kind: KindField, Location: location, Rules: rules}
}

// Group bundles rules into one sequential node (useful as an If branch).
func Group(rules ...*Rule) *Rule { return &Rule{Kind: KindGroup, Rules: rules} }

// Parallel evaluates independent rules concurrently and merges their errors in
// declaration order.
func Parallel(rules ...*Rule) *Rule { return &Rule{Kind: KindParallel, Rules: rules} }

// If evaluates then (or els, when non-nil) depending on the predicate.
func If(cond Predicate, then *Rule, els *Rule) *Rule {
	return &Rule{Kind: KindIf, Cond: cond, Then: then, Else: els}
}

// While gates every later rule of the enclosing chain behind the predicate.
func While(cond Predicate) *Rule { return &Rule{Kind: KindWhile, Cond: cond} }

// ─── Predicates ───

// IsSet is true when the current location exists in the body.
func IsSet() Predicate {
	return func(c *Context) bool { return c.ValueSet() }
}

// When lifts a precomputed condition (e.g. patch mode) into a predicate.
func When(cond bool) Predicate {
	return func(*Context) bool { return cond }
}

// HasNoError is true when no error has been recorded for the location in the
// enclosing branch.
func HasNoError(location string) Predicate {
	return func(c *Context) bool { return len(c.ErrorsAt(location)) == 0 }
}

// jsonTypeOf names the JSON type of a decoded value.
func jsonTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, int, int64, float32:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinTypes(types []string) string {
	return strings.Join(types, " or ")
}
