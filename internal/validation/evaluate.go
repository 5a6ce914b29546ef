package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// iso8601Layouts are tried in order by ParseISO8601. RFC 3339 already covers
// fractional seconds and numeric offsets.
var iso8601Layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseISO8601 parses an ISO-8601 date string.
func ParseISO8601(s string) (time.Time, error) {
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 date: %q", s)
}

// Validate evaluates a schema against a decoded request body. The returned
// Errors are empty on success; a non-nil error means a custom check hit an
// infrastructure failure and no validation verdict could be reached.
func Validate(ctx context.Context, body any, rules ...*Rule) (Errors, error) {
	root := &sink{}
	c := &Context{body: body, value: body, valueSet: true, errs: root}
	for _, r := range rules {
		if err := eval(ctx, c, r); err != nil {
			return nil, err
		}
	}
	return root.errs, nil
}

func eval(ctx context.Context, c *Context, r *Rule) error {
	switch r.Kind {
	case KindParallel:
		g, gctx := errgroup.WithContext(ctx)
		sinks := make([]*sink, len(r.Rules))
		for i, child := range r.Rules {
			i, child := i, child
			sinks[i] = &sink{}
			g.Go(func() error {
				return eval(gctx, c.withSink(sinks[i]), child)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		// Merge in declaration order, not completion order.
		for _, s := range sinks {
			c.errs.merge(s)
		}
		return nil

	case KindField:
		return evalChain(ctx, c.at(r.Location), r.Rules)

	case KindGroup:
		for _, child := range r.Rules {
			if err := eval(ctx, c, child); err != nil {
				return err
			}
		}
		return nil

	case KindIf:
		branch := r.Else
		if r.Cond(c) {
			branch = r.Then
		}
		if branch == nil {
			return nil
		}
		return eval(ctx, c, branch)

	case KindWhile:
		// A gate outside a field chain has nothing to guard.
		return nil

	default:
		return applyCheck(ctx, c, r)
	}
}

// evalChain runs a field chain: rules execute left to right and stop at the
// first error recorded for the field. While installs gates over the rest of
// the chain; If splices its branch into the same frame so a conditional While
// still gates correctly.
func evalChain(ctx context.Context, c *Context, rules []*Rule) error {
	before := c.errs.len()
	var gates []Predicate

	var step func(r *Rule) (bool, error)
	step = func(r *Rule) (bool, error) {
		for _, gate := range gates {
			if !gate(c) {
				return true, nil
			}
		}

		switch r.Kind {
		case KindWhile:
			gates = append(gates, r.Cond)
			return false, nil

		case KindIf:
			branch := r.Else
			if r.Cond(c) {
				branch = r.Then
			}
			if branch == nil {
				return false, nil
			}
			if branch.Kind == KindGroup {
				for _, child := range branch.Rules {
					stop, err := step(child)
					if stop || err != nil {
						return stop, err
					}
				}
				return false, nil
			}
			return step(branch)

		case KindField, KindGroup, KindParallel:
			if err := eval(ctx, c, r); err != nil {
				return false, err
			}
			return c.errs.len() > before, nil

		default:
			if err := applyCheck(ctx, c, r); err != nil {
				return false, err
			}
			return c.errs.len() > before, nil
		}
	}

	for _, r := range rules {
		stop, err := step(r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func applyCheck(ctx context.Context, c *Context, r *Rule) error {
	switch r.Kind {
	case KindRequired:
		if !c.valueSet || c.value == nil {
			c.AddError("required", "is required")
		}
		return nil
	case KindCustom:
		return r.Check(ctx, c)
	}

	// The remaining checks only judge values that are actually present;
	// absence is required's (or a gate's) business.
	if !c.valueSet {
		return nil
	}

	switch r.Kind {
	case KindType:
		actual := jsonTypeOf(c.value)
		for _, t := range r.Types {
			if actual == t {
				return nil
			}
		}
		c.errs.add(&Error{
			Message:   "must be of type " + joinTypes(r.Types),
			Type:      "json",
			Location:  c.location,
			Validator: "type",
			Value:     c.value,
			ValueSet:  true,
			Types:     r.Types,
		})

	case KindNotBlank:
		if s, ok := c.value.(string); ok && strings.TrimSpace(s) == "" {
			c.AddError("notBlank", "must not be blank")
		}

	case KindNotEmpty:
		if s, ok := c.value.(string); ok && s == "" {
			c.AddError("notEmpty", "must not be empty")
		}

	case KindStringLength:
		if s, ok := c.value.(string); ok {
			n := utf8.RuneCountInString(s)
			if n < r.Min || (r.Max > 0 && n > r.Max) {
				c.AddError("string", fmt.Sprintf("must be between %d and %d characters long", r.Min, r.Max))
			}
		}

	case KindEmail:
		if s, ok := c.value.(string); ok && !emailRe.MatchString(s) {
			c.AddError("email", "must be a valid e-mail address")
		}

	case KindISO8601:
		if s, ok := c.value.(string); ok {
			if _, err := ParseISO8601(s); err != nil {
				c.AddError("iso8601", "is not a valid ISO-8601 date")
			}
		}

	case KindInclusion:
		for _, allowed := range r.In {
			if c.value == allowed {
				return nil
			}
		}
		values := make([]string, len(r.In))
		for i, allowed := range r.In {
			values[i] = fmt.Sprint(allowed)
		}
		c.AddError("inclusion", "must be one of "+strings.Join(values, ", "))
	}
	return nil
}
