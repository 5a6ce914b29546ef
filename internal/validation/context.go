package validation

// Context is the read-only view handed to predicates and custom checks. It
// carries a snapshot of the decoded body, the location currently under
// validation and the errors collected so far in the enclosing branch; the only
// mutation it allows is appending errors through AddError.
type Context struct {
	body     any
	location string
	value    any
	valueSet bool
	errs     *sink
}

// Body returns the decoded request body.
func (c *Context) Body() any { return c.body }

// Location returns the JSON pointer currently under validation ("" at the
// root).
func (c *Context) Location() string { return c.location }

// Value returns the value at the current location.
func (c *Context) Value() any { return c.value }

// ValueSet reports whether the current location exists in the body. A JSON
// null counts as set.
func (c *Context) ValueSet() bool { return c.valueSet }

// ValueAt resolves another location against the body snapshot.
func (c *Context) ValueAt(location string) (any, bool) {
	return resolvePointer(c.body, location)
}

// ErrorsAt returns the errors recorded so far for a location in the enclosing
// branch.
func (c *Context) ErrorsAt(location string) Errors {
	return c.errs.at(location)
}

// AddError records a failed check at the current location.
func (c *Context) AddError(validator, message string) {
	c.errs.add(&Error{
		Message:   message,
		Type:      "json",
		Location:  c.location,
		Validator: validator,
		Value:     c.value,
		ValueSet:  c.valueSet,
	})
}

// at returns a child context pointing at a resolved location.
func (c *Context) at(location string) *Context {
	value, set := resolvePointer(c.body, location)
	return &Context{
		body:     c.body,
		location: location,
		value:    value,
		valueSet: set,
		errs:     c.errs,
	}
}

// withSink rebinds the context to another error sink (used by parallel
// branches).
func (c *Context) withSink(s *sink) *Context {
	clone := *c
	clone.errs = s
	return &clone
}
