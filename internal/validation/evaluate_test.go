package validation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var body any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func userSchema() *Rule {
	return Parallel(
		Field("/email", Required(), Type("string"), NotEmpty(), Email()),
		Field("/password", Required(), Type("string"), NotBlank()),
	)
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	errs, err := Validate(context.Background(), decode(t, `{}`), userSchema())
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %+v", len(errs), errs)
	}
	for i, loc := range []string{"/email", "/password"} {
		e := errs[i]
		if e.Location != loc || e.Validator != "required" || e.Message != "is required" {
			t.Fatalf("error %d mismatch: %+v", i, e)
		}
		if e.ValueSet {
			t.Fatalf("error %d should have valueSet=false", i)
		}
	}
}

func TestValidate_ShortCircuitWithinField(t *testing.T) {
	// A wrong type must not also report notBlank for the same field.
	body := decode(t, `{"email":"a@b.ch","password":42}`)
	errs, err := Validate(context.Background(), body, userSchema())
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %+v", len(errs), errs)
	}
	e := errs[0]
	if e.Validator != "type" || e.Location != "/password" {
		t.Fatalf("unexpected error: %+v", e)
	}
	if len(e.Types) != 1 || e.Types[0] != "string" {
		t.Fatalf("expected types [string], got %v", e.Types)
	}
}

func TestValidate_ErrorsGroupedInSchemaOrder(t *testing.T) {
	body := decode(t, `{"email":"foo","password":"   "}`)
	errs, err := Validate(context.Background(), body, userSchema())
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0].Location != "/email" || errs[0].Validator != "email" {
		t.Fatalf("first error should be /email email, got %+v", errs[0])
	}
	if errs[1].Location != "/password" || errs[1].Validator != "notBlank" {
		t.Fatalf("second error should be /password notBlank, got %+v", errs[1])
	}
}

func TestValidate_PatchMode(t *testing.T) {
	field := func(patch bool) *Rule {
		return Field("/firstName",
			If(When(patch), While(IsSet()), nil),
			Required(),
			Type("string"),
			NotBlank(),
			StringLength(1, 20),
		)
	}

	// Patch mode: omitted field yields no errors.
	errs, err := Validate(context.Background(), decode(t, `{}`), field(true))
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("patch mode with absent field should pass, got %+v", errs)
	}

	// Patch mode: a present but invalid value is still validated.
	errs, err = Validate(context.Background(), decode(t, `{"firstName":"   "}`), field(true))
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 1 || errs[0].Validator != "notBlank" {
		t.Fatalf("expected one notBlank error, got %+v", errs)
	}

	// Create mode: absence is an error.
	errs, err = Validate(context.Background(), decode(t, `{}`), field(false))
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 1 || errs[0].Validator != "required" {
		t.Fatalf("expected one required error, got %+v", errs)
	}
}

func TestValidate_NullValue(t *testing.T) {
	errs, err := Validate(context.Background(), decode(t, `{"email":null,"password":"secret"}`),
		userSchema())
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %+v", errs)
	}
	if errs[0].Validator != "required" || !errs[0].ValueSet {
		t.Fatalf("null should fail required with valueSet=true, got %+v", errs[0])
	}
}

func TestValidate_ISO8601AndInclusion(t *testing.T) {
	schema := Parallel(
		Field("/date", Required(), Type("string"), ISO8601()),
		Field("/role", While(IsSet()), Type("string"), Inclusion("user", "admin")),
	)

	errs, err := Validate(context.Background(), decode(t, `{"date":"foo","role":"root"}`), schema)
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %+v", errs)
	}
	if errs[0].Validator != "iso8601" || errs[0].Message != "is not a valid ISO-8601 date" {
		t.Fatalf("unexpected date error: %+v", errs[0])
	}
	if errs[1].Validator != "inclusion" || !strings.Contains(errs[1].Message, "user, admin") {
		t.Fatalf("unexpected role error: %+v", errs[1])
	}

	errs, err = Validate(context.Background(), decode(t, `{"date":"2024-05-01T10:00:00Z"}`), schema)
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidate_CustomAsyncCheck(t *testing.T) {
	taken := map[string]bool{"jane.doe@example.com": true}
	emailAvailable := Custom(func(_ context.Context, c *Context) error {
		email, ok := c.Value().(string)
		if !ok || strings.TrimSpace(email) == "" {
			return nil
		}
		if taken[strings.ToLower(email)] {
			c.AddError("user.emailAvailable", "is already taken")
		}
		return nil
	})

	schema := Field("/email", Required(), Type("string"), Email(), emailAvailable)

	errs, err := Validate(context.Background(), decode(t, `{"email":"jane.doe@example.com"}`), schema)
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 1 || errs[0].Validator != "user.emailAvailable" {
		t.Fatalf("expected emailAvailable error, got %+v", errs)
	}

	errs, err = Validate(context.Background(), decode(t, `{"email":"new@example.com"}`), schema)
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidate_CustomCheckInfrastructureFailure(t *testing.T) {
	boom := errors.New("store down")
	schema := Field("/email", Custom(func(context.Context, *Context) error { return boom }))

	_, err := Validate(context.Background(), decode(t, `{"email":"a@b.ch"}`), schema)
	if !errors.Is(err, boom) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}

func TestValidate_ConditionalPreviousPassword(t *testing.T) {
	schema := func(passwordSet bool) *Rule {
		return If(When(passwordSet),
			Group(
				Field("/previousPassword", Required(), Type("string"), NotEmpty()),
				If(HasNoError("/previousPassword"),
					Field("/previousPassword", Custom(func(_ context.Context, c *Context) error {
						if s, _ := c.Value().(string); s != "letmein" {
							c.AddError("user.previousPassword", "is incorrect")
						}
						return nil
					})),
					nil,
				),
			),
			nil,
		)
	}

	// Condition false: nothing validated.
	errs, err := Validate(context.Background(), decode(t, `{}`), schema(false))
	if err != nil || len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v (err %v)", errs, err)
	}

	// Missing previous password: only the required error, the match check is
	// skipped via HasNoError.
	errs, err = Validate(context.Background(), decode(t, `{"password":"new"}`), schema(true))
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 1 || errs[0].Validator != "required" {
		t.Fatalf("expected single required error, got %+v", errs)
	}

	// Wrong previous password.
	errs, err = Validate(context.Background(), decode(t, `{"password":"new","previousPassword":"nope"}`), schema(true))
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if len(errs) != 1 || errs[0].Validator != "user.previousPassword" {
		t.Fatalf("expected previousPassword error, got %+v", errs)
	}

	// Correct previous password.
	errs, err = Validate(context.Background(), decode(t, `{"password":"new","previousPassword":"letmein"}`), schema(true))
	if err != nil || len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v (err %v)", errs, err)
	}
}

func TestValidate_DeterministicOrderUnderConcurrency(t *testing.T) {
	// A slow branch declared first must still report first.
	slow := Field("/a", Custom(func(_ context.Context, c *Context) error {
		time.Sleep(20 * time.Millisecond)
		c.AddError("custom.slow", "slow failure")
		return nil
	}))
	fast := Field("/b", Required())

	for i := 0; i < 5; i++ {
		errs, err := Validate(context.Background(), decode(t, `{"a":1}`), Parallel(slow, fast))
		if err != nil {
			t.Fatalf("Validate err: %v", err)
		}
		if len(errs) != 2 || errs[0].Location != "/a" || errs[1].Location != "/b" {
			t.Fatalf("order not deterministic: %+v", errs)
		}
	}
}

func TestError_MarshalJSON(t *testing.T) {
	e := &Error{
		Message:   "must be of type string",
		Type:      "json",
		Location:  "/authorization",
		Validator: "type",
		Value:     float64(42),
		ValueSet:  true,
		Types:     []string{"string"},
	}
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["value"] != float64(42) || got["valueSet"] != true {
		t.Fatalf("unexpected payload: %s", raw)
	}

	e = &Error{Message: "is required", Type: "json", Location: "/email", Validator: "required"}
	raw, _ = json.Marshal(e)
	if strings.Contains(string(raw), `"value"`) {
		t.Fatalf("absent value must be omitted: %s", raw)
	}
}

func TestResolvePointer(t *testing.T) {
	body := decode(t, `{"a":{"b":[10,20]},"nil":null}`)

	if v, ok := resolvePointer(body, "/a/b/1"); !ok || v != float64(20) {
		t.Fatalf("got %v %v", v, ok)
	}
	if _, ok := resolvePointer(body, "/a/missing"); ok {
		t.Fatalf("missing key should not resolve")
	}
	if v, ok := resolvePointer(body, "/nil"); !ok || v != nil {
		t.Fatalf("null should resolve as set: %v %v", v, ok)
	}
	if v, ok := resolvePointer(body, ""); !ok || v == nil {
		t.Fatalf("empty pointer should return root: %v %v", v, ok)
	}
}
