package hyperspec_test

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

type point struct {
	X int64 `hyperspec:"x"`
	Y int64 `hyperspec:"y"`
}

func TestConvertScalar(t *testing.T) {
	got, err := hyperspec.ConvertAs[int64](3)
	if err != nil {
		t.Fatalf("ConvertAs: %v", err)
	}
	if got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}

func TestConvertFloatOverflowToInt(t *testing.T) {
	if got, err := hyperspec.ConvertAs[int64](float64(1 << 62)); err != nil || got != 1<<62 {
		t.Fatalf("2^62: got %v, %v", got, err)
	}
	for _, f := range []float64{1e20, -1e20, math.MaxInt64} {
		_, err := hyperspec.ConvertAs[int64](f)
		ve, ok := hyperspec.AsValidationError(err)
		if !ok || ve.Code != hyperspec.CodeTooBig {
			t.Fatalf("%v: want too_big, got %v", f, err)
		}
	}
}

func TestBindFailureLeavesCacheUsable(t *testing.T) {
	type inner struct {
		A int64 `hyperspec:"a"`
	}
	type outer struct {
		In inner    `hyperspec:"in"`
		C  chan int `hyperspec:"c"`
	}
	_, err := hyperspec.NewDecoder(hyperspec.TypeOf[outer]())
	var te *hyperspec.TypeDescriptionError
	if !errors.As(err, &te) {
		t.Fatalf("want TypeDescriptionError, got %v", err)
	}
	// The nested record compiled before the failing field must not survive
	// the aborted build as a dangling table reference.
	got, err := hyperspec.ConvertAs[inner](map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("ConvertAs after failed bind: %v", err)
	}
	if got != (inner{A: 1}) {
		t.Fatalf("got %+v", got)
	}
}

func TestConvertStructFromMap(t *testing.T) {
	got, err := hyperspec.ConvertAs[point](map[string]any{"x": 1, "y": 2})
	if err != nil {
		t.Fatalf("ConvertAs: %v", err)
	}
	if got != (point{X: 1, Y: 2}) {
		t.Fatalf("got %+v", got)
	}
}

func TestConvertPassThrough(t *testing.T) {
	in := point{X: 4, Y: 5}
	got, err := hyperspec.ConvertAs[point](in)
	if err != nil {
		t.Fatalf("ConvertAs: %v", err)
	}
	if got != in {
		t.Fatalf("got %+v, want %+v", got, in)
	}
}

func TestConvertTypedMap(t *testing.T) {
	got, err := hyperspec.ConvertAs[map[string]int64](map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("ConvertAs: %v", err)
	}
	want := map[string]int64{"a": 1, "b": 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestConvertReportsPath(t *testing.T) {
	_, err := hyperspec.ConvertAs[point](map[string]any{"x": "no", "y": 2})
	ve, ok := hyperspec.AsValidationError(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Path != "$.x" {
		t.Fatalf("path = %q, want $.x", ve.Path)
	}
	if ve.Code != hyperspec.CodeInvalidType {
		t.Fatalf("code = %q", ve.Code)
	}
	if ve.Expected != "int" || ve.Actual != "str" {
		t.Fatalf("expected/actual = %q/%q", ve.Expected, ve.Actual)
	}
}

func TestConvertMissingRequired(t *testing.T) {
	_, err := hyperspec.ConvertAs[point](map[string]any{"x": 1})
	ve, ok := hyperspec.AsValidationError(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Code != hyperspec.CodeRequired {
		t.Fatalf("code = %q, want %q", ve.Code, hyperspec.CodeRequired)
	}
}

func TestUnionAmbiguityRejectedAtBind(t *testing.T) {
	_, err := hyperspec.NewDecoder(hyperspec.Union(
		hyperspec.TypeOf[string](),
		hyperspec.TypeOf[time.Time](),
	))
	var te *hyperspec.TypeDescriptionError
	if !errors.As(err, &te) {
		t.Fatalf("want TypeDescriptionError, got %v", err)
	}
}

func TestUnionDistinguishable(t *testing.T) {
	shape := hyperspec.Union(hyperspec.TypeOf[int64](), hyperspec.TypeOf[string]())
	got, err := hyperspec.Convert(5, shape)
	if err != nil {
		t.Fatalf("Convert int: %v", err)
	}
	if got != int64(5) {
		t.Fatalf("got %v (%T)", got, got)
	}
	got, err = hyperspec.Convert("hi", shape)
	if err != nil {
		t.Fatalf("Convert str: %v", err)
	}
	if got != "hi" {
		t.Fatalf("got %v", got)
	}
	_, err = hyperspec.Convert(true, shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Expected != "int | str" {
		t.Fatalf("expected = %q", ve.Expected)
	}
}

func TestCustomShapeRequiresHook(t *testing.T) {
	_, err := hyperspec.NewDecoder(hyperspec.Custom[int]("myint"))
	var te *hyperspec.TypeDescriptionError
	if !errors.As(err, &te) {
		t.Fatalf("want TypeDescriptionError, got %v", err)
	}
}

func TestCustomShapeWithHook(t *testing.T) {
	shape := hyperspec.Custom[int]("double")
	hook := func(rt reflect.Type, name string, raw any) (any, error) {
		return int(raw.(int64) * 2), nil
	}
	got, err := hyperspec.Convert(21, shape, hyperspec.DecodeOptions{Hook: hook})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %v", got)
	}
}

func TestLiteralShape(t *testing.T) {
	shape := hyperspec.Literal("read", "write")
	if _, err := hyperspec.Convert("read", shape); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	_, err := hyperspec.Convert("admin", shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeInvalidEnum {
		t.Fatalf("want invalid_enum, got %v", err)
	}
}

func TestTupleArity(t *testing.T) {
	shape := hyperspec.Tuple(hyperspec.TypeOf[int64](), hyperspec.TypeOf[string]())
	got, err := hyperspec.Convert([]any{1, "a"}, shape)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []any{int64(1), "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
	_, err = hyperspec.Convert([]any{1}, shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeWrongLength {
		t.Fatalf("want wrong_length, got %v", err)
	}
}

func TestSetCollapsesDuplicates(t *testing.T) {
	got, err := hyperspec.Convert([]any{"a", "b", "a"}, hyperspec.Set(hyperspec.TypeOf[string]()))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []any{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAnnotatedConstraints(t *testing.T) {
	shape := hyperspec.Annotated(hyperspec.TypeOf[string](), hyperspec.Meta{MinLength: hyperspec.Ptr(3)})
	if _, err := hyperspec.Convert("abc", shape); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	_, err := hyperspec.Convert("ab", shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeTooShort {
		t.Fatalf("want too_short, got %v", err)
	}
}

func TestAnnotatedRejectsMismatchedConstraints(t *testing.T) {
	shape := hyperspec.Annotated(hyperspec.TypeOf[bool](), hyperspec.Meta{GE: hyperspec.Ptr(1.0)})
	_, err := hyperspec.NewDecoder(shape)
	var te *hyperspec.TypeDescriptionError
	if !errors.As(err, &te) {
		t.Fatalf("want TypeDescriptionError, got %v", err)
	}
}

func TestNumericBounds(t *testing.T) {
	shape := hyperspec.Annotated(hyperspec.TypeOf[int64](), hyperspec.Meta{
		GE: hyperspec.Ptr(0.0),
		LT: hyperspec.Ptr(100.0),
	})
	if _, err := hyperspec.Convert(42, shape); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	_, err := hyperspec.Convert(-1, shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeTooSmall {
		t.Fatalf("want too_small, got %v", err)
	}
	_, err = hyperspec.Convert(100, shape)
	ve, ok = hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeTooBig {
		t.Fatalf("want too_big, got %v", err)
	}
}

func TestFieldsShape(t *testing.T) {
	shape := hyperspec.Fields(
		hyperspec.FieldsField{Name: "id", Shape: hyperspec.TypeOf[int64](), Required: true},
		hyperspec.FieldsField{Name: "note", Shape: hyperspec.TypeOf[string]()},
	)
	got, err := hyperspec.Convert(map[string]any{"id": 7, "extra": true}, shape)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["id"] != int64(7) {
		t.Fatalf("got %v", got)
	}
	if _, present := m["extra"]; present {
		t.Fatalf("undeclared key kept: %v", m)
	}
	_, err = hyperspec.Convert(map[string]any{"note": "x"}, shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeRequired {
		t.Fatalf("want required, got %v", err)
	}
}

func TestStrictFieldsRejectsUnknown(t *testing.T) {
	shape := hyperspec.StrictFields(
		hyperspec.FieldsField{Name: "id", Shape: hyperspec.TypeOf[int64](), Required: true},
	)
	_, err := hyperspec.Convert(map[string]any{"id": 1, "bogus": 2}, shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeUnknownField {
		t.Fatalf("want unknown_field, got %v", err)
	}
}

func TestToBuiltins(t *testing.T) {
	got, err := hyperspec.ToBuiltins(point{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("ToBuiltins: %v", err)
	}
	want := map[string]any{"x": int64(1), "y": int64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestToBuiltinsText(t *testing.T) {
	got, err := hyperspec.ToBuiltins([]byte("hi"), hyperspec.BuiltinsOptions{Text: true})
	if err != nil {
		t.Fatalf("ToBuiltins: %v", err)
	}
	if got != "aGk=" {
		t.Fatalf("got %v", got)
	}
	got, err = hyperspec.ToBuiltins([]byte("hi"))
	if err != nil {
		t.Fatalf("ToBuiltins: %v", err)
	}
	if !reflect.DeepEqual(got, []byte("hi")) {
		t.Fatalf("got %v (%T)", got, got)
	}
}

func TestSelfOutsideStructRejected(t *testing.T) {
	_, err := hyperspec.NewDecoder(hyperspec.Self())
	var te *hyperspec.TypeDescriptionError
	if !errors.As(err, &te) {
		t.Fatalf("want TypeDescriptionError, got %v", err)
	}
}

func TestNullablePointerConvert(t *testing.T) {
	type rec struct {
		N *int64 `hyperspec:"n"`
	}
	got, err := hyperspec.ConvertAs[rec](map[string]any{"n": nil})
	if err != nil {
		t.Fatalf("ConvertAs: %v", err)
	}
	if got.N != nil {
		t.Fatalf("got %v, want nil", got.N)
	}
	got, err = hyperspec.ConvertAs[rec](map[string]any{"n": 9})
	if err != nil {
		t.Fatalf("ConvertAs: %v", err)
	}
	if got.N == nil || *got.N != 9 {
		t.Fatalf("got %v", got.N)
	}
}
