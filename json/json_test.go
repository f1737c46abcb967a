package json_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/json"
)

type user struct {
	Name string `hyperspec:"name"`
	Age  int64  `hyperspec:"age,optional"`
}

func TestUnmarshalAs(t *testing.T) {
	got, err := json.UnmarshalAs[user]([]byte(`{"name":"amy","age":3}`))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if got != (user{Name: "amy", Age: 3}) {
		t.Fatalf("got %+v", got)
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	got, err := json.UnmarshalAs[user]([]byte(`{"name":"amy","job":{"title":"dev"}}`))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if got.Name != "amy" {
		t.Fatalf("got %+v", got)
	}
}

func TestForbidUnknownFields(t *testing.T) {
	_, err := json.UnmarshalAs[user]([]byte(`{"name":"amy","job":1}`),
		hyperspec.DecodeOptions{ForbidUnknownFields: true})
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeUnknownField {
		t.Fatalf("want unknown_field, got %v", err)
	}
}

func TestMissingRequiredField(t *testing.T) {
	_, err := json.UnmarshalAs[user]([]byte(`{"age":3}`))
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeRequired {
		t.Fatalf("want required, got %v", err)
	}
}

func TestErrorPathRendering(t *testing.T) {
	type team struct {
		Groups []string `hyperspec:"groups"`
	}
	_, err := json.UnmarshalAs[team]([]byte(`{"groups":["a",123]}`))
	ve, ok := hyperspec.AsValidationError(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Path != "$.groups[1]" {
		t.Fatalf("path = %q, want $.groups[1]", ve.Path)
	}
	want := "expected `str`, got `int` - at `$.groups[1]`"
	if ve.Error() != want {
		t.Fatalf("message = %q, want %q", ve.Error(), want)
	}
}

func TestMalformedInput(t *testing.T) {
	_, err := json.Unmarshal([]byte(`{"a":`), hyperspec.Any())
	if _, ok := hyperspec.AsDecodeError(err); !ok {
		t.Fatalf("want DecodeError, got %v", err)
	}
}

func TestMarshalRecord(t *testing.T) {
	out, err := json.Marshal(user{Name: "amy", Age: 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"name":"amy","age":3}` {
		t.Fatalf("got %s", out)
	}
}

func TestMarshalMapSortsKeys(t *testing.T) {
	out, err := json.Marshal(map[string]any{"b": 1, "a": "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"a":"x","b":1}` {
		t.Fatalf("got %s", out)
	}
}

func TestMarshalOmitEmpty(t *testing.T) {
	type rec struct {
		A string `hyperspec:"a"`
		B string `hyperspec:"b,optional,omitempty"`
	}
	out, err := json.Marshal(rec{A: "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"a":"x"}` {
		t.Fatalf("got %s", out)
	}
}

func TestBytesAsBase64(t *testing.T) {
	out, err := json.Marshal([]byte("hi"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `"aGk="` {
		t.Fatalf("got %s", out)
	}
	back, err := json.UnmarshalAs[[]byte](out)
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if string(back) != "hi" {
		t.Fatalf("got %q", back)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `"2024-05-01T12:30:00Z"` {
		t.Fatalf("got %s", out)
	}
	back, err := json.UnmarshalAs[time.Time](out)
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if !back.Equal(in) {
		t.Fatalf("got %v, want %v", back, in)
	}
}

func TestIntOverflowRejected(t *testing.T) {
	got, err := json.UnmarshalAs[int64]([]byte(`9223372036854775807`))
	if err != nil || got != math.MaxInt64 {
		t.Fatalf("max int64: got %v, %v", got, err)
	}
	for _, in := range []string{
		`9223372036854775808`,
		`100000000000000000000`,
		`-1e300`,
		`2e19`,
	} {
		_, err := json.UnmarshalAs[int64]([]byte(in))
		ve, ok := hyperspec.AsValidationError(err)
		if !ok || ve.Code != hyperspec.CodeTooBig {
			t.Fatalf("%s: want too_big, got %v", in, err)
		}
	}
}

func TestMarshalNonFiniteFloat(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := json.Marshal(f)
		var ee *hyperspec.EncodeError
		if !errors.As(err, &ee) {
			t.Fatalf("%v: want EncodeError, got %v", f, err)
		}
		if ee.Code != hyperspec.CodeUnsupported {
			t.Fatalf("%v: code = %q", f, ee.Code)
		}
	}
	out, err := json.Marshal(1.5)
	if err != nil || string(out) != "1.5" {
		t.Fatalf("finite float: got %s, %v", out, err)
	}
}

func TestFloatKeepsPoint(t *testing.T) {
	out, err := json.Marshal(2.0)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != "2.0" {
		t.Fatalf("got %s", out)
	}
}

func TestNullablePointerField(t *testing.T) {
	type rec struct {
		N *int64 `hyperspec:"n"`
	}
	got, err := json.UnmarshalAs[rec]([]byte(`{"n":null}`))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if got.N != nil {
		t.Fatalf("got %v, want nil", got.N)
	}
	got, err = json.UnmarshalAs[rec]([]byte(`{"n":7}`))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if got.N == nil || *got.N != 7 {
		t.Fatalf("got %v", got.N)
	}
}

func TestUnionOnWire(t *testing.T) {
	shape := hyperspec.Union(hyperspec.TypeOf[int64](), hyperspec.TypeOf[string]())
	got, err := json.Unmarshal([]byte(`5`), shape)
	if err != nil {
		t.Fatalf("Unmarshal int: %v", err)
	}
	if got != int64(5) {
		t.Fatalf("got %v (%T)", got, got)
	}
	got, err = json.Unmarshal([]byte(`"x"`), shape)
	if err != nil {
		t.Fatalf("Unmarshal str: %v", err)
	}
	if got != "x" {
		t.Fatalf("got %v", got)
	}
	_, err = json.Unmarshal([]byte(`true`), shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Expected != "int | str" {
		t.Fatalf("want int | str mismatch, got %v", err)
	}
}

func TestRawCapture(t *testing.T) {
	type doc struct {
		ID   int64         `hyperspec:"id"`
		Body hyperspec.Raw `hyperspec:"body"`
	}
	got, err := json.UnmarshalAs[doc]([]byte(`{"id":1,"body":{"k":[1,2]}}`))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if string(got.Body) != `{"k":[1,2]}` {
		t.Fatalf("body = %s", got.Body)
	}
	out, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"id":1,"body":{"k":[1,2]}}` {
		t.Fatalf("got %s", out)
	}
}

func TestStreamDecoderRawField(t *testing.T) {
	type doc struct {
		ID   int64         `hyperspec:"id"`
		Body hyperspec.Raw `hyperspec:"body"`
	}
	input := `{"id":1,"body":{"k":[1,2]}}
{"id":2,"body":[3]}`
	dec, err := json.NewStreamDecoder(strings.NewReader(input), hyperspec.TypeOf[doc]())
	if err != nil {
		t.Fatalf("NewStreamDecoder: %v", err)
	}

	v, err := dec.Next()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if body := v.(doc).Body; string(body) != `{"k":[1,2]}` {
		t.Fatalf("first body = %s", body)
	}

	v, err = dec.Next()
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if body := v.(doc).Body; string(body) != `[3]` {
		t.Fatalf("second body = %s", body)
	}
}

func TestDuplicateKeyLimit(t *testing.T) {
	opts := hyperspec.DecodeOptions{Limits: hyperspec.Limits{RejectDuplicateKeys: true}}
	_, err := json.Unmarshal([]byte(`{"a":1,"a":2}`), hyperspec.Any(), opts)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeDuplicateKey {
		t.Fatalf("want duplicate_key, got %v", err)
	}
	if ve.Path != "$.a" {
		t.Fatalf("path = %q", ve.Path)
	}
	if _, err := json.Unmarshal([]byte(`{"a":1,"b":2}`), hyperspec.Any(), opts); err != nil {
		t.Fatalf("distinct keys rejected: %v", err)
	}
}

func TestMaxDepthLimit(t *testing.T) {
	opts := hyperspec.DecodeOptions{Limits: hyperspec.Limits{MaxDepth: 2}}
	if _, err := json.Unmarshal([]byte(`[[1]]`), hyperspec.Any(), opts); err != nil {
		t.Fatalf("depth 2 rejected: %v", err)
	}
	_, err := json.Unmarshal([]byte(`[[[1]]]`), hyperspec.Any(), opts)
	if _, ok := hyperspec.AsDecodeError(err); !ok {
		t.Fatalf("want DecodeError, got %v", err)
	}
}

func TestStreamDecoderRealigns(t *testing.T) {
	type rec struct {
		A int64 `hyperspec:"a"`
	}
	input := `{"a":1}
{"a":"bad"}
{"a":3}`
	dec, err := json.NewStreamDecoder(strings.NewReader(input), hyperspec.TypeOf[rec]())
	if err != nil {
		t.Fatalf("NewStreamDecoder: %v", err)
	}

	v, err := dec.Next()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if v.(rec).A != 1 {
		t.Fatalf("first = %+v", v)
	}

	_, err = dec.Next()
	if _, ok := hyperspec.AsValidationError(err); !ok {
		t.Fatalf("second: want ValidationError, got %v", err)
	}

	v, err = dec.Next()
	if err != nil {
		t.Fatalf("third: %v", err)
	}
	if v.(rec).A != 3 {
		t.Fatalf("third = %+v", v)
	}

	if _, err := dec.Next(); err == nil {
		t.Fatalf("want EOF")
	}
}

func TestStreamDecoderEmpty(t *testing.T) {
	dec, err := json.NewStreamDecoder(strings.NewReader(""), hyperspec.Any())
	if err != nil {
		t.Fatalf("NewStreamDecoder: %v", err)
	}
	if _, err := dec.Next(); err == nil {
		t.Fatalf("want EOF")
	}
}
