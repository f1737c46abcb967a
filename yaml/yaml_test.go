package yaml_test

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/yaml"
)

type config struct {
	Host string `hyperspec:"host"`
	Port int64  `hyperspec:"port,optional"`
}

func TestUnmarshalRecord(t *testing.T) {
	got, err := yaml.UnmarshalAs[config]([]byte("host: example\nport: 8080\n"))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if got != (config{Host: "example", Port: 8080}) {
		t.Fatalf("got %+v", got)
	}
}

func TestMarshalMap(t *testing.T) {
	out, err := yaml.Marshal(map[string]any{"a": int64(1)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != "a: 1\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRoundTripAny(t *testing.T) {
	in := map[string]any{"a": int64(1), "b": []any{"x", true}}
	out, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := yaml.Unmarshal(out, hyperspec.Any())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("got %v, want %v", got, in)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	in := []byte{0x00, 0xff, 0x7f}
	out, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := yaml.UnmarshalAs[[]byte](out)
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("got %v, want %v", got, in)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	in := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	out, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := yaml.UnmarshalAs[time.Time](out)
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if !got.Equal(in) {
		t.Fatalf("got %v, want %v", got, in)
	}
}

func TestValidationPath(t *testing.T) {
	type rec struct {
		A []int64 `hyperspec:"a"`
	}
	_, err := yaml.UnmarshalAs[rec]([]byte("a: [1, \"x\"]\n"))
	ve, ok := hyperspec.AsValidationError(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Path != "$.a[1]" {
		t.Fatalf("path = %q", ve.Path)
	}
}

func TestMalformedDocument(t *testing.T) {
	_, err := yaml.Unmarshal([]byte("a: [1, 2\n"), hyperspec.Any())
	if _, ok := hyperspec.AsDecodeError(err); !ok {
		t.Fatalf("want DecodeError, got %v", err)
	}
}

func TestStreamDecoderMultiDocument(t *testing.T) {
	input := "a: 1\n---\na: 2\n"
	dec, err := yaml.NewStreamDecoder(strings.NewReader(input), hyperspec.Any())
	if err != nil {
		t.Fatalf("NewStreamDecoder: %v", err)
	}

	v, err := dec.Next()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !reflect.DeepEqual(v, map[string]any{"a": int64(1)}) {
		t.Fatalf("first = %v", v)
	}

	v, err = dec.Next()
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(v, map[string]any{"a": int64(2)}) {
		t.Fatalf("second = %v", v)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Fatalf("want io.EOF, got %v", err)
	}
}

func TestStreamDecoderSkipsInvalidDocument(t *testing.T) {
	type rec struct {
		A int64 `hyperspec:"a"`
	}
	input := "a: 1\n---\na: nope\n---\na: 3\n"
	dec, err := yaml.NewStreamDecoder(strings.NewReader(input), hyperspec.TypeOf[rec]())
	if err != nil {
		t.Fatalf("NewStreamDecoder: %v", err)
	}

	if _, err := dec.Next(); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := dec.Next(); err == nil {
		t.Fatalf("second: want error")
	}
	v, err := dec.Next()
	if err != nil {
		t.Fatalf("third: %v", err)
	}
	if v.(rec).A != 3 {
		t.Fatalf("third = %+v", v)
	}
}
