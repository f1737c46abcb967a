package toml_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/toml"
)

type serverConfig struct {
	Host  string   `hyperspec:"host"`
	Port  int64    `hyperspec:"port,optional"`
	Tags  []string `hyperspec:"tags,optional"`
	Debug bool     `hyperspec:"debug,optional"`
}

func TestUnmarshalConfig(t *testing.T) {
	input := `host = "example"
port = 8080
tags = ["a", "b"]
debug = true
`
	got, err := toml.UnmarshalAs[serverConfig]([]byte(input))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	want := serverConfig{Host: "example", Port: 8080, Tags: []string{"a", "b"}, Debug: true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMarshalMap(t *testing.T) {
	out, err := toml.Marshal(map[string]any{"a": int64(1)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.TrimSpace(string(out)) != "a = 1" {
		t.Fatalf("got %q", out)
	}
}

func TestRoundTripAny(t *testing.T) {
	in := map[string]any{"name": "x", "count": int64(3)}
	out, err := toml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := toml.Unmarshal(out, hyperspec.Any())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("got %v, want %v", got, in)
	}
}

func TestMarshalRequiresTable(t *testing.T) {
	_, err := toml.Marshal(5)
	var ee *hyperspec.EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("want EncodeError, got %v", err)
	}
	if ee.Code != hyperspec.CodeUnsupported {
		t.Fatalf("code = %q", ee.Code)
	}
}

func TestLocalDate(t *testing.T) {
	type rec struct {
		D time.Time `hyperspec:"d"`
	}
	got, err := toml.UnmarshalAs[rec]([]byte("d = 2024-05-01\n"))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !got.D.Equal(want) {
		t.Fatalf("got %v, want %v", got.D, want)
	}
}

func TestNestedTable(t *testing.T) {
	type server struct {
		Host string `hyperspec:"host"`
	}
	type root struct {
		Server server `hyperspec:"server"`
	}
	input := `[server]
host = "a"
`
	got, err := toml.UnmarshalAs[root]([]byte(input))
	if err != nil {
		t.Fatalf("UnmarshalAs: %v", err)
	}
	if got.Server.Host != "a" {
		t.Fatalf("got %+v", got)
	}
}

func TestValidationPath(t *testing.T) {
	type rec struct {
		N int64 `hyperspec:"n"`
	}
	_, err := toml.UnmarshalAs[rec]([]byte("n = \"x\"\n"))
	ve, ok := hyperspec.AsValidationError(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Path != "$.n" {
		t.Fatalf("path = %q", ve.Path)
	}
}

func TestMalformedDocument(t *testing.T) {
	_, err := toml.Unmarshal([]byte("= nope"), hyperspec.Any())
	if _, ok := hyperspec.AsDecodeError(err); !ok {
		t.Fatalf("want DecodeError, got %v", err)
	}
}
