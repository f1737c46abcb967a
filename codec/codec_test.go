package codec_test

import (
	"net/netip"
	"net/url"
	"testing"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/codec"
	"github.com/hyperspec/hyperspec-go/json"
)

func TestURLRoundTrip(t *testing.T) {
	reg := codec.NewRegistry()
	codec.RegisterURL(reg, "URL")
	shape := hyperspec.Custom[url.URL]("URL")

	v, err := json.Unmarshal([]byte(`"https://example.com/x?q=1"`), shape,
		hyperspec.DecodeOptions{Hook: reg.DecodeHook()})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	u, ok := v.(url.URL)
	if !ok || u.Host != "example.com" || u.Path != "/x" {
		t.Fatalf("got %#v", v)
	}

	out, err := json.MarshalShaped(shape, u, hyperspec.EncodeOptions{Hook: reg.EncodeHook()})
	if err != nil {
		t.Fatalf("MarshalShaped: %v", err)
	}
	if string(out) != `"https://example.com/x?q=1"` {
		t.Fatalf("got %s", out)
	}
}

func TestAddrRoundTrip(t *testing.T) {
	reg := codec.NewRegistry()
	codec.RegisterAddr(reg, "Addr")
	shape := hyperspec.Custom[netip.Addr]("Addr")

	v, err := json.Unmarshal([]byte(`"192.0.2.7"`), shape,
		hyperspec.DecodeOptions{Hook: reg.DecodeHook()})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	a := v.(netip.Addr)
	if a.String() != "192.0.2.7" {
		t.Fatalf("got %v", a)
	}

	out, err := json.MarshalShaped(shape, a, hyperspec.EncodeOptions{Hook: reg.EncodeHook()})
	if err != nil {
		t.Fatalf("MarshalShaped: %v", err)
	}
	if string(out) != `"192.0.2.7"` {
		t.Fatalf("got %s", out)
	}
}

func TestInvalidWireValue(t *testing.T) {
	reg := codec.NewRegistry()
	codec.RegisterAddr(reg, "Addr")
	shape := hyperspec.Custom[netip.Addr]("Addr")

	_, err := json.Unmarshal([]byte(`"not-an-ip"`), shape,
		hyperspec.DecodeOptions{Hook: reg.DecodeHook()})
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeInvalidFormat {
		t.Fatalf("want invalid_format, got %v", err)
	}
}

func TestUnregisteredName(t *testing.T) {
	reg := codec.NewRegistry()
	shape := hyperspec.Custom[struct{ X int }]("Mystery")

	_, err := json.Unmarshal([]byte(`1`), shape,
		hyperspec.DecodeOptions{Hook: reg.DecodeHook()})
	if _, ok := hyperspec.AsValidationError(err); !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestCustomInsideRecord(t *testing.T) {
	reg := codec.NewRegistry()
	codec.RegisterURL(reg, "URL")
	shape := hyperspec.Fields(
		hyperspec.FieldsField{Name: "home", Shape: hyperspec.Custom[url.URL]("URL"), Required: true},
	)

	v, err := json.Unmarshal([]byte(`{"home":"https://example.com/"}`), shape,
		hyperspec.DecodeOptions{Hook: reg.DecodeHook()})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m := v.(map[string]any)
	if m["home"].(url.URL).Host != "example.com" {
		t.Fatalf("got %#v", m)
	}
}
