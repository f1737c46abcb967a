package jsonschema_test

import (
	"testing"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/jsonschema"
	"github.com/hyperspec/hyperspec-go/structs"
)

type account struct {
	ID   int64  `hyperspec:"id"`
	Note string `hyperspec:"note,optional"`
}

func TestExportRecord(t *testing.T) {
	s, err := jsonschema.Export(hyperspec.TypeOf[account]())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if s.Ref != "#/$defs/account" {
		t.Fatalf("ref = %q", s.Ref)
	}
	def := s.Defs["account"]
	if def == nil {
		t.Fatalf("missing definition: %v", s.Defs)
	}
	if def.Type != "object" {
		t.Fatalf("type = %q", def.Type)
	}
	if def.Properties["id"].Type != "integer" || def.Properties["note"].Type != "string" {
		t.Fatalf("properties = %v", def.Properties)
	}
	if len(def.Required) != 1 || def.Required[0] != "id" {
		t.Fatalf("required = %v", def.Required)
	}
}

func TestExportScalars(t *testing.T) {
	for _, tc := range []struct {
		shape  any
		typ    string
		format string
	}{
		{hyperspec.TypeOf[bool](), "boolean", ""},
		{hyperspec.TypeOf[int64](), "integer", ""},
		{hyperspec.TypeOf[float64](), "number", ""},
		{hyperspec.TypeOf[string](), "string", ""},
		{hyperspec.TypeOf[[]byte](), "string", "base64"},
		{hyperspec.Date(), "string", "date"},
	} {
		s, err := jsonschema.Export(tc.shape)
		if err != nil {
			t.Fatalf("Export: %v", err)
		}
		if s.Type != tc.typ || s.Format != tc.format {
			t.Fatalf("got %q/%q, want %q/%q", s.Type, s.Format, tc.typ, tc.format)
		}
	}
}

func TestExportConstraints(t *testing.T) {
	shape := hyperspec.Annotated(hyperspec.TypeOf[string](), hyperspec.Meta{
		MinLength: hyperspec.Ptr(1),
		MaxLength: hyperspec.Ptr(10),
		Pattern:   "^[a-z]+$",
	})
	s, err := jsonschema.Export(shape)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if s.MinLength == nil || *s.MinLength != 1 {
		t.Fatalf("minLength = %v", s.MinLength)
	}
	if s.MaxLength == nil || *s.MaxLength != 10 {
		t.Fatalf("maxLength = %v", s.MaxLength)
	}
	if s.Pattern != "^[a-z]+$" {
		t.Fatalf("pattern = %q", s.Pattern)
	}
}

func TestExportUnion(t *testing.T) {
	s, err := jsonschema.Export(hyperspec.Union(hyperspec.TypeOf[int64](), hyperspec.TypeOf[string]()))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(s.AnyOf) != 2 {
		t.Fatalf("anyOf = %v", s.AnyOf)
	}
	if s.AnyOf[0].Type != "integer" || s.AnyOf[1].Type != "string" {
		t.Fatalf("anyOf types = %q, %q", s.AnyOf[0].Type, s.AnyOf[1].Type)
	}
}

func TestExportNullable(t *testing.T) {
	s, err := jsonschema.Export(hyperspec.TypeOf[*int64]())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(s.AnyOf) != 2 || s.AnyOf[0].Type != "integer" || s.AnyOf[1].Type != "null" {
		t.Fatalf("got %+v", s)
	}
}

func TestExportTuple(t *testing.T) {
	s, err := jsonschema.Export(hyperspec.Tuple(hyperspec.TypeOf[int64](), hyperspec.TypeOf[string]()))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if s.Type != "array" || len(s.PrefixItems) != 2 {
		t.Fatalf("got %+v", s)
	}
	if items, ok := s.Items.(bool); !ok || items {
		t.Fatalf("items = %v", s.Items)
	}
	if s.MinItems == nil || *s.MinItems != 2 {
		t.Fatalf("minItems = %v", s.MinItems)
	}
}

func TestExportEnum(t *testing.T) {
	s, err := jsonschema.Export(hyperspec.Enum("Role", "admin", "user"))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if s.Title != "Role" || len(s.Enum) != 2 {
		t.Fatalf("got %+v", s)
	}
}

func TestExportDefinedStruct(t *testing.T) {
	st, err := structs.Define(structs.Config{Name: "Widget", Tag: true},
		structs.FieldSpec{Name: "size", Shape: hyperspec.TypeOf[int64]()},
		structs.FieldSpec{Name: "color", Shape: hyperspec.TypeOf[string](), Default: "red"},
	)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	s, err := jsonschema.Export(st)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if s.Ref != "#/$defs/Widget" {
		t.Fatalf("ref = %q", s.Ref)
	}
	def := s.Defs["Widget"]
	if def.Title != "Widget" {
		t.Fatalf("title = %q", def.Title)
	}
	if def.Properties["type"].Const != "Widget" {
		t.Fatalf("tag const = %v", def.Properties["type"].Const)
	}
	if def.Properties["color"].Default != "red" {
		t.Fatalf("default = %v", def.Properties["color"].Default)
	}
	want := map[string]bool{"type": true, "size": true}
	if len(def.Required) != 2 || !want[def.Required[0]] || !want[def.Required[1]] {
		t.Fatalf("required = %v", def.Required)
	}
}

func TestExportRecursiveRecord(t *testing.T) {
	type chain struct {
		Next *chain `hyperspec:"next,optional"`
	}
	s, err := jsonschema.Export(hyperspec.TypeOf[chain]())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if s.Ref != "#/$defs/chain" {
		t.Fatalf("ref = %q", s.Ref)
	}
	next := s.Defs["chain"].Properties["next"]
	if next.Ref != "#/$defs/chain" {
		t.Fatalf("next = %+v", next)
	}
}
