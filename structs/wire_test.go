package structs_test

import (
	"testing"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/json"
	"github.com/hyperspec/hyperspec-go/structs"
)

func TestDecodeIntoInstance(t *testing.T) {
	st := mustDefine(t, structs.Config{Name: "User"},
		structs.FieldSpec{Name: "name", Shape: hyperspec.TypeOf[string]()},
		structs.FieldSpec{Name: "age", Shape: hyperspec.TypeOf[int64](), Default: int64(0)},
	)
	v, err := json.Unmarshal([]byte(`{"name":"amy"}`), st)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	inst, ok := v.(*structs.Instance)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if name, _ := inst.Get("name"); name != "amy" {
		t.Fatalf("name = %v", name)
	}
	if age, _ := inst.Get("age"); age != int64(0) {
		t.Fatalf("age = %v", age)
	}
}

func TestEncodeInstance(t *testing.T) {
	st := mustDefine(t, structs.Config{Name: "Pt2"},
		structs.FieldSpec{Name: "x", Shape: hyperspec.TypeOf[int64]()},
		structs.FieldSpec{Name: "y", Shape: hyperspec.TypeOf[int64]()},
	)
	inst := st.MustNew(map[string]any{"x": int64(1), "y": int64(2)})
	out, err := json.Marshal(inst)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"x":1,"y":2}` {
		t.Fatalf("got %s", out)
	}
}

func TestOmitDefaultsOnEncode(t *testing.T) {
	st := mustDefine(t, structs.Config{Name: "Cfg", OmitDefaults: true},
		structs.FieldSpec{Name: "host", Shape: hyperspec.TypeOf[string]()},
		structs.FieldSpec{Name: "port", Shape: hyperspec.TypeOf[int64](), Default: int64(80)},
	)
	inst := st.MustNew(map[string]any{"host": "a"})
	out, err := json.Marshal(inst)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"host":"a"}` {
		t.Fatalf("got %s", out)
	}

	inst = st.MustNew(map[string]any{"host": "a", "port": int64(81)})
	out, err = json.Marshal(inst)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"host":"a","port":81}` {
		t.Fatalf("got %s", out)
	}
}

func TestForbidUnknownOnDecode(t *testing.T) {
	st := mustDefine(t, structs.Config{Name: "Strict", ForbidUnknown: true},
		structs.FieldSpec{Name: "a", Shape: hyperspec.TypeOf[int64]()},
	)
	_, err := json.Unmarshal([]byte(`{"a":1,"b":2}`), st)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeUnknownField {
		t.Fatalf("want unknown_field, got %v", err)
	}
}

func TestArrayLikeRoundTrip(t *testing.T) {
	st := mustDefine(t, structs.Config{Name: "Row", ArrayLike: true},
		structs.FieldSpec{Name: "id", Shape: hyperspec.TypeOf[int64]()},
		structs.FieldSpec{Name: "label", Shape: hyperspec.TypeOf[string](), Default: ""},
	)
	v, err := json.Unmarshal([]byte(`[7,"x"]`), st)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	inst := v.(*structs.Instance)
	if id, _ := inst.Get("id"); id != int64(7) {
		t.Fatalf("id = %v", id)
	}

	v, err = json.Unmarshal([]byte(`[7]`), st)
	if err != nil {
		t.Fatalf("short form: %v", err)
	}
	if label, _ := v.(*structs.Instance).Get("label"); label != "" {
		t.Fatalf("label = %v", label)
	}

	if _, err := json.Unmarshal([]byte(`[7,"x",true]`), st); err == nil {
		t.Fatalf("overlong array accepted")
	}

	out, err := json.Marshal(inst)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `[7,"x"]` {
		t.Fatalf("got %s", out)
	}
}

func TestTaggedUnionDispatch(t *testing.T) {
	cat := mustDefine(t, structs.Config{Name: "Cat", Tag: true},
		structs.FieldSpec{Name: "lives", Shape: hyperspec.TypeOf[int64]()},
	)
	dog := mustDefine(t, structs.Config{Name: "Dog", Tag: true},
		structs.FieldSpec{Name: "good", Shape: hyperspec.TypeOf[bool]()},
	)
	shape := hyperspec.Union(cat, dog)

	v, err := json.Unmarshal([]byte(`{"type":"Dog","good":true}`), shape)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	inst := v.(*structs.Instance)
	if inst.Type().Name() != "Dog" {
		t.Fatalf("dispatched to %s", inst.Type().Name())
	}
	if good, _ := inst.Get("good"); good != true {
		t.Fatalf("good = %v", good)
	}

	// Tag key position must not matter.
	v, err = json.Unmarshal([]byte(`{"lives":9,"type":"Cat"}`), shape)
	if err != nil {
		t.Fatalf("trailing tag: %v", err)
	}
	if v.(*structs.Instance).Type().Name() != "Cat" {
		t.Fatalf("dispatched to %s", v.(*structs.Instance).Type().Name())
	}

	_, err = json.Unmarshal([]byte(`{"type":"Bird"}`), shape)
	ve, ok := hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeInvalidEnum {
		t.Fatalf("want invalid_enum, got %v", err)
	}
	if ve.Path != "$.type" {
		t.Fatalf("path = %q", ve.Path)
	}

	_, err = json.Unmarshal([]byte(`{"lives":9}`), shape)
	ve, ok = hyperspec.AsValidationError(err)
	if !ok || ve.Code != hyperspec.CodeRequired {
		t.Fatalf("want required tag, got %v", err)
	}
}

func TestTaggedEncodeIncludesTag(t *testing.T) {
	ant := mustDefine(t, structs.Config{Name: "Ant", Tag: "ant", TagField: "kind"},
		structs.FieldSpec{Name: "legs", Shape: hyperspec.TypeOf[int64]()},
	)
	inst := ant.MustNew(map[string]any{"legs": int64(6)})
	out, err := json.Marshal(inst)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"kind":"ant","legs":6}` {
		t.Fatalf("got %s", out)
	}
}

func TestDecodeUnsetDistinctFromNull(t *testing.T) {
	st := mustDefine(t, structs.Config{Name: "Maybe"},
		structs.FieldSpec{Name: "a", Shape: hyperspec.TypeOf[int64]()},
		structs.FieldSpec{Name: "b", Shape: hyperspec.Any(), Default: hyperspec.Unset},
	)

	v, err := json.Unmarshal([]byte(`{"a":1}`), st)
	if err != nil {
		t.Fatalf("Unmarshal absent: %v", err)
	}
	b, _ := v.(*structs.Instance).Get("b")
	if !hyperspec.IsUnset(b) {
		t.Fatalf("absent b = %v (%T), want Unset", b, b)
	}
	if b == nil {
		t.Fatalf("Unset compares equal to nil")
	}

	v, err = json.Unmarshal([]byte(`{"a":1,"b":null}`), st)
	if err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	b, _ = v.(*structs.Instance).Get("b")
	if b != nil {
		t.Fatalf("null b = %v, want nil", b)
	}
	if hyperspec.IsUnset(b) {
		t.Fatalf("explicit null reported as Unset")
	}
}

func TestRecursiveStruct(t *testing.T) {
	node, err := structs.Define(structs.Config{Name: "TreeNode"},
		structs.FieldSpec{Name: "value", Shape: hyperspec.TypeOf[int64]()},
		structs.FieldSpec{Name: "children", Shape: hyperspec.List(hyperspec.Self()),
			Factory: func() any { return []any{} }},
	)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	v, err := json.Unmarshal([]byte(`{"value":1,"children":[{"value":2}]}`), node)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	inst := v.(*structs.Instance)
	children, _ := inst.Get("children")
	kids := children.([]any)
	if len(kids) != 1 {
		t.Fatalf("children = %v", kids)
	}
	child := kids[0].(*structs.Instance)
	if val, _ := child.Get("value"); val != int64(2) {
		t.Fatalf("child value = %v", val)
	}
	if grand, _ := child.Get("children"); len(grand.([]any)) != 0 {
		t.Fatalf("grandchildren = %v", grand)
	}
}
