package hyperspec

// Package hyperspec provides:
//
// - A compiled type description model covering scalars, containers, unions,
//   literals, reflected Go structs and dynamically defined struct types
// - Validating decode with precise error paths ($.field[0].sub), constraint
//   metadata (bounds, lengths, patterns) and streaming resource limits
// - Deterministic encode driven by the same type descriptions
// - Wire-free conversion between in-memory representations (Convert,
//   ToBuiltins) reusing the decode walk
// - Format packages for JSON, MessagePack, YAML and TOML built on a shared
//   token contract, plus JSON Schema export
//
// Design policy:
// - Keep only public APIs in the root package; put the type graph and the
//   decode/encode engines under internal/.
// - Place dynamic struct types under structs/, wire formats under json/,
//   msgpack/, yaml/ and toml/, schema export under jsonschema/.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	type User struct {
//		Name   string   `hyperspec:"name"`
//		Groups []string `hyperspec:"groups,optional"`
//	}
//
//	u, err := json.UnmarshalAs[User](data)
//	out, err := json.Marshal(u)
//
//	v, err := hyperspec.Convert(raw, hyperspec.TypeOf[User]())
