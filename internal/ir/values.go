package ir

// Value-model types shared between the engine and the public API. The root
// package re-exports these under the same names.

// Raw holds an already-encoded wire fragment. Encoding splices it verbatim;
// decoding into a Raw shape captures the unparsed fragment for deferred use.
type Raw []byte

// Ext is an extension-tagged binary value. Only the binary format carries
// it natively; other formats reject it at encode time.
type Ext struct {
	Type int8
	Data []byte
}

// unsetType is the type of the Unset sentinel.
type unsetType struct{}

// Unset is a singleton distinct from nil, marking "no meaningful value" in
// contexts where nil is a valid domain value. Detected with IsUnset, never
// by equality against other values.
var Unset = unsetType{}

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v any) bool {
	_, ok := v.(unsetType)
	return ok
}
