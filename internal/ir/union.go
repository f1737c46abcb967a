package ir

// Union member matching is resolved entirely at build time. Each member
// claims one or more "wire classes" (the primitive kinds it can accept);
// two members claiming the same class without a distinguishing literal or
// struct tag make the union ambiguous, which is a registration error, never
// a decode-time heuristic.

type wireClass int

const (
	classNil wireClass = iota
	classBool
	classInt
	classFloat
	classStr
	classBytes
	classExt
	classSeq
	classMap
)

func (b *builder) buildUnion(s UnionShape) (*Node, error) {
	// Flatten nested unions and nil members into a single alternative list.
	flat := make([]any, 0, len(s.Members))
	var expand func(members []any)
	expand = func(members []any) {
		for _, m := range members {
			if inner, ok := m.(UnionShape); ok {
				expand(inner.Members)
				continue
			}
			flat = append(flat, m)
		}
	}
	expand(s.Members)
	if len(flat) < 2 {
		return nil, descErrf("union", "union requires at least two members")
	}

	members := make([]*Node, len(flat))
	for i, m := range flat {
		n, err := b.build(m)
		if err != nil {
			return nil, err
		}
		members[i] = n
	}

	tbl := &UnionTable{
		StrLiterals: map[string]*Node{},
		IntLiterals: map[int64]*Node{},
		TagStructs:  map[any]*Node{},
	}
	claimed := map[wireClass]*Node{}
	claim := func(m *Node, cls wireClass) error {
		if prev, ok := claimed[cls]; ok {
			return descErrf("union", "members %s and %s are not distinguishable",
				prev.Kind, m.Kind)
		}
		claimed[cls] = m
		return nil
	}

	for _, m := range members {
		node := m
		if node.Nullable {
			if err := claim(node, classNil); err != nil {
				return nil, err
			}
		}
		switch node.Kind {
		case KindNil:
			if err := claim(node, classNil); err != nil {
				return nil, err
			}
			tbl.NilMember = node
		case KindBool:
			if err := claim(node, classBool); err != nil {
				return nil, err
			}
			tbl.BoolMember = node
		case KindInt:
			if err := claim(node, classInt); err != nil {
				return nil, err
			}
			tbl.IntMember = node
		case KindFloat:
			if err := claim(node, classFloat); err != nil {
				return nil, err
			}
			tbl.FloatMember = node
		case KindStr, KindDateTime, KindDate, KindTime, KindDuration, KindUUID:
			if err := claim(node, classStr); err != nil {
				return nil, err
			}
			tbl.StrMember = node
		case KindDecimal:
			// Decimal accepts both string and numeric wire forms.
			if err := claim(node, classStr); err != nil {
				return nil, err
			}
			if err := claim(node, classFloat); err != nil {
				return nil, err
			}
			tbl.StrMember = node
			if tbl.FloatMember == nil {
				tbl.FloatMember = node
			}
		case KindBytes:
			// Textual formats carry bytes as base64 strings, so a bytes
			// member also occupies the string class.
			if err := claim(node, classBytes); err != nil {
				return nil, err
			}
			if err := claim(node, classStr); err != nil {
				return nil, err
			}
			tbl.BytesMember = node
			tbl.StrMember = node
		case KindExt:
			if err := claim(node, classExt); err != nil {
				return nil, err
			}
			tbl.ExtMember = node
		case KindLiteral, KindEnum:
			for _, v := range node.Literals {
				switch lv := v.(type) {
				case string:
					if tbl.StrMember != nil && tbl.StrMember.Kind == KindStr {
						return nil, descErrf("union", "str literal %q shadowed by a str member", lv)
					}
					if _, dup := tbl.StrLiterals[lv]; dup {
						return nil, descErrf("union", "duplicate literal %q across members", lv)
					}
					tbl.StrLiterals[lv] = node
				case int64:
					if tbl.IntMember != nil {
						return nil, descErrf("union", "int literal %d shadowed by an int member", lv)
					}
					if _, dup := tbl.IntLiterals[lv]; dup {
						return nil, descErrf("union", "duplicate literal %d across members", lv)
					}
					tbl.IntLiterals[lv] = node
				case nil:
					if err := claim(node, classNil); err != nil {
						return nil, err
					}
					tbl.NilMember = node
				}
			}
		case KindList, KindSet, KindFrozenSet, KindTuple, KindVarTuple:
			if err := claim(node, classSeq); err != nil {
				return nil, err
			}
			tbl.SeqMember = node
		case KindStruct:
			si := node.Struct
			if si.ArrayLike {
				if err := claim(node, classSeq); err != nil {
					return nil, err
				}
				tbl.SeqMember = node
				break
			}
			if si.TagField == "" {
				if err := claim(node, classMap); err != nil {
					return nil, err
				}
				tbl.MapMember = node
				break
			}
			if tbl.MapMember != nil {
				return nil, descErrf("union", "tagged struct %s conflicts with an untagged map-like member", si.Name)
			}
			if tbl.TagField != "" && tbl.TagField != si.TagField {
				return nil, descErrf("union", "struct members disagree on tag field (%q vs %q)", tbl.TagField, si.TagField)
			}
			tbl.TagField = si.TagField
			if _, dup := tbl.TagStructs[si.Tag]; dup {
				return nil, descErrf("union", "duplicate struct tag %v", si.Tag)
			}
			tbl.TagStructs[si.Tag] = node
		case KindDict, KindRecord, KindFields:
			if len(tbl.TagStructs) > 0 {
				return nil, descErrf("union", "map-like member conflicts with tagged struct members")
			}
			if err := claim(node, classMap); err != nil {
				return nil, err
			}
			tbl.MapMember = node
		case KindAny, KindRaw, KindCustom, KindUnion, KindRef:
			return nil, descErrf("union", "%s members are not allowed in unions", node.Kind)
		default:
			return nil, descErrf("union", "unsupported union member %s", node.Kind)
		}
	}

	return &Node{Kind: KindUnion, Members: members, Union: tbl}, nil
}
