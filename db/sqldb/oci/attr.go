package oci

// Typed wrappers over AttrGet. A value of an unexpected type is reported as
// InvalidHandle, which is what the C API returns for a mismatched attribute.

func AttrGetString(n Native, target Handle, htype HandleType, attr Attr, errh Handle) (string, Status) {
	v, st := n.AttrGet(target, htype, attr, errh)
	if st != Success && st != SuccessWithInfo {
		return "", st
	}
	switch s := v.(type) {
	case string:
		return s, st
	case []byte:
		return string(s), st
	default:
		return "", InvalidHandle
	}
}

func AttrGetUint(n Native, target Handle, htype HandleType, attr Attr, errh Handle) (uint64, Status) {
	v, st := n.AttrGet(target, htype, attr, errh)
	if st != Success && st != SuccessWithInfo {
		return 0, st
	}
	switch x := v.(type) {
	case uint64:
		return x, st
	case uint32:
		return uint64(x), st
	case uint16:
		return uint64(x), st
	case int:
		return uint64(x), st
	case DataType:
		return uint64(x), st
	case StmtType:
		return uint64(x), st
	default:
		return 0, InvalidHandle
	}
}
