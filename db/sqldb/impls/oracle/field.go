package oracle

import (
	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/oci"
)

// FieldBufferSize is the output buffer bound to every select-list column.
// The driver renders each value as a NUL-terminated string into it.
const FieldBufferSize = 1024

// field describes one select-list column and owns its define buffer.
// The buffer is overwritten by every fetch and is dead once the statement is released.
type field struct {
	pos      uint32
	name     string
	dataType oci.DataType
	size     uint64 // declared width in bytes
	def      oci.Define
}

// newField reads the column's name, type and width from param and binds a
// fresh buffer at pos.
func newField(n oci.Native, stmt, errh, param oci.Handle, pos uint32) (*field, error) {
	f := &field{pos: pos}

	name, st := oci.AttrGetString(n, param, oci.DTypeParam, oci.AttrName, errh)
	if o := interpret(n, st, errh, StageDefine); !o.Continuable() {
		return nil, statementError(o)
	}
	f.name = name

	dt, st := oci.AttrGetUint(n, param, oci.DTypeParam, oci.AttrDataType, errh)
	if o := interpret(n, st, errh, StageDefine); !o.Continuable() {
		return nil, statementError(o)
	}
	f.dataType = oci.DataType(dt)

	size, st := oci.AttrGetUint(n, param, oci.DTypeParam, oci.AttrDataSize, errh)
	if o := interpret(n, st, errh, StageDefine); !o.Continuable() {
		return nil, statementError(o)
	}
	f.size = size

	f.def = oci.Define{Buf: make([]byte, FieldBufferSize), DataType: oci.SQLTStr}
	st = n.DefineByPos(stmt, errh, pos, &f.def, oci.ModeDefault)
	if o := interpret(n, st, errh, StageDefine); !o.Continuable() {
		return nil, statementError(o)
	}
	logDebug("column %d %s type=%d size=%d", pos, f.name, f.dataType, f.size)
	return f, nil
}

// value copies the current buffer contents out as a typed value.
func (f *field) value() any {
	if f.def.IsNull() {
		return nil
	}
	return convertValue(f.dataType, f.def.Text())
}

// convertValue maps driver text to a row value by the column's type code.
// The table is closed: codes not listed, and text that does not parse, give nil.
//
//	1, 5, 6, 9  text
//	2, 4        decimal.Decimal
//	3, 8        int64
//	12          time.Time
func convertValue(dt oci.DataType, text string) any {
	switch dt {
	case oci.SQLTChr, oci.SQLTStr, oci.SQLTVnu, oci.SQLTVcs:
		return text
	case oci.SQLTNum, oci.SQLTFlt:
		if d, ok := sqldb.ParseDecimal(text); ok {
			return d
		}
		return nil
	case oci.SQLTInt, oci.SQLTLng:
		if i, ok := sqldb.ParseInteger(text); ok {
			return i
		}
		return nil
	case oci.SQLTDat:
		if t, ok := sqldb.ParseTimestamp(text); ok {
			return t
		}
		return nil
	default:
		return nil
	}
}
