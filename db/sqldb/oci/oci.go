// Package oci describes the Oracle Call Interface as seen by the adapter:
// status codes, handle and attribute identifiers, external data type codes
// and the Native call surface. Values match the OCI C headers so that a cgo
// binding can satisfy Native without translation tables.
package oci

import (
	"context"
	"strings"
)

// Status is the return code of every native call.
type Status int32

const (
	Success         Status = 0
	SuccessWithInfo Status = 1
	NeedData        Status = 99
	NoData          Status = 100
	Error           Status = -1
	InvalidHandle   Status = -2
	StillExecuting  Status = -3123
	Continue        Status = -24200
)

func (s Status) String() string {
	switch s {
	case Success:
		return "OCI_SUCCESS"
	case SuccessWithInfo:
		return "OCI_SUCCESS_WITH_INFO"
	case NeedData:
		return "OCI_NEED_DATA"
	case NoData:
		return "OCI_NO_DATA"
	case Error:
		return "OCI_ERROR"
	case InvalidHandle:
		return "OCI_INVALID_HANDLE"
	case StillExecuting:
		return "OCI_STILL_EXECUTING"
	case Continue:
		return "OCI_CONTINUE"
	default:
		return "OCI_UNKNOWN"
	}
}

// Handle is an opaque reference to driver-managed state. Zero is the null handle.
type Handle uintptr

// HandleType identifies the kind of handle or descriptor.
type HandleType uint32

const (
	HTypeEnv     HandleType = 1
	HTypeError   HandleType = 2
	HTypeSvcCtx  HandleType = 3
	HTypeStmt    HandleType = 4
	HTypeServer  HandleType = 8
	HTypeSession HandleType = 9
	DTypeParam   HandleType = 53
)

func (t HandleType) String() string {
	switch t {
	case HTypeEnv:
		return "ENV"
	case HTypeError:
		return "ERROR"
	case HTypeSvcCtx:
		return "SVCCTX"
	case HTypeStmt:
		return "STMT"
	case HTypeServer:
		return "SERVER"
	case HTypeSession:
		return "SESSION"
	case DTypeParam:
		return "PARAM"
	default:
		return "UNKNOWN"
	}
}

// Attr identifies a handle attribute for AttrGet/AttrSet.
type Attr uint32

const (
	AttrDataSize Attr = 1
	AttrDataType Attr = 2
	AttrName     Attr = 4
	AttrServer   Attr = 6
	AttrSession  Attr = 7
	AttrRowCount Attr = 9
	AttrUsername Attr = 22
	AttrPassword Attr = 23
	AttrStmtType Attr = 24
)

// Mode is the generic mode/flags argument. Only the default mode is used.
type Mode uint32

const ModeDefault Mode = 0

// Syntax selects the statement syntax for StmtPrepare2.
type Syntax uint32

const NtvSyntax Syntax = 1

// Cred selects the authentication kind for SessionBegin.
type Cred uint32

const CredRDBMS Cred = 1

// FetchOrientation for StmtFetch2.
type FetchOrientation uint16

const FetchNext FetchOrientation = 0x02

// StmtType is the value of AttrStmtType.
type StmtType uint16

const (
	StmtUnknown StmtType = 0
	StmtSelect  StmtType = 1
	StmtUpdate  StmtType = 2
	StmtDelete  StmtType = 3
	StmtInsert  StmtType = 4
	StmtCreate  StmtType = 5
	StmtDrop    StmtType = 6
	StmtAlter   StmtType = 7
	StmtBegin   StmtType = 8
	StmtDeclare StmtType = 9
	StmtCall    StmtType = 10
	StmtMerge   StmtType = 16
)

// StmtTypeOf classifies SQL text by its leading keyword, the way the server
// reports AttrStmtType after parsing.
func StmtTypeOf(text string) StmtType {
	switch firstKeyword(text) {
	case "SELECT", "WITH":
		return StmtSelect
	case "UPDATE":
		return StmtUpdate
	case "DELETE":
		return StmtDelete
	case "INSERT":
		return StmtInsert
	case "CREATE":
		return StmtCreate
	case "DROP":
		return StmtDrop
	case "ALTER":
		return StmtAlter
	case "BEGIN":
		return StmtBegin
	case "DECLARE":
		return StmtDeclare
	case "CALL":
		return StmtCall
	case "MERGE":
		return StmtMerge
	default:
		return StmtUnknown
	}
}

func firstKeyword(text string) string {
	s := text
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
			})
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end])
		}
	}
}

// DataType is an external (SQLT) data type code.
type DataType uint16

const (
	SQLTChr       DataType = 1   // VARCHAR2
	SQLTNum       DataType = 2   // NUMBER
	SQLTInt       DataType = 3   // signed integer
	SQLTFlt       DataType = 4   // floating point
	SQLTStr       DataType = 5   // NUL-terminated string
	SQLTVnu       DataType = 6   // NUMBER with length prefix
	SQLTLng       DataType = 8   // LONG
	SQLTVcs       DataType = 9   // VARCHAR with length prefix
	SQLTDat       DataType = 12  // DATE
	SQLTBin       DataType = 23  // RAW
	SQLTAfc       DataType = 96  // CHAR
	SQLTClob      DataType = 112 // CLOB
	SQLTBlob      DataType = 113 // BLOB
	SQLTTimestamp DataType = 187 // TIMESTAMP
)

// DataTypeFor maps a database type name, as reported by a driver, to the
// internal type code the server would report through AttrDataType.
// Unknown names map to zero.
func DataTypeFor(dbTypeName string) DataType {
	name := strings.ToUpper(strings.TrimSpace(dbTypeName))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	switch {
	case strings.HasPrefix(name, "TIMESTAMP"):
		return SQLTTimestamp
	case strings.HasPrefix(name, "LONG RAW"):
		return SQLTBin
	}
	switch name {
	case "VARCHAR2", "NVARCHAR2", "VARCHAR", "NVARCHAR", "TEXT", "ROWID", "UROWID":
		return SQLTChr
	case "NUMBER", "NUMERIC", "DECIMAL":
		return SQLTNum
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT":
		return SQLTInt
	case "FLOAT", "BINARY_FLOAT", "BINARY_DOUBLE", "REAL", "DOUBLE":
		return SQLTFlt
	case "LONG":
		return SQLTLng
	case "DATE", "DATETIME":
		return SQLTDat
	case "CHAR", "NCHAR", "CHARACTER":
		return SQLTAfc
	case "CLOB", "NCLOB":
		return SQLTClob
	case "BLOB":
		return SQLTBlob
	case "RAW":
		return SQLTBin
	default:
		return 0
	}
}

// Define is an output buffer bound to a select-list position.
// The driver overwrites Buf, Indicator, Len and RCode on every fetch, so the
// contents are valid only until the next StmtFetch2 on the same statement.
type Define struct {
	Buf       []byte
	DataType  DataType // requested external type
	Indicator int16    // -1 when the column is NULL, >0 original length when truncated
	Len       uint16   // bytes written, excluding the terminator
	RCode     uint16   // column-level return code
}

// Native is the call surface of the native client library.
// Handles passed in must have been produced by the same Native.
type Native interface {
	EnvCreate(mode Mode) (Handle, Status)
	HandleAlloc(parent Handle, htype HandleType) (Handle, Status)
	HandleFree(h Handle, htype HandleType) Status
	Terminate(mode Mode) Status

	AttrSet(target Handle, htype HandleType, value any, attr Attr, errh Handle) Status
	AttrGet(target Handle, htype HandleType, attr Attr, errh Handle) (any, Status)
	ErrorGet(errh Handle, recordNo uint32) (code int32, msg []byte, st Status)

	ServerAttach(ctx context.Context, srv, errh Handle, dblink string, mode Mode) Status
	ServerDetach(srv, errh Handle, mode Mode) Status
	SessionBegin(ctx context.Context, svc, errh, usr Handle, cred Cred, mode Mode) Status
	SessionEnd(svc, errh, usr Handle, mode Mode) Status

	StmtPrepare2(svc, errh Handle, text string, syntax Syntax, mode Mode) (Handle, Status)
	StmtRelease(stmt, errh Handle, mode Mode) Status
	StmtExecute(ctx context.Context, svc, stmt, errh Handle, iters, rowOff uint32, mode Mode) Status
	ParamGet(stmt Handle, htype HandleType, errh Handle, pos uint32) (Handle, Status)
	DefineByPos(stmt, errh Handle, pos uint32, def *Define, mode Mode) Status
	StmtFetch2(ctx context.Context, stmt, errh Handle, nrows uint32, orientation FetchOrientation, offset int32, mode Mode) Status
}
