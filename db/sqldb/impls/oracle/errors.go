package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// Stage labels name the native call that reported a status.
const (
	StageEnvCreate    = "ENV CREATE"
	StageHandleAlloc  = "HANDLE ALLOC"
	StageServerAttach = "SERVER ATTACH"
	StageAttrSet      = "ATTR SET"
	StageSessionBegin = "SESSION BEGIN"
	StageSessionEnd   = "SESSION END"
	StageServerDetach = "SERVER DETACH"
	StageHandleFree   = "HANDLE FREE"
	StageTerminate    = "TERMINATE"
	StageStmtPrepare  = "STMT PREPARE"
	StageStmtGet      = "STMT GET"
	StageStmtExecute  = "STMT EXECUTE"
	StageStmtRelease  = "STMT RELEASE"
	StageParamGet     = "PARAM GET"
	StageDefine       = "DEFINE"
	StageFetch        = "FETCH"
	StageRowCount     = "ROW COUNT"
)

var (
	ErrNotConnected   = errors.New("oracle: session is not connected")
	ErrNeedData       = errors.New("oracle: OCI_NEED_DATA")
	ErrInvalidHandle  = errors.New("oracle: OCI_INVALID_HANDLE")
	ErrStillExecuting = errors.New("oracle: OCI_STILL_EXECUTING")
	ErrContinue       = errors.New("oracle: OCI_CONTINUE")
	ErrNoData         = errors.New("oracle: OCI_NO_DATA")
)

// FatalNativeError carries the driver's error record for OCI_ERROR.
type FatalNativeError struct {
	Code    int32 // ORA-nnnnn
	Message string
}

func (e *FatalNativeError) Error() string {
	if strings.HasPrefix(e.Message, "ORA-") {
		return e.Message
	}
	if e.Message == "" {
		return fmt.Sprintf("ORA-%05d", e.Code)
	}
	return fmt.Sprintf("ORA-%05d: %s", e.Code, e.Message)
}

// ConnectionError reports a failed step of establishing a session.
// The session has been torn down when it is returned.
type ConnectionError struct {
	Stage   string
	Outcome Outcome
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("oracle: connection failed at %s: %v", e.Stage, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StatementError reports a failed step of executing a statement.
type StatementError struct {
	Stage   string
	Outcome Outcome
	Err     error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("oracle: statement failed at %s: %v", e.Stage, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

func connectionError(o Outcome) error {
	return &ConnectionError{Stage: o.Stage, Outcome: o, Err: o.Err()}
}

func statementError(o Outcome) error {
	return &StatementError{Stage: o.Stage, Outcome: o, Err: o.Err()}
}
