package oracle

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/zeptools/gw-oradb/db/sqldb/oci"
)

// ErrorBufferSize caps the message text read from an error record.
const ErrorBufferSize = 512

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSuccessWithInfo
	OutcomeNoData
	OutcomeNeedData
	OutcomeInvalidHandle
	OutcomeStillExecuting
	OutcomeContinue
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSuccessWithInfo:
		return "success-with-info"
	case OutcomeNoData:
		return "no-data"
	case OutcomeNeedData:
		return "need-data"
	case OutcomeInvalidHandle:
		return "invalid-handle"
	case OutcomeStillExecuting:
		return "still-executing"
	case OutcomeContinue:
		return "continue"
	default:
		return "fatal"
	}
}

// Outcome is the interpreted status of one native call.
// It is consumed by the caller right away and never stored on the session.
type Outcome struct {
	Kind    OutcomeKind
	Code    oci.Status
	SubCode int32  // error record code, fatal only
	Message string // error record text, fatal only
	Stage   string
}

// Continuable reports whether the caller may proceed.
func (o Outcome) Continuable() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeSuccessWithInfo
}

// Err returns nil for continuable outcomes and a matchable error otherwise.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess, OutcomeSuccessWithInfo:
		return nil
	case OutcomeNoData:
		return ErrNoData
	case OutcomeNeedData:
		return ErrNeedData
	case OutcomeInvalidHandle:
		return ErrInvalidHandle
	case OutcomeStillExecuting:
		return ErrStillExecuting
	case OutcomeContinue:
		return ErrContinue
	default:
		return &FatalNativeError{Code: o.SubCode, Message: o.Message}
	}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeFatal:
		if o.Message == "" {
			return fmt.Sprintf("%s (%d)", o.Code, o.SubCode)
		}
		return fmt.Sprintf("%s (%d) %s", o.Code, o.SubCode, o.Message)
	default:
		return "Error - " + o.Code.String()
	}
}

// interpret classifies code and, for OCI_ERROR or an unknown code, reads the
// first error record from errh. It changes no session state.
func interpret(n oci.Native, code oci.Status, errh oci.Handle, stage string) Outcome {
	o := Outcome{Code: code, Stage: stage}
	switch code {
	case oci.Success:
		o.Kind = OutcomeSuccess
	case oci.SuccessWithInfo:
		o.Kind = OutcomeSuccessWithInfo
	case oci.NoData:
		o.Kind = OutcomeNoData
	case oci.NeedData:
		o.Kind = OutcomeNeedData
	case oci.InvalidHandle:
		o.Kind = OutcomeInvalidHandle
	case oci.StillExecuting:
		o.Kind = OutcomeStillExecuting
	case oci.Continue:
		o.Kind = OutcomeContinue
	default:
		o.Kind = OutcomeFatal
		if errh != 0 {
			o.SubCode, o.Message = errorRecord(n, errh)
		}
	}
	logOutcome(o)
	return o
}

func errorRecord(n oci.Native, errh oci.Handle) (int32, string) {
	code, buf, st := n.ErrorGet(errh, 1)
	if st != oci.Success {
		return code, ""
	}
	if len(buf) > ErrorBufferSize {
		buf = buf[:ErrorBufferSize]
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return code, strings.TrimSpace(string(buf))
}

func logOutcome(o Outcome) {
	switch o.Kind {
	case OutcomeFatal, OutcomeInvalidHandle:
		logWarn("%s: %s", o.Stage, o)
	default:
		logDebug("%s: %s", o.Stage, o)
	}
}
