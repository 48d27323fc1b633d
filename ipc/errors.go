/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package ipc

import "fmt"

// State is the IpcState enum from the shared-memory header (spec §6).
type State uint32

const (
	StateIdle State = iota
	StateRequestReady
	StateRequestRunning
	StateResponseReady
	StateResponseError
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRequestReady:
		return "RequestReady"
	case StateRequestRunning:
		return "RequestRunning"
	case StateResponseReady:
		return "ResponseReady"
	case StateResponseError:
		return "ResponseError"
	case StateShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// ErrorCode is the IpcErrorCode enum from the shared-memory header (spec §6).
type ErrorCode uint32

const (
	ErrNone ErrorCode = iota
	ErrInvalidRequest
	ErrScriptFailure
	ErrEncodeFailure
	ErrDecodeFailure
	ErrReplayFailure
	ErrTimeout
	ErrInternalError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNone:
		return "None"
	case ErrInvalidRequest:
		return "InvalidRequest"
	case ErrScriptFailure:
		return "ScriptFailure"
	case ErrEncodeFailure:
		return "EncodeFailure"
	case ErrDecodeFailure:
		return "DecodeFailure"
	case ErrReplayFailure:
		return "ReplayFailure"
	case ErrTimeout:
		return "Timeout"
	case ErrInternalError:
		return "InternalError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint32(c))
	}
}

// TransportError wraps a transport-boundary failure with the wire-level
// error code it corresponds to, so callers that care can switch on Code
// without string-matching the message.
type TransportError struct {
	Code ErrorCode
	Msg  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("vicad ipc: %s: %s", e.Code, e.Msg)
}

func newErr(code ErrorCode, format string, args ...interface{}) error {
	return &TransportError{Code: code, Msg: fmt.Sprintf(format, args...)}
}
