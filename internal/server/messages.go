package server

import (
	"errors"
	"fmt"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/sim"
)

const (
	CmdStart     = "start"
	CmdPause     = "pause"
	CmdReset     = "reset"
	CmdSetParam  = "set_param"
	CmdSetParams = "set_params"
	CmdSetModel  = "set_model"

	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

var (
	ErrUnknownCommand = errors.New("server: unknown command")
	ErrBadCommand     = errors.New("server: malformed command")
)

// Command is a client request. Only the fields its Cmd needs are read.
type Command struct {
	Cmd    string             `json:"cmd"`
	Name   string             `json:"name,omitempty"`
	Value  *float64           `json:"value,omitempty"`
	Params map[string]float64 `json:"params,omitempty"`
	Model  string             `json:"model,omitempty"`
}

// Reply is a server frame: either a snapshot or an error.
type Reply struct {
	Type     string        `json:"type"`
	Snapshot *sim.Snapshot `json:"snapshot,omitempty"`
	Cmd      string        `json:"cmd,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// snapshotReply turns an overflowed session into an error frame, since
// JSON cannot carry +Inf.
func snapshotReply(s sim.Snapshot) Reply {
	if !s.State.IsValid() {
		return errorReply("", fmt.Errorf("%w: populations overflowed at t=%g, reset or edit parameters", dynamo.ErrInvalidState, s.ElapsedTime))
	}
	return Reply{Type: TypeSnapshot, Snapshot: &s}
}

func errorReply(cmd string, err error) Reply {
	return Reply{Type: TypeError, Cmd: cmd, Error: err.Error()}
}
