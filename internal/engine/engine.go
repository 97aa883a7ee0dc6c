package engine

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownColumn = errors.New("unknown column")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrNotPermitted = errors.New("not permitted")
var ErrUnknownEntity = errors.New("unknown entity")

// User is the identity a session acts as.
type User struct {
	ID   int    `json:"id"`
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// Row is one alliance member line of the stats table.
// Role and Power are optional.
type Row struct {
	ID      int    `json:"id"`
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	Kingdom string `json:"kingdom"`
	Role    string `json:"role,omitempty"`
	Power   int64  `json:"power,omitempty"`
}

type HistoryEntry struct {
	Date    string `json:"date"`
	Action  string `json:"action"`
	Details string `json:"details"`
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type SortState struct {
	Column    Column    `json:"column,omitempty"`
	Direction Direction `json:"direction"`
}

// Modal is the history dialog. Seq identifies the fetch whose result the
// modal is waiting for; results with any other Seq are stale.
type Modal struct {
	Visible  bool           `json:"visible"`
	EntityID int            `json:"entity_id,omitempty"`
	Loading  bool           `json:"loading"`
	Entries  []HistoryEntry `json:"entries,omitempty"`
	Seq      uint64         `json:"seq"`
	Err      string         `json:"error,omitempty"`
}

type State struct {
	User  *User     `json:"user,omitempty"`
	Rows  []Row     `json:"rows"`
	Sort  SortState `json:"sort"`
	Modal Modal     `json:"modal"`
}

type CommandType string

const (
	CmdSort          CommandType = "Sort"
	CmdOpenHistory   CommandType = "OpenHistory"
	CmdHistoryLoaded CommandType = "HistoryLoaded"
	CmdHistoryFailed CommandType = "HistoryFailed"
	CmdCloseHistory  CommandType = "CloseHistory"
	CmdEditUser      CommandType = "EditUser"
)

/*
	CmdSort          -> EvtSorted
	CmdOpenHistory   -> EvtHistoryRequested (session starts the fetch for Seq)
	CmdHistoryLoaded -> EvtHistoryLoaded, nothing when stale
	CmdHistoryFailed -> EvtHistoryFailed, nothing when stale
	CmdCloseHistory  -> EvtHistoryClosed, nothing when already hidden
	CmdEditUser      -> EvtEditRequested or ErrNotPermitted
*/

type Command struct {
	Type     CommandType
	Column   Column
	EntityID int
	Seq      uint64
	Entries  []HistoryEntry
	Err      error
}

type EventType string

const (
	EvtSorted           EventType = "Sorted"
	EvtHistoryRequested EventType = "HistoryRequested"
	EvtHistoryLoaded    EventType = "HistoryLoaded"
	EvtHistoryFailed    EventType = "HistoryFailed"
	EvtHistoryClosed    EventType = "HistoryClosed"
	EvtEditRequested    EventType = "EditRequested"
)

type Event struct {
	Type      EventType
	Column    Column
	Direction Direction
	EntityID  int
	Seq       uint64
	Message   string
}

// NewState builds the initial state for a session. The rows are copied.
func NewState(user *User, rows []Row) State {
	return State{
		User: user,
		Rows: slices.Clone(rows),
		Sort: SortState{Direction: Asc},
	}
}

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified; on error the returned state is s.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdSort:
		dir := nextDirection(s.Sort, cmd.Column)
		rows, err := SortRows(s.Rows, cmd.Column, dir)
		if err != nil {
			return nil, s, err
		}
		newState.Rows = rows
		newState.Sort = SortState{Column: cmd.Column, Direction: dir}
		return []Event{{Type: EvtSorted, Column: cmd.Column, Direction: dir}}, newState, nil

	case CmdOpenHistory:
		seq := s.Modal.Seq + 1
		newState.Modal = Modal{Visible: true, EntityID: cmd.EntityID, Loading: true, Seq: seq}
		return []Event{{Type: EvtHistoryRequested, EntityID: cmd.EntityID, Seq: seq}}, newState, nil

	case CmdHistoryLoaded:
		if !awaiting(s.Modal, cmd.Seq) {
			return nil, s, nil
		}
		newState.Modal.Loading = false
		newState.Modal.Entries = slices.Clone(cmd.Entries)
		newState.Modal.Err = ""
		return []Event{{Type: EvtHistoryLoaded, EntityID: s.Modal.EntityID, Seq: cmd.Seq}}, newState, nil

	case CmdHistoryFailed:
		if !awaiting(s.Modal, cmd.Seq) {
			return nil, s, nil
		}
		msg := "unknown error"
		if cmd.Err != nil {
			msg = cmd.Err.Error()
		}
		newState.Modal.Loading = false
		newState.Modal.Entries = nil
		newState.Modal.Err = msg
		return []Event{{
			Type:     EvtHistoryFailed,
			EntityID: s.Modal.EntityID,
			Seq:      cmd.Seq,
			Message:  "Failed to load history. See console for details.",
		}}, newState, nil

	case CmdCloseHistory:
		if !s.Modal.Visible {
			return nil, s, nil
		}
		// Seq survives so a fetch still in flight is recognised as stale.
		newState.Modal = Modal{Seq: s.Modal.Seq}
		return []Event{{Type: EvtHistoryClosed, EntityID: s.Modal.EntityID}}, newState, nil

	case CmdEditUser:
		target, ok := findRow(s.Rows, cmd.EntityID)
		if !ok {
			return nil, s, fmt.Errorf("edit %d: %w", cmd.EntityID, ErrUnknownEntity)
		}
		if !CanEditUser(s.User, target) {
			return nil, s, fmt.Errorf("edit %d: %w", cmd.EntityID, ErrNotPermitted)
		}
		return []Event{{
			Type:     EvtEditRequested,
			EntityID: cmd.EntityID,
			Message:  fmt.Sprintf("Editing mode opened for User ID: %d", cmd.EntityID),
		}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func awaiting(m Modal, seq uint64) bool {
	return m.Visible && m.Loading && m.Seq == seq
}

func findRow(rows []Row, id int) (Row, bool) {
	i := slices.IndexFunc(rows, func(r Row) bool { return r.ID == id })
	if i < 0 {
		return Row{}, false
	}
	return rows[i], true
}
