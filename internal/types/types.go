package types

import "github.com/DoyleJ11/alliance-stats/internal/engine"

// Client -> Server
//
//	{"type":"Sort","column":"kingdom"}
//	{"type":"OpenHistory","id":101}
//	{"type":"CloseHistory"}
//	{"type":"EditUser","id":102}
type ClientMessage struct {
	Type   string `json:"type"`
	Column string `json:"column,omitempty"`
	ID     int    `json:"id,omitempty"`
}

type ModalView struct {
	Visible bool   `json:"visible"`
	HTML    string `json:"html"`
}

// Server -> Client
type ServerMessage struct {
	Type      string            `json:"type"` // "StateSnapshot" | "Alert" | "Error"
	Version   int               `json:"version,omitempty"`
	TableHTML string            `json:"table_html,omitempty"`
	Modal     *ModalView        `json:"modal,omitempty"`
	Sort      *engine.SortState `json:"sort,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type SessionCreated struct {
	ID string `json:"id"`
}
