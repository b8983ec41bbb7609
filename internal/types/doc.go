// Package types holds the wire envelopes shared by the REST and websocket
// transports.
//
// Client -> Server
// create (REST only, session id from the path or generated):
//	manager: string
//	roster: { id: string, name: string }[]
//	items: string // one "Nx Name" or "Name" per line
//
// start / skip / undo:
//	actor: string
//
// remove_participant:
//	actor: string
//	participant_id: string
//
// assign:
//	actor: string // the current picker, or the manager on their behalf
//	picks: { item_id: number, quantity: number }[]
//
// Server -> Client
// StateSnapshot:
//	version: number
//	state: { session_id, manager, status, roster, pick_index, round,
//	         direction, double_pick, current_picker, items, can_undo, final }
//
// Error:
//	version: number // current version, unchanged by the rejected command
//	code: string
//	error: string
package types
