package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Backend tables with live change delivery.
const (
	TableOrders        = "orders"
	TableOrderItems    = "order_items"
	TableTables        = "tables"
	TableWaiterCalls   = "waiter_calls"
	TableMessages      = "messages"
	TableReservations  = "reservations"
	TableCheckIns      = "checkins"
	TableConversations = "conversations"
	TableStockItems    = "stock_items"
)

// Event names handlers register for. EventAll receives every event.
const (
	EventOrder        = "order"
	EventTable        = "table"
	EventWaiterCall   = "waiter_call"
	EventMessage      = "message"
	EventReservation  = "reservation"
	EventCheckIn      = "checkin"
	EventConversation = "conversation"
	EventStock        = "stock"
	EventAll          = "all"
)

// Tracked lists the tables a coordinator opens a channel for, in open order.
var Tracked = []string{
	TableOrders, TableOrderItems, TableTables, TableWaiterCalls, TableMessages,
	TableReservations, TableCheckIns, TableConversations, TableStockItems,
}

var eventByTable = map[string]string{
	TableOrders:        EventOrder,
	TableOrderItems:    EventOrder,
	TableTables:        EventTable,
	TableWaiterCalls:   EventWaiterCall,
	TableMessages:      EventMessage,
	TableReservations:  EventReservation,
	TableCheckIns:      EventCheckIn,
	TableConversations: EventConversation,
	TableStockItems:    EventStock,
}

// EventForTable maps a backend table to the event name its changes are emitted under.
func EventForTable(table string) (string, bool) {
	ev, ok := eventByTable[table]
	return ev, ok
}

// HasVenueColumn reports whether rows of table carry venue_id, so the feed can filter them.
// Messages and order items are narrowed by their parent instead.
func HasVenueColumn(table string) bool {
	return table != TableMessages && table != TableOrderItems
}

// ChangeEvent is one row change pushed by the backend.
type ChangeEvent struct {
	Table      string          `json:"table"`
	Type       ChangeType      `json:"type"`
	New        json.RawMessage `json:"record,omitempty"`
	Old        json.RawMessage `json:"old_record,omitempty"`
	CommitTime time.Time       `json:"commit_time"`
	// Trimmed marks a payload that only carries row keys because the full row
	// did not fit in a notification.
	Trimmed bool `json:"trimmed,omitempty"`
}

type rowKeys struct {
	ID             string `json:"id"`
	VenueID        string `json:"venue_id"`
	OrderID        string `json:"order_id"`
	ConversationID string `json:"conversation_id"`
}

func (e ChangeEvent) keys() rowKeys {
	var k rowKeys
	if len(e.New) > 0 {
		_ = json.Unmarshal(e.New, &k)
	}
	if k.ID == "" && len(e.Old) > 0 {
		_ = json.Unmarshal(e.Old, &k)
	}
	return k
}

// RowID is the primary key of the changed row, from the new image or, for deletes, the old one.
func (e ChangeEvent) RowID() string { return e.keys().ID }

// VenueID is empty for tables without a venue column.
func (e ChangeEvent) VenueID() string { return e.keys().VenueID }

// ParentID is the owning order or conversation for child tables.
func (e ChangeEvent) ParentID() string {
	k := e.keys()
	switch e.Table {
	case TableOrderItems:
		return k.OrderID
	case TableMessages:
		return k.ConversationID
	}
	return ""
}

// DecodeNew unmarshals the new row image into T.
func DecodeNew[T any](e ChangeEvent) (T, error) {
	var v T
	if len(e.New) == 0 {
		return v, fmt.Errorf("%s %s: empty new record", e.Table, e.Type)
	}
	if err := json.Unmarshal(e.New, &v); err != nil {
		return v, fmt.Errorf("decode %s record: %w", e.Table, err)
	}
	return v, nil
}

// DecodeOld unmarshals the old row image into T.
func DecodeOld[T any](e ChangeEvent) (T, error) {
	var v T
	if len(e.Old) == 0 {
		return v, fmt.Errorf("%s %s: empty old record", e.Table, e.Type)
	}
	if err := json.Unmarshal(e.Old, &v); err != nil {
		return v, fmt.Errorf("decode %s old record: %w", e.Table, err)
	}
	return v, nil
}

// NewChange builds an event from Go values; used by relays and tests.
func NewChange(table string, typ ChangeType, newRow, oldRow any) (ChangeEvent, error) {
	ev := ChangeEvent{Table: table, Type: typ, CommitTime: time.Now().UTC()}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return ev, err
		}
		ev.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return ev, err
		}
		ev.Old = b
	}
	return ev, nil
}
