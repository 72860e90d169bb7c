package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllVenues selects every venue the viewer can see instead of a single one.
const AllVenues = "*"

type Venue struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Address   string          `json:"address"`
	Phone     string          `json:"phone"`
	Currency  string          `json:"currency"`
	Locale    string          `json:"locale"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	CreatedAt time.Time       `json:"created_at"`
}

type Order struct {
	ID           string          `json:"id"`
	VenueID      string          `json:"venue_id"`
	OrderNumber  string          `json:"order_number"`
	TableID      *string         `json:"table_id,omitempty"`
	TableNumber  *int            `json:"table_number,omitempty"`
	CustomerName string          `json:"customer_name"`
	OrderType    OrderType       `json:"order_type"`
	Status       OrderStatus     `json:"status"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ReadyAt      *time.Time      `json:"ready_at,omitempty"`
	ServedAt     *time.Time      `json:"served_at,omitempty"`
}

type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Table struct {
	ID                   string      `json:"id"`
	VenueID              string      `json:"venue_id"`
	Number               int         `json:"number"`
	Name                 string      `json:"name"`
	Capacity             int         `json:"capacity"`
	Status               TableStatus `json:"status"`
	CurrentOrderID       *string     `json:"current_order_id,omitempty"`
	CurrentReservationID *string     `json:"current_reservation_id,omitempty"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

type WaiterCall struct {
	ID          string           `json:"id"`
	VenueID     string           `json:"venue_id"`
	TableID     string           `json:"table_id"`
	TableNumber int              `json:"table_number"`
	Reason      string           `json:"reason"`
	Status      WaiterCallStatus `json:"status"`
	AnsweredBy  *string          `json:"answered_by,omitempty"`
	AnsweredAt  *time.Time       `json:"answered_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type Conversation struct {
	ID             string    `json:"id"`
	VenueID        string    `json:"venue_id"`
	CustomerName   string    `json:"customer_name"`
	TableNumber    *int      `json:"table_number,omitempty"`
	UnreadVenue    int       `json:"unread_venue"`
	UnreadCustomer int       `json:"unread_customer"`
	LastMessageAt  time.Time `json:"last_message_at"`
	Closed         bool      `json:"closed"`
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderType     SenderType `json:"sender_type"`
	Content        string     `json:"content"`
	IsRead         bool       `json:"is_read"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Reservation struct {
	ID           string            `json:"id"`
	VenueID      string            `json:"venue_id"`
	CustomerName string            `json:"customer_name"`
	Phone        string            `json:"phone"`
	PartySize    int               `json:"party_size"`
	ReservedAt   time.Time         `json:"reserved_at"`
	TableID      *string           `json:"table_id,omitempty"`
	Status       ReservationStatus `json:"status"`
	Notes        string            `json:"notes"`
	CreatedAt    time.Time         `json:"created_at"`
}

type CheckIn struct {
	ID           string    `json:"id"`
	VenueID      string    `json:"venue_id"`
	CustomerName string    `json:"customer_name"`
	TableID      *string   `json:"table_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsVisible    bool      `json:"is_visible"`
	CreatedAt    time.Time `json:"created_at"`
}

type StockItem struct {
	ID        string          `json:"id"`
	VenueID   string          `json:"venue_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Current   decimal.Decimal `json:"current_quantity"`
	Minimum   decimal.Decimal `json:"minimum_quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type StockAlert struct {
	Item  StockItem  `json:"item"`
	Level StockLevel `json:"level"`
}

type Staff struct {
	ID       string `json:"id"`
	VenueID  string `json:"venue_id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
	PINHash  string `json:"-"`
}
