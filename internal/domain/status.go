package domain

type OrderType string

const (
	OrderDineIn   OrderType = "dine_in"
	OrderTakeout  OrderType = "takeout"
	OrderDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	return t == OrderDineIn || t == OrderTakeout || t == OrderDelivery
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether the order has left the kitchen for good.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderServed || s == OrderCompleted || s == OrderCancelled
}

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
	TableCleaning  TableStatus = "cleaning"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableCleaning:
		return true
	}
	return false
}

type WaiterCallStatus string

const (
	CallPending      WaiterCallStatus = "pending"
	CallAcknowledged WaiterCallStatus = "acknowledged"
	CallCompleted    WaiterCallStatus = "completed"
	CallDismissed    WaiterCallStatus = "dismissed"
)

func (s WaiterCallStatus) IsTerminal() bool { return s == CallCompleted || s == CallDismissed }

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationSeated    ReservationStatus = "seated"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationNoShow    ReservationStatus = "no_show"
)

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled || s == ReservationNoShow
}

type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderVenue    SenderType = "venue"
)

type StockLevel string

const (
	StockLow StockLevel = "low"
	StockOut StockLevel = "out"
)

type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
	RoleCashier Role = "cashier"
)

// LandingPage is where a staff member lands after PIN login.
func (r Role) LandingPage() string {
	switch r {
	case RoleOwner, RoleManager:
		return "/dashboard"
	case RoleKitchen:
		return "/kitchen"
	case RoleWaiter:
		return "/waiter"
	case RoleCashier:
		return "/pos"
	default:
		return "/"
	}
}
