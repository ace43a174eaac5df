package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Platform string

const (
	PlatformPS4  Platform = "ps4"
	PlatformPS5  Platform = "ps5"
	PlatformXbox Platform = "xbox"
	PlatformPC   Platform = "pc"
)

var platformLabels = map[Platform]string{
	PlatformPS4:  "PlayStation 4",
	PlatformPS5:  "PlayStation 5",
	PlatformXbox: "Xbox",
	PlatformPC:   "PC",
}

func (p Platform) Label() string {
	if label, ok := platformLabels[p]; ok {
		return label
	}
	return string(p)
}

type AccountType string

const (
	AccountPrimary   AccountType = "primary"
	AccountSecondary AccountType = "secondary"
	AccountFull      AccountType = "full"
)

var accountTypeLabels = map[AccountType]string{
	AccountPrimary:   "Primary",
	AccountSecondary: "Secondary",
	AccountFull:      "Full",
}

func (a AccountType) Label() string {
	if label, ok := accountTypeLabels[a]; ok {
		return label
	}
	return string(a)
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in display order.
var OrderStatuses = []OrderStatus{StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderForm is what the customer submits from the order modal.
type OrderForm struct {
	Platform         string `json:"platform"`
	AccountType      string `json:"accountType"`
	CustomerPhone    string `json:"customerPhone"`
	PaymentMethod    string `json:"paymentMethod"`
	PaymentReference string `json:"paymentReference"`
	CustomerEmail    string `json:"customerEmail,omitempty"`
	CustomerAddress  string `json:"customerAddress,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// Order is one customer purchase intent. Price is fixed at creation time.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID          string        `bun:"order_id,pk" json:"orderId"`
	Game             string        `bun:"game,notnull" json:"gameName"`
	Platform         Platform      `bun:"platform,notnull" json:"platform"`
	AccountType      AccountType   `bun:"account_type,notnull" json:"accountType"`
	Price            int           `bun:"price,notnull" json:"price"`
	CustomerPhone    string        `bun:"customer_phone,notnull" json:"customerPhone"`
	PaymentMethod    PaymentMethod `bun:"payment_method,notnull" json:"paymentMethod"`
	PaymentReference string        `bun:"payment_reference" json:"paymentReference"`
	CustomerEmail    string        `bun:"customer_email" json:"customerEmail,omitempty"`
	CustomerAddress  string        `bun:"customer_address" json:"customerAddress,omitempty"`
	Notes            string        `bun:"notes" json:"notes,omitempty"`
	Status           OrderStatus   `bun:"status,notnull" json:"status"`
	OrderTime        string        `bun:"order_time" json:"orderTime"`
	CreatedAt        time.Time     `bun:"created_at,notnull" json:"createdAt"`
	LastUpdated      time.Time     `bun:"last_updated,notnull" json:"lastUpdated"`
}

// OrderSlot is a single keyed JSON slot, e.g. the "last order" record.
type OrderSlot struct {
	bun.BaseModel `bun:"table:order_slots"`

	Key       string    `bun:"slot_key,pk"`
	Payload   string    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type OrderStats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Confirmed    int `json:"confirmed"`
	Delivered    int `json:"delivered"`
	Cancelled    int `json:"cancelled"`
	TotalRevenue int `json:"totalRevenue"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

type PlaceOrderResponse struct {
	Order          Order  `json:"order"`
	WhatsAppURL    string `json:"whatsappUrl"`
	TelegramQueued bool   `json:"telegramQueued"`
	AccessToken    string `json:"accessToken,omitempty"`
}

// PublicOrder is the order as shown to anyone holding its id: no contact or payment details.
type PublicOrder struct {
	OrderID     string      `json:"orderId"`
	Game        string      `json:"gameName"`
	Platform    Platform    `json:"platform"`
	AccountType AccountType `json:"accountType"`
	Price       int         `json:"price"`
	Status      OrderStatus `json:"status"`
	OrderTime   string      `json:"orderTime"`
}

func NewPublicOrder(o Order) PublicOrder {
	return PublicOrder{
		OrderID:     o.OrderID,
		Game:        o.Game,
		Platform:    o.Platform,
		AccountType: o.AccountType,
		Price:       o.Price,
		Status:      o.Status,
		OrderTime:   o.OrderTime,
	}
}

// DailyReport summarises the orders created on one merchant-local calendar day.
type DailyReport struct {
	Date          string         `json:"date"`
	TotalOrders   int            `json:"totalOrders"`
	TotalRevenue  int            `json:"totalRevenue"`
	ByPlatform    map[string]int `json:"byPlatform"`
	ByAccountType map[string]int `json:"byAccountType"`
	ByStatus      map[string]int `json:"byStatus"`
}
