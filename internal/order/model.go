package order

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "onlinePayment"
)

type DeliveryMethod string

const (
	DeliveryExpress DeliveryMethod = "express"
	DeliveryTipax   DeliveryMethod = "tipax"
)

type Order struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uint           `json:"userId"`
	Items          []OrderItem    `json:"items"`
	OrderStatus    OrderStatus    `json:"orderStatus"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	TotalPrice     float64        `json:"totalPrice"`
	Authority      *string        `json:"authority,omitempty"`
	RefID          *string        `json:"refId,omitempty"`
	TrackingCode   *string        `json:"trackingCode,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// OrderItem freezes the unit price at order time; it is never recomputed
// from the live catalog price.
type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	ProductID uint      `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
}

type ItemRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type CreateOrderInput struct {
	Items          []ItemRequest  `json:"items"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
}

type CheckoutResult struct {
	Order       *Order `json:"order"`
	RedirectURL string `json:"paymentUrl"`
}

type VerifyOutcome struct {
	Order           *Order `json:"order"`
	RefID           string `json:"refId,omitempty"`
	AlreadyVerified bool   `json:"alreadyVerified"`
}
