package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"arasta-be/internal/logger"
	"arasta-be/internal/metrics"
	"arasta-be/internal/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, userID uint, input CreateOrderInput) (*CheckoutResult, error)
	InitiatePayment(ctx context.Context, o *Order) (*CheckoutResult, error)
	VerifyPayment(ctx context.Context, authority, status string) (*VerifyOutcome, error)

	Cancel(ctx context.Context, userID uint, orderID uuid.UUID) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error
	UpdateTrackingCode(ctx context.Context, orderID uuid.UUID, code string) error

	GetOrder(ctx context.Context, userID uint, orderID uuid.UUID, isAdmin bool) (*Order, error)
	ListUserOrders(ctx context.Context, userID uint) ([]*Order, error)

	// Reconciliation path.
	ListUnsettled(ctx context.Context) ([]*Order, error)
	ReapOrder(ctx context.Context, o *Order) (int, error)
}

type service struct {
	repo            Repository
	gateway         payment.Gateway
	callbackBaseURL string
}

func NewService(repo Repository, gateway payment.Gateway, callbackBaseURL string) Service {
	return &service{
		repo:            repo,
		gateway:         gateway,
		callbackBaseURL: callbackBaseURL,
	}
}

// Create turns a cart of items into a pending order with reserved stock and
// an open payment transaction. The caller must redirect the user to the
// returned payment URL.
func (s *service) Create(ctx context.Context, userID uint, input CreateOrderInput) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
		zap.Uint("user_id", userID),
		zap.Int("item_count", len(input.Items)),
	)

	if userID == 0 {
		return nil, ErrUnauthorized
	}
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = PaymentMethodOnline
	}

	// Friendly pre-check; the partial unique index is the real guard and
	// CreateOrderTx maps its violation to the same error.
	pending, err := s.repo.HasPendingOrder(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending {
		metrics.OrdersRejected.WithLabelValues("pending_order_exists").Inc()
		return nil, ErrPendingOrderExists
	}

	o, err := s.repo.CreateOrderTx(ctx, userID, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrPendingOrderExists):
			metrics.OrdersRejected.WithLabelValues("pending_order_exists").Inc()
		default:
			metrics.OrdersRejected.WithLabelValues("reservation_failed").Inc()
		}
		return nil, err
	}
	metrics.OrdersCreated.Inc()

	log.Info("order created, initiating payment",
		zap.String("order_id", o.ID.String()),
		zap.Float64("total_price", o.TotalPrice),
	)

	return s.InitiatePayment(ctx, o)
}

// InitiatePayment opens a gateway transaction for the order and stores the
// authority token. On gateway failure the order stays (pending, pending) and
// becomes eligible for reconciliation; the error propagates.
func (s *service) InitiatePayment(ctx context.Context, o *Order) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "InitiatePayment"),
		zap.String("order_id", o.ID.String()),
	)

	callbackURL := s.callbackBaseURL + "/orders/payment/verify"
	description := fmt.Sprintf("order %s", o.ID)
	metadata := map[string]any{"order_id": o.ID.String()}

	res, err := s.gateway.CreateTransaction(ctx, o.TotalPrice, description, callbackURL, metadata)
	if err != nil {
		log.Error("payment initiation failed, order left for reconciliation", zap.Error(err))
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	if err := s.repo.SetAuthority(ctx, o.ID, res.Authority); err != nil {
		return nil, err
	}
	o.Authority = &res.Authority

	log.Info("payment initiated", zap.String("authority", res.Authority))

	return &CheckoutResult{Order: o, RedirectURL: res.RedirectURL}, nil
}

// VerifyPayment is the gateway callback handler. It is idempotent under
// duplicate delivery of the same authority/status pair.
func (s *service) VerifyPayment(ctx context.Context, authority, status string) (*VerifyOutcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "VerifyPayment"),
		zap.String("authority", authority),
		zap.String("status", status),
	)

	o, err := s.repo.GetByAuthority(ctx, authority)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if o.PaymentStatus == PaymentCompleted {
		log.Info("duplicate verification callback, already completed")
		metrics.PaymentVerifications.WithLabelValues("already_verified").Inc()
		return &VerifyOutcome{Order: o, AlreadyVerified: true}, nil
	}

	if status != payment.StatusOK {
		log.Warn("payment cancelled by user, releasing stock")
		if err := s.markFailed(ctx, o); err != nil {
			return nil, err
		}
		metrics.PaymentVerifications.WithLabelValues("cancelled").Inc()
		return nil, ErrPaymentCancelled
	}

	res, err := s.gateway.VerifyTransaction(ctx, o.TotalPrice, authority)
	switch {
	case err == nil:
		// fall through to completion below
	case errors.Is(err, payment.ErrAlreadyVerified):
		log.Info("gateway reports transaction already verified")
		metrics.PaymentVerifications.WithLabelValues("already_verified").Inc()
		return &VerifyOutcome{Order: o, AlreadyVerified: true}, nil
	case payment.IsGatewayError(err):
		log.Warn("gateway rejected verification, releasing stock", zap.Error(err))
		if mErr := s.markFailed(ctx, o); mErr != nil {
			return nil, mErr
		}
		metrics.PaymentVerifications.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrPaymentVerificationFailed, err)
	default:
		// Transport failure: never assume success, never compensate. The
		// order stays pending for a retried callback or the reconciler.
		log.Error("gateway unreachable during verification", zap.Error(err))
		metrics.PaymentVerifications.WithLabelValues("gateway_unreachable").Inc()
		return nil, err
	}

	refID := strconv.FormatInt(res.RefID, 10)
	if err := s.repo.MarkCompleted(ctx, o.ID, refID); err != nil {
		return nil, err
	}
	o.OrderStatus = StatusProcessing
	o.PaymentStatus = PaymentCompleted
	o.RefID = &refID

	log.Info("payment completed", zap.String("ref_id", refID))
	metrics.PaymentVerifications.WithLabelValues("success").Inc()

	return &VerifyOutcome{Order: o, RefID: refID}, nil
}

func (s *service) markFailed(ctx context.Context, o *Order) error {
	if !CanTransition(o.State(), State{StatusPending, PaymentFailed}) {
		return ErrInvalidTransition
	}
	return s.repo.MarkFailedAndRelease(ctx, o.ID)
}

// Cancel transitions a pending order to cancelled. Stock is not released
// here; the reconciliation sweep releases it on its next pass (the order's
// payment stays pending, which keeps it in the unsettled set).
func (s *service) Cancel(ctx context.Context, userID uint, orderID uuid.UUID) error {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return ErrUnauthorized
	}

	to := State{StatusCancelled, o.PaymentStatus}
	if !CanTransition(o.State(), to) {
		return ErrInvalidTransition
	}

	return s.repo.UpdateOrderState(ctx, orderID, o.State(), to)
}

// UpdateStatus is the fulfilment path (admin): processing -> shipped ->
// delivered, validated against the transition table.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	to := State{status, o.PaymentStatus}
	if !CanTransition(o.State(), to) {
		return ErrInvalidTransition
	}

	return s.repo.UpdateOrderState(ctx, orderID, o.State(), to)
}

func (s *service) UpdateTrackingCode(ctx context.Context, orderID uuid.UUID, code string) error {
	if code == "" {
		return errors.New("tracking code is empty")
	}
	return s.repo.SetTrackingCode(ctx, orderID, code)
}

func (s *service) GetOrder(ctx context.Context, userID uint, orderID uuid.UUID, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrUnauthorized
	}
	return o, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uint) ([]*Order, error) {
	return s.repo.ListUserOrders(ctx, userID)
}

func (s *service) ListUnsettled(ctx context.Context) ([]*Order, error) {
	return s.repo.ListUnsettled(ctx)
}

// ReapOrder removes one unsettled order, returning however much stock it
// still holds. An order with no items has nothing left to release.
func (s *service) ReapOrder(ctx context.Context, o *Order) (int, error) {
	if len(o.Items) == 0 {
		return 0, s.repo.Delete(ctx, o.ID)
	}
	return s.repo.ReleaseAndDelete(ctx, o.ID)
}
