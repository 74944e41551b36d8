package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tournevent/lockerlink/internal/orders"
	"github.com/tournevent/lockerlink/internal/session"
	"github.com/tournevent/lockerlink/internal/telemetry"
	"github.com/tournevent/lockerlink/pkg/locker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// VoucherState is the derived voucher state of an order.
type VoucherState string

const (
	StateNone     VoucherState = "none"
	StateCreated  VoucherState = "created"
	StateCanceled VoucherState = "canceled"
)

// StateOf derives the voucher state from order metadata.
func StateOf(m orders.Metadata) VoucherState {
	switch {
	case len(m.ParcelIDs) > 0:
		return StateCreated
	case m.VouchersCreated:
		return StateCanceled
	default:
		return StateNone
	}
}

// Completion outcomes.
const (
	OutcomeCreated        = "created"
	OutcomeAlreadyCreated = "already_created"
	OutcomeSkippedMode    = "skipped_voucher_mode"
	OutcomeSkippedMethod  = "skipped_shipping_method"
	OutcomeSkippedManual  = "skipped_manual_status_change"
	OutcomeFailed         = "failed"
)

// CompletionResult describes what the completion hook did.
type CompletionResult struct {
	OrderID   string   `json:"order_id"`
	Outcome   string   `json:"outcome"`
	ParcelIDs []string `json:"parcel_ids,omitempty"`
}

// ManualRequest asks for a batch of vouchers of one size.
type ManualRequest struct {
	OrderID         string
	Quantity        int
	CompartmentSize string // small|medium|large or 1|2|3
	Override        Override
}

// VoucherStatus is the merchant-facing view of an order's vouchers.
type VoucherStatus struct {
	OrderID         string       `json:"order_id"`
	State           VoucherState `json:"state"`
	VouchersCreated bool         `json:"vouchers_created"`
	ParcelIDs       []string     `json:"parcel_ids"`
	MaxVouchers     int          `json:"max_vouchers"`
	LockerID        string       `json:"locker_id,omitempty"`
	WarehouseID     string       `json:"warehouse_id,omitempty"`
}

// labelConcurrency bounds parallel label downloads per order.
const labelConcurrency = 4

// Manager owns the voucher lifecycle of orders.
type Manager struct {
	cfg       Config
	store     orders.Store
	sessions  session.Store
	courier   locker.Courier
	assembler *Assembler
	delivery  *DeliveryService
	locks     *keyedMutex
	metrics   *telemetry.Metrics
	logger    *otelzap.Logger
}

// NewManager wires a Manager and its collaborators.
func NewManager(cfg Config, store orders.Store, sessions session.Store, courier locker.Courier, metrics *telemetry.Metrics, logger *otelzap.Logger) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		courier:   courier,
		assembler: NewAssembler(store, cfg, logger),
		delivery:  NewDeliveryService(courier, store, metrics, logger),
		locks:     newKeyedMutex(),
		metrics:   metrics,
		logger:    logger,
	}
}

// OnOrderCompleted creates one voucher when an order reaches "completed".
// It only acts in email voucher mode, for locker-shipped orders, and not for
// status changes the caller marks as manual. Orders whose vouchers were
// already created are left alone.
func (m *Manager) OnOrderCompleted(ctx context.Context, orderID string, manual bool) (*CompletionResult, error) {
	result := &CompletionResult{OrderID: orderID}

	if m.cfg.VoucherMode != VoucherModeEmail {
		result.Outcome = OutcomeSkippedMode
		return result, nil
	}
	if manual {
		result.Outcome = OutcomeSkippedManual
		return result, nil
	}

	unlock := m.locks.Lock(orderID)
	defer unlock()

	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}
	if o.ShippingMethod != m.cfg.ShippingMethod {
		result.Outcome = OutcomeSkippedMethod
		return result, nil
	}
	if o.Meta.VouchersCreated {
		result.Outcome = OutcomeAlreadyCreated
		return result, nil
	}

	in, err := m.assembler.Assemble(ctx, o, Override{})
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}

	resp, err := m.delivery.Request(ctx, o.ID, &locker.VoucherRequest{
		Input:           in,
		Count:           1,
		CompartmentSize: in.CompartmentSizes[0],
	})
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}

	m.metrics.RecordVouchers("completion", len(resp.ParcelIDs))
	result.Outcome = OutcomeCreated
	result.ParcelIDs = resp.ParcelIDs
	return result, nil
}

// CreateVouchers creates a merchant-requested batch and returns the new
// parcel IDs. There is no idempotency guard: calling it twice creates two
// batches.
func (m *Manager) CreateVouchers(ctx context.Context, req ManualRequest) ([]string, error) {
	size, err := locker.ParseSize(req.CompartmentSize)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(req.OrderID)
	defer unlock()

	o, err := m.store.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if maxVouchers := o.Units(); req.Quantity < 1 || req.Quantity > maxVouchers {
		return nil, locker.NewValidationError("INVALID_QUANTITY", locker.ErrInvalidQuantity).
			WithMessage(fmt.Sprintf("quantity must be between 1 and %d", maxVouchers))
	}

	in, err := m.assembler.Assemble(ctx, o, req.Override)
	if err != nil {
		return nil, err
	}

	resp, err := m.delivery.Request(ctx, o.ID, &locker.VoucherRequest{
		Input:           in,
		Count:           req.Quantity,
		CompartmentSize: size,
	})
	if err != nil {
		return nil, err
	}

	m.metrics.RecordVouchers("manual", len(resp.ParcelIDs))
	return resp.ParcelIDs, nil
}

// Cancel cancels one parcel of an order. Unknown parcels are rejected
// without contacting the courier; on courier failure the order is left
// unchanged. The vouchers-created flag is kept.
func (m *Manager) Cancel(ctx context.Context, orderID, parcelID string) error {
	unlock := m.locks.Lock(orderID)
	defer unlock()

	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.Meta.HasParcel(parcelID) {
		return locker.NewValidationError("PARCEL_NOT_FOUND", locker.ErrParcelNotFound).
			WithMessage(fmt.Sprintf("parcel %s is not recorded on order %s", parcelID, orderID))
	}

	start := time.Now()
	err = m.courier.CancelParcel(ctx, parcelID)
	observe(m.metrics, m.courier.Name(), "cancel_parcel", start, err)
	if err != nil {
		m.logger.Ctx(ctx).Error("Parcel cancellation failed",
			zap.String("order_id", orderID),
			zap.String("parcel_id", parcelID),
			zap.Error(err),
		)
		return err
	}

	_, err = orders.Mutate(ctx, m.store, orderID, func(o *orders.Order) error {
		o.Meta.RemoveParcel(parcelID)
		o.Status = m.cfg.CanceledStatus
		return nil
	})
	if err != nil {
		m.logger.Ctx(ctx).Error("Failed to record cancelled parcel",
			zap.String("order_id", orderID),
			zap.String("parcel_id", parcelID),
			zap.Error(err),
		)
		return fmt.Errorf("record cancellation of parcel %s: %w", parcelID, err)
	}

	m.metrics.RecordCancellation()
	m.logger.Ctx(ctx).Info("Parcel cancelled",
		zap.String("order_id", orderID),
		zap.String("parcel_id", parcelID),
	)
	return nil
}

// Status returns the voucher view of an order.
func (m *Manager) Status(ctx context.Context, orderID string) (*VoucherStatus, error) {
	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ids := o.Meta.ParcelIDs
	if ids == nil {
		ids = []string{}
	}
	return &VoucherStatus{
		OrderID:         o.ID,
		State:           StateOf(o.Meta),
		VouchersCreated: o.Meta.VouchersCreated,
		ParcelIDs:       ids,
		MaxVouchers:     o.Units(),
		LockerID:        o.Meta.LockerID,
		WarehouseID:     o.Meta.WarehouseID,
	}, nil
}

// Label fetches the printable voucher of a parcel this service created.
func (m *Manager) Label(ctx context.Context, parcelID string) (*locker.Label, error) {
	if _, err := m.store.FindOrderByParcel(ctx, parcelID); err != nil {
		return nil, locker.NewValidationError("PARCEL_NOT_FOUND", locker.ErrParcelNotFound).
			WithMessage(fmt.Sprintf("parcel %s is unknown", parcelID))
	}

	start := time.Now()
	label, err := m.courier.GetLabel(ctx, parcelID)
	observe(m.metrics, m.courier.Name(), "get_label", start, err)
	if err != nil {
		return nil, err
	}
	return label, nil
}

// Labels fetches the labels of every active parcel of an order, in order.
func (m *Manager) Labels(ctx context.Context, orderID string) ([]*locker.Label, error) {
	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	labels := make([]*locker.Label, len(o.Meta.ParcelIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(labelConcurrency)
	for i, parcelID := range o.Meta.ParcelIDs {
		g.Go(func() error {
			start := time.Now()
			label, err := m.courier.GetLabel(gctx, parcelID)
			observe(m.metrics, m.courier.Name(), "get_label", start, err)
			if err != nil {
				return fmt.Errorf("label for parcel %s: %w", parcelID, err)
			}
			labels[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return labels, nil
}

// Origins lists the warehouses registered with the courier.
func (m *Manager) Origins(ctx context.Context) ([]locker.Origin, error) {
	start := time.Now()
	origins, err := m.courier.ListOrigins(ctx)
	observe(m.metrics, m.courier.Name(), "list_origins", start, err)
	return origins, err
}

// WarehouseNames maps each configured warehouse ID to its courier name.
// IDs unknown to the courier map to themselves. With no configured
// warehouses every courier origin is returned.
func (m *Manager) WarehouseNames(ctx context.Context) (map[string]string, error) {
	origins, err := m.Origins(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]string, len(origins))
	for _, o := range origins {
		byID[o.ID] = o.Name
	}
	if len(m.cfg.Warehouses) == 0 {
		return byID, nil
	}

	names := make(map[string]string, len(m.cfg.Warehouses))
	for _, id := range m.cfg.Warehouses {
		if name, ok := byID[id]; ok {
			names[id] = name
		} else {
			names[id] = id
		}
	}
	return names, nil
}

// SortedWarehouseIDs returns the keys of a WarehouseNames map in order.
func SortedWarehouseIDs(names map[string]string) []string {
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
