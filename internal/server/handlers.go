package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tournevent/lockerlink/internal/fulfillment"
	"github.com/tournevent/lockerlink/internal/orders"
	"github.com/tournevent/lockerlink/pkg/locker"
	"go.uber.org/zap"
)

func (s *Server) handlePutOrder(w http.ResponseWriter, r *http.Request) {
	var payload orderPayload
	if !s.decode(w, r, &payload) {
		return
	}
	o, err := payload.toOrder(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_META", err.Error())
		return
	}

	saved, err := s.manager.SyncOrder(r.Context(), o)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(saved))
}

func (s *Server) handleSelectLocker(w http.ResponseWriter, r *http.Request) {
	var req selectLockerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.manager.SelectLocker(r.Context(), req.SessionID, req.LockerID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleValidateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	err := s.manager.ValidateCheckout(r.Context(), fulfillment.CheckoutRequest{
		SessionID:      req.SessionID,
		ShippingMethod: req.ShippingMethod,
		LockerID:       req.LockerID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOrderPlaced(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	saved, err := s.manager.AttachCheckout(r.Context(), chi.URLParam(r, "orderID"), fulfillment.CheckoutRequest{
		SessionID: req.SessionID,
		LockerID:  req.LockerID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(saved))
}

// handleOrderCompleted always acknowledges the status change; a failed
// voucher request is reported in the body and never blocks the host.
func (s *Server) handleOrderCompleted(w http.ResponseWriter, r *http.Request) {
	var req completedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return
	}

	orderID := chi.URLParam(r, "orderID")
	result, err := s.manager.OnOrderCompleted(r.Context(), orderID, req.Manual)
	resp := completedResponse{
		OrderID:   orderID,
		Outcome:   result.Outcome,
		ParcelIDs: result.ParcelIDs,
	}
	if err != nil {
		s.logger.Ctx(r.Context()).Error("Voucher creation on completion failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoucherStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.manager.Status(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCreateVouchers(w http.ResponseWriter, r *http.Request) {
	var req createVouchersRequest
	if !s.decode(w, r, &req) {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	ids, err := s.manager.CreateVouchers(r.Context(), fulfillment.ManualRequest{
		OrderID:         orderID,
		Quantity:        req.Quantity,
		CompartmentSize: string(req.CompartmentSize),
		Override: fulfillment.Override{
			LockerID:    req.LockerID,
			WarehouseID: req.WarehouseID,
		},
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createVouchersResponse{OrderID: orderID, ParcelIDs: ids})
}

func (s *Server) handleCancelParcel(w http.ResponseWriter, r *http.Request) {
	err := s.manager.Cancel(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "parcelID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	label, err := s.manager.Label(r.Context(), chi.URLParam(r, "parcelID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", label.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", label.ParcelID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(label.Data)
}

func (s *Server) handleOrderLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.manager.Labels(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := make([]labelResponse, len(labels))
	for i, l := range labels {
		resp[i] = labelResponse{ParcelID: l.ParcelID, ContentType: l.ContentType, Data: l.Data}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"labels": resp})
}

func (s *Server) handleOrigins(w http.ResponseWriter, r *http.Request) {
	origins, err := s.manager.Origins(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := make([]originResponse, len(origins))
	for i, o := range origins {
		resp[i] = originResponse{ID: o.ID, Name: o.Name}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"origins": resp})
}

func (s *Server) handleWarehouses(w http.ResponseWriter, r *http.Request) {
	names, err := s.manager.WarehouseNames(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"warehouses": names})
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// fail logs err and writes the matching error envelope.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Ctx(r.Context()).Error("Request failed", zap.Error(err))
	} else {
		s.logger.Ctx(r.Context()).Warn("Request rejected", zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	code := ""
	var lockerErr *locker.Error
	if errors.As(err, &lockerErr) {
		code = lockerErr.Code
	}

	switch {
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, locker.ErrParcelNotFound):
		return http.StatusNotFound, code
	case errors.Is(err, orders.ErrVersionConflict):
		return http.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, fulfillment.ErrMissingSession):
		return http.StatusBadRequest, "MISSING_SESSION"
	case errors.Is(err, locker.ErrValidation):
		return http.StatusBadRequest, code
	case errors.Is(err, locker.ErrAuth),
		errors.Is(err, locker.ErrNetwork),
		errors.Is(err, locker.ErrProtocol),
		errors.Is(err, locker.ErrDeliveryRequest),
		errors.Is(err, locker.ErrCancellation):
		return http.StatusBadGateway, code
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
