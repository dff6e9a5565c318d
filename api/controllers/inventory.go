package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/lotledger/api/responses"
	"github.com/angelmondragon/lotledger/api/validators"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/internal/reservations"
	"github.com/angelmondragon/lotledger/pkg/logger"
)

// Quantities decode from JSON numbers or numeric strings.
type receiveRequest struct {
	ItemID  uuid.UUID       `json:"item_id" validate:"required"`
	LotCode string          `json:"lot_code" validate:"required,max=128"`
	Qty     decimal.Decimal `json:"qty"`
}

type reserveRequest struct {
	ItemID    uuid.UUID       `json:"item_id" validate:"required"`
	Qty       decimal.Decimal `json:"qty"`
	Reference *string         `json:"reference" validate:"omitempty,max=255"`
}

type issueRequest struct {
	ReservationID uuid.UUID `json:"reservation_id" validate:"required"`
}

// InventoryReceive records a new lot and its RECEIVE entry.
func InventoryReceive(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req receiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Receive(r.Context(), lots.ReceiveInput{
			ItemID:  req.ItemID,
			LotCode: req.LotCode,
			Qty:     req.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lots.FromReceiveResult(result))
	}
}

// InventoryReserve claims stock for a later issue. The Idempotency-Key header,
// when present, is stored on the reservation.
func InventoryReserve(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reservations.ReserveInput{
			ItemID:    req.ItemID,
			Qty:       req.Qty,
			Reference: req.Reference,
		}
		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
			input.IdempotencyKey = &key
		}

		result, err := svc.Reserve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, reservations.FromReserveResult(result))
	}
}

// InventoryIssue issues an open reservation from approved lots, oldest first.
func InventoryIssue(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req issueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Issue(r.Context(), req.ReservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
