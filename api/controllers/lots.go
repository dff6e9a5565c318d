package controllers

import (
	"net/http"

	"github.com/angelmondragon/lotledger/api/responses"
	"github.com/angelmondragon/lotledger/api/validators"
	"github.com/angelmondragon/lotledger/internal/lots"
	"github.com/angelmondragon/lotledger/internal/stock"
	"github.com/angelmondragon/lotledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/logger"
)

type qcStatusRequest struct {
	QCStatus string `json:"qc_status" validate:"required"`
}

func LotList(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseQueryUUID(r, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := lots.ListInput{ItemID: itemID, Params: params}
		if raw := validators.NormalizeEnum(r.URL.Query().Get("qc_status")); raw != "" {
			status, err := enums.ParseQCStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid qc_status"))
				return
			}
			input.QCStatus = &status
		}

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mapPage(page, lots.FromModel))
	}
}

func LotGet(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "lotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lot, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lots.FromModel(lot))
	}
}

func LotSummary(agg stock.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "lotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := agg.LotSummary(r.Context(), nil, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// LotUpdateQCStatus records a QC verdict for a quarantined lot.
func LotUpdateQCStatus(svc lots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "lotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req qcStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseQCStatus(validators.NormalizeEnum(req.QCStatus))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.ErrInvalidQCStatus.Because("qc status must be APPROVED or REJECTED, got %q", req.QCStatus))
			return
		}

		lot, err := svc.UpdateQCStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lots.FromModel(lot))
	}
}
