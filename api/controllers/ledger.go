package controllers

import (
	"net/http"

	"github.com/angelmondragon/lotledger/api/responses"
	"github.com/angelmondragon/lotledger/api/validators"
	"github.com/angelmondragon/lotledger/internal/ledger"
	"github.com/angelmondragon/lotledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/logger"
)

// LedgerList pages through ledger entries, newest first, with optional
// item, lot, reservation and txn_type filters.
func LedgerList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := ledger.ListInput{Params: params}
		if input.ItemID, err = validators.ParseQueryUUID(r, "item_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.LotID, err = validators.ParseQueryUUID(r, "lot_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ReservationID, err = validators.ParseQueryUUID(r, "reservation_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := validators.NormalizeEnum(r.URL.Query().Get("txn_type")); raw != "" {
			txn, err := enums.ParseLedgerTxnType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid txn_type"))
				return
			}
			input.TxnType = &txn
		}

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mapPage(page, ledger.FromModel))
	}
}
