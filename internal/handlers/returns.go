package handlers

import (
	"net/http"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

// Query parameters the hosted checkout page appends to the return URL.
const (
	returnTokenParam = "gf_payflexi_return"
	cancelledMarker  = "pf_cancelled"
	declinedMarker   = "pf_declined"
	approvedMarker   = "pf_approved"
)

type returnResponse struct {
	Status     string `json:"status"`
	Reference  string `json:"reference,omitempty"`
	AmountPaid int64  `json:"amount_paid,omitempty"`
}

// HandleReturn handles GET /payflexi/return
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	token := query.Get(returnTokenParam)
	if token == "" {
		h.writeError(w, http.StatusBadRequest, service.ErrCodeIntegrityCheckFailed, "missing return token")
		return
	}

	instr, err := h.returns.HandleReturn(r.Context(), service.ReturnRequest{
		Token:     token,
		Reference: query.Get(approvedMarker),
		Cancelled: query.Has(cancelledMarker),
		Declined:  query.Has(declinedMarker),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	switch instr.Kind {
	case service.RenderRedirect:
		http.Redirect(w, r, instr.RedirectURL, http.StatusFound)
	case service.RenderConfirmation:
		h.writeJSON(w, http.StatusOK, returnResponse{
			Status:     "approved",
			Reference:  instr.Reference,
			AmountPaid: instr.AmountPaid,
		})
	case service.RenderFailed:
		h.writeJSON(w, http.StatusOK, returnResponse{
			Status:    "failed",
			Reference: instr.Reference,
		})
	default:
		// RenderNone: reveal nothing about why.
		w.WriteHeader(http.StatusNoContent)
	}
}
