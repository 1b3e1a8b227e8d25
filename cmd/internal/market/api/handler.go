// Package marketapi exposes the offers REST surface.
//
// All routes live under /api/ and therefore run behind the auth guard; the
// seller identity always comes from the validated token subject.
package marketapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"gameswap/cmd/internal/auth/guard"
	"gameswap/cmd/internal/httpapi"
	"gameswap/cmd/internal/market"
	"gameswap/cmd/internal/market/feed"
)

// EventPublisher receives offer lifecycle events after successful writes.
// *feed.Hub satisfies this.
type EventPublisher interface {
	Publish(ev feed.Event)
}

// Handler owns the offers endpoints.
type Handler struct {
	log    *slog.Logger
	cfg    Config
	offers *market.Service
	events EventPublisher
}

// NewHandler constructs the offers API handler. events may be nil when no
// feed is mounted.
func NewHandler(log *slog.Logger, cfg Config, offers *market.Service, events EventPublisher) (*Handler, error) {
	if offers == nil {
		return nil, errors.New("marketapi: nil offer service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, cfg: cfg, offers: offers, events: events}, nil
}

// Register mounts the offers routes. Method+pattern routing leaves 405
// handling to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/offers", h.handleCreateOffer)
	mux.HandleFunc("GET /api/offers", h.handleListOffers)
	mux.HandleFunc("GET /api/offers/{id}", h.handleGetOffer)
	mux.HandleFunc("GET /api/offers/seller/{seller_id}", h.handleListBySeller)
	mux.HandleFunc("PUT /api/offers/{id}", h.handleUpdateOffer)
	mux.HandleFunc("DELETE /api/offers/{id}", h.handleDeleteOffer)
}

func (h *Handler) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req createOfferRequest
	if err := httpapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be a single JSON object")
		return
	}

	offer, err := h.offers.CreateOffer(r.Context(), market.CreateInput{
		SellerID:    sellerID,
		GameTitle:   req.GameTitle,
		Platform:    req.Platform,
		Condition:   req.Condition,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, market.ErrInvalidInput):
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "all listing fields are required and price cannot be negative")
		default:
			h.log.Error("offers.create.fail", "err", err)
			httpapi.WriteError(w, http.StatusInternalServerError, "internal", "could not create offer")
		}
		return
	}

	h.publish(feed.Created(offer, time.Now().UTC()))
	httpapi.WriteJSON(w, http.StatusCreated, offerResponse{Offer: offer})
}

func (h *Handler) handleListOffers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.subject(w, r); !ok {
		return
	}

	offers, err := h.offers.ListOffers(r.Context())
	if err != nil {
		h.log.Error("offers.list.fail", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "internal", "could not list offers")
		return
	}
	if offers == nil {
		offers = []market.Offer{}
	}
	httpapi.WriteJSON(w, http.StatusOK, offersResponse{Offers: offers})
}

func (h *Handler) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.subject(w, r); !ok {
		return
	}

	offer, err := h.offers.GetOffer(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, market.ErrNotFound), errors.Is(err, market.ErrInvalidInput):
			httpapi.WriteError(w, http.StatusNotFound, "not_found", "offer not found")
		default:
			h.log.Error("offers.get.fail", "err", err)
			httpapi.WriteError(w, http.StatusInternalServerError, "internal", "could not fetch offer")
		}
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, offerResponse{Offer: offer})
}

func (h *Handler) handleListBySeller(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.subject(w, r); !ok {
		return
	}

	offers, err := h.offers.ListBySeller(r.Context(), r.PathValue("seller_id"))
	if err != nil {
		switch {
		case errors.Is(err, market.ErrInvalidInput):
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "seller id is required")
		default:
			h.log.Error("offers.list_by_seller.fail", "err", err)
			httpapi.WriteError(w, http.StatusInternalServerError, "internal", "could not list offers")
		}
		return
	}
	if offers == nil {
		offers = []market.Offer{}
	}
	httpapi.WriteJSON(w, http.StatusOK, offersResponse{Offers: offers})
}

func (h *Handler) handleUpdateOffer(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req updateOfferRequest
	if err := httpapi.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be a single JSON object")
		return
	}

	offer, err := h.offers.UpdateOffer(r.Context(), market.UpdateInput{
		OfferID:     r.PathValue("id"),
		SellerID:    sellerID,
		GameTitle:   req.GameTitle,
		Platform:    req.Platform,
		Condition:   req.Condition,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		h.writeOfferError(w, r, "offers.update.fail", err)
		return
	}

	h.publish(feed.Updated(offer, time.Now().UTC()))
	httpapi.WriteJSON(w, http.StatusOK, offerResponse{Offer: offer})
}

func (h *Handler) handleDeleteOffer(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	offerID := r.PathValue("id")
	if err := h.offers.DeleteOffer(r.Context(), offerID, sellerID); err != nil {
		h.writeOfferError(w, r, "offers.delete.fail", err)
		return
	}

	h.publish(feed.Deleted(offerID, time.Now().UTC()))
	w.WriteHeader(http.StatusNoContent)
}

// writeOfferError maps service errors for the mutation endpoints.
// Missing offers stay distinguishable from foreign ones: 404 vs 403.
func (h *Handler) writeOfferError(w http.ResponseWriter, r *http.Request, logKey string, err error) {
	switch {
	case errors.Is(err, market.ErrInvalidInput):
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_request", "provided fields must be non-blank and price cannot be negative")
	case errors.Is(err, market.ErrNotFound):
		httpapi.WriteError(w, http.StatusNotFound, "not_found", "offer not found")
	case errors.Is(err, market.ErrForbidden):
		httpapi.WriteError(w, http.StatusForbidden, "forbidden", "you do not own this offer")
	default:
		h.log.Error(logKey, "path", r.URL.Path, "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "internal", "could not apply change")
	}
}

func (h *Handler) publish(ev feed.Event) {
	if h.events == nil {
		return
	}
	h.events.Publish(ev)
}

// subject returns the authenticated user id. A missing subject on an /api/
// route means the guard middleware is not mounted; reject rather than
// proceed.
func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := guard.SubjectID(r.Context())
	if !ok || id == "" {
		httpapi.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	return id, true
}
