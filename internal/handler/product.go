package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/wire"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("List products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unable to load products")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeProducts(e, products) })
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in product.Input
	err := readBody(w, r, func(d *jx.Decoder) error {
		var err error
		in, err = wire.DecodeInput(d)
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.products.Create(r.Context(), in)
	h.record(r.Context(), "create", err)
	if err != nil {
		var vErr *product.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		zctx.From(r.Context()).Error("Create product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unable to create product")
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { wire.EncodeProduct(e, *created) })
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var status product.Status
	err := readBody(w, r, func(d *jx.Decoder) error {
		var err error
		status, err = wire.DecodeStatus(d)
		return err
	})
	if err != nil || !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	updated, err := h.products.SetStatus(r.Context(), id, status)
	h.record(r.Context(), "status", err)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeProduct(e, *updated) })
	case errors.Is(err, product.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	default:
		zctx.From(r.Context()).Error("Update product status",
			zap.String("product_id", id),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Unable to update product")
	}
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.products.Delete(r.Context(), id)
	h.record(r.Context(), "delete", err)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, wire.EncodeSuccess)
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	default:
		zctx.From(r.Context()).Error("Delete product",
			zap.String("product_id", id),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Unable to delete product")
	}
}
