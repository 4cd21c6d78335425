package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/order"
)

// flexID accepts a product id sent as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// checkoutItem accepts both the cart shape ({id, qty}) and the stored shape
// ({product_id, quantity}).
type checkoutItem struct {
	ID        flexID           `json:"id"`
	ProductID flexID           `json:"product_id"`
	Qty       *int             `json:"qty"`
	Quantity  *int             `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

func (it checkoutItem) input() order.ItemInput {
	in := order.ItemInput{ProductID: string(it.ProductID), Price: it.Price}
	if in.ProductID == "" {
		in.ProductID = string(it.ID)
	}
	switch {
	case it.Quantity != nil:
		in.Quantity = *it.Quantity
	case it.Qty != nil:
		in.Quantity = *it.Qty
	}
	return in
}

type checkoutRequest struct {
	Items        json.RawMessage     `json:"items"`
	Total        *decimal.Decimal    `json:"total"`
	Address      json.RawMessage     `json:"address"`
	CustomerInfo *order.CustomerInfo `json:"customerInfo"`
}

func parseItems(raw json.RawMessage) ([]order.ItemInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, apperr.Validation("No items")
	}
	var items []checkoutItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errBadBody
	}
	out := make([]order.ItemInput, len(items))
	for i, it := range items {
		out[i] = it.input()
	}
	return out, nil
}

func parseAddress(raw json.RawMessage) (model.AddressInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.AddressInput{}, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return model.AddressInput{}, errBadBody
		}
		return model.AddressInput{Text: s}, nil
	case '{':
		var p model.PostalAddress
		if err := json.Unmarshal(raw, &p); err != nil {
			return model.AddressInput{}, errBadBody
		}
		return model.AddressInput{Postal: &p}, nil
	}
	return model.AddressInput{}, apperr.Validation("Invalid address")
}

func (a *App) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "Service is shutting down", "")
		return
	}
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	items, err := parseItems(req.Items)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	o, err := a.Orders.Create(r.Context(), order.CreateInput{
		Principal: a.Auth.AuthenticateOptional(r.Header.Get("Authorization")),
		Items:     items,
		Total:     req.Total,
		Address:   addr,
		Customer:  req.CustomerInfo,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"orderId": o.ID})
}

func (a *App) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := a.admin(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	views, err := a.Orders.List(r.Context(), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *App) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := a.admin(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.Orders.UpdateStatus(r.Context(), caller, r.PathValue("id"), body.Status); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order status updated successfully"})
}

func (a *App) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := a.admin(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	stats, err := a.Orders.Analytics(r.Context(), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
