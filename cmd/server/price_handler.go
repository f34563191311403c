package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"stockprices/internal/quoteservice"
)

const maxBatchSymbols = 500

type priceHandler struct {
	svc *quoteservice.Service
}

func (h *priceHandler) getPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	writeResult(w, h.svc.GetPrice(r.Context(), symbol))
}

type pricesBody struct {
	Symbols []string `json:"symbols"`
}

type pricesResponse struct {
	Prices map[string]quoteservice.Result `json:"prices"`
}

func (h *priceHandler) getPrices(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query().Get("symbols")
		if strings.TrimSpace(q) == "" {
			http.Error(w, "missing symbols query param", http.StatusBadRequest)
			return
		}
		symbols = splitCSV(q)
	case http.MethodPost:
		var b pricesBody
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		symbols = b.Symbols
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(symbols) == 0 {
		http.Error(w, "symbols cannot be empty", http.StatusBadRequest)
		return
	}
	if len(symbols) > maxBatchSymbols {
		http.Error(w, "too many symbols", http.StatusBadRequest)
		return
	}

	results := h.svc.GetPrices(r.Context(), symbols)
	writeJSON(w, http.StatusOK, pricesResponse{Prices: results})
}

func (h *priceHandler) forceRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	writeResult(w, h.svc.ForceRefresh(r.Context(), symbol))
}

func (h *priceHandler) peekLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	quote, err := h.svc.PeekLatest(r.Context(), symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if quote == nil {
		http.Error(w, "no price history for symbol", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// writeResult maps the tagged union onto HTTP: a quote is 200, the
// unavailable error is 502 since every upstream tier failed.
func writeResult(w http.ResponseWriter, res quoteservice.Result) {
	status := http.StatusOK
	if res.IsError() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
