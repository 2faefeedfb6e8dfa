package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/purchasing"
	"github.com/Spok95/labstock/internal/quality"
	"github.com/Spok95/labstock/internal/replenish"
)

type RequestService interface {
	Create(ctx context.Context, r *requests.Request) (*purchasing.Outcome, error)
	SetStatus(ctx context.Context, id, status string) (*purchasing.Outcome, error)
	Submit(ctx context.Context, id, status string) (*purchasing.Outcome, error)
	Cancel(ctx context.Context, id string) (*purchasing.Outcome, error)
	FindSimilar(ctx context.Context, itemCode, supplier string, windowDays int) ([]requests.Similar, error)
}

type QualityService interface {
	SaveReceipt(ctx context.Context, rc *receipts.Receipt) (*quality.ReceiptOutcome, error)
	Workflow(ctx context.Context, id string, act receipts.Action) (*quality.ReceiptOutcome, error)
	ValidateTransfer(ctx context.Context, t *inventory.Transfer) error
	SaveLot(ctx context.Context, l *lots.Lot) (*quality.LotOutcome, error)
}

type Scanner interface {
	Run(ctx context.Context) (*replenish.Report, error)
}

type Production interface {
	Run(ctx context.Context, wo replenish.WorkOrder) (*replenish.ProductionReport, error)
}

type Lookups interface {
	StockProjection(ctx context.Context, itemCode, location string) (*purchasing.Projection, error)
	LastPurchase(ctx context.Context, itemCode, location string) (*purchasing.Purchase, error)
}

// API serves the document operations as JSON over HTTP.
type API struct {
	log        *slog.Logger
	requests   RequestService
	quality    QualityService
	scanner    Scanner
	production Production
	lookups    Lookups
}

func NewAPI(log *slog.Logger, rs RequestService, qs QualityService, sc Scanner, pc Production, lk Lookups) *API {
	return &API{log: log, requests: rs, quality: qs, scanner: sc, production: pc, lookups: lk}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /requests", a.createRequest)
	mux.HandleFunc("GET /requests/similar", a.findSimilar)
	mux.HandleFunc("POST /requests/{id}/status", a.setStatus)
	mux.HandleFunc("POST /requests/{id}/submit", a.submitRequest)
	mux.HandleFunc("POST /requests/{id}/cancel", a.cancelRequest)

	mux.HandleFunc("POST /receipts", a.saveReceipt)
	mux.HandleFunc("POST /receipts/{id}/workflow", a.receiptWorkflow)
	mux.HandleFunc("POST /stock-entries/validate", a.validateStockEntry)
	mux.HandleFunc("POST /lots", a.saveLot)
	mux.HandleFunc("POST /lots/{id}", a.saveLot)

	mux.HandleFunc("POST /replenishment/scan", a.runScan)
	mux.HandleFunc("POST /production/check", a.productionCheck)
	mux.HandleFunc("GET /stock/projection", a.stockProjection)
	mux.HandleFunc("GET /purchases/last", a.lastPurchase)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type outcomeResponse struct {
	Request  requestDTO   `json:"request"`
	Similar  []similarDTO `json:"similar,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

func outcomeFromDomain(o *purchasing.Outcome) outcomeResponse {
	resp := outcomeResponse{Request: requestFromDomain(o.Request), Warnings: o.Warnings}
	if len(o.Similar) > 0 {
		resp.Similar = similarFromDomain(o.Similar)
	}
	return resp
}

/* Requests */

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	var in requestDTO
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	req, err := in.toDomain()
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	out, err := a.requests.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcomeFromDomain(out))
}

func (a *API) findSimilar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window := -1
	if v := q.Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeServiceError(w, a.log, domain.Validation("window_days", "must be a non-negative integer"))
			return
		}
		window = n
	}
	sim, err := a.requests.FindSimilar(r.Context(), q.Get("item_code"), q.Get("supplier"), window)
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, similarFromDomain(sim))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *API) setStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	out, err := a.requests.SetStatus(r.Context(), r.PathValue("id"), in.Status)
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeFromDomain(out))
}

func (a *API) submitRequest(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if r.ContentLength != 0 {
		if err := decode(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
	}
	out, err := a.requests.Submit(r.Context(), r.PathValue("id"), in.Status)
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeFromDomain(out))
}

func (a *API) cancelRequest(w http.ResponseWriter, r *http.Request) {
	out, err := a.requests.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeFromDomain(out))
}

/* Receipts, stock entries, lots */

type receiptResponse struct {
	Receipt  receiptDTO       `json:"receipt"`
	Release  *quality.Release `json:"release,omitempty"`
	Messages []string         `json:"messages,omitempty"`
}

func (a *API) saveReceipt(w http.ResponseWriter, r *http.Request) {
	var in receiptDTO
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	rc, err := in.toDomain()
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	out, err := a.quality.SaveReceipt(r.Context(), rc)
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Receipt: receiptFromDomain(out.Receipt), Messages: out.Messages})
}

type workflowRequest struct {
	Action string `json:"action"`
}

func (a *API) receiptWorkflow(w http.ResponseWriter, r *http.Request) {
	var in workflowRequest
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	out, err := a.quality.Workflow(r.Context(), r.PathValue("id"), receipts.Action(in.Action))
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		Receipt:  receiptFromDomain(out.Receipt),
		Release:  out.Release,
		Messages: out.Messages,
	})
}

func (a *API) validateStockEntry(w http.ResponseWriter, r *http.Request) {
	var in transferDTO
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if err := a.quality.ValidateTransfer(r.Context(), in.toDomain()); err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": true})
}

type lotResponse struct {
	Lot      lotDTO   `json:"lot"`
	Messages []string `json:"messages,omitempty"`
}

func (a *API) saveLot(w http.ResponseWriter, r *http.Request) {
	var in lotDTO
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if id := r.PathValue("id"); id != "" {
		in.ID = id
	}
	l, err := in.toDomain()
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	out, err := a.quality.SaveLot(r.Context(), l)
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lotResponse{Lot: lotFromDomain(out.Lot), Messages: out.Messages})
}

/* Replenishment and lookups */

func (a *API) runScan(w http.ResponseWriter, r *http.Request) {
	rep, err := a.scanner.Run(r.Context())
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) productionCheck(w http.ResponseWriter, r *http.Request) {
	var in replenish.WorkOrder
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	rep, err := a.production.Run(r.Context(), in)
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) stockProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := a.lookups.StockProjection(r.Context(), q.Get("item_code"), q.Get("location"))
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) lastPurchase(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := a.lookups.LastPurchase(r.Context(), q.Get("item_code"), q.Get("location"))
	if err != nil {
		writeServiceError(w, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
