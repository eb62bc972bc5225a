package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/orcatt/crayon-bs/internal/domain"
	"github.com/orcatt/crayon-bs/internal/usecase/batch"
	"github.com/orcatt/crayon-bs/internal/usecase/ledger"
	"github.com/orcatt/crayon-bs/internal/usecase/valuation"
)

// LedgerService is the position/transaction surface the handlers need.
type LedgerService interface {
	AddPosition(ctx context.Context, input ledger.AddPositionInput) (*domain.FundPosition, error)
	ApplyTransaction(ctx context.Context, input ledger.ApplyTransactionInput) (*domain.FundPosition, error)
	ReverseTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*domain.FundPosition, error)
	RenamePosition(ctx context.Context, userID, fundID uuid.UUID, fundName, code string) error
	RemovePosition(ctx context.Context, userID, fundID uuid.UUID) error
	ListPositions(ctx context.Context, userID uuid.UUID, date time.Time) ([]ledger.PositionWithMark, error)
	ListTransactions(ctx context.Context, userID, fundID uuid.UUID, from, to time.Time) ([]*domain.Transaction, error)
}

// ValuationService is the mark-to-market surface the handlers need.
type ValuationService interface {
	ApplyMark(ctx context.Context, input valuation.ApplyMarkInput) (*domain.FundPosition, *domain.DailyMark, error)
	ReverseMark(ctx context.Context, userID, markID uuid.UUID) (*domain.FundPosition, error)
	ListSummaries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.DailySummary, error)
}

// BatchService applies an ordered op list atomically.
type BatchService interface {
	Apply(ctx context.Context, userID uuid.UUID, ops []batch.Op) ([]batch.Outcome, error)
}

// Server implements the HTTP surface of the ledger.
type Server struct {
	Ledger    LedgerService
	Valuation ValuationService
	Batch     BatchService

	apiToken string
	logger   log.Logger
}

// NewServer creates a new HTTP server instance.
func NewServer(ledgerSvc LedgerService, valuationSvc ValuationService, batchSvc BatchService, apiToken string, logger log.Logger) *Server {
	return &Server{
		Ledger:    ledgerSvc,
		Valuation: valuationSvc,
		Batch:     batchSvc,
		apiToken:  apiToken,
		logger:    logger,
	}
}

// Mount registers all routes on the given router.
func (s *Server) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.logMiddleware)
		r.Use(s.authMiddleware)

		r.Post("/positions", s.handleAddPosition)
		r.Get("/positions", s.handleListPositions)
		r.Patch("/positions/{positionID}", s.handleRenamePosition)
		r.Delete("/positions/{positionID}", s.handleRemovePosition)

		r.Post("/positions/{positionID}/transactions", s.handleApplyTransaction)
		r.Get("/positions/{positionID}/transactions", s.handleListTransactions)
		r.Delete("/transactions/{transactionID}", s.handleReverseTransaction)

		r.Post("/positions/{positionID}/marks", s.handleApplyMark)
		r.Delete("/marks/{markID}", s.handleReverseMark)

		r.Post("/batch", s.handleApplyBatch)
		r.Get("/summaries", s.handleListSummaries)
	})
}

type addPositionRequest struct {
	FundName string `json:"fund_name"`
	Code     string `json:"code"`
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req addPositionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	position, err := s.Ledger.AddPosition(r.Context(), ledger.AddPositionInput{
		UserID:   userID,
		FundName: req.FundName,
		Code:     req.Code,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "position created", positionToResponse(position))
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	items, err := s.Ledger.ListPositions(r.Context(), userID, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	response := make([]positionWithMarkResponse, 0, len(items))
	for _, item := range items {
		entry := positionWithMarkResponse{Position: positionToResponse(item.Position)}
		if item.Mark != nil {
			mark := markToResponse(item.Mark)
			entry.Mark = &mark
		}
		response = append(response, entry)
	}

	writeSuccess(w, http.StatusOK, "positions listed", response)
}

type renamePositionRequest struct {
	FundName string `json:"fund_name"`
	Code     string `json:"code"`
}

func (s *Server) handleRenamePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	positionID, err := parseUUIDParam(r, "positionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var req renamePositionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.Ledger.RenamePosition(r.Context(), userID, positionID, req.FundName, req.Code); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "position updated", nil)
}

func (s *Server) handleRemovePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	positionID, err := parseUUIDParam(r, "positionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	if err := s.Ledger.RemovePosition(r.Context(), userID, positionID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "position deleted", nil)
}

type applyTransactionRequest struct {
	Type            string `json:"transaction_type"`
	Shares          string `json:"shares"`
	NetValue        string `json:"net_value"`
	Amount          string `json:"amount"`
	TransactionDate string `json:"transaction_date"`
}

func (s *Server) handleApplyTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	positionID, err := parseUUIDParam(r, "positionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var req applyTransactionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.toInput(userID, positionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	position, err := s.Ledger.ApplyTransaction(r.Context(), input)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "transaction applied", positionToResponse(position))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	positionID, err := parseUUIDParam(r, "positionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, err := s.Ledger.ListTransactions(r.Context(), userID, positionID, from, to)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	response := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		response = append(response, transactionToResponse(tx))
	}

	writeSuccess(w, http.StatusOK, "transactions listed", response)
}

func (s *Server) handleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	transactionID, err := parseUUIDParam(r, "transactionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	position, err := s.Ledger.ReverseTransaction(r.Context(), userID, transactionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "transaction reversed", positionToResponse(position))
}

type applyMarkRequest struct {
	Date     string `json:"date"`
	NetValue string `json:"net_value"`
}

func (s *Server) handleApplyMark(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	positionID, err := parseUUIDParam(r, "positionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var req applyMarkRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.toInput(userID, positionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	position, mark, err := s.Valuation.ApplyMark(r.Context(), input)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "mark applied", markedPositionResponse{
		Position: positionToResponse(position),
		Mark:     markToResponse(mark),
	})
}

func (s *Server) handleReverseMark(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	markID, err := parseUUIDParam(r, "markID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mark id")
		return
	}

	position, err := s.Valuation.ReverseMark(r.Context(), userID, markID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "mark reversed", positionToResponse(position))
}

func (s *Server) handleApplyBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req batchRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ops, err := req.toOps()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcomes, err := s.Batch.Apply(r.Context(), userID, ops)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	response := make([]outcomeResponse, 0, len(outcomes))
	for _, outcome := range outcomes {
		response = append(response, outcomeToResponse(outcome))
	}

	writeSuccess(w, http.StatusOK, "batch applied", response)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := s.Valuation.ListSummaries(r.Context(), userID, from, to)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	response := make([]summaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		response = append(response, summaryToResponse(summary))
	}

	writeSuccess(w, http.StatusOK, "summaries listed", response)
}
