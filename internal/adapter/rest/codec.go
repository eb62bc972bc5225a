package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orcatt/crayon-bs/internal/domain"
	"github.com/orcatt/crayon-bs/internal/usecase/batch"
	"github.com/orcatt/crayon-bs/internal/usecase/ledger"
	"github.com/orcatt/crayon-bs/internal/usecase/valuation"
)

const dateLayout = "2006-01-02"

// envelope is the uniform response shape: code mirrors the HTTP status,
// message is human-readable, data carries the payload when present.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, envelope{Code: statusCode, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, envelope{Code: statusCode, Message: message})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrNoPosition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRetriable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

// parseDateRange reads optional from/to query parameters.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return from, to, errors.New("from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return from, to, errors.New("to must be YYYY-MM-DD")
		}
		to = parsed
	}
	return from, to, nil
}

func parseDecimalField(value, field string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number", field)
	}
	return parsed, nil
}

func (req applyTransactionRequest) toInput(userID, fundID uuid.UUID) (ledger.ApplyTransactionInput, error) {
	var input ledger.ApplyTransactionInput

	shares, err := parseDecimalField(req.Shares, "shares")
	if err != nil {
		return input, err
	}
	netValue, err := parseDecimalField(req.NetValue, "net_value")
	if err != nil {
		return input, err
	}
	amount, err := parseDecimalField(req.Amount, "amount")
	if err != nil {
		return input, err
	}
	date, err := parseDate(req.TransactionDate)
	if err != nil {
		return input, errors.New("transaction_date must be YYYY-MM-DD")
	}

	return ledger.ApplyTransactionInput{
		UserID:   userID,
		FundID:   fundID,
		Type:     domain.TransactionType(req.Type),
		Shares:   shares,
		NetValue: netValue,
		Amount:   amount,
		Date:     date,
	}, nil
}

func (req applyMarkRequest) toInput(userID, fundID uuid.UUID) (valuation.ApplyMarkInput, error) {
	var input valuation.ApplyMarkInput

	netValue, err := parseDecimalField(req.NetValue, "net_value")
	if err != nil {
		return input, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return input, errors.New("date must be YYYY-MM-DD")
	}

	return valuation.ApplyMarkInput{
		UserID:   userID,
		FundID:   fundID,
		Date:     date,
		NetValue: netValue,
	}, nil
}

type batchRequest struct {
	Ops []batchOpRequest `json:"ops"`
}

type batchOpRequest struct {
	Kind        string                   `json:"kind"`
	PositionID  string                   `json:"position_id"`
	Transaction *applyTransactionRequest `json:"transaction,omitempty"`
	Mark        *applyMarkRequest        `json:"mark,omitempty"`
}

func (req batchRequest) toOps() ([]batch.Op, error) {
	ops := make([]batch.Op, 0, len(req.Ops))
	for i, opReq := range req.Ops {
		fundID, err := uuid.Parse(strings.TrimSpace(opReq.PositionID))
		if err != nil {
			return nil, fmt.Errorf("ops[%d]: invalid position_id", i)
		}

		switch batch.OpKind(opReq.Kind) {
		case batch.OpKindTransaction:
			if opReq.Transaction == nil {
				return nil, fmt.Errorf("ops[%d]: transaction is required", i)
			}
			input, err := opReq.Transaction.toInput(uuid.Nil, fundID)
			if err != nil {
				return nil, fmt.Errorf("ops[%d]: %w", i, err)
			}
			ops = append(ops, batch.Op{Kind: batch.OpKindTransaction, Transaction: &input})

		case batch.OpKindMark:
			if opReq.Mark == nil {
				return nil, fmt.Errorf("ops[%d]: mark is required", i)
			}
			input, err := opReq.Mark.toInput(uuid.Nil, fundID)
			if err != nil {
				return nil, fmt.Errorf("ops[%d]: %w", i, err)
			}
			ops = append(ops, batch.Op{Kind: batch.OpKindMark, Mark: &input})

		default:
			return nil, fmt.Errorf("ops[%d]: kind must be transaction or mark", i)
		}
	}
	return ops, nil
}

type positionResponse struct {
	ID                string `json:"id"`
	FundName          string `json:"fund_name"`
	Code              string `json:"code"`
	HoldingShares     string `json:"holding_shares"`
	HoldingAmount     string `json:"holding_amount"`
	HoldingCost       string `json:"holding_cost"`
	TotalCost         string `json:"total_cost"`
	HoldingProfit     string `json:"holding_profit"`
	SellProfit        string `json:"sell_profit"`
	TotalProfit       string `json:"total_profit"`
	HoldingProfitRate string `json:"holding_profit_rate"`
	CurrentNetValue   string `json:"current_net_value"`
}

func positionToResponse(p *domain.FundPosition) positionResponse {
	return positionResponse{
		ID:                p.ID.String(),
		FundName:          p.FundName,
		Code:              p.Code,
		HoldingShares:     p.HoldingShares.String(),
		HoldingAmount:     p.HoldingAmount.String(),
		HoldingCost:       p.HoldingCost.String(),
		TotalCost:         p.TotalCost.String(),
		HoldingProfit:     p.HoldingProfit.String(),
		SellProfit:        p.SellProfit.String(),
		TotalProfit:       p.TotalProfit.String(),
		HoldingProfitRate: p.HoldingProfitRate.String(),
		CurrentNetValue:   p.CurrentNetValue.String(),
	}
}

type markResponse struct {
	ID              string `json:"id"`
	FundID          string `json:"fund_id"`
	Date            string `json:"date"`
	CurrentNetValue string `json:"current_net_value"`
	ProfitLoss      string `json:"profit_loss"`
}

func markToResponse(m *domain.DailyMark) markResponse {
	return markResponse{
		ID:              m.ID.String(),
		FundID:          m.FundID.String(),
		Date:            m.Date.Format(dateLayout),
		CurrentNetValue: m.CurrentNetValue.String(),
		ProfitLoss:      m.ProfitLoss.String(),
	}
}

type positionWithMarkResponse struct {
	Position positionResponse `json:"position"`
	Mark     *markResponse    `json:"mark,omitempty"`
}

type markedPositionResponse struct {
	Position positionResponse `json:"position"`
	Mark     markResponse     `json:"mark"`
}

type transactionResponse struct {
	ID              string `json:"id"`
	FundID          string `json:"fund_id"`
	Type            string `json:"transaction_type"`
	Shares          string `json:"shares"`
	NetValue        string `json:"net_value"`
	Amount          string `json:"amount"`
	TransactionDate string `json:"transaction_date"`
}

func transactionToResponse(tx *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID.String(),
		FundID:          tx.FundID.String(),
		Type:            string(tx.Type),
		Shares:          tx.Shares.String(),
		NetValue:        tx.NetValue.String(),
		Amount:          tx.Amount.String(),
		TransactionDate: tx.TransactionDate.Format(dateLayout),
	}
}

type summaryResponse struct {
	Date            string `json:"date"`
	TotalProfitLoss string `json:"total_profit_loss"`
}

func summaryToResponse(s *domain.DailySummary) summaryResponse {
	return summaryResponse{
		Date:            s.Date.Format(dateLayout),
		TotalProfitLoss: s.TotalProfitLoss.String(),
	}
}

type outcomeResponse struct {
	Index    int              `json:"index"`
	Kind     string           `json:"kind"`
	ID       string           `json:"id"`
	Position positionResponse `json:"position"`
}

func outcomeToResponse(o batch.Outcome) outcomeResponse {
	return outcomeResponse{
		Index:    o.Index,
		Kind:     string(o.Kind),
		ID:       o.ID.String(),
		Position: positionToResponse(o.Position),
	}
}
