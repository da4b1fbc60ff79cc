package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
	applog "cartera/internal/log"
)

const dateLayout = "2006-01-02"

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	params, err := ParseReportParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	rep, err := s.reports.YearlyReport(r.Context(), params.RouteIDs, params.Year, params.Force)
	if err != nil {
		s.reqLogger.LogError(r.Context(), "Yearly report failed", err,
			applog.ComponentReport, applog.OpCompute,
			applog.NewFields().WithRouteYear(strings.Join(params.RouteIDs, ","), params.Year))
		InternalServerError("report generation failed").Write(w)
		return
	}

	NewJSONResponse().Body(rep).Write(w)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if s.exporter == nil {
		ErrorResponse(http.StatusServiceUnavailable, "export not configured").Write(w)
		return
	}

	params, err := ParseReportParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	rep, err := s.reports.YearlyReport(r.Context(), params.RouteIDs, params.Year, params.Force)
	if err != nil {
		InternalServerError("report generation failed").Write(w)
		return
	}

	ref, err := s.exporter.WriteYearly(r.Context(), rep)
	if err != nil {
		s.reqLogger.LogError(r.Context(), "Sheet export failed", err,
			applog.ComponentExport, applog.OpExport,
			applog.NewFields().WithRouteYear(strings.Join(params.RouteIDs, ","), params.Year))
		InternalServerError("export failed").Write(w)
		return
	}

	NewJSONResponse().Body(map[string]string{"ref": ref}).Write(w)
}

type transactionRequest struct {
	RouteID       string `json:"routeId"`
	Account       string `json:"account"`
	Kind          string `json:"kind"`
	Source        string `json:"source"`
	Amount        string `json:"amount"`
	ProfitAmount  string `json:"profitAmount"`
	Date          string `json:"date"`
	LoanPaymentID string `json:"loanPaymentId"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		UnprocessableEntityError("amount: " + err.Error()).Write(w)
		return
	}
	profit := decimal.Zero
	if strings.TrimSpace(req.ProfitAmount) != "" {
		if profit, err = core.ParseAmount(req.ProfitAmount); err != nil {
			UnprocessableEntityError("profitAmount: " + err.Error()).Write(w)
			return
		}
	}

	date, err := parseDate(req.Date)
	if err != nil {
		UnprocessableEntityError("date: " + err.Error()).Write(w)
		return
	}

	tx := core.Transaction{
		RouteID:       strings.TrimSpace(req.RouteID),
		Account:       core.AccountKind(req.Account),
		Kind:          core.TransactionKind(req.Kind),
		Source:        core.TransactionSource(req.Source),
		Amount:        amount,
		ProfitAmount:  profit,
		Date:          date,
		LoanPaymentID: strings.TrimSpace(req.LoanPaymentID),
	}

	id, err := s.ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"id": id}).Write(w)
}

type loanRequest struct {
	ID        string `json:"id"`
	RouteID   string `json:"routeId"`
	Principal string `json:"principal"`
	Rate      string `json:"rate"`
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	principal, err := core.ParseAmount(req.Principal)
	if err != nil {
		UnprocessableEntityError("principal: " + err.Error()).Write(w)
		return
	}
	rate, err := core.ParseAmount(req.Rate)
	if err != nil {
		UnprocessableEntityError("rate: " + err.Error()).Write(w)
		return
	}

	loan := core.Loan{
		ID:        strings.TrimSpace(req.ID),
		RouteID:   strings.TrimSpace(req.RouteID),
		Principal: principal,
		Rate:      rate,
	}

	id, err := s.ledger.RecordLoan(r.Context(), loan)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"id": id}).Write(w)
}

// handleLoanSubresource dispatches /api/loans/{id}/bad-debt and
// /api/loans/{id}/payments.
func (s *Server) handleLoanSubresource(w http.ResponseWriter, r *http.Request) {
	if loanID := PathSuffixID(r.URL.Path, "/api/loans/", "/bad-debt"); loanID != "" {
		s.handleMarkBadDebt(w, r, loanID)
		return
	}
	if loanID := PathSuffixID(r.URL.Path, "/api/loans/", "/payments"); loanID != "" {
		s.handleCreatePayment(w, r, loanID)
		return
	}
	NotFoundError("not found").Write(w)
}

type badDebtRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleMarkBadDebt(w http.ResponseWriter, r *http.Request, loanID string) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	var req badDebtRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequestError("invalid request body").Write(w)
			return
		}
	}

	var date time.Time
	if strings.TrimSpace(req.Date) != "" {
		var err error
		if date, err = parseDate(req.Date); err != nil {
			UnprocessableEntityError("date: " + err.Error()).Write(w)
			return
		}
	}

	if err := s.ledger.MarkLoanBadDebt(r.Context(), loanID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFoundError("loan not found").Write(w)
			return
		}
		writeLedgerError(w, err)
		return
	}

	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type paymentRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request, loanID string) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		UnprocessableEntityError("amount: " + err.Error()).Write(w)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		UnprocessableEntityError("date: " + err.Error()).Write(w)
		return
	}

	id, err := s.ledger.RecordPayment(r.Context(), core.Payment{
		LoanID: loanID,
		Amount: amount,
		Date:   date,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"id": id}).Write(w)
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	routes, err := s.routes.AllRoutes(r.Context())
	if err != nil {
		InternalServerError("could not list routes").Write(w)
		return
	}
	if routes == nil {
		routes = []core.Route{}
	}

	NewJSONResponse().Body(map[string][]core.Route{"routes": routes}).Write(w)
}

// parseDate accepts a date-only value or a full RFC 3339 timestamp.
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("date is required")
	}
	if d, err := time.ParseInLocation(dateLayout, v, time.Local); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, v)
}

// writeLedgerError maps domain validation failures to 422 and everything
// else to 500.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyRouteID),
		errors.Is(err, core.ErrEmptyLoanID),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidSource),
		errors.Is(err, core.ErrInvalidAccount),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrProfitExceeds),
		errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, core.ErrZeroDate):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		InternalServerError("operation failed").Write(w)
	}
}
