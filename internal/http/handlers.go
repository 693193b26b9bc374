package http

import (
	"bytes"
	"fmt"
	"net/http"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/core"
	"ledgerbook/internal/export"
	applog "ledgerbook/internal/log"
)

type transactionJSON struct {
	OccurredAt string `json:"occurred_at"`
	Kind       string `json:"kind"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Note       string `json:"note"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		OccurredAt: core.FormatDate(t.OccurredAt),
		Kind:       t.Kind.String(),
		Category:   t.Category,
		Amount:     core.FormatAmount(t.Amount),
		Note:       t.Note,
	}
}

// displayRows renders rows newest first.
func displayRows(l core.Ledger) []transactionJSON {
	rows := aggregate.Recent(l, 0)
	out := make([]transactionJSON, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type ledgerResponse struct {
	Account      string            `json:"account"`
	Count        int               `json:"count"`
	Dropped      int               `json:"dropped"`
	Malformed    bool              `json:"malformed"`
	Transactions []transactionJSON `json:"transactions"`
}

type appendResponse struct {
	Account      string            `json:"account"`
	Transaction  transactionJSON   `json:"transaction"`
	Count        int               `json:"count"`
	Transactions []transactionJSON `json:"transactions"`
}

type categoryAmountJSON struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type overviewResponse struct {
	Account    string               `json:"account"`
	Date       string               `json:"date"`
	Kinds      string               `json:"kinds"`
	Today      string               `json:"today"`
	Month      string               `json:"month"`
	Balance    string               `json:"balance"`
	Count      int                  `json:"count"`
	Dropped    int                  `json:"dropped"`
	ByCategory []categoryAmountJSON `json:"by_category"`
}

type balancePointJSON struct {
	OccurredAt string `json:"occurred_at"`
	Balance    string `json:"balance"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.categories
	if cats == nil {
		cats = []string{}
	}
	NewJSONResponse().Body(map[string][]string{"categories": cats}).Write(w)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	account := accountFromPath(r)
	if account == "" {
		BadRequestError("invalid account").Write(w)
		return
	}

	l, report, err := s.store.Load(r.Context(), account)
	if err != nil {
		writeStoreError(w, r, account, err)
		return
	}

	NewJSONResponse().Body(ledgerResponse{
		Account:      account,
		Count:        l.Len(),
		Dropped:      report.Dropped,
		Malformed:    report.Malformed,
		Transactions: displayRows(l),
	}).Write(w)
}

// handleAppend accepts a JSON object or a form. A missing date means now, the
// way the entry form pre-fills it.
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFromPath(r)
	if account == "" {
		BadRequestError("invalid account").Write(w)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	occurredAt := p.First("occurred_at", "date")
	if occurredAt == "" {
		occurredAt = s.now().Format(core.DateTimeLayout)
	}

	t, err := core.ParseTransaction(occurredAt, p.Get("kind"), p.Get("category"), p.Get("amount"), p.First("note", "description"))
	if err != nil {
		applog.FromContext(ctx).InfoContext(ctx, "Rejected transaction",
			applog.FieldAccount, account,
			applog.FieldError, err)
		writeStoreError(w, r, account, err)
		return
	}

	l, err := s.store.Append(ctx, account, t)
	if err != nil {
		writeStoreError(w, r, account, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(appendResponse{
			Account:      account,
			Transaction:  toTransactionJSON(t),
			Count:        l.Len(),
			Transactions: displayRows(l),
		}).
		Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	account := accountFromPath(r)
	if account == "" {
		BadRequestError("invalid account").Write(w)
		return
	}
	if err := s.store.Reset(r.Context(), account); err != nil {
		writeStoreError(w, r, account, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	account := accountFromPath(r)
	if account == "" {
		BadRequestError("invalid account").Write(w)
		return
	}

	query := r.URL.Query()
	now, err := parseReferenceTime(query, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	kinds, err := parseKindFilter(query, s.kindFilter)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	l, report, err := s.store.Load(r.Context(), account)
	if err != nil {
		writeStoreError(w, r, account, err)
		return
	}

	ov := aggregate.Overview(l, now, kinds)
	byCategory := make([]categoryAmountJSON, 0, len(ov.ByCategory))
	for _, c := range ov.ByCategory {
		byCategory = append(byCategory, categoryAmountJSON{Name: c.Name, Amount: core.FormatAmount(c.Amount)})
	}

	NewJSONResponse().Body(overviewResponse{
		Account:    account,
		Date:       now.Format(core.DateLayout),
		Kinds:      kinds.String(),
		Today:      core.FormatAmount(ov.Today),
		Month:      core.FormatAmount(ov.Month),
		Balance:    core.FormatAmount(ov.Balance),
		Count:      ov.Rows,
		Dropped:    report.Dropped,
		ByCategory: byCategory,
	}).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	account := accountFromPath(r)
	if account == "" {
		BadRequestError("invalid account").Write(w)
		return
	}

	l, _, err := s.store.Load(r.Context(), account)
	if err != nil {
		writeStoreError(w, r, account, err)
		return
	}

	series := aggregate.BalanceSeries(l)
	points := make([]balancePointJSON, 0, len(series))
	for _, p := range series {
		points = append(points, balancePointJSON{
			OccurredAt: core.FormatDate(p.OccurredAt),
			Balance:    core.FormatAmount(p.Balance),
		})
	}
	NewJSONResponse().Body(map[string]any{"account": account, "series": points}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := accountFromPath(r)
	if account == "" {
		BadRequestError("invalid account").Write(w)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	l, _, err := s.store.Load(ctx, account)
	if err != nil {
		writeStoreError(w, r, account, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, s.store.Schema(), l); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Export failed",
			applog.FieldAccount, account,
			applog.FieldOperation, applog.OpExport,
			applog.FieldError, err)
		InternalServerError("export failed").Write(w)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(account)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
