package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/categorize"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// maxDraftWait bounds how long GET /api/drafts/{id}?wait= blocks.
const maxDraftWait = 10 * time.Second

// draftView is the JSON shape of an open draft.
type draftView struct {
	ID              string               `json:"id"`
	TransactionID   string               `json:"transactionId,omitempty"`
	Description     string               `json:"description"`
	Amount          string               `json:"amount"`
	Date            core.Date            `json:"date"`
	Type            core.TransactionType `json:"type"`
	Category        string               `json:"category"`
	CategoryTouched bool                 `json:"categoryTouched"`
	PaymentKind     string               `json:"paymentKind"`
	PaymentID       string               `json:"paymentId,omitempty"`
	Installments    *core.Installment    `json:"installments,omitempty"`
	NeedsSuggestion bool                 `json:"needsSuggestion"`
}

func newDraftView(id string, d core.TransactionDraft) draftView {
	return draftView{
		ID:              id,
		TransactionID:   d.ID,
		Description:     d.Description,
		Amount:          d.Amount,
		Date:            d.Date,
		Type:            d.Type,
		Category:        d.Category,
		CategoryTouched: d.CategoryTouched,
		PaymentKind:     paymentKindName(d.Payment.Kind()),
		PaymentID:       d.Payment.ID(),
		Installments:    d.Installments,
		NeedsSuggestion: d.NeedsSuggestion(),
	}
}

func paymentKindName(k core.PaymentKind) string {
	switch k {
	case core.PayCard:
		return "card"
	case core.PayAccount:
		return "account"
	default:
		return "none"
	}
}

// draftAction is the wire form of one draft update. Type selects the
// action; the other fields are read as that action needs them.
type draftAction struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// toDraftAction converts a wire action. Loading a transaction needs the
// persisted record, so lookup resolves ids for the load action.
func toDraftAction(a draftAction, now time.Time, lookup func(id string) (core.Transaction, error)) (core.DraftAction, error) {
	switch strings.TrimSpace(a.Type) {
	case "setDescription":
		return core.SetDescription{Value: sanitizeInput(a.Value)}, nil
	case "setAmount":
		return core.SetAmount{Value: strings.TrimSpace(a.Value)}, nil
	case "setDate":
		d, err := core.ParseDate(strings.TrimSpace(a.Value))
		if err != nil {
			return nil, err
		}
		return core.SetDate{Value: d}, nil
	case "setType":
		t := core.TransactionType(strings.TrimSpace(a.Value))
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidType, a.Value)
		}
		return core.SetType{Value: t}, nil
	case "setCategory":
		return core.SetCategory{Value: sanitizeInput(a.Value)}, nil
	case "selectPayment":
		id := sanitizeInput(a.ID)
		switch a.Kind {
		case "card":
			return core.SelectPayment{Source: core.CardSource(id)}, nil
		case "account":
			return core.SelectPayment{Source: core.AccountSource(id)}, nil
		case "", "none":
			return core.SelectPayment{Source: core.NoPayment}, nil
		}
		return nil, badRequest(fmt.Sprintf("unknown payment kind %q", a.Kind), nil)
	case "toggleInstallments":
		return core.ToggleInstallments{Enabled: a.Enabled}, nil
	case "setInstallment":
		return core.SetInstallment{Current: a.Current, Total: a.Total}, nil
	case "load":
		tx, err := lookup(sanitizeInput(a.ID))
		if err != nil {
			return nil, err
		}
		return core.LoadTransaction{Transaction: tx}, nil
	case "reset":
		return core.ResetDraft{Now: now}, nil
	}
	return nil, badRequest(fmt.Sprintf("unknown draft action %q", a.Type), nil)
}

// persistedTransaction finds a stored transaction for editing. Recurring
// occurrences are derived and cannot be edited one by one.
func (s *Server) persistedTransaction(r *http.Request, now time.Time) func(string) (core.Transaction, error) {
	return func(id string) (core.Transaction, error) {
		snap, err := s.ledger.Snapshot(r.Context())
		if err != nil {
			return core.Transaction{}, err
		}
		for _, t := range snap.Transactions {
			if t.ID == id {
				return t, nil
			}
		}
		for _, v := range core.ExpandRecurring(snap.Recurring, snap.Transactions, now) {
			if v.ID == id {
				return core.Transaction{}, services.ErrVirtualTransaction
			}
		}
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, services.ErrNotFound)
	}
}

func (s *Server) form(r *http.Request) (string, *categorize.Form, error) {
	id, err := PathID(r)
	if err != nil {
		return "", nil, err
	}
	f, ok := s.drafts.Get(id)
	if !ok {
		return "", nil, fmt.Errorf("draft %q: %w", id, services.ErrNotFound)
	}
	return id, f, nil
}

// handleCreateDraft opens a draft, empty or loaded from the transaction
// named by transactionId.
func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	now, err := s.now(r)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	var body struct {
		TransactionID string `json:"transactionId"`
	}
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &body); err != nil {
			s.fail(w, r, log.OpCreate, err)
			return
		}
	}

	draft := core.NewDraft(now)
	if id := sanitizeInput(body.TransactionID); id != "" {
		tx, err := s.persistedTransaction(r, now)(id)
		if err != nil {
			s.fail(w, r, log.OpCreate, err)
			return
		}
		draft = draft.Apply(core.LoadTransaction{Transaction: tx})
	}

	id := s.newID()
	s.drafts.Set(id, categorize.NewForm(draft, s.categorizer, s.debounce))

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/drafts/"+id).
		Data(newDraftView(id, draft)).
		Write(w)
}

// handleGetDraft returns a draft. With wait=<duration> it first blocks
// until the pending suggestion, if any, settles or the duration elapses.
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	id, f, err := s.form(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	if v := strings.TrimSpace(r.URL.Query().Get("wait")); v != "" {
		wait, err := time.ParseDuration(v)
		if err != nil || wait < 0 {
			s.fail(w, r, log.OpRead, badRequest("invalid wait parameter", err))
			return
		}
		if wait > maxDraftWait {
			wait = maxDraftWait
		}
		timer := time.NewTimer(wait)
		select {
		case <-f.Settled():
		case <-timer.C:
		case <-r.Context().Done():
		}
		timer.Stop()
	}

	NewJSONResponse().Data(newDraftView(id, f.Draft())).Write(w)
}

func (s *Server) handleDraftAction(w http.ResponseWriter, r *http.Request) {
	id, f, err := s.form(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	now, err := s.now(r)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}

	var wire draftAction
	if err := DecodeJSON(w, r, &wire); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	action, err := toDraftAction(wire, now, s.persistedTransaction(r, now))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}

	draft := f.Dispatch(r.Context(), action)
	NewJSONResponse().Data(newDraftView(id, draft)).Write(w)
}

// handleCommitDraft validates the draft, saves it and closes it.
func (s *Server) handleCommitDraft(w http.ResponseWriter, r *http.Request) {
	id, f, err := s.form(r)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	draft := f.Draft()
	tx, err := draft.Build("")
	if err != nil {
		s.fail(w, r, log.OpCreate, fmt.Errorf("invalid draft: %w", err))
		return
	}
	saved, err := s.ledger.SaveTransaction(r.Context(), tx)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	f.Close()
	s.drafts.Delete(id)
	NewJSONResponse().Status(savedStatus(draft.ID == "")).Data(saved).Write(w)
}

func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	id, f, err := s.form(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	f.Close()
	s.drafts.Delete(id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(core.ExpenseCategories()).Write(w)
}

// handleSuggestCategory answers one suggestion request directly, without a
// draft. Ineligible descriptions report suggested=false.
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type        core.TransactionType `json:"type"`
		Description string               `json:"description"`
	}
	if err := DecodeJSON(w, r, &body); err != nil {
		s.fail(w, r, log.OpSuggest, err)
		return
	}
	if body.Type == "" {
		body.Type = core.Expense
	}

	resp := struct {
		Category  string `json:"category,omitempty"`
		Suggested bool   `json:"suggested"`
	}{}
	if s.categorizer != nil {
		resp.Category, resp.Suggested = s.categorizer.Suggest(r.Context(), body.Type, sanitizeInput(body.Description))
	}
	NewJSONResponse().Data(resp).Write(w)
}
