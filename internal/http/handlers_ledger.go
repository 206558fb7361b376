package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.clock().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the store and reports the optional collaborators.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if err := s.ledger.Ping(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	if s.categorizer == nil {
		checks["categorizer"] = "not_configured"
	} else {
		checks["categorizer"] = "ok"
	}
	checks["open_drafts"] = s.drafts.Size()

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

// handleListTransactions returns the combined view, or one month of it when
// year or month is given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	now, err := s.now(r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	q := r.URL.Query()
	if q.Get("year") == "" && q.Get("month") == "" {
		views, err := s.ledger.View(r.Context(), now)
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		NewJSONResponse().Data(views).Write(w)
		return
	}

	ym, err := ParseMonthParams(q, now)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	byMonth, err := s.ledger.MonthViews(r.Context(), []core.YearMonth{ym}, now)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(byMonth[ym]).Write(w)
}

func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := DecodeJSON(w, r, &tx); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	tx = sanitizeTransaction(tx)
	created := tx.ID == ""

	saved, err := s.ledger.SaveTransaction(r.Context(), tx)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(savedStatus(created)).Data(saved).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	now, err := s.now(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	deleted, err := s.ledger.DeleteTransaction(r.Context(), id, now, confirmFrom(r))
	s.writeDeleted(w, r, deleted, err)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(snap.Recurring).Write(w)
}

func (s *Server) handleSaveRecurring(w http.ResponseWriter, r *http.Request) {
	var rt core.RecurringTransaction
	if err := DecodeJSON(w, r, &rt); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	rt = sanitizeRecurring(rt)
	created := rt.ID == ""

	saved, err := s.ledger.SaveRecurring(r.Context(), rt)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(savedStatus(created)).Data(saved).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	deleted, err := s.ledger.DeleteRecurring(r.Context(), id, confirmFrom(r))
	s.writeDeleted(w, r, deleted, err)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(snap.Accounts).Write(w)
}

func (s *Server) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := DecodeJSON(w, r, &a); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	a.ID = sanitizeInput(a.ID)
	a.Name = sanitizeInput(a.Name)
	created := a.ID == ""

	saved, err := s.ledger.SaveAccount(r.Context(), a)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(savedStatus(created)).Data(saved).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	deleted, err := s.ledger.DeleteAccount(r.Context(), id, confirmFrom(r))
	s.writeDeleted(w, r, deleted, err)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(snap.Cards).Write(w)
}

func (s *Server) handleSaveCard(w http.ResponseWriter, r *http.Request) {
	var c core.Card
	if err := DecodeJSON(w, r, &c); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	c.ID = sanitizeInput(c.ID)
	c.Name = sanitizeInput(c.Name)
	created := c.ID == ""

	saved, err := s.ledger.SaveCard(r.Context(), c)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(savedStatus(created)).Data(saved).Write(w)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	deleted, err := s.ledger.DeleteCard(r.Context(), id, confirmFrom(r))
	s.writeDeleted(w, r, deleted, err)
}

func (s *Server) handleGetWidgets(w http.ResponseWriter, r *http.Request) {
	widgets, err := s.ledger.Widgets(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(widgets).Write(w)
}

func (s *Server) handleSetWidgets(w http.ResponseWriter, r *http.Request) {
	var widgets core.VisibleWidgets
	if err := DecodeJSON(w, r, &widgets); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	saved, err := s.ledger.SetWidgets(r.Context(), widgets)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(saved).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now, err := s.now(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	ym, err := ParseMonthParams(r.URL.Query(), now)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	summary, err := s.ledger.Summary(r.Context(), ym, now)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now, err := s.now(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	d, err := s.ledger.Dashboard(r.Context(), now)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(d).Write(w)
}

// confirmFrom answers the delete confirmation with the confirm query
// parameter.
func confirmFrom(r *http.Request) services.Confirmer {
	if ParseConfirm(r.URL.Query()) {
		return services.AlwaysConfirm
	}
	return services.NeverConfirm
}

// writeDeleted answers a delete: 204 when something was removed, 428 when
// the client did not confirm.
func (s *Server) writeDeleted(w http.ResponseWriter, r *http.Request, deleted bool, err error) {
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	if !deleted {
		ErrorResponse(http.StatusPreconditionRequired, "deletion not confirmed, repeat with confirm=true").Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func savedStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
