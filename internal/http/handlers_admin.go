package http

import (
	"errors"
	"log/slog"
	"net/http"

	"tourdesk/internal/core"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clients, err := s.repo.Queries().ListClients(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List clients error", "error", err)
		http.Error(w, "clients unavailable", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "clients.html", struct{ Clients []core.Client }{clients}); err != nil {
		slog.ErrorContext(ctx, "Clients template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	client := core.Client{
		Name:  formString(r, "name"),
		Phone: formString(r, "phone"),
		Email: formString(r, "email"),
	}
	if err := client.Validate(); err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid client: "+err.Error())
		return
	}

	created, err := s.repo.Queries().CreateClient(ctx, client)
	if err != nil {
		slog.ErrorContext(ctx, "Create client error", "error", err, "name", client.Name)
		writeErrorFragment(w, http.StatusInternalServerError, "Could not create client")
		return
	}

	slog.InfoContext(ctx, "Client created", "id", created.ID, "name", created.Name)
	setTrigger(w, "client:created", map[string]any{"id": created.ID})
	writeSuccessFragment(w, "Client "+created.Name+" created")
}

func (s *Server) handleClientStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}

	statement, err := s.repo.GetClientStatement(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(ctx, "Client statement error", "error", err, "id", id)
		http.Error(w, "statement unavailable", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "client_statement.html", statement); err != nil {
		slog.ErrorContext(ctx, "Statement template execution failed", "error", err, "id", id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agents, err := s.repo.Queries().ListAgents(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List agents error", "error", err)
		http.Error(w, "agents unavailable", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "agents.html", struct{ Agents []core.Agent }{agents}); err != nil {
		slog.ErrorContext(ctx, "Agents template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	agent := core.Agent{
		Name:          formString(r, "name"),
		Phone:         formString(r, "phone"),
		CommissionBps: formInt64(r, "commission_bps"),
	}
	if err := agent.Validate(); err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid agent: "+err.Error())
		return
	}

	created, err := s.repo.Queries().CreateAgent(ctx, agent)
	if err != nil {
		slog.ErrorContext(ctx, "Create agent error", "error", err, "name", agent.Name)
		writeErrorFragment(w, http.StatusInternalServerError, "Could not create agent")
		return
	}

	slog.InfoContext(ctx, "Agent created", "id", created.ID, "name", created.Name, "commission_bps", created.CommissionBps)
	setTrigger(w, "agent:created", map[string]any{"id": created.ID})
	writeSuccessFragment(w, "Agent "+created.Name+" created")
}

func (s *Server) handleAgentStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	statement, err := s.repo.GetAgentStatement(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(ctx, "Agent statement error", "error", err, "id", id)
		http.Error(w, "statement unavailable", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "agent_statement.html", statement); err != nil {
		slog.ErrorContext(ctx, "Statement template execution failed", "error", err, "id", id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleListTreasuries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	treasuries, err := s.repo.Queries().ListTreasuries(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List treasuries error", "error", err)
		http.Error(w, "treasuries unavailable", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "treasuries.html", struct{ Treasuries []core.Treasury }{treasuries}); err != nil {
		slog.ErrorContext(ctx, "Treasuries template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateTreasury(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	treasury := core.Treasury{
		Name:     formString(r, "name"),
		Currency: formString(r, "currency"),
	}
	if v := formString(r, "rate"); v != "" {
		rate, err := core.ParseRate(v)
		if err != nil {
			writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid exchange rate")
			return
		}
		treasury.Rate = rate
	}
	if err := treasury.Validate(); err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid treasury: "+err.Error())
		return
	}

	created, err := s.repo.Queries().CreateTreasury(ctx, treasury)
	if err != nil {
		slog.ErrorContext(ctx, "Create treasury error", "error", err, "name", treasury.Name)
		writeErrorFragment(w, http.StatusInternalServerError, "Could not create treasury")
		return
	}

	slog.InfoContext(ctx, "Treasury created", "id", created.ID, "name", created.Name, "currency", created.Currency)
	setTrigger(w, "treasury:created", map[string]any{"id": created.ID})
	writeSuccessFragment(w, "Treasury "+created.Name+" ("+created.Currency+") created")
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.repo.Queries().GetSettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Load settings error", "error", err)
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "settings.html", settings); err != nil {
		slog.ErrorContext(ctx, "Settings template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	current, err := s.repo.Queries().GetSettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Load settings error", "error", err)
		writeErrorFragment(w, http.StatusInternalServerError, "Settings unavailable")
		return
	}

	updated := core.Settings{
		AgencyName:      formString(r, "agency_name"),
		AgencyAddress:   formString(r, "agency_address"),
		AgencyPhone:     formString(r, "agency_phone"),
		TaxNumber:       formString(r, "tax_number"),
		DefaultCurrency: formString(r, "default_currency"),
		Thresholds: core.AlertThresholds{
			FinancialDays: formInt(r, "financial_days", current.Thresholds.FinancialDays),
			PassportDays:  formInt(r, "passport_days", current.Thresholds.PassportDays),
			FlightDays:    formInt(r, "flight_days", current.Thresholds.FlightDays),
			HotelDays:     formInt(r, "hotel_days", current.Thresholds.HotelDays),
		},
	}
	if err := updated.Validate(); err != nil {
		writeErrorFragment(w, http.StatusUnprocessableEntity, "Invalid settings: "+err.Error())
		return
	}

	if err := s.repo.Queries().UpdateSettings(ctx, updated); err != nil {
		slog.ErrorContext(ctx, "Update settings error", "error", err)
		writeErrorFragment(w, http.StatusInternalServerError, "Could not save settings")
		return
	}

	// Threshold changes affect what counts as an alert.
	s.alertsSvc.Invalidate()
	slog.InfoContext(ctx, "Settings updated", "agency", updated.AgencyName, "currency", updated.DefaultCurrency)
	setTrigger(w, "settings:updated", map[string]any{})
	writeSuccessFragment(w, "Settings saved")
}
