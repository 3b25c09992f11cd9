package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"drone-spoof/internal/sim"
	"drone-spoof/internal/zone"
)

var errBadJSON = errors.New("invalid JSON body")

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

type createLogRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.store.Create(r.Context(), req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.LogRecords.Inc()
	s.logger.Debug("log record created", "id", rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	names := s.hub.Names()
	out := make([]*sim.Scenario, 0, len(names))
	for _, name := range names {
		runner, _ := s.hub.Runner(name)
		out = append(out, runner.Scenario())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) runner(r *http.Request) (*sim.Runner, error) {
	name := chi.URLParam(r, "name")
	runner, ok := s.hub.Runner(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sim.ErrUnknownScenario, name)
	}
	return runner, nil
}

func (s *Server) handleSimState(w http.ResponseWriter, r *http.Request) {
	s.simCommand((*sim.Runner).Snapshot)(w, r)
}

func (s *Server) simCommand(op func(*sim.Runner, context.Context) (sim.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, err := s.runner(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()
		state, err := op(runner, ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state.View())
	}
}

func (s *Server) zoneReply(w http.ResponseWriter, session zone.Session, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View(s.hub.Zone().Config()))
}

func (s *Server) handleZoneState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	session, err := s.hub.Zone().Snapshot(ctx)
	s.zoneReply(w, session, err)
}

type moveRequest struct {
	DX  int    `json:"dx"`
	DY  int    `json:"dy"`
	Key string `json:"key,omitempty"`
}

func (s *Server) handleZoneMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	var (
		session zone.Session
		err     error
	)
	if req.Key != "" {
		session, err = s.hub.Zone().Key(ctx, req.Key)
	} else {
		session, err = s.hub.Zone().Move(ctx, req.DX, req.DY)
	}
	s.zoneReply(w, session, err)
}

func (s *Server) handleZoneReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	session, err := s.hub.Zone().Reset(ctx)
	s.zoneReply(w, session, err)
}

func (s *Server) handleSimStream(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.ServeSim(w, r, chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err)
	}
}

func (s *Server) handleZoneStream(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.ServeZone(w, r); err != nil {
		s.writeError(w, err)
	}
}
