package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/toolchain"
)

// Handler holds API route handlers.
type Handler struct {
	svc *toolchain.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *toolchain.Service) *Handler {
	return &Handler{svc: svc}
}

// ListCommands handles GET /api/commands.
//
//	@Summary		List configured commands
//	@Tags			commands
//	@Produce		json
//	@Success		200	{object}	CommandListResponse
//	@Security		BearerAuth
//	@Router			/commands [get]
func (h *Handler) ListCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CommandListResponse{
		IDE:      h.svc.Name(),
		Commands: h.svc.Commands(),
	})
}

// GetCommand handles GET /api/commands/{name}.
//
//	@Summary		Get a single command by name
//	@Tags			commands
//	@Produce		json
//	@Param			name	path		string	true	"Command name"
//	@Success		200		{object}	Command
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/{name} [get]
func (h *Handler) GetCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.svc.Command(chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, "get command", err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

// RunCommand handles POST /api/commands/{name}/run.
//
// The process is started and not awaited, so success is 202.
//
//	@Summary		Run a command against the active design
//	@Tags			commands
//	@Produce		json
//	@Param			name		path		string	true	"Command name"
//	@Param			interactive	query		bool	false	"Attach the process to the server's terminal"
//	@Success		202			{object}	Execution
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		422			{object}	RunFailedResponse
//	@Security		BearerAuth
//	@Router			/commands/{name}/run [post]
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	interactive, err := queryBool(r, "interactive")
	if err != nil {
		writeServiceError(w, "run command", err)
		return
	}

	rec, err := h.svc.Run(r.Context(), chi.URLParam(r, "name"), interactive)
	if rec == nil {
		writeServiceError(w, "run command", err)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, RunFailedResponse{Error: err.Error(), Execution: *rec})
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

// History handles GET /api/history.
//
//	@Summary		List recent executions
//	@Tags			history
//	@Produce		json
//	@Param			command	query		string	false	"Filter by command name"
//	@Param			limit	query		int		false	"Maximum number of executions"
//	@Success		200		{object}	HistoryResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, "history", err)
		return
	}
	recs, err := h.svc.History(r.Context(), r.URL.Query().Get("command"), limit)
	if err != nil {
		writeServiceError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Executions: recs})
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, apperr.ErrInvalid)
	}
	return b, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: %w", key, apperr.ErrInvalid)
	}
	return n, nil
}
