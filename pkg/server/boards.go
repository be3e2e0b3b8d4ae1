package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sternrassler/jira-stub/pkg/pagination"
)

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.ParseParams(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, pagination.PaginateValues(s.registry.Boards(), params.StartAt, params.MaxResults))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(w, r)
	if !ok {
		return
	}
	board, found := s.registry.Board(id)
	if !found {
		writeRaw(w, []byte(ErrorMessageBoard))
		return
	}
	writeRaw(w, board)
}

func (s *Server) handleBoardConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(w, r)
	if !ok {
		return
	}
	config, found := s.registry.Configuration(id)
	if !found {
		writeRaw(w, []byte(ErrorMessageBoard))
		return
	}
	writeRaw(w, config)
}

func (s *Server) handleBoardIssues(w http.ResponseWriter, r *http.Request) {
	id, ok := boardID(w, r)
	if !ok {
		return
	}
	params, err := pagination.ParseParams(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	issues, found := s.registry.Issues(id)
	if !found {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "The board '%d' is not found", id)
		return
	}

	page := pagination.Paginate(issues, params.StartAt, params.MaxResults)
	s.logger.Debug().
		Int64("board_id", id).
		Int64("start_at", page.StartAt).
		Int64("max_results", page.MaxResults).
		Int("returned", len(page.Issues)).
		Int64("total", page.Total).
		Msg("Issues page served")
	s.writeJSON(w, page)
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	issue, found := s.registry.Issue(r.PathValue("issueIdOrKey"))
	if !found {
		writeRaw(w, []byte(ErrorMessageIssue))
		return
	}
	writeRaw(w, issue)
}

// boardID parses the boardId path value, answering 400 when it is not an integer.
func boardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("boardId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid board id %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeRaw(w, body)
}
