package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/park285/chessmaster/internal/adapter/chesspresenter"
	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/render"
	"github.com/park285/chessmaster/internal/session"
	"github.com/park285/chessmaster/pkg/chessdto"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	id, st, err := s.games.Create(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chesspresenter.ToNewGameResponse(id, st))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.games.State(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chesspresenter.ToStateResponse(st))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req chessdto.MoveRequest
	decodeErr := decodeJSON(w, r, &req)
	if decodeErr != nil || req.Move == "" {
		// unknown games answer 404 before the body is judged
		if _, err := s.games.State(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		key := "api.move_required"
		if decodeErr != nil {
			key = "api.bad_request"
		}
		writeJSON(w, http.StatusBadRequest, errorBody(s.catalog.Text(key, nil)))
		return
	}

	res, st, err := s.games.Move(r.Context(), id, req.Move)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chesspresenter.ToMoveResponse(res, st))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	st, err := s.games.Reset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chesspresenter.ToStateResponse(st))
}

func (s *Server) handlePossibleMoves(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.games.State(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	sq, given, err := squareQuery(r)
	if !given {
		writeJSON(w, http.StatusBadRequest, errorBody(s.catalog.Text("api.square_required", nil)))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(s.catalog.Text("api.square_invalid", nil)))
		return
	}
	moves, err := s.games.PossibleMoves(r.Context(), id, sq.Row, sq.Col)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chesspresenter.ToPossibleMovesResponse(moves))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := s.games.State(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := render.RenderOptions{Flip: truthy(r.URL.Query().Get("flip"))}
	sq, given, err := squareQuery(r)
	if given {
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(s.catalog.Text("api.square_invalid", nil)))
			return
		}
		moves, err := s.games.PossibleMoves(r.Context(), id, sq.Row, sq.Col)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		opts.Selected = &sq
		opts.Highlight = moves
	}

	png, err := s.renderer.RenderPNG(r.Context(), st, opts)
	if err != nil {
		s.logger.Error("board_render_error", zap.String("game_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody(s.catalog.Text("api.render_failed", nil)))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// squareQuery reads row and col. given is false unless both are present.
func squareQuery(r *http.Request) (sq chess.Square, given bool, err error) {
	q := r.URL.Query()
	rowText, colText := strings.TrimSpace(q.Get("row")), strings.TrimSpace(q.Get("col"))
	if rowText == "" || colText == "" {
		return chess.Square{}, false, nil
	}
	row, err := strconv.Atoi(rowText)
	if err != nil {
		return chess.Square{}, true, err
	}
	col, err := strconv.Atoi(colText)
	if err != nil {
		return chess.Square{}, true, err
	}
	return chess.Sq(row, col), true, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			// an empty body is an empty request
			return nil
		}
		return err
	}
	return nil
}

// writeError maps session errors onto status codes and catalog messages.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrGameNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(s.catalog.Text("api.game_not_found", nil)))
	case errors.Is(err, session.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(s.catalog.Text("api.conflict", nil)))
	default:
		s.logger.Error("http_error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody(s.catalog.Text("api.internal", nil)))
	}
}

func errorBody(msg string) chessdto.ErrorResponse {
	return chessdto.ErrorResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
