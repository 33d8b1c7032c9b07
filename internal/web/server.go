package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pendlerapp/vokabel/internal/deck"
	"github.com/pendlerapp/vokabel/internal/domain"
	"github.com/pendlerapp/vokabel/internal/importer"
	"github.com/pendlerapp/vokabel/internal/scheduler"
	"github.com/pendlerapp/vokabel/internal/storage"
)

// maxImportSize bounds uploaded spreadsheet size.
const maxImportSize = 10 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	sched    *scheduler.Scheduler
	db       *storage.DB
	router   *mux.Router
	reposDir string
}

// NewServer creates and configures a new server.
func NewServer(sched *scheduler.Scheduler, db *storage.DB, reposDir string) *Server {
	s := &Server{
		sched:    sched,
		db:       db,
		router:   mux.NewRouter(),
		reposDir: reposDir,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/due", s.handleGetDue).Methods(http.MethodGet)
	api.HandleFunc("/review/{id}", s.handlePostReview).Methods(http.MethodPost)

	api.HandleFunc("/words", s.handleGetWords).Methods(http.MethodGet)
	api.HandleFunc("/words", s.handlePostWord).Methods(http.MethodPost)
	api.HandleFunc("/words/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/words/{id}", s.handleGetWord).Methods(http.MethodGet)
	api.HandleFunc("/words/{id}", s.handleDeleteWord).Methods(http.MethodDelete)

	api.HandleFunc("/stats", s.handleGetStats).Methods(http.MethodGet)
	api.HandleFunc("/goal", s.handleGetGoal).Methods(http.MethodGet)
	api.HandleFunc("/goal", s.handlePutGoal).Methods(http.MethodPut)

	api.HandleFunc("/sources", s.handleGetSources).Methods(http.MethodGet)
	api.HandleFunc("/sources", s.handlePostSource).Methods(http.MethodPost)
	api.HandleFunc("/sources/{id:[0-9]+}", s.handleDeleteSource).Methods(http.MethodDelete)
	api.HandleFunc("/sync", s.handlePostSync).Methods(http.MethodPost)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithDomainError maps the domain's error taxonomy onto HTTP codes.
func respondWithDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		respondWithError(w, http.StatusBadRequest, verr.Reason)
		return
	}
	var nerr *domain.NotFoundError
	if errors.As(err, &nerr) {
		respondWithError(w, http.StatusNotFound, nerr.Error())
		return
	}
	slog.Error("Unexpected error in handler", "error", err)
	respondWithError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleGetDue(w http.ResponseWriter, r *http.Request) {
	due := s.sched.Due()
	respondWithJSON(w, http.StatusOK, map[string]any{
		"count": len(due),
		"items": due,
	})
}

type reviewRequest struct {
	Result string `json:"result"`
}

func (s *Server) handlePostReview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	var (
		it  domain.Item
		err error
	)
	switch req.Result {
	case "correct":
		it, err = s.sched.RecordCorrect(id)
	case "incorrect":
		it, err = s.sched.RecordIncorrect(id)
	default:
		respondWithError(w, http.StatusBadRequest, `result must be "correct" or "incorrect"`)
		return
	}
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, it)
}

func (s *Server) handleGetWords(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.sched.Items())
}

func (s *Server) handleGetWord(w http.ResponseWriter, r *http.Request) {
	it, err := s.sched.Get(mux.Vars(r)["id"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, it)
}

func (s *Server) handlePostWord(w http.ResponseWriter, r *http.Request) {
	var draft scheduler.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	it, err := s.sched.Add(draft)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, it)
}

func (s *Server) handleDeleteWord(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Remove(mux.Vars(r)["id"]); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	var result *importer.Result
	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		result, err = importer.ImportXLSX(f, s.sched, importer.DefaultConfig())
	} else {
		result, err = importer.ImportCSV(f, s.sched, importer.DefaultConfig())
	}
	if err != nil {
		slog.Error("Import failed", "file", header.Filename, "error", err)
		respondWithError(w, http.StatusBadRequest, "could not parse upload")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.sched.Statistics())
}

type goalPayload struct {
	DailyGoal int `json:"daily_goal"`
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, goalPayload{DailyGoal: s.sched.DailyGoal()})
}

func (s *Server) handlePutGoal(w http.ResponseWriter, r *http.Request) {
	var req goalPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.DailyGoal <= 0 {
		respondWithError(w, http.StatusBadRequest, "daily_goal must be positive")
		return
	}
	if err := s.sched.SetDailyGoal(req.DailyGoal); err != nil {
		slog.Error("Failed to store daily goal", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to store goal")
		return
	}
	respondWithJSON(w, http.StatusOK, goalPayload{DailyGoal: req.DailyGoal})
}

type sourcePayload struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
	Type string `json:"type"`
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("Failed to get sources", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}

	out := make([]sourcePayload, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourcePayload{ID: src.ID, Path: src.Path, Type: src.Type})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	var req sourcePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Path == "" {
		respondWithError(w, http.StatusBadRequest, "path cannot be empty")
		return
	}

	sourceType := req.Type
	if sourceType == "" {
		sourceType = deck.DetectType(req.Path)
	}

	id, err := s.db.InsertSource(req.Path, sourceType)
	if err != nil {
		slog.Error("Failed to insert source", "path", req.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to add source")
		return
	}
	respondWithJSON(w, http.StatusCreated, sourcePayload{ID: id, Path: req.Path, Type: sourceType})
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid source ID")
		return
	}

	if err := s.db.DeleteSource(id); err != nil {
		slog.Error("Failed to delete source", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to delete source")
		return
	}
	// The source's items were removed from storage; refresh the collection.
	s.sched.Reload()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePostSync(w http.ResponseWriter, r *http.Request) {
	// Run in the foreground to make the caller wait for the result.
	if err := deck.SyncAll(s.db, s.sched, s.reposDir); err != nil {
		slog.Error("Sync failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}
