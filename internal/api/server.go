// Package api serves the auction over JSON HTTP for the auctioneer console
// and the team portals. Reads come from the local replica; every write is
// an intent handed to the coordinator.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/event"
	"github.com/muktadirmaashif/itcf-2026/internal/health"
	"github.com/muktadirmaashif/itcf-2026/internal/roster"
)

const (
	instrumentation    = "github.com/muktadirmaashif/itcf-2026/internal/api"
	defaultSearchLimit = 20
)

// Coordinator accepts auction intents.
type Coordinator interface {
	Rules() auction.Rules
	DrawNext(ctx context.Context) (*auction.Player, *auction.Snapshot, error)
	PlaceBid(ctx context.Context, playerID, teamID string, amount int) (*auction.Snapshot, error)
	Sold(ctx context.Context, playerID string) (*auction.Snapshot, error)
	Unsold(ctx context.Context, playerID string) (*auction.Snapshot, error)
	Undo(ctx context.Context) (*auction.Player, *auction.Snapshot, error)
	Withdraw(ctx context.Context) (*auction.Snapshot, error)
	SetPhase(ctx context.Context, phase auction.Phase) (bool, *auction.Snapshot, error)
	ClearHistory(ctx context.Context) (*auction.Snapshot, error)
	Reset(ctx context.Context) (*auction.Snapshot, error)
	ImportPlayers(ctx context.Context, players []auction.Player) (*auction.Snapshot, error)
	ImportTeams(ctx context.Context, teams []auction.TeamSeed) (*auction.Snapshot, error)
	ToggleInterest(ctx context.Context, teamID, playerID string) (bool, *auction.Snapshot, error)
	SetInterestLocked(ctx context.Context, locked bool) (*auction.Snapshot, error)
}

// Reader serves the latest snapshot seen by this process.
type Reader interface {
	Snapshot() (*auction.Snapshot, bool)
}

// Server holds the HTTP handlers.
type Server struct {
	coord  Coordinator
	reader Reader
	events event.Store
	health *health.Handler
	logger *slog.Logger
	tracer trace.Tracer
}

// NewServer creates the API server. health may be nil.
func NewServer(coord Coordinator, reader Reader, events event.Store, h *health.Handler, logger *slog.Logger, tp trace.TracerProvider) *Server {
	return &Server{
		coord:  coord,
		reader: reader,
		events: events,
		health: h,
		logger: logger,
		tracer: tp.Tracer(instrumentation),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.health != nil {
		mux.HandleFunc("GET /healthz", s.health.LivenessHandler())
		mux.HandleFunc("GET /readyz", s.health.ReadinessHandler())
	}

	mux.HandleFunc("GET /api/snapshot", s.handle("Snapshot", s.getSnapshot))
	mux.HandleFunc("GET /api/events", s.handle("Events", s.getEvents))
	mux.HandleFunc("GET /api/teams/{id}/roster", s.handle("Roster", s.getRoster))
	mux.HandleFunc("GET /api/standings", s.handle("Standings", s.getStandings))
	mux.HandleFunc("GET /api/players/search", s.handle("Search", s.searchPlayers))
	mux.HandleFunc("GET /api/phases", s.handle("Phases", s.getPhases))

	mux.HandleFunc("POST /api/lot/draw", s.handle("DrawNext", s.drawNext))
	mux.HandleFunc("POST /api/lot/bid", s.handle("PlaceBid", s.placeBid))
	mux.HandleFunc("POST /api/lot/sold", s.handle("Sold", s.sold))
	mux.HandleFunc("POST /api/lot/unsold", s.handle("Unsold", s.unsold))
	mux.HandleFunc("POST /api/lot/undo", s.handle("Undo", s.undo))
	mux.HandleFunc("POST /api/lot/withdraw", s.handle("Withdraw", s.withdraw))
	mux.HandleFunc("POST /api/phase", s.handle("SetPhase", s.setPhase))
	mux.HandleFunc("POST /api/history/clear", s.handle("ClearHistory", s.clearHistory))
	mux.HandleFunc("POST /api/reset", s.handle("Reset", s.reset))
	mux.HandleFunc("PUT /api/players", s.handle("ImportPlayers", s.importPlayers))
	mux.HandleFunc("PUT /api/teams", s.handle("ImportTeams", s.importTeams))
	mux.HandleFunc("POST /api/interests/toggle", s.handle("ToggleInterest", s.toggleInterest))
	mux.HandleFunc("POST /api/interests/lock", s.handle("SetInterestLocked", s.setInterestLocked))
	return mux
}

// handle wraps fn in a span and writes its error, if any.
func (s *Server) handle(name string, fn func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "API."+name,
			trace.WithAttributes(attribute.String("http.route", r.Pattern)),
		)
		defer span.End()

		err := fn(w, r.WithContext(ctx))
		if err == nil {
			return
		}
		status, code := statusOf(err)
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
			s.logger.ErrorContext(ctx, "request failed", slog.String("route", r.Pattern), slog.Any("error", err))
		} else {
			s.logger.DebugContext(ctx, "request rejected", slog.String("route", r.Pattern), slog.String("code", code))
		}
		writeError(w, err)
	}
}

func (s *Server) snapshot() (*auction.Snapshot, error) {
	snap, ok := s.reader.Snapshot()
	if !ok {
		return nil, errNotLoaded
	}
	return snap, nil
}

func (s *Server) getSnapshot(w http.ResponseWriter, _ *http.Request) error {
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, snap)
	return nil
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) error {
	var (
		events []event.Event
		err    error
	)
	if t := r.URL.Query().Get("type"); t != "" {
		events, err = s.events.LoadByType(r.Context(), event.Type(t))
	} else {
		events, err = s.events.Load(r.Context(), auction.AggregateID)
	}
	if err != nil {
		return err
	}
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, http.StatusOK, events)
	return nil
}

func (s *Server) getRoster(w http.ResponseWriter, r *http.Request) error {
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	v, err := roster.TeamRoster(snap, s.coord.Rules(), r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, v)
	return nil
}

func (s *Server) getStandings(w http.ResponseWriter, _ *http.Request) error {
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, roster.League(snap, s.coord.Rules()))
	return nil
}

func (s *Server) searchPlayers(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	limit := defaultSearchLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return badRequest("limit must be a positive integer, got %q", v)
		}
		limit = n
	}
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	matches := roster.Search(snap, q.Get("q"), limit)
	if matches == nil {
		matches = []roster.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
	return nil
}

type phaseView struct {
	Phase      auction.Phase `json:"phase"`
	Current    bool          `json:"current"`
	Candidates int           `json:"candidates"`
}

func (s *Server) getPhases(w http.ResponseWriter, _ *http.Request) error {
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	views := make([]phaseView, len(auction.Phases))
	for i, p := range auction.Phases {
		views[i] = phaseView{Phase: p, Current: snap.State.Phase == p, Candidates: len(snap.Candidates(p))}
	}
	writeJSON(w, http.StatusOK, views)
	return nil
}

type lotResponse struct {
	Player   *auction.Player   `json:"player"`
	Snapshot *auction.Snapshot `json:"snapshot"`
}

func (s *Server) drawNext(w http.ResponseWriter, r *http.Request) error {
	p, snap, err := s.coord.DrawNext(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, lotResponse{Player: p, Snapshot: snap})
	return nil
}

type bidRequest struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Amount   int    `json:"amount"`
}

func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) error {
	var req bidRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	if req.TeamID == "" {
		return badRequest("team_id is required")
	}
	return s.committed(w)(s.coord.PlaceBid(r.Context(), req.PlayerID, req.TeamID, req.Amount))
}

type lotRequest struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) sold(w http.ResponseWriter, r *http.Request) error {
	var req lotRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	if req.PlayerID == "" {
		return badRequest("player_id is required")
	}
	return s.committed(w)(s.coord.Sold(r.Context(), req.PlayerID))
}

func (s *Server) unsold(w http.ResponseWriter, r *http.Request) error {
	var req lotRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	if req.PlayerID == "" {
		return badRequest("player_id is required")
	}
	return s.committed(w)(s.coord.Unsold(r.Context(), req.PlayerID))
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) error {
	p, snap, err := s.coord.Undo(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, lotResponse{Player: p, Snapshot: snap})
	return nil
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) error {
	return s.committed(w)(s.coord.Withdraw(r.Context()))
}

type phaseRequest struct {
	Phase auction.Phase `json:"phase"`
}

type phaseResponse struct {
	Exhausted bool              `json:"exhausted"`
	Snapshot  *auction.Snapshot `json:"snapshot"`
}

func (s *Server) setPhase(w http.ResponseWriter, r *http.Request) error {
	var req phaseRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	exhausted, snap, err := s.coord.SetPhase(r.Context(), req.Phase)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, phaseResponse{Exhausted: exhausted, Snapshot: snap})
	return nil
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) error {
	return s.committed(w)(s.coord.ClearHistory(r.Context()))
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) error {
	return s.committed(w)(s.coord.Reset(r.Context()))
}

func (s *Server) importPlayers(w http.ResponseWriter, r *http.Request) error {
	var players []auction.Player
	if err := decode(w, r, &players); err != nil {
		return err
	}
	return s.committed(w)(s.coord.ImportPlayers(r.Context(), players))
}

func (s *Server) importTeams(w http.ResponseWriter, r *http.Request) error {
	var teams []auction.TeamSeed
	if err := decode(w, r, &teams); err != nil {
		return err
	}
	return s.committed(w)(s.coord.ImportTeams(r.Context(), teams))
}

type interestRequest struct {
	TeamID   string `json:"team_id"`
	PlayerID string `json:"player_id"`
}

type interestResponse struct {
	Marked   bool              `json:"marked"`
	Snapshot *auction.Snapshot `json:"snapshot"`
}

func (s *Server) toggleInterest(w http.ResponseWriter, r *http.Request) error {
	var req interestRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	marked, snap, err := s.coord.ToggleInterest(r.Context(), req.TeamID, req.PlayerID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, interestResponse{Marked: marked, Snapshot: snap})
	return nil
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

func (s *Server) setInterestLocked(w http.ResponseWriter, r *http.Request) error {
	var req lockRequest
	if err := decode(w, r, &req); err != nil {
		return err
	}
	return s.committed(w)(s.coord.SetInterestLocked(r.Context(), req.Locked))
}

// committed writes the snapshot a write intent produced.
func (s *Server) committed(w http.ResponseWriter) func(*auction.Snapshot, error) error {
	return func(snap *auction.Snapshot, err error) error {
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, snap)
		return nil
	}
}
