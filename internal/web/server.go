// Package web serves the HTMX review interface. Every handler renders a
// template fragment that htmx swaps into the page; there is no JSON API.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/memodeck/memodeck/internal/domain"
	"github.com/memodeck/memodeck/internal/ingest"
	"github.com/memodeck/memodeck/internal/scheduler"
	"github.com/memodeck/memodeck/internal/storage"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	sched     *scheduler.Scheduler
	router    *http.ServeMux
	templates *template.Template
	reposDir  string

	// The scheduler is not safe for concurrent use; a single study session
	// is the intended workload.
	mu sync.Mutex
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, sched *scheduler.Scheduler, reposDir string) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:        db,
		sched:     sched,
		router:    http.NewServeMux(),
		templates: tpl,
		reposDir:  reposDir,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	staticFS, _ := fs.Sub(staticFiles, "static")
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	s.router.HandleFunc("/deck", s.handleGetDeck())
	s.router.HandleFunc("/deck/options", s.handleDeckOptions())
	s.router.HandleFunc("/deck/unbury", s.handlePostUnbury())
	s.router.HandleFunc("/review/next", s.handleGetNextReview())
	s.router.HandleFunc("/review/answer/", s.handleShowAnswer())
	s.router.HandleFunc("/review/", s.handlePostReview())
	s.router.HandleFunc("/undo", s.handlePostUndo())

	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

type deckView struct {
	Decks        []*domain.Deck
	SelectedDeck int64
	NewCount     int
	LearnCount   int
	ReviewCount  int
	StudiedToday int
	HasDueCards  bool
	UndoLabel    string
}

// deckData collects counts and the deck list for the deck overview fragment.
// The caller must hold s.mu.
func (s *Server) deckData() (deckView, error) {
	decks, err := s.db.AllDecks()
	if err != nil {
		return deckView{}, err
	}
	newCount, learnCount, reviewCount, err := s.sched.Counts()
	if err != nil {
		return deckView{}, err
	}
	// Review log IDs are epoch milliseconds, so everything logged since the
	// last rollover has an ID at or past the start of the study day.
	dayStart := (s.sched.Timing().DayCutoff - 86400) * 1000
	studied, err := s.db.ReviewCountSince(dayStart)
	if err != nil {
		return deckView{}, err
	}
	return deckView{
		Decks:        decks,
		SelectedDeck: s.sched.SelectedDeck(),
		NewCount:     newCount,
		LearnCount:   learnCount,
		ReviewCount:  reviewCount,
		StudiedToday: studied,
		HasDueCards:  newCount+learnCount+reviewCount > 0,
		UndoLabel:    s.sched.NextUndo(),
	}, nil
}

// handleGetDeck renders the deck overview. An optional ?id= query switches
// the active deck first.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if idStr := r.URL.Query().Get("id"); idStr != "" {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				http.Error(w, "Invalid deck ID", http.StatusBadRequest)
				return
			}
			if err := s.sched.SelectDeck(id); err != nil {
				if errors.Is(err, scheduler.ErrDeckNotFound) {
					http.NotFound(w, r)
					return
				}
				s.internalError(w, "selecting deck", err)
				return
			}
		}

		data, err := s.deckData()
		if err != nil {
			s.internalError(w, "loading deck view", err)
			return
		}
		s.templates.ExecuteTemplate(w, "deck", data)
	}
}

type cardView struct {
	Card    *domain.Card
	Note    *domain.Note
	Reviews int
	deckView
}

// handleGetNextReview renders the front of the next due card.
func (s *Server) handleGetNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.renderNextCard(w)
	}
}

// renderNextCard renders the front of the next card, or the deck overview
// when the session is done. The caller must hold s.mu.
func (s *Server) renderNextCard(w http.ResponseWriter) {
	card, err := s.sched.NextCard()
	if err != nil {
		s.internalError(w, "getting next card", err)
		return
	}
	data, err := s.deckData()
	if err != nil {
		s.internalError(w, "loading counts", err)
		return
	}
	if card == nil {
		s.templates.ExecuteTemplate(w, "deck", data)
		return
	}

	note, err := s.db.Note(card.NoteID)
	if err != nil {
		s.internalError(w, "loading note", err)
		return
	}
	s.templates.ExecuteTemplate(w, "card_front", cardView{Card: card, Note: note, deckView: data})
}

// handleShowAnswer renders the back of a card.
func (s *Server) handleShowAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/review/answer/"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid card ID", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		card, err := s.db.Card(id)
		if err != nil {
			if errors.Is(err, scheduler.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			s.internalError(w, "loading card", err)
			return
		}
		note, err := s.db.Note(card.NoteID)
		if err != nil {
			s.internalError(w, "loading note", err)
			return
		}
		reviews, err := s.db.ReviewsOfCard(card.ID)
		if err != nil {
			s.internalError(w, "loading review history", err)
			return
		}
		data, err := s.deckData()
		if err != nil {
			s.internalError(w, "loading counts", err)
			return
		}
		s.templates.ExecuteTemplate(w, "card_back", cardView{
			Card:     card,
			Note:     note,
			Reviews:  len(reviews),
			deckView: data,
		})
	}
}

// handlePostReview processes a rating and renders the next card.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/review/"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid card ID", http.StatusBadRequest)
			return
		}
		var rating domain.Rating
		if err := rating.UnmarshalText([]byte(r.PostFormValue("rating"))); err != nil {
			http.Error(w, "Invalid rating", http.StatusBadRequest)
			return
		}
		takenMillis, _ := strconv.Atoi(r.PostFormValue("taken_ms"))

		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.sched.AnswerCard(id, rating, takenMillis); err != nil {
			switch {
			case errors.Is(err, scheduler.ErrNotFound):
				http.NotFound(w, r)
			case errors.Is(err, scheduler.ErrInvalidTransition):
				http.Error(w, "Card cannot be answered", http.StatusConflict)
			default:
				s.internalError(w, "answering card", err)
			}
			return
		}
		s.renderNextCard(w)
	}
}

// handlePostUndo reverts the last review or checkpoint and re-renders the
// deck overview.
func (s *Server) handlePostUndo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := s.sched.Undo(); err != nil {
			if errors.Is(err, scheduler.ErrNothingToUndo) {
				http.Error(w, "Nothing to undo", http.StatusConflict)
				return
			}
			s.internalError(w, "undoing", err)
			return
		}
		data, err := s.deckData()
		if err != nil {
			s.internalError(w, "loading deck view", err)
			return
		}
		s.templates.ExecuteTemplate(w, "deck", data)
	}
}

// handlePostUnbury lifts all burials in the active deck branch, or in every
// deck when none is selected, and re-renders the deck overview.
func (s *Server) handlePostUnbury() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if id := s.sched.SelectedDeck(); id != 0 {
			if err := s.sched.UnburyDeck(id, scheduler.UnburyAll); err != nil {
				s.internalError(w, "unburying deck", err)
				return
			}
		} else {
			decks, err := s.db.AllDecks()
			if err != nil {
				s.internalError(w, "loading decks", err)
				return
			}
			for _, d := range decks {
				// UnburyDeck covers the whole branch, so top-level decks
				// are enough.
				if strings.Contains(d.Name, domain.DeckSeparator) {
					continue
				}
				if err := s.sched.UnburyDeck(d.ID, scheduler.UnburyAll); err != nil {
					s.internalError(w, "unburying deck", err)
					return
				}
			}
		}

		data, err := s.deckData()
		if err != nil {
			s.internalError(w, "loading deck view", err)
			return
		}
		s.templates.ExecuteTemplate(w, "deck", data)
	}
}

// handleDeckOptions renders and saves the option group of a deck. The group
// may be shared, so saving affects every deck pointing at it.
func (s *Server) handleDeckOptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		deckID, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid deck ID", http.StatusBadRequest)
			return
		}
		deck, err := s.db.Deck(deckID)
		if err != nil {
			if errors.Is(err, scheduler.ErrDeckNotFound) {
				http.NotFound(w, r)
				return
			}
			s.internalError(w, "loading deck", err)
			return
		}
		cfg, err := s.db.DeckConfig(deck.ConfigID)
		if err != nil {
			s.internalError(w, "loading deck config", err)
			return
		}

		switch r.Method {
		case http.MethodGet:
			s.templates.ExecuteTemplate(w, "deck_options", map[string]any{"Deck": deck, "Config": cfg})

		case http.MethodPost:
			fields := map[string]*int{
				"new_per_day":     &cfg.NewPerDay,
				"reviews_per_day": &cfg.ReviewsPerDay,
				"max_interval":    &cfg.MaxInterval,
			}
			for name, dst := range fields {
				v, err := strconv.Atoi(r.PostFormValue(name))
				if err != nil {
					http.Error(w, "Invalid "+name, http.StatusBadRequest)
					return
				}
				*dst = v
			}
			if err := s.db.SaveDeckConfig(&cfg); err != nil {
				http.Error(w, "Invalid deck options", http.StatusBadRequest)
				return
			}
			// Daily limits feed the queue build.
			s.sched.Reset()

			data, err := s.deckData()
			if err != nil {
				s.internalError(w, "loading deck view", err)
				return
			}
			s.templates.ExecuteTemplate(w, "deck", data)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handlePostSync triggers a manual sync and re-renders the source list.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		// Run in the foreground to make the user wait.
		if err := ingest.Run(s.db, s.reposDir); err != nil {
			s.internalError(w, "syncing sources", err)
			return
		}
		s.sched.Reset()

		sources, err := s.db.AllSources()
		if err != nil {
			s.internalError(w, "getting sources after sync", err)
			return
		}
		s.templates.ExecuteTemplate(w, "sync_success", nil)
		s.templates.ExecuteTemplate(w, "source_list", map[string]any{"Sources": sources})
	}
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.AllSources()
	if err != nil {
		s.internalError(w, "getting sources", err)
		return
	}
	s.templates.ExecuteTemplate(w, "sources", map[string]any{"Sources": sources})
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := r.PostFormValue("path")
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}

	if _, err := s.db.InsertSource(path); err != nil {
		s.internalError(w, "inserting new source", err)
		return
	}

	sources, err := s.db.AllSources()
	if err != nil {
		s.internalError(w, "getting sources after add", err)
		return
	}
	s.templates.ExecuteTemplate(w, "source_list", map[string]any{"Sources": sources})
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/sources/"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			s.internalError(w, "deleting source", err)
			return
		}

		sources, err := s.db.AllSources()
		if err != nil {
			s.internalError(w, "getting sources after delete", err)
			return
		}
		s.templates.ExecuteTemplate(w, "source_list", map[string]any{"Sources": sources})
	}
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	slog.Error("request failed", "action", action, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
