package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bookfinder/bookfinder/internal/api/googlebooks"
	"github.com/bookfinder/bookfinder/internal/auth"
	"github.com/bookfinder/bookfinder/internal/cache"
	"github.com/bookfinder/bookfinder/internal/library"
	"github.com/bookfinder/bookfinder/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to write response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// writeError maps service errors to HTTP statuses
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var valErr *auth.ValidationError
	switch {
	case errors.As(err, &valErr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: valErr.Error()})
	case errors.Is(err, auth.ErrEmailTaken):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrSessionNotFound):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrInvalidRating):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrReviewNotFound),
		errors.Is(err, googlebooks.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, library.ErrOfflineNoCache):
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("Request failed", map[string]interface{}{
			"error": err.Error(),
		})
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

type sessionResponse struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

func newSessionResponse(account *auth.Account, session *auth.Session) sessionResponse {
	return sessionResponse{
		UserID:    account.ID,
		Email:     account.Email,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in auth.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, session, err := s.authService.Signup(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newSessionResponse(account, session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, session, err := s.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSessionResponse(account, session))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.authService.Logout(r.Context(), token); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	account, _ := auth.AccountFromContext(r.Context())
	profile, err := s.users.GetUserByUID(r.Context(), account.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	books, err := s.library.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}

// handleBooksWithID handles /api/books/{id} and its sub-resources
func (s *Server) handleBooksWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/books/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 && parts[0] != "" {
		// /api/books/{id}
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.getBookDetail(w, r, parts[0])
	} else if len(parts) == 2 && parts[0] != "" {
		// /api/books/{id}/{action}
		switch parts[1] {
		case "reviews":
			switch r.Method {
			case http.MethodGet:
				s.getBookReviews(w, r, parts[0])
			case http.MethodPost:
				s.addBookReview(w, r, parts[0])
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		case "favorite":
			if r.Method == http.MethodPost {
				s.toggleFavorite(w, r, parts[0])
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		case "reading-list":
			if r.Method == http.MethodPost {
				s.toggleReadingList(w, r, parts[0])
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	} else {
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) getBookDetail(w http.ResponseWriter, r *http.Request, bookID string) {
	detail, err := s.library.LoadBookDetail(r.Context(), bookID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) getBookReviews(w http.ResponseWriter, r *http.Request, bookID string) {
	reviews, err := s.library.GetBookReviews(r.Context(), bookID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) addBookReview(w http.ResponseWriter, r *http.Request, bookID string) {
	var in struct {
		Rating int    `json:"rating"`
		Body   string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, _ := auth.AccountFromContext(r.Context())
	reviewID, err := s.library.AddReview(r.Context(), account.ID, bookID, in.Rating, in.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"reviewId": reviewID})
}

type membershipResponse struct {
	BookID string `json:"bookId"`
	Member bool   `json:"member"`
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request, bookID string) {
	account, _ := auth.AccountFromContext(r.Context())
	member, err := s.library.ToggleFavorite(r.Context(), account.ID, bookID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, membershipResponse{BookID: bookID, Member: member})
}

func (s *Server) toggleReadingList(w http.ResponseWriter, r *http.Request, bookID string) {
	account, _ := auth.AccountFromContext(r.Context())
	member, err := s.library.ToggleReadingList(r.Context(), account.ID, bookID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, membershipResponse{BookID: bookID, Member: member})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	account, _ := auth.AccountFromContext(r.Context())
	books, err := s.library.LoadFavorites(r.Context(), account.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleReadingList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	account, _ := auth.AccountFromContext(r.Context())
	books, err := s.library.LoadReadingList(r.Context(), account.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}

type themePreference struct {
	Theme string `json:"theme"`
}

// handleTheme reads and writes the persisted theme preference. The value
// is device scoped, not per account, and defaults to "light".
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		pref := themePreference{Theme: "light"}
		s.prefs.Get(cache.ThemeKey, &pref)
		s.writeJSON(w, http.StatusOK, pref)
	case http.MethodPut:
		var pref themePreference
		if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		if pref.Theme != "light" && pref.Theme != "dark" {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "theme must be light or dark"})
			return
		}
		s.prefs.Put(cache.ThemeKey, pref)
		s.writeJSON(w, http.StatusOK, pref)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleReviewsWithID handles /api/reviews/{id}
func (s *Server) handleReviewsWithID(w http.ResponseWriter, r *http.Request) {
	reviewID := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
	if reviewID == "" || strings.Contains(reviewID, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	account, _ := auth.AccountFromContext(r.Context())
	if err := s.library.DeleteReview(r.Context(), account.ID, reviewID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
