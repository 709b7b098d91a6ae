package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/marketplace"
	"github.com/odvcencio/snaplist/pkg/storage"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type listingRequest struct {
	Listing *marketplace.Listing `json:"listing"`
}

var errListingRequired = errors.New(errors.ErrCodeInvalidListing, "listing is required").
	WithUserMessage("request body must contain a listing object")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.svc.Health()
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	respondResult(w, s.svc.Init(r.Context(), sessionKey(r)))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	res := s.svc.Login(r.Context(), sessionKey(r), marketplace.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	respondResult(w, res)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	listing, err := decodeListing(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondResult(w, s.svc.Post(r.Context(), sessionKey(r), listing))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	respondResult(w, s.svc.Close(r.Context(), sessionKey(r)))
}

func (s *Server) handleGenerateLink(w http.ResponseWriter, r *http.Request) {
	listing, err := decodeListing(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, s.svc.GenerateManualLink(listing))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"sessions": s.svc.Sessions()})
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sessionID := strings.TrimSpace(query.Get("session"))
	if sessionID == "" {
		sessionID = sessionKey(r)
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer").
				WithUserMessage("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	subs, err := s.svc.Submissions(r.Context(), sessionID, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.IsCode(err, errors.ErrCodeInvalidInput) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err)
		return
	}
	if subs == nil {
		subs = []storage.Submission{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func decodeListing(r *http.Request) (marketplace.Listing, error) {
	var req listingRequest
	if err := decodeBody(r, &req); err != nil {
		return marketplace.Listing{}, err
	}
	if req.Listing == nil {
		return marketplace.Listing{}, errListingRequired
	}
	return *req.Listing, nil
}
