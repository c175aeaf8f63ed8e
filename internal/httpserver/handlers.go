package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/orgball2608/storyreel/internal/feed"
	"github.com/orgball2608/storyreel/internal/viewer"
	apperrors "github.com/orgball2608/storyreel/pkg/errors"
)

type action string

const (
	actionNext     action = "next"
	actionPrevious action = "previous"
	actionPause    action = "pause"
	actionResume   action = "resume"
	actionToggle   action = "toggle"
	actionClose    action = "close"
)

func (a action) apply(session *viewer.Session) bool {
	switch a {
	case actionNext:
		session.Next()
	case actionPrevious:
		session.Previous()
	case actionPause:
		session.Pause()
	case actionResume:
		session.Resume()
	case actionToggle:
		session.TogglePause()
	case actionClose:
		session.Close()
	default:
		return false
	}
	return true
}

type createSessionRequest struct {
	ViewerID string `json:"viewerId" validate:"required,max=128"`
}

type openRequest struct {
	UserID string `json:"userId" validate:"required"`
	Index  int    `json:"index" validate:"min=0"`
}

type durationRequest struct {
	StoryID    string `json:"storyId" validate:"required"`
	DurationMs int64  `json:"durationMs" validate:"gt=0"`
}

type mediaErrorRequest struct {
	StoryID string `json:"storyId" validate:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.viewer.Len()})
}

func (s *Server) handleListStories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"groups": s.feed.Groups()})
}

func (s *Server) handlePublishStory(w http.ResponseWriter, r *http.Request) {
	var in feed.PublishInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, apperrors.WrapWithCode(apperrors.ErrInvalidInput, "bad_json", "request body is not valid JSON"))
		return
	}

	st, err := s.feed.Publish(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	st, err := s.feed.Get(r.Context(), chi.URLParam(r, "storyID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := s.feed.Delete(r.Context(), chi.URLParam(r, "storyID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	session := s.viewer.Create(req.ViewerID)
	s.log.Debug("Session created over HTTP", "session_id", session.ID(), "viewer_id", session.ViewerID())
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.viewer.Remove(chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleViewed(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"viewed": session.Viewed()})
}

func (s *Server) handleHasViewed(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		s.writeError(w, r, apperrors.WrapWithCode(apperrors.ErrInvalidInput, "bad_index", "index must be a non-negative number"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"viewed": session.HasViewed(chi.URLParam(r, "userID"), index)})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req openRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := session.Open(req.UserID, req.Index); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleAction(a action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.session(w, r)
		if !ok {
			return
		}
		a.apply(session)
		writeJSON(w, http.StatusOK, session.Snapshot())
	}
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req durationRequest
	if !s.decode(w, r, &req) {
		return
	}

	session.ReportDuration(req.StoryID, time.Duration(req.DurationMs)*time.Millisecond)
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleMediaError(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req mediaErrorRequest
	if !s.decode(w, r, &req) {
		return
	}

	session.ReportMediaError(req.StoryID)
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*viewer.Session, bool) {
	session, err := s.viewer.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return session, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, apperrors.WrapWithCode(apperrors.ErrInvalidInput, "bad_json", "request body is not valid JSON"))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		msg := err.Error()
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = verrs[0].Field() + " failed on " + verrs[0].Tag()
		}
		s.writeError(w, r, apperrors.WrapWithCode(apperrors.ErrInvalidInput, "validation_failed", msg))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	resp := errorResponse{
		Error: apperrors.GetMessage(err),
		Code:  apperrors.GetCode(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		s.log.Error("Request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		resp = errorResponse{Error: "internal server error"}
	case apperrors.IsNotFound(err), apperrors.IsInvalidInput(err):
		s.log.Debug("Request rejected", "path", r.URL.Path, "code", resp.Code)
	default:
		s.log.Info("Request rejected", "path", r.URL.Path, "status", status, "code", resp.Code)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
