package viewer

import (
	apperrors "github.com/orgball2608/storyreel/pkg/errors"
)

var (
	ErrStoryNotFound   = apperrors.NewKind(apperrors.ErrNotFound, "story_not_found", "story not found")
	ErrSessionNotFound = apperrors.NewKind(apperrors.ErrNotFound, "session_not_found", "viewer session not found")
	ErrSessionClosed   = apperrors.NewKind(apperrors.ErrConflict, "session_closed", "viewer session is closed")
)
