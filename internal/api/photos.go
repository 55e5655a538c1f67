package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"readersync/internal/model"
	"readersync/internal/store"
)

type createPhotoRequest struct {
	EventID     int64  `json:"evento_id"`
	PersonID    int64  `json:"pessoa_id"`
	ImageBase64 string `json:"imagem_base64"`
	PathLocal   string `json:"path_local"`
}

type createPhotoResponse struct {
	Message string `json:"message"`
	FileID  int64  `json:"arquivo_id"`
	JobID   int64  `json:"job_id"`
}

// createPhoto registers a new avatar and queues it at top priority so the
// person can be recognised as soon as possible.
func (s *Server) createPhoto(w http.ResponseWriter, r *http.Request) {
	var req createPhotoRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithDomainError(w, err)
		return
	}
	switch {
	case req.EventID <= 0:
		respondWithDomainError(w, fmt.Errorf("%w: evento_id is required", errBadRequest))
		return
	case req.PersonID <= 0:
		respondWithDomainError(w, fmt.Errorf("%w: pessoa_id is required", errBadRequest))
		return
	}

	fileID, jobID, err := s.store.CreateAvatarJob(r.Context(), store.AvatarJobParams{
		EventID:   req.EventID,
		PersonID:  req.PersonID,
		PathLocal: req.PathLocal,
		PathCloud: req.ImageBase64,
		Priority:  model.PriorityHighest,
	})
	if err != nil {
		s.log.Error("register photo failed", zap.Int64("person_id", req.PersonID), zap.Error(err))
		respondWithDomainError(w, err)
		return
	}

	s.announce(r.Context(), jobID, model.PriorityHighest)
	s.disp.TriggerJob(jobID)

	respondWithJSON(w, http.StatusCreated, createPhotoResponse{
		Message: "photo registered",
		FileID:  fileID,
		JobID:   jobID,
	})
}
