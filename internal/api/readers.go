package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"readersync/internal/model"
	"readersync/internal/store"
)

type resyncResponse struct {
	Message string              `json:"message"`
	Error   string              `json:"error,omitempty"`
	Data    *model.ResyncResult `json:"data,omitempty"`
}

// resyncReader forces every active person's image onto one reader. The
// call blocks until the processor finishes or its timeout fires.
func (s *Server) resyncReader(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if _, err := s.store.GetReader(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "reader not found")
			return
		}
		respondWithDomainError(w, err)
		return
	}

	res, err := s.runner.ResyncReader(r.Context(), id)
	log := s.log.With(zap.Int64("reader_id", id))
	switch {
	case err != nil && res == nil:
		log.Error("forced resync failed", zap.Error(err))
		code := statusFromError(err)
		if code != http.StatusServiceUnavailable {
			code = http.StatusInternalServerError
		}
		respondWithJSON(w, code, resyncResponse{Message: "sync failed", Error: err.Error()})
	case err != nil || !res.Success:
		msg := res.Message
		if err != nil {
			msg = err.Error()
		}
		log.Warn("forced resync reported failure", zap.String("message", msg), zap.Int("return_code", res.ReturnCode))
		respondWithJSON(w, http.StatusInternalServerError, resyncResponse{Message: "sync failed", Error: msg, Data: res})
	default:
		log.Info("forced resync finished",
			zap.Int("people", res.TotalPeople),
			zap.Int("images_sent", res.ImagesSent),
			zap.Int("errors", res.TotalErrors))
		respondWithJSON(w, http.StatusOK, resyncResponse{Message: "sync completed", Data: res})
	}
}
