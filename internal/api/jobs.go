package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"readersync/internal/model"
	"readersync/internal/store"
)

type createJobRequest struct {
	EventID  int64 `json:"evento_id"`
	PersonID int64 `json:"pessoa_id"`
	FileID   int64 `json:"arquivo_id"`
	Priority int   `json:"prioridade"`
}

type createJobResponse struct {
	Success bool   `json:"success"`
	JobID   int64  `json:"job_id"`
	Message string `json:"message"`
}

func (req createJobRequest) validate() error {
	switch {
	case req.EventID <= 0:
		return fmt.Errorf("%w: evento_id is required", errBadRequest)
	case req.PersonID <= 0:
		return fmt.Errorf("%w: pessoa_id is required", errBadRequest)
	case req.FileID <= 0:
		return fmt.Errorf("%w: arquivo_id is required", errBadRequest)
	}
	return nil
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithDomainError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondWithDomainError(w, err)
		return
	}

	priority, err := s.store.ResolvePriority(r.Context(), req.Priority)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	id, err := s.store.EnqueueImageSync(r.Context(), store.EnqueueParams{
		EventID:  req.EventID,
		PersonID: req.PersonID,
		FileID:   req.FileID,
		Priority: priority,
	})
	if err != nil {
		s.log.Error("enqueue failed", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}

	s.announce(r.Context(), id, priority)
	s.disp.Trigger()

	respondWithJSON(w, http.StatusCreated, createJobResponse{
		Success: true,
		JobID:   id,
		Message: "job created and sent for processing",
	})
}

type listJobsResponse struct {
	Total int         `json:"total"`
	Jobs  []model.Job `json:"jobs"`
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	var status model.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := model.ParseJobStatus(raw)
		if err != nil {
			respondWithDomainError(w, err)
			return
		}
		status = st
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	jobs, err := s.store.ListJobs(r.Context(), status, limit)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, listJobsResponse{Total: len(jobs), Jobs: jobs})
}

func (s *Server) queueStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.StatusCounts(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, model.NewQueueStatus(counts))
}

func (s *Server) processPending(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	res, err := s.runner.ProcessPending(r.Context(), limit)
	s.respondWithRun(w, res, err)
}

func (s *Server) processJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if _, err := s.store.GetJob(r.Context(), id); err != nil {
		respondWithDomainError(w, err)
		return
	}
	res, err := s.runner.ProcessJob(r.Context(), id)
	s.respondWithRun(w, res, err)
}

// respondWithRun writes the processor summary as-is, including runs the
// processor itself reported as failed. Undecodable output is returned with
// 502 so the caller still sees what the processor printed.
func (s *Server) respondWithRun(w http.ResponseWriter, res *model.ProcessResult, err error) {
	if err != nil {
		s.log.Error("processor run failed", zap.Error(err))
		if res != nil {
			respondWithJSON(w, statusFromError(err), res)
			return
		}
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (s *Server) retryJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if err := s.store.RetryFailed(r.Context(), id); err != nil {
		respondWithDomainError(w, err)
		return
	}

	s.disp.TriggerJob(id)
	respondWithJSON(w, http.StatusOK, createJobResponse{
		Success: true,
		JobID:   id,
		Message: "job returned to queue",
	})
}
