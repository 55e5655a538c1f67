package model

import (
	"errors"
	"fmt"
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []JobStatus{StatusPending, StatusProcessing, StatusDone, StatusFailed}

func ParseJobStatus(s string) (JobStatus, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
}

type JobType string

// JobTypeSyncImage is the only job type: push one avatar to every reader.
const JobTypeSyncImage JobType = "SYNC_IMAGE"

const (
	PriorityHighest = 1
	PriorityLowest  = 10
	PriorityDefault = 5
)

var (
	ErrInvalidPriority = errors.New("priority must be between 1 and 10")
	ErrUnknownStatus   = errors.New("unknown job status")
)

// NormalizePriority maps the zero value to PriorityDefault.
func NormalizePriority(p int) (int, error) {
	if p == 0 {
		return PriorityDefault, nil
	}
	if p < PriorityHighest || p > PriorityLowest {
		return 0, ErrInvalidPriority
	}
	return p, nil
}

type Job struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"evento_id"`
	PersonID    int64      `json:"pessoa_id"`
	FileID      int64      `json:"arquivo_id"`
	Type        JobType    `json:"tipo_job"`
	Priority    int        `json:"prioridade"`
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"tentativas"`
	MaxAttempts int        `json:"max_tentativas"`
	ScheduledAt time.Time  `json:"data_agendamento"`
	StartedAt   *time.Time `json:"data_inicio,omitempty"`
	FinishedAt  *time.Time `json:"data_conclusao,omitempty"`
	LastError   string     `json:"mensagem_erro,omitempty"`
	PersonName  string     `json:"pessoa_nome,omitempty"`
}
