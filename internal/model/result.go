package model

// ProcessResult is the final JSON line printed by the job processor.
// Keys missing from the line keep their zero value.
type ProcessResult struct {
	Success         bool    `json:"sucesso"`
	JobsProcessed   int     `json:"jobs_processados"`
	Succeeded       int     `json:"sucessos"`
	Failed          int     `json:"falhas"`
	Message         string  `json:"mensagem"`
	DurationSeconds float64 `json:"duracao_segundos"`

	ReturnCode int    `json:"return_code"`
	Output     string `json:"output,omitempty"`
}

// MaxReportedErrors caps ResyncResult.Errors as printed by the resync tool.
const MaxReportedErrors = 10

// ResyncResult is the final JSON line printed by the forced reader resync.
type ResyncResult struct {
	Success         bool     `json:"sucesso"`
	TotalPeople     int      `json:"total_pessoas"`
	ImagesSent      int      `json:"total_imagens_enviadas"`
	TotalErrors     int      `json:"total_erros"`
	Errors          []string `json:"erros"`
	Message         string   `json:"mensagem"`
	DurationSeconds float64  `json:"duracao_segundos"`

	ReturnCode int    `json:"return_code"`
	Output     string `json:"output_completo,omitempty"`
}

// QueueStatus mirrors the per-status counters exposed to callers.
type QueueStatus struct {
	Pending    int `json:"pendentes"`
	Processing int `json:"processando"`
	Done       int `json:"concluidos"`
	Failed     int `json:"falhas"`
}

func NewQueueStatus(counts map[JobStatus]int) QueueStatus {
	return QueueStatus{
		Pending:    counts[StatusPending],
		Processing: counts[StatusProcessing],
		Done:       counts[StatusDone],
		Failed:     counts[StatusFailed],
	}
}

// Report is the behaviour shared by both processor result lines.
type Report interface {
	OK() bool
	Text() string
	// Attach records the process exit code and captured output.
	Attach(returnCode int, output string)
	// Reject replaces whatever was decoded with a failure carrying msg.
	Reject(msg string)
}

func (r *ProcessResult) OK() bool     { return r.Success }
func (r *ProcessResult) Text() string { return r.Message }

// Attach keeps the raw output only for failed runs; a successful run is
// fully described by its counters.
func (r *ProcessResult) Attach(returnCode int, output string) {
	r.ReturnCode = returnCode
	if !r.Success {
		r.Output = output
	}
}

func (r *ProcessResult) Reject(msg string) {
	*r = ProcessResult{Message: msg}
}

func (r *ResyncResult) OK() bool     { return r.Success }
func (r *ResyncResult) Text() string { return r.Message }

func (r *ResyncResult) Attach(returnCode int, output string) {
	r.ReturnCode = returnCode
	r.Output = output
	if r.Errors == nil {
		r.Errors = []string{}
	}
}

func (r *ResyncResult) Reject(msg string) {
	*r = ResyncResult{Message: msg}
}
