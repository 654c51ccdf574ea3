package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// JobStartedMsg is sent once the engine has accepted a download and returned an id.
type JobStartedMsg struct {
	JobID   string
	URL     string
	Title   string
	Format  types.Format
	Quality types.Quality
}

// ProgressMsg represents a progress update for the active job.
// Simulated is set when the percentage is a heuristic rather than engine output.
type ProgressMsg struct {
	JobID     string
	Progress  int
	Simulated bool
	Status    types.DownloadStatus
}

// JobCompleteMsg signals that the download finished successfully
type JobCompleteMsg struct {
	JobID   string
	Title   string
	Elapsed time.Duration
}

// JobErrorMsg signals that the backend reported a failure, or that a call
// to the backend failed before a job existed (JobID empty).
type JobErrorMsg struct {
	JobID string
	Title string
	Err   error
}

func (m JobErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		JobID string `json:"JobID"`
		Title string `json:"Title,omitempty"`
		Err   string `json:"Err,omitempty"`
	}

	out := encoded{
		JobID: m.JobID,
		Title: m.Title,
	}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}

	return json.Marshal(out)
}

func (m *JobErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		JobID string          `json:"JobID"`
		Title string          `json:"Title"`
		Err   json.RawMessage `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.JobID = aux.JobID
	m.Title = aux.Title
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	// Accept non-string payloads (e.g. {}).
	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}

// JobTimedOutMsg is sent when the job deadline passes before a terminal status.
// Abandoned is set when the user stopped observing the job instead.
type JobTimedOutMsg struct {
	JobID     string
	Elapsed   time.Duration
	Abandoned bool
}

// HistoryChangedMsg asks the presentation layer to reload its history view.
type HistoryChangedMsg struct {
	Entries int
}

// NoticeLevel classifies a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// NoticeMsg is a transient user-facing message (toast / status line).
type NoticeMsg struct {
	Level NoticeLevel
	Text  string
}

// SettingsSavedMsg reports the outcome of a settings save.
type SettingsSavedMsg struct {
	Settings types.AppSettings
	Err      error
}
