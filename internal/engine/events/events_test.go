package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

// =============================================================================
// JobErrorMsg JSON
// =============================================================================

func TestJobErrorMsg_MarshalJSON(t *testing.T) {
	msg := JobErrorMsg{JobID: "job-1", Title: "clip", Err: errors.New("yt-dlp exited 1")}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw failed: %v", err)
	}
	if raw["Err"] != "yt-dlp exited 1" {
		t.Errorf("Err should be encoded as string, got %v", raw["Err"])
	}
}

func TestJobErrorMsg_MarshalNilErr(t *testing.T) {
	data, err := json.Marshal(JobErrorMsg{JobID: "job-2"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded JobErrorMsg
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Err != nil {
		t.Errorf("expected nil Err, got %v", decoded.Err)
	}
}

func TestJobErrorMsg_UnmarshalNonStringErr(t *testing.T) {
	var msg JobErrorMsg
	if err := json.Unmarshal([]byte(`{"JobID":"job-3","Err":{"code":7}}`), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.JobID != "job-3" {
		t.Errorf("JobID = %q, want job-3", msg.JobID)
	}
	if msg.Err == nil || msg.Err.Error() != `{"code":7}` {
		t.Errorf("expected raw payload as error, got %v", msg.Err)
	}
}

func TestJobErrorMsg_UnmarshalNullErr(t *testing.T) {
	var msg JobErrorMsg
	if err := json.Unmarshal([]byte(`{"JobID":"job-4","Err":null}`), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Err != nil {
		t.Errorf("null Err should decode to nil, got %v", msg.Err)
	}
}

// =============================================================================
// Message Type Assertions
// =============================================================================

func TestMessageTypes_AreDistinct(t *testing.T) {
	messages := []interface{}{
		JobStartedMsg{JobID: "started"},
		ProgressMsg{JobID: "progress"},
		JobCompleteMsg{JobID: "complete"},
		JobErrorMsg{JobID: "error"},
		JobTimedOutMsg{JobID: "timeout"},
		HistoryChangedMsg{},
		NoticeMsg{},
		SettingsSavedMsg{},
	}

	typeNames := make(map[string]bool)
	for _, msg := range messages {
		typeName := fmt.Sprintf("%T", msg)
		if typeNames[typeName] {
			t.Errorf("Duplicate type: %s", typeName)
		}
		typeNames[typeName] = true
	}

	if len(typeNames) != len(messages) {
		t.Errorf("Expected %d distinct types, got %d", len(messages), len(typeNames))
	}
}
