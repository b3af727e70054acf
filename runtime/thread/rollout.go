package thread

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// rolloutRecord is one append-only JSONL entry in a thread's rollout file.
// The on-disk format is opaque to callers outside this package; the only
// contract spec names is that a thread can be reconstructed from it.
type rolloutRecord struct {
	Kind      string                  `json:"kind"` // "session_source" | "user_input" | "status"
	Source    *protocol.SessionSource `json:"source,omitempty"`
	Text      *string                 `json:"text,omitempty"`
	Items     []protocol.ResponseItem `json:"items,omitempty"`
	Status    protocol.AgentStatus    `json:"status,omitempty"`
	Timestamp int64                   `json:"timestamp_ms,omitempty"`
}

// rolloutWriter appends records to a thread's rollout file. One instance is
// owned per live Thread; the file is opened once and kept for the thread's
// lifetime rather than reopened per write.
type rolloutWriter struct {
	mu   sync.Mutex
	file *os.File
}

func openRolloutWriter(path string) (*rolloutWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &rolloutWriter{file: f}, nil
}

func (w *rolloutWriter) append(rec rolloutRecord) error {
	if w == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.file.Write(append(data, '\n'))
	return err
}

func (w *rolloutWriter) close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.file.Close()
}

// loadRolloutHistory reads back every user_input record previously appended
// to id's rollout, in order, for a resumed thread to replay.
func loadRolloutHistory(path string) ([]UserInputSpec, protocol.SessionSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, protocol.SessionSource{}, err
	}
	defer f.Close()

	var source protocol.SessionSource
	var history []UserInputSpec
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec rolloutRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // malformed line: skip rather than fail the whole resume
		}
		switch rec.Kind {
		case "session_source":
			if rec.Source != nil {
				source = *rec.Source
			}
		case "user_input":
			history = append(history, UserInputSpec{Text: rec.Text, Items: rec.Items})
		}
	}
	return history, source, scanner.Err()
}
