package team

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/ids"
	"github.com/agentrtkit/codexrt/runtime/protocol"
)

// InboxEntry is one durably-persisted message awaiting delivery to a
// thread that could not accept it synchronously (dead, not yet resumed,
// or simply slow). Entries are appended to a per-receiver JSONL file and
// truncated only on acknowledgment.
type InboxEntry struct {
	ID           string                  `json:"id"`
	CreatedAt    int64                   `json:"created_at"`
	FromThreadID ids.ThreadID            `json:"from_thread_id"`
	ToThreadID   ids.ThreadID            `json:"to_thread_id"`
	FromName     string                  `json:"from_name,omitempty"`
	InputItems   []protocol.ResponseItem `json:"input_items,omitempty"`
	Prompt       string                  `json:"prompt,omitempty"`
}

// AckToken is the opaque cursor team_inbox_pop hands back and
// team_inbox_ack consumes to truncate delivered entries.
type AckToken struct {
	TeamID      string       `json:"team_id"`
	ThreadID    ids.ThreadID `json:"thread_id"`
	UpToEntryID string       `json:"up_to_entry_id"`
	Nonce       string       `json:"nonce"`
}

// MarshalAckTokenForTest serializes an AckToken the way a caller would
// before round-tripping it through team_inbox_ack's string input.
func MarshalAckTokenForTest(token AckToken) (string, error) {
	data, err := json.Marshal(token)
	return string(data), err
}

func newNonce() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// AppendInboxEntry durably appends entry to the receiver's inbox file
// under a file lock, generating its id and timestamp.
func (s *Store) AppendInboxEntry(teamID string, entry InboxEntry, now int64) (string, error) {
	path := s.layout.TeamInboxPath(teamID, entry.ToThreadID.String())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", codexerr.Fatal("team: create inbox dir: %v", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return "", codexerr.Fatal("team: lock inbox: %v", err)
	}
	defer lock.Unlock()

	entry.ID = fmt.Sprintf("inbox_%s", newNonce())
	entry.CreatedAt = now

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", codexerr.Fatal("team: open inbox: %v", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return "", codexerr.Fatal("team: marshal inbox entry: %v", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return "", codexerr.Fatal("team: append inbox: %v", err)
	}
	return entry.ID, nil
}

// PopInbox reads up to limit entries for receiver without removing them,
// returning a token that acknowledges everything returned.
func (s *Store) PopInbox(teamID string, receiver ids.ThreadID, limit int) ([]InboxEntry, *AckToken, error) {
	path := s.layout.TeamInboxPath(teamID, receiver.String())
	entries, err := readInboxEntries(path)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if len(entries) == 0 {
		return entries, nil, nil
	}
	token := &AckToken{
		TeamID:      teamID,
		ThreadID:    receiver,
		UpToEntryID: entries[len(entries)-1].ID,
		Nonce:       newNonce(),
	}
	return entries, token, nil
}

// AckInbox truncates receiver's inbox up to and including
// token.UpToEntryID. token's team_id/thread_id must match.
func (s *Store) AckInbox(teamID string, receiver ids.ThreadID, token AckToken) error {
	if token.TeamID != teamID {
		return codexerr.RespondToModel("ack_token team_id mismatch")
	}
	if token.ThreadID != receiver {
		return codexerr.RespondToModel("ack_token thread_id mismatch")
	}

	path := s.layout.TeamInboxPath(teamID, receiver.String())
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return codexerr.Fatal("team: lock inbox: %v", err)
	}
	defer lock.Unlock()

	entries, err := readInboxEntries(path)
	if err != nil {
		return err
	}

	kept := entries[:0]
	cut := false
	for _, e := range entries {
		if !cut {
			if e.ID == token.UpToEntryID {
				cut = true
			}
			continue
		}
		kept = append(kept, e)
	}
	if !cut {
		// token.UpToEntryID is not in the inbox (already acked): nothing
		// lies up to it, so the file is left as it is.
		return nil
	}

	var buf strings.Builder
	for _, e := range kept {
		data, merr := json.Marshal(e)
		if merr != nil {
			return codexerr.Fatal("team: marshal inbox entry: %v", merr)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return codexerr.Fatal("team: rewrite inbox: %v", err)
	}
	return nil
}

func readInboxEntries(path string) ([]InboxEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, codexerr.Fatal("team: open inbox: %v", err)
	}
	defer f.Close()

	var entries []InboxEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e InboxEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, codexerr.Fatal("team: scan inbox: %v", err)
	}
	return entries, nil
}
