package auditlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"badge-compliance-service/internal/domain/compliance"
)

var header = []string{"identity_id", "display_name", "timestamp", "evidence_image_reference"}

// Sink appends fine events to a durable CSV file. The audit log is
// best-effort: the ledger is authoritative, so I/O failures here are
// logged and swallowed, never surfaced to the caller. Writes are
// serialized by the sink's own lock, independent of the ledger's.
type Sink struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// NewSink prepares the log file, creating it with a header row when it is
// absent or empty. A bootstrap failure is reported but does not prevent
// construction; later appends will retry the header.
func NewSink(path string, log zerolog.Logger) *Sink {
	s := &Sink{path: path, log: log}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureHeaderLocked(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to initialize audit log")
	}
	return s
}

// Record appends one fine event. Timestamps are written in UTC at second
// precision.
func (s *Sink) Record(ev compliance.FineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureHeaderLocked(); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("audit log unavailable, fine event not recorded")
		return
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to open audit log")
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		ev.IdentityID,
		ev.DisplayName,
		ev.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		ev.EvidenceImage,
	}
	if err := w.Write(row); err != nil {
		s.log.Error().Err(err).Str("identity_id", ev.IdentityID).Msg("failed to write audit record")
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.log.Error().Err(err).Str("identity_id", ev.IdentityID).Msg("failed to flush audit record")
	}
}

func (s *Sink) ensureHeaderLocked() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
