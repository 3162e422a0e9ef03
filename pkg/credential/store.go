package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dchest/safefile"
	"github.com/gofrs/flock"
	"github.com/pion/logging"

	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Dir is the directory holding one <address>.reg file per console.
	// Required.
	Dir string

	// MaxRecords bounds the in-memory table (default DefaultMaxRecords).
	MaxRecords int

	// LoggerFactory is the factory for creating loggers. If nil, logging
	// is disabled.
	LoggerFactory logging.LoggerFactory
}

// Store owns the in-memory credential table and its on-disk mirror. All
// mutating operations take a single process-wide lock.
type Store struct {
	dir   string
	table *table
	log   logging.LeveledLogger

	// mu is the single process-wide lock guarding every mutating
	// operation. It is never held across a network
	// call — callers outside this package must not take network action
	// while holding it, and this package never does either.
	mu sync.Mutex

	// dirLock guards the directory against a second OS process writing
	// concurrently (e.g. a relaunch racing a still-running instance).
	dirLock *flock.Flock
}

// NewStore creates a Store rooted at config.Dir, creating the directory if
// it does not exist.
func NewStore(config StoreConfig) (*Store, error) {
	if config.Dir == "" {
		return nil, errs.New(errs.KindInvalidParameter, "credential: Dir is required")
	}
	if err := os.MkdirAll(config.Dir, 0o700); err != nil {
		return nil, errs.Wrap(errs.KindNetwork, err)
	}

	var log logging.LeveledLogger
	if config.LoggerFactory != nil {
		log = config.LoggerFactory.NewLogger("credential")
	}

	return &Store{
		dir:     config.Dir,
		table:   newTable(config.MaxRecords),
		log:     log,
		dirLock: flock.New(filepath.Join(config.Dir, ".lock")),
	}, nil
}

func (s *Store) recordPath(address string) string {
	return filepath.Join(s.dir, address+".reg")
}

// LoadAll enumerates the directory, deserializes each file, runs the
// repair/migration pass, and populates the in-memory table.
func (s *Store) LoadAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dirLock.Lock(); err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}
	defer s.dirLock.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".reg") {
			continue
		}
		address := strings.TrimSuffix(entry.Name(), ".reg")

		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			if s.log != nil {
				s.log.Warnf("credential: skipping %s: %v", entry.Name(), err)
			}
			continue
		}

		rec, rewrite, loadErr := s.loadOne(raw)
		if loadErr != nil {
			if s.log != nil {
				s.log.Warnf("credential: %s is corrupt, loading as unusable: %v", entry.Name(), loadErr)
			}
			rec = &Record{Address: address}
			rewrite = false
		}
		if rec.Address == "" {
			rec.Address = address
		}

		if err := s.table.upsert(rec); err != nil {
			if s.log != nil {
				s.log.Warnf("credential: dropping %s: %v", entry.Name(), err)
			}
			continue
		}

		if rewrite {
			if err := s.persistLocked(rec); err != nil && s.log != nil {
				s.log.Warnf("credential: failed to rewrite migrated record for %s: %v", address, err)
			} else if s.log != nil {
				s.log.Infof("credential: migrated legacy record for %s", address)
			}
		}
	}

	return nil
}

// loadOne decodes raw bytes into a Record and runs the repair pass. The
// second return value reports whether the on-disk shape needs rewriting
// (legacy format, or a detected-but-previously-unrepaired key field).
func (s *Store) loadOne(raw []byte) (*Record, bool, error) {
	d, err := decodeRecord(raw)
	if err != nil {
		return nil, false, err
	}
	changed := applyRepair(d)
	return d.rec, changed, nil
}

// Find returns the most recently inserted record matching address, or nil
// if none exists.
func (s *Store) Find(address string) *Record {
	return s.table.find(address)
}

// UpsertComplete replaces or appends a record, persists it to disk, and
// re-verifies by reloading: it logs fingerprints (first/last byte) of
// RegistKey16 and Morning16 for post-write validation.
func (s *Store) UpsertComplete(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dirLock.Lock(); err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}
	defer s.dirLock.Unlock()

	if err := s.table.upsert(r); err != nil {
		return errs.Wrap(errs.KindMemory, err)
	}

	if err := s.persistLocked(r); err != nil {
		return err
	}

	raw, err := os.ReadFile(s.recordPath(r.Address))
	if err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}
	d, err := decodeRecord(raw)
	if err != nil {
		return errs.Wrap(errs.KindMemory, fmt.Errorf("%w: %v", ErrVerifyMismatch, err))
	}
	if d.rec.RegistKey16 != r.RegistKey16 || d.rec.Morning16 != r.Morning16 {
		return errs.Wrap(errs.KindMemory, ErrVerifyMismatch)
	}

	if s.log != nil {
		s.log.Infof("credential: upserted %s regist_key16=%s morning16=%s",
			r.Address, fingerprint(r.RegistKey16[:]), fingerprint(r.Morning16[:]))
	}
	return nil
}

// fingerprint renders the first and last byte of b as hex, for log lines
// that must never contain full key material.
func fingerprint(b []byte) string {
	if len(b) == 0 {
		return "(empty)"
	}
	return fmt.Sprintf("%02x..%02x", b[0], b[len(b)-1])
}

func (s *Store) persistLocked(r *Record) error {
	buf := encodeRecord(r)
	if err := safefile.WriteFile(s.recordPath(r.Address), buf, 0o600); err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}
	return nil
}

// Remove removes the record for address from memory and deletes its file.
func (s *Store) Remove(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dirLock.Lock(); err != nil {
		return errs.Wrap(errs.KindNetwork, err)
	}
	defer s.dirLock.Unlock()

	s.table.remove(address)

	err := os.Remove(s.recordPath(address))
	if err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.KindNetwork, err)
	}
	return nil
}

// GetSessionCredentials returns the (RegistKey16, Morning16) pair for
// address.
func (s *Store) GetSessionCredentials(address string) (registKey16, morning16 [16]byte, err error) {
	r := s.Find(address)
	if r == nil {
		return [16]byte{}, [16]byte{}, errs.New(errs.KindNotRegistered, "no credential record for "+address)
	}
	k, m := r.SessionCredentials()
	return k, m, nil
}

// GetUnified returns the unified credential view for address.
func (s *Store) GetUnified(address string) (Unified, error) {
	r := s.Find(address)
	if r == nil {
		return Unified{}, errs.New(errs.KindNotRegistered, "no credential record for "+address)
	}
	u := r.Unified()
	if !u.Valid {
		return u, errs.New(errs.KindInvalidCredentials, "credential record for "+address+" is structurally invalid")
	}
	return u, nil
}

// Len returns the number of records currently held in memory.
func (s *Store) Len() int {
	return s.table.len()
}

// All returns a snapshot of every record currently held in memory.
func (s *Store) All() []*Record {
	return s.table.all()
}
