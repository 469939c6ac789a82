package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

// StorageData is the full durable state: the locker table, the reservation
// table, and the accumulated revenue total.
type StorageData struct {
	Lockers      []types.Locker      `json:"lockers"`
	Reservations []types.Reservation `json:"reservations"`
	Revenue      decimal.Decimal     `json:"revenue"`
}

// FileStorage persists the whole system state as one JSON document. Every
// save rewrites the file through a temp-file-and-rename swap so a reader can
// never observe a half-written document.
type FileStorage struct {
	filePath string
	poolSize int
	logger   *zap.Logger
}

func NewFileStorage(filePath string, poolSize int, logger *zap.Logger) *FileStorage {
	return &FileStorage{filePath: filePath, poolSize: poolSize, logger: logger}
}

// Load reads persisted state. A missing file is a first run and yields empty
// collections with a nil error. A file that cannot be parsed at all is a
// persistence failure; individually malformed rows are reported, skipped,
// and the rest of the load continues.
func (fs *FileStorage) Load() (StorageData, error) {
	raw, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			fs.logger.Info("no prior state, starting empty", zap.String("path", fs.filePath))
			return StorageData{Revenue: decimal.Zero}, nil
		}
		return StorageData{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var data StorageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return StorageData{}, fmt.Errorf("failed to decode state file %s: %w", fs.filePath, err)
	}

	data.Lockers = fs.validLockers(data.Lockers)
	data.Reservations = fs.validReservations(data.Reservations)
	return data, nil
}

func (fs *FileStorage) validLockers(in []types.Locker) []types.Locker {
	out := in[:0]
	seen := make(map[string]struct{}, len(in))
	for _, l := range in {
		if _, err := types.NormalizeLockerID(l.ID, fs.poolSize); err != nil {
			fs.logger.Warn("skipping malformed locker row", zap.String("id", l.ID), zap.Error(err))
			continue
		}
		if _, dup := seen[l.ID]; dup {
			fs.logger.Warn("skipping duplicate locker row", zap.String("id", l.ID))
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

func (fs *FileStorage) validReservations(in []types.Reservation) []types.Reservation {
	out := in[:0]
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		if err := fs.checkReservation(r); err != nil {
			fs.logger.Warn("skipping malformed reservation row", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		if _, dup := seen[r.ID]; dup {
			fs.logger.Warn("skipping duplicate reservation row", zap.String("id", r.ID))
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (fs *FileStorage) checkReservation(r types.Reservation) error {
	if r.ID == "" {
		return errors.New("empty reservation id")
	}
	if err := types.ValidatePhone(r.Phone); err != nil {
		return err
	}
	if _, err := types.NormalizeLockerID(r.LockerID, fs.poolSize); err != nil {
		return err
	}
	if err := types.ValidateAccessCode(r.Code); err != nil {
		return err
	}
	if _, err := types.ParseServiceType(string(r.Service)); err != nil {
		return err
	}
	switch r.Payment {
	case types.Unpaid, types.Paid:
	default:
		return fmt.Errorf("unknown payment status %q", r.Payment)
	}
	switch r.State {
	case types.StatePending, types.StateDroppedOff, types.StatePaid:
	default:
		return fmt.Errorf("unknown reservation state %q", r.State)
	}
	if r.CreatedAt.IsZero() {
		return errors.New("missing created_at")
	}
	return nil
}

// Save atomically rewrites the full state. The operation that triggered the
// save must not be acknowledged if this fails.
func (fs *FileStorage) Save(data StorageData) error {
	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fs.filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	name := tmp.Name()
	tmp = nil
	if err := os.Rename(name, fs.filePath); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to swap state file: %w", err)
	}
	return nil
}
