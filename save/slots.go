package save

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SlotInfo describes one save file on disk.
type SlotInfo struct {
	ID       string
	Path     string
	Modified time.Time
	Size     int64
}

const slotExt = ".city"

// NewSlotID mints a fresh save slot identifier.
func NewSlotID() string {
	return uuid.NewString()
}

// SlotPath returns the file path for a slot id under dir.
func SlotPath(dir, id string) string {
	return filepath.Join(dir, id+slotExt)
}

// ListSlots enumerates save files under dir, newest first. A missing
// directory is an empty list, not an error.
func ListSlots(dir string) ([]SlotInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var slots []SlotInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != slotExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		slots = append(slots, SlotInfo{
			ID:       e.Name()[:len(e.Name())-len(slotExt)],
			Path:     filepath.Join(dir, e.Name()),
			Modified: info.ModTime(),
			Size:     info.Size(),
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Modified.After(slots[j].Modified)
	})
	return slots, nil
}

// WriteSlot atomically writes an envelope to a slot file, creating dir if
// needed. The temp-then-rename dance keeps a crash mid-write from
// clobbering the previous save.
func WriteSlot(dir, id string, e *Envelope) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, id+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := e.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), SlotPath(dir, id))
}

// ReadSlot loads and parses a slot file.
func ReadSlot(dir, id string) (*Envelope, error) {
	f, err := os.Open(SlotPath(dir, id))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEnvelope(f)
}
