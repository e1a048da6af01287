package save

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// EnvelopeVersion is the current wire version. Files with a newer version
// are rejected rather than guessed at.
const EnvelopeVersion uint32 = 1

// slotNames lists the fixed legacy slots in write order. A zero-length
// slot means the section was absent at save time.
var slotNames = []string{
	"grid",
	"roads",
	"clock",
	"budget",
	"demand",
	"buildings",
	"citizens",
	"utility_sources",
	"service_buildings",
	"road_segments",
}

// Envelope is a decoded save file: the fixed named slots plus the
// open-ended extension entries contributed through the registry.
type Envelope struct {
	Version    uint32
	Slots      map[string][]byte
	Extensions []KV
}

// NewEnvelope creates an envelope at the current version with empty slots.
func NewEnvelope() *Envelope {
	return &Envelope{
		Version: EnvelopeVersion,
		Slots:   make(map[string][]byte, len(slotNames)),
	}
}

var (
	// ErrVersion marks a save newer than this build understands.
	ErrVersion = errors.New("save: unsupported envelope version")
	// ErrCorrupt marks a structurally invalid save.
	ErrCorrupt = errors.New("save: corrupt envelope")
)

// WriteTo serializes the envelope. All integers are little-endian.
// Layout: u32 version, then each fixed slot as u32 length + bytes (length
// zero when absent), then u32 extension count followed by
// u16 key length + key + u32 data length + data per extension.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, e.Version); err != nil {
		return cw.n, err
	}
	for _, name := range slotNames {
		data := e.Slots[name]
		if err := writeBytes32(cw, data); err != nil {
			return cw.n, err
		}
	}
	if err := binary.Write(cw, binary.LittleEndian, uint32(len(e.Extensions))); err != nil {
		return cw.n, err
	}
	for _, kv := range e.Extensions {
		if len(kv.Key) > 0xFFFF {
			return cw.n, fmt.Errorf("save: extension key too long (%d bytes)", len(kv.Key))
		}
		if err := binary.Write(cw, binary.LittleEndian, uint16(len(kv.Key))); err != nil {
			return cw.n, err
		}
		if _, err := cw.Write([]byte(kv.Key)); err != nil {
			return cw.n, err
		}
		if err := writeBytes32(cw, kv.Data); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// ReadEnvelope parses a save stream. The fixed slots are read positionally;
// extensions keep their keys so unknown ones survive a round trip.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	e := NewEnvelope()
	if err := binary.Read(r, binary.LittleEndian, &e.Version); err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrCorrupt, err)
	}
	if e.Version > EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrVersion, e.Version, EnvelopeVersion)
	}
	for _, name := range slotNames {
		data, err := readBytes32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %q: %v", ErrCorrupt, name, err)
		}
		if len(data) > 0 {
			e.Slots[name] = data
		}
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: extension count: %v", ErrCorrupt, err)
	}
	for i := uint32(0); i < count; i++ {
		var klen uint16
		if err := binary.Read(r, binary.LittleEndian, &klen); err != nil {
			return nil, fmt.Errorf("%w: extension %d: %v", ErrCorrupt, i, err)
		}
		key := make([]byte, klen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("%w: extension %d key: %v", ErrCorrupt, i, err)
		}
		data, err := readBytes32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: extension %q: %v", ErrCorrupt, key, err)
		}
		e.Extensions = append(e.Extensions, KV{Key: string(key), Data: data})
	}
	return e, nil
}

func writeBytes32(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readBytes32(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
