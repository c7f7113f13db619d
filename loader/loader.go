// Package loader reads/writes LC-3 object files and places their words
// into emulator memory (spec.md §4.6 "Memory loader", §6 "Object file
// format").
package loader

import (
	"encoding/binary"
	"fmt"
	"io"

	"lc3/vm"
)

// ReadObject reads a big-endian 16-bit word stream: word 0 is the origin,
// the rest are placed sequentially starting there (spec.md §6).
func ReadObject(r io.Reader) (origin uint16, words []uint16, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, fmt.Errorf("loader: read object: %w", err)
	}
	if len(raw)%2 != 0 {
		return 0, nil, fmt.Errorf("loader: object file has an odd byte count (%d)", len(raw))
	}
	if len(raw) == 0 {
		return 0, nil, fmt.Errorf("loader: object file is empty, missing origin word")
	}

	all := make([]uint16, len(raw)/2)
	for i := range all {
		all[i] = binary.BigEndian.Uint16(raw[2*i : 2*i+2])
	}
	return all[0], all[1:], nil
}

// WriteObject writes the origin word followed by words, big-endian, with
// no header or checksum (spec.md §6).
func WriteObject(w io.Writer, origin uint16, words []uint16) error {
	buf := make([]byte, 2*(len(words)+1))
	binary.BigEndian.PutUint16(buf[0:2], origin)
	for i, word := range words {
		binary.BigEndian.PutUint16(buf[2+2*i:4+2*i], word)
	}
	_, err := w.Write(buf)
	return err
}

// LoadProgram reads an object stream from r and writes its words into
// mem starting at the stream's origin. Multiple loads compose by
// overwrite (spec.md §4.6: typically the OS image first, then the user
// image).
func LoadProgram(mem *vm.Memory, r io.Reader) (origin uint16, err error) {
	origin, words, err := ReadObject(r)
	if err != nil {
		return 0, err
	}
	mem.LoadImage(origin, words)
	return origin, nil
}
