package vm

import (
	"errors"
	"io"
)

// Keyboard is the buffered non-blocking keyboard reader of spec.md §4.7:
// three fields (needMoreInput, kbsr, kbdr) with read_kbsr/read_kbdr
// semantics that never block the dispatch loop.
type Keyboard struct {
	in            io.Reader
	needMoreInput bool
	kbsr          bool
	kbdr          uint16
	buf           [1]byte
}

// NewKeyboard wraps in as the byte source for keyboard input. in must be
// non-blocking, or interposed with a non-blocking poll (spec.md §5); a
// nil in behaves as permanently empty.
func NewKeyboard(in io.Reader) *Keyboard {
	return &Keyboard{in: in, needMoreInput: true}
}

// tryFill attempts one byte read when the buffer is empty, per spec.md
// §4.7: success fills kbdr and sets kbsr; EWOULDBLOCK/EOF clears kbsr and
// leaves needMoreInput set for the next probe.
func (k *Keyboard) tryFill() {
	if !k.needMoreInput || k.in == nil {
		return
	}
	n, err := k.in.Read(k.buf[:])
	if n == 1 {
		k.kbdr = uint16(k.buf[0])
		k.kbsr = true
		k.needMoreInput = false
		return
	}
	if err != nil && !errors.Is(err, io.EOF) {
		k.kbsr = false
		return
	}
	k.kbsr = false
}

// ReadKBSR returns 0x8000 iff a key is currently buffered, else 0x0000.
func (k *Keyboard) ReadKBSR() uint16 {
	k.tryFill()
	if k.kbsr {
		return 0x8000
	}
	return 0x0000
}

// ReadKBDR returns the buffered keycode and marks the buffer consumed,
// triggering the next status read to attempt another byte.
func (k *Keyboard) ReadKBDR() uint16 {
	k.tryFill()
	value := k.kbdr
	k.needMoreInput = true
	k.kbsr = false
	return value
}
