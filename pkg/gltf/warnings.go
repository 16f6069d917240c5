package gltf

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Kind classifies a recoverable problem.
type Kind int

const (
	KindIndexOutOfRange Kind = iota
	KindUnsupportedExtension
	KindCodecRequired
	KindIO
	KindInvalidData
)

func (k Kind) String() string {
	switch k {
	case KindIndexOutOfRange:
		return "IndexOutOfRange"
	case KindUnsupportedExtension:
		return "UnsupportedExtension"
	case KindCodecRequired:
		return "CodecRequired"
	case KindIO:
		return "IOError"
	case KindInvalidData:
		return "InvalidData"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindIndexOutOfRange:
		return ErrIndexOutOfRange
	case KindUnsupportedExtension:
		return ErrUnsupportedExtension
	case KindCodecRequired:
		return ErrCodecRequired
	case KindIO:
		return ErrIO
	default:
		return ErrInvalidData
	}
}

// Warning is a problem local to one entity. The entity resolves to nil or
// its default and the import continues.
type Warning struct {
	Kind  Kind
	Stage string
	Index int // element index within the stage, -1 for document level
	Err   error
}

func (w Warning) Error() string {
	if w.Index < 0 {
		return fmt.Sprintf("%s: %s: %v", w.Stage, w.Kind, w.Err)
	}
	return fmt.Sprintf("%s[%d]: %s: %v", w.Stage, w.Index, w.Kind, w.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is(w, ErrIndexOutOfRange) holds for index warnings.
func (w Warning) Unwrap() []error {
	return []error{w.Kind.sentinel(), w.Err}
}

// Warnings is the warning log shared by every stage of one import.
// It is safe for concurrent use.
type Warnings struct {
	mu   sync.Mutex
	list []Warning
	log  *zap.Logger
}

// NewWarnings creates an empty log. A nil logger discards output.
func NewWarnings(log *zap.Logger) *Warnings {
	if log == nil {
		log = zap.NewNop()
	}
	return &Warnings{log: log}
}

// Add records a warning.
func (w *Warnings) Add(kind Kind, stage string, index int, err error) {
	wr := Warning{Kind: kind, Stage: stage, Index: index, Err: err}

	w.mu.Lock()
	w.list = append(w.list, wr)
	w.mu.Unlock()

	w.log.Warn("import warning",
		zap.String("kind", kind.String()),
		zap.String("stage", stage),
		zap.Int("index", index),
		zap.Error(err))
}

// Addf records a warning with a formatted cause.
func (w *Warnings) Addf(kind Kind, stage string, index int, format string, args ...any) {
	w.Add(kind, stage, index, fmt.Errorf(format, args...))
}

// List returns a snapshot of the recorded warnings in insertion order.
func (w *Warnings) List() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Warning, len(w.list))
	copy(out, w.list)
	return out
}

// Len returns the number of recorded warnings.
func (w *Warnings) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.list)
}

// Count returns the number of warnings of the given kind.
func (w *Warnings) Count(kind Kind) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, wr := range w.list {
		if wr.Kind == kind {
			n++
		}
	}
	return n
}

// Err combines all warnings into a single error, or nil if there are none.
func (w *Warnings) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err error
	for _, wr := range w.list {
		err = multierr.Append(err, wr)
	}
	return err
}
