package tracelog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

// Iterator yields Frames one at a time. Next returns ok=false once the
// stream is exhausted; callers must not call Next again afterward.
//
// The call-tree builder treats every Next call as a blocking call that
// returns a fully-formed frame — it never inspects the underlying
// source.
type Iterator interface {
	Next() (Frame, bool)
}

// sliceIterator adapts a materialised []Frame to Iterator. Passing a
// pre-materialised slice rather than a lazy stream must behave
// identically to streaming.
type sliceIterator struct {
	frames []Frame
	pos    int
}

// NewSliceIterator wraps a slice of already-decoded frames as an
// Iterator, for callers holding a parsed trace (for example the
// result of DecodeFrames).
func NewSliceIterator(frames []Frame) Iterator {
	return &sliceIterator{frames: frames}
}

func (s *sliceIterator) Next() (Frame, bool) {
	if s.pos >= len(s.frames) {
		return Frame{}, false
	}
	f := s.frames[s.pos]
	s.pos++
	return f, true
}

// DecodeFrames reads a JSON array of struct-log frame objects from r
// and decodes every element.
func DecodeFrames(r io.Reader) ([]Frame, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, evmtypes.NewInvalidHex("trace", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, evmtypes.NewInvalidHex("trace", fmt.Errorf("expected a JSON array of frames"))
	}

	var frames []Frame
	for dec.More() {
		var f Frame
		if err := dec.Decode(&f); err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}
