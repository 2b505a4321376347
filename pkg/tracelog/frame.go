// Package tracelog models the Geth struct-log trace format
// (debug_traceTransaction's default tracer) and resolves the one
// cross-frame detail the hard core cannot determine frame-by-frame:
// the deployed address of a CREATE/CREATE2.
package tracelog

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

// Frame is one per-opcode struct-log record, decoded from either
// native JSON numbers or hex strings for its integer fields.
type Frame struct {
	PC      uint64
	Op      string
	Gas     uint64
	GasCost uint64
	Depth   uint64

	// Stack is the execution stack at this step; the top of stack is
	// the last element, matching the order geth emits it in.
	Stack []evmtypes.Word
	// Memory is linear EVM memory, word-indexed. May be nil if the
	// tracer was configured without memory capture.
	Memory []evmtypes.Word
	// Storage is ignored by the hard core; kept for completeness and
	// downstream tooling.
	Storage map[evmtypes.Word]evmtypes.Word

	// ContractAddress is populated by Preprocess for CREATE/CREATE2
	// frames once the deployed address has been resolved by
	// look-ahead, and by vmtrace.ToTraceFrames on the frames of a
	// sub-trace with the address that CALL/DELEGATECALL/STATICCALL
	// targeted. Nil for every other frame and for unresolved
	// CREATE/CREATE2 frames.
	ContractAddress *evmtypes.Address
}

// StackTop returns the n-th word from the top of the stack (n=1 is the
// top element), mirroring Python-style negative indexing (stack[-n]).
// ok is false if the stack has fewer than n items.
func (f *Frame) StackTop(n int) (evmtypes.Word, bool) {
	if n <= 0 || n > len(f.Stack) {
		return evmtypes.Word{}, false
	}
	return f.Stack[len(f.Stack)-n], true
}

type rawFrame struct {
	PC      json.RawMessage   `json:"pc"`
	Op      *string           `json:"op"`
	Gas     json.RawMessage   `json:"gas"`
	GasCost json.RawMessage   `json:"gasCost"`
	Depth   json.RawMessage   `json:"depth"`
	Stack   []string          `json:"stack"`
	Memory  []string          `json:"memory"`
	Storage map[string]string `json:"storage"`
}

// UnmarshalJSON decodes the struct-log wire shape: integer fields may
// arrive as native JSON numbers or as hex strings.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return evmtypes.NewInvalidHex("frame", err)
	}
	if raw.Op == nil {
		return evmtypes.NewMissingField("op")
	}

	var err error
	if f.PC, err = decodeUint64("pc", raw.PC); err != nil {
		return err
	}
	f.Op = *raw.Op
	if f.Gas, err = decodeUint64("gas", raw.Gas); err != nil {
		return err
	}
	if f.GasCost, err = decodeUint64("gasCost", raw.GasCost); err != nil {
		return err
	}
	if f.Depth, err = decodeUint64("depth", raw.Depth); err != nil {
		return err
	}

	if len(raw.Stack) > 0 {
		f.Stack = make([]evmtypes.Word, len(raw.Stack))
		for i, s := range raw.Stack {
			if f.Stack[i], err = evmtypes.WordFromHex(s); err != nil {
				return err
			}
		}
	}
	if len(raw.Memory) > 0 {
		f.Memory = make([]evmtypes.Word, len(raw.Memory))
		for i, s := range raw.Memory {
			if f.Memory[i], err = evmtypes.WordFromHex(s); err != nil {
				return err
			}
		}
	}
	if len(raw.Storage) > 0 {
		f.Storage = make(map[evmtypes.Word]evmtypes.Word, len(raw.Storage))
		for k, v := range raw.Storage {
			key, err := evmtypes.WordFromHex(k)
			if err != nil {
				return err
			}
			val, err := evmtypes.WordFromHex(v)
			if err != nil {
				return err
			}
			f.Storage[key] = val
		}
	}
	return nil
}

// decodeUint64 accepts a JSON number or a JSON hex string (with or
// without "0x") for field. An absent or null field has no default here
// (unlike CallTreeNode's gas_limit/value) and is a MissingField error.
func decodeUint64(field string, raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, evmtypes.NewMissingField(field)
	}
	if raw[0] != '"' {
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, evmtypes.NewInvalidHex(field, err)
		}
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, evmtypes.NewInvalidHex(field, err)
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, evmtypes.NewInvalidHex(field, err)
	}
	return n, nil
}
