// Package vmtrace replays a Parity/OpenEthereum trace_replayTransaction
// VMTrace — a nested, call-address-free record of every pushed stack
// item and memory/storage delta — into the same tracelog.Frame stream
// package calltree already consumes, so it is a drop-in,
// higher-throughput alternative to decoding a full Geth struct-log.
//
// Grounded on `original_source/evm_trace/vmtrace.py`: the POPCODES
// pop-count table and the `to_trace_frames` replay loop, reimplemented
// against typed Go structs instead of a dynamically decoded msgspec
// Struct tree.
package vmtrace

import (
	"encoding/json"

	"github.com/ethgraph/calltrace/pkg/evmtypes"
	"github.com/ethgraph/calltrace/pkg/tracelog"
)

// VMTrace is one level of a trace_replayTransaction vmTrace payload.
type VMTrace struct {
	Code evmtypes.Bytes `json:"code"`
	Ops  []VMOperation  `json:"ops"`
}

// VMOperation is a single step of a VMTrace.
type VMOperation struct {
	PC   uint64      `json:"pc"`
	Cost uint64      `json:"cost"`
	Ex   *VMExecuted `json:"ex"`
	Sub  *VMTrace    `json:"sub"`
	Op   string      `json:"op"`
}

// VMExecuted carries the effects of one executed operation: what it
// pushed, and the memory/storage delta it made, if any.
type VMExecuted struct {
	Used  uint64           `json:"used"`
	Push  []evmtypes.Bytes `json:"push"`
	Mem   *MemoryDiff      `json:"mem"`
	Store *StorageDiff     `json:"store"`
}

// MemoryDiff is the changed region of memory an operation wrote.
type MemoryDiff struct {
	Off  uint64         `json:"off"`
	Data evmtypes.Bytes `json:"data"`
}

// StorageDiff is a single storage slot write.
type StorageDiff struct {
	Key evmtypes.Word `json:"key"`
	Val evmtypes.Word `json:"val"`
}

// popCounts maps an opcode mnemonic to how many items it pops off the
// stack, mirroring vmtrace.py's POPCODES table.
var popCounts = buildPopCounts()

func buildPopCounts() map[string]int {
	groups := map[int][]string{
		1: {"EXTCODEHASH", "ISZERO", "NOT", "BALANCE", "CALLDATALOAD", "EXTCODESIZE", "BLOCKHASH", "POP", "MLOAD", "SLOAD", "JUMP", "SELFDESTRUCT"},
		2: {"SHL", "SHR", "SAR", "REVERT", "ADD", "MUL", "SUB", "DIV", "SDIV", "MOD", "SMOD", "EXP", "SIGNEXTEND", "LT", "GT", "SLT", "SGT", "EQ", "AND", "XOR", "OR", "BYTE", "SHA3", "KECCAK256", "MSTORE", "MSTORE8", "SSTORE", "JUMPI", "RETURN"},
		3: {"RETURNDATACOPY", "ADDMOD", "MULMOD", "CALLDATACOPY", "CODECOPY", "CREATE"},
		4: {"CREATE2", "EXTCODECOPY"},
		6: {"STATICCALL", "DELEGATECALL"},
		7: {"CALL", "CALLCODE"},
	}
	m := make(map[string]int)
	for n, ops := range groups {
		for _, op := range ops {
			m[op] = n
		}
	}
	for n := 0; n <= 4; n++ {
		m[logOp(n)] = n + 2
	}
	for i := 1; i <= 16; i++ {
		m[swapOp(i)] = i + 1
		m[dupOp(i)] = i
	}
	return m
}

func logOp(n int) string  { return "LOG" + itoa(n) }
func swapOp(i int) string { return "SWAP" + itoa(i) }
func dupOp(i int) string  { return "DUP" + itoa(i) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// Decode parses a raw trace_replayTransaction "vmTrace" JSON value.
func Decode(data []byte) (*VMTrace, error) {
	var trace VMTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, evmtypes.NewInvalidHex("vmTrace", err)
	}
	return &trace, nil
}

// ToTraceFrames replays trace into a flat []tracelog.Frame, depth
// first exactly as the original yields them, ready to feed directly
// into calltree.Build. depth should be 1 for a top-level call.
func ToTraceFrames(trace *VMTrace, depth uint64) []tracelog.Frame {
	return replay(trace, depth, evmtypes.Address{})
}

// replay yields the frames of one trace level; address is the contract
// the calling level's CALL targeted (zero at the top level) and is set
// as ContractAddress on every frame of this level.
func replay(trace *VMTrace, depth uint64, address evmtypes.Address) []tracelog.Frame {
	var frames []tracelog.Frame
	var stack []evmtypes.Word
	var memory []byte
	storage := make(map[evmtypes.Word]evmtypes.Word)
	var callAddress evmtypes.Address

	for _, op := range trace.Ops {
		if op.Ex != nil && op.Ex.Mem != nil {
			memory = extendMemory(memory, op.Ex.Mem.Off, len(op.Ex.Mem.Data))
		}

		frame := tracelog.Frame{
			PC:      op.PC,
			Op:      op.Op,
			GasCost: op.Cost,
			Depth:   depth,
			Stack:   append([]evmtypes.Word{}, stack...),
			Memory:  bytesToWords(memory),
			Storage: copyStorage(storage),
		}
		if !address.IsZero() {
			addr := address
			frame.ContractAddress = &addr
		}
		frames = append(frames, frame)

		if (op.Op == "CALL" || op.Op == "DELEGATECALL" || op.Op == "STATICCALL") && len(stack) >= 2 {
			callAddress = stack[len(stack)-2].Address()
		}

		if op.Ex != nil {
			if op.Ex.Mem != nil {
				copy(memory[op.Ex.Mem.Off:], op.Ex.Mem.Data)
			}
			if n, ok := popCounts[op.Op]; ok {
				if n > len(stack) {
					n = len(stack)
				}
				stack = stack[:len(stack)-n]
			}
			for _, item := range op.Ex.Push {
				stack = append(stack, evmtypes.WordFromBytes(item))
			}
			if op.Op == "PUSH0" && len(op.Ex.Push) == 0 {
				stack = append(stack, evmtypes.Word{})
			}
			if op.Ex.Store != nil {
				storage[op.Ex.Store.Key] = op.Ex.Store.Val
			}
		}

		if op.Sub != nil {
			frames = append(frames, replay(op.Sub, depth+1, callAddress)...)
		}
	}
	return frames
}

// extendMemory grows mem to cover [off, off+size), word-aligned, the
// way EVM memory expansion always rounds up to a multiple of 32.
func extendMemory(mem []byte, off uint64, size int) []byte {
	need := off + uint64(size)
	wordAligned := ((need + 31) / 32) * 32
	if uint64(len(mem)) >= wordAligned {
		return mem
	}
	grown := make([]byte, wordAligned)
	copy(grown, mem)
	return grown
}

func bytesToWords(mem []byte) []evmtypes.Word {
	if len(mem) == 0 {
		return nil
	}
	words := make([]evmtypes.Word, 0, (len(mem)+31)/32)
	for i := 0; i < len(mem); i += 32 {
		end := i + 32
		if end > len(mem) {
			end = len(mem)
		}
		words = append(words, evmtypes.WordFromBytes(mem[i:end]))
	}
	return words
}

func copyStorage(storage map[evmtypes.Word]evmtypes.Word) map[evmtypes.Word]evmtypes.Word {
	if len(storage) == 0 {
		return nil
	}
	out := make(map[evmtypes.Word]evmtypes.Word, len(storage))
	for k, v := range storage {
		out[k] = v
	}
	return out
}
