package tracelog

import "github.com/ethgraph/calltrace/pkg/evmtypes"

// pendingCreate tracks an unresolved CREATE/CREATE2 frame awaiting its
// look-ahead resolution frame.
type pendingCreate struct {
	index int
	depth uint64
}

// Preprocess resolves the deployed address of every CREATE/CREATE2
// frame in place by looking ahead to the first subsequent frame whose
// depth is less than or equal to the CREATE frame's own depth, and
// returns the (mutated) slice for convenience.
//
// Nested CREATEs encountered while looking for an outer CREATE's
// resolution are resolved first, innermost-out, using the same rule —
// the pending list below is a stack for exactly that reason. If no
// resolving frame exists before EOF, the frame's ContractAddress is
// left nil and downstream tree construction keeps the zero-address
// placeholder.
//
// This is a standalone enrichment pass; the call-tree builder
// (package calltree) does not depend on having run it first — it
// performs its own equivalent look-ahead inline, tied to its pending
// child nodes rather than to raw frames, because it additionally needs
// the resolving frame's memory window to recover the CREATE's init
// code. Preprocess exists for callers that want typed, address
// resolved frames without building a tree at all.
func Preprocess(frames []Frame) []Frame {
	var pending []pendingCreate

	for i := range frames {
		frame := &frames[i]

		for len(pending) > 0 && frame.Depth <= pending[len(pending)-1].depth {
			top := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			if addr, ok := frame.StackTop(1); ok {
				resolved := evmtypes.AddressFromWord(addr)
				frames[top.index].ContractAddress = &resolved
			}
		}

		if frame.Op == "CREATE" || frame.Op == "CREATE2" {
			pending = append(pending, pendingCreate{index: i, depth: frame.Depth})
		}
	}

	return frames
}
