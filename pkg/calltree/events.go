package calltree

import (
	"github.com/ethgraph/calltrace/pkg/evmtypes"
	"github.com/ethgraph/calltrace/pkg/tracelog"
)

// logTopicCount maps LOG0..LOG4 to their topic count.
var logTopicCount = map[string]int{
	"LOG0": 0,
	"LOG1": 1,
	"LOG2": 2,
	"LOG3": 3,
	"LOG4": 4,
}

// buildEvent implements the LOG0-LOG4 row: stack layout [memOff,
// memSize, topic0, topic1, ...]. ok is false when the frame's stack is
// shorter than the opcode requires (InvalidStackDepth); the caller
// skips the frame and continues.
func buildEvent(frame *tracelog.Frame) (*EventNode, bool) {
	n, known := logTopicCount[frame.Op]
	if !known {
		return nil, false
	}

	need := 2 + n
	if len(frame.Stack) < need {
		return nil, false
	}

	offset, _ := frame.StackTop(1)
	size, _ := frame.StackTop(2)

	topics := make([]evmtypes.Word, n)
	for i := 0; i < n; i++ {
		topics[i], _ = frame.StackTop(3 + i)
	}

	return &EventNode{
		CallType: evmtypes.CallTypeEvent,
		Depth:    frame.Depth,
		Topics:   topics,
		Data:     evmtypes.ExtractMemory(offset.Bytes(), size.Bytes(), frame.Memory),
	}, true
}
