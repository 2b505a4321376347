package vmtrace

import (
	"testing"

	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

func TestDecodeVMTrace(t *testing.T) {
	raw := `{
		"code": "0x6001600101",
		"ops": [
			{"pc": 0, "cost": 3, "op": "PUSH1", "ex": {"used": 99997, "push": ["0x01"]}},
			{"pc": 2, "cost": 3, "op": "PUSH1", "ex": {"used": 99994, "push": ["0x01"]}},
			{"pc": 4, "cost": 3, "op": "ADD", "ex": {"used": 99991, "push": ["0x02"]}}
		]
	}`
	trace, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(trace.Ops) != 3 {
		t.Fatalf("expected 3 ops, got %d", len(trace.Ops))
	}
	if trace.Ops[1].Op != "PUSH1" {
		t.Fatalf("unexpected op: %s", trace.Ops[1].Op)
	}
}

func TestToTraceFramesReplaysStackEffects(t *testing.T) {
	trace := &VMTrace{
		Ops: []VMOperation{
			{PC: 0, Op: "PUSH1", Ex: &VMExecuted{Push: []evmtypes.Bytes{{0x01}}}},
			{PC: 2, Op: "PUSH1", Ex: &VMExecuted{Push: []evmtypes.Bytes{{0x02}}}},
			{PC: 4, Op: "ADD", Ex: &VMExecuted{Push: []evmtypes.Bytes{{0x03}}}},
		},
	}
	frames := ToTraceFrames(trace, 1)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	// ADD's frame is yielded before its pops are applied, per the
	// "return after memory expansion, before operation applied"
	// convention, so it should still see both pushed operands.
	if len(frames[2].Stack) != 2 {
		t.Fatalf("ADD frame should see 2 operands on stack, got %d", len(frames[2].Stack))
	}
}

func TestToTraceFramesRecordsSubCallDepth(t *testing.T) {
	calleeWord := evmtypes.WordFromBytes([]byte{0x42})
	trace := &VMTrace{
		Ops: []VMOperation{
			// seed two stack items so index -2 (callee address) resolves.
			{PC: 0, Op: "PUSH1", Ex: &VMExecuted{Push: []evmtypes.Bytes{calleeWord.Bytes()}}},
			{PC: 2, Op: "PUSH1", Ex: &VMExecuted{Push: []evmtypes.Bytes{{0x00}}}},
			{
				PC: 4, Op: "CALL",
				Sub: &VMTrace{Ops: []VMOperation{
					{PC: 0, Op: "STOP"},
				}},
			},
		},
	}
	frames := ToTraceFrames(trace, 1)
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames (3 outer + 1 nested STOP), got %d", len(frames))
	}
	if frames[3].Depth != 2 {
		t.Fatalf("nested frame depth = %d, want 2", frames[3].Depth)
	}
}
