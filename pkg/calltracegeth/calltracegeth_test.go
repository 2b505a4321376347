package calltracegeth

import (
	"testing"

	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

func TestParseRenamesKeysAndFixesDepth(t *testing.T) {
	raw := `{
		"type": "CALL",
		"from": "0x1111111111111111111111111111111111111111",
		"to": "0x2222222222222222222222222222222222222222",
		"input": "0xaabbccdd",
		"output": "0x01",
		"gas": "0x5208",
		"gasUsed": "0x64",
		"value": "0x0",
		"calls": [
			{
				"type": "STATICCALL",
				"from": "0x2222222222222222222222222222222222222222",
				"to": "0x3333333333333333333333333333333333333333",
				"gas": "0x100",
				"gasUsed": "0x10"
			}
		]
	}`

	node, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.CallType != evmtypes.CallTypeCall {
		t.Fatalf("CallType = %s, want CALL", node.CallType)
	}
	if node.Depth != 0 {
		t.Fatalf("root depth = %d, want 0", node.Depth)
	}
	if len(node.Calldata) != 4 {
		t.Fatalf("Calldata length = %d, want 4", len(node.Calldata))
	}
	if len(node.Calls) != 1 {
		t.Fatalf("expected 1 child call, got %d", len(node.Calls))
	}
	if node.Calls[0].Depth != 1 {
		t.Fatalf("child depth = %d, want 1 (fix_depth top-down rewrite)", node.Calls[0].Depth)
	}
}

func TestParseReceiverAliasForTo(t *testing.T) {
	raw := `{"type": "CALL", "receiver": "0x4444444444444444444444444444444444444444"}`
	node, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.Address.IsZero() {
		t.Fatalf("expected receiver to populate Address")
	}
}

func TestParseSuicideNormalizesToSelfDestruct(t *testing.T) {
	raw := `{"type": "suicide"}`
	node, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.CallType != evmtypes.CallTypeSelfDestruct {
		t.Fatalf("CallType = %s, want SELFDESTRUCT", node.CallType)
	}
	if !node.SelfDestruct {
		t.Fatalf("expected SelfDestruct flag to be set")
	}
}

func TestParseErrorMarksFailed(t *testing.T) {
	raw := `{"type": "CALL", "error": "execution reverted"}`
	node, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !node.Failed {
		t.Fatalf("expected a non-empty error field to mark the node Failed")
	}
}
