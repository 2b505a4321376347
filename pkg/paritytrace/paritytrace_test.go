package paritytrace

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

func addr(b byte) *common.Address {
	a := common.Address{b}
	return &a
}

func TestBuildAssemblesNestedCalls(t *testing.T) {
	callStr := "call"
	records := []Record{
		{
			Type:         "call",
			TraceAddress: []int{},
			Action:       TAction{CallType: &callStr, To: addr(0x11), Gas: 50000},
			Result:       &TResult{GasUsed: 100},
		},
		{
			Type:         "call",
			TraceAddress: []int{0},
			Action:       TAction{CallType: &callStr, To: addr(0x22), Gas: 1000},
			Result:       &TResult{GasUsed: 50},
		},
	}

	root, err := Build(records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(root.Calls) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Calls))
	}
	if root.Calls[0].Address != evmtypes.AddressFromBytes(addr(0x22)[:]) {
		t.Fatalf("child address mismatch")
	}
}

func TestBuildCreateUsesResultAddress(t *testing.T) {
	resultAddr := addr(0x99)
	records := []Record{
		{
			Type:         "create",
			TraceAddress: []int{},
			Action:       TAction{Value: hexutil.Big(*big.NewInt(7)), Gas: 100000},
			Result:       &TResult{Address: resultAddr},
		},
	}
	root, err := Build(records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root.CallType != evmtypes.CallTypeCreate {
		t.Fatalf("CallType = %s, want CREATE", root.CallType)
	}
	if root.Address != evmtypes.AddressFromBytes(resultAddr[:]) {
		t.Fatalf("deployed address mismatch")
	}
}

func TestBuildSelfDestructUsesRefundAddress(t *testing.T) {
	refund := addr(0xaa)
	records := []Record{
		{
			Type:         "suicide",
			TraceAddress: []int{},
			Action:       TAction{RefundAddress: refund},
		},
	}
	root, err := Build(records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !root.SelfDestruct {
		t.Fatalf("expected SelfDestruct flag")
	}
	if root.Address != evmtypes.AddressFromBytes(refund[:]) {
		t.Fatalf("refund address mismatch")
	}
}

func TestBuildErrorMarksFailed(t *testing.T) {
	errStr := "Reverted"
	records := []Record{
		{Type: "call", TraceAddress: []int{}, Error: &errStr},
	}
	root, err := Build(records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !root.Failed {
		t.Fatalf("expected Failed=true when error is non-nil")
	}
}

func TestBuildMissingRootErrors(t *testing.T) {
	records := []Record{
		{Type: "call", TraceAddress: []int{0}},
	}
	if _, err := Build(records); err == nil {
		t.Fatalf("expected an error when no record has an empty traceAddress")
	}
}
