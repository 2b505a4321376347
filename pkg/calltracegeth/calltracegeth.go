// Package calltracegeth normalises a geth call-tracer result (the
// nested JSON `debug_traceTransaction` produces with tracer:
// "callTracer") directly into a calltree.Node, bypassing the
// struct-log state machine in package calltree entirely. Grounded on
// `original_source/evm_trace/geth.py`'s `_validate_data_from_call_tracer`
// key-rename and `fix_depth` top-down rewrite, reimplemented against
// Go's encoding/json.
package calltracegeth

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/ethgraph/calltrace/pkg/calltree"
	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

// rawCall mirrors the call-tracer wire shape before key renaming:
// receiver/to, input, output, gas, gasUsed, type, value, calls.
type rawCall struct {
	Type     string            `json:"type"`
	From     string            `json:"from"`
	To       string            `json:"to"`
	Receiver string            `json:"receiver"`
	Input    string            `json:"input"`
	Output   string            `json:"output"`
	Gas      string            `json:"gas"`
	GasUsed  string            `json:"gasUsed"`
	Value    string            `json:"value"`
	Error    string            `json:"error"`
	Calls    []json.RawMessage `json:"calls"`
}

// Parse decodes a single call-tracer JSON object (and its nested
// "calls" array, recursively) into a *calltree.Node tree, per spec
// §4.E. The root's Depth is 0; every descendant's depth is
// parent.depth+1, rewritten top-down after construction since the
// call-tracer payload itself carries no depth field.
func Parse(data []byte) (*calltree.Node, error) {
	node, err := parseCall(data)
	if err != nil {
		return nil, err
	}
	fixDepth(node, 0)
	return node, nil
}

func parseCall(data []byte) (*calltree.Node, error) {
	var raw rawCall
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, evmtypes.NewInvalidHex("calltracer", err)
	}

	callType := normalizeCallType(raw.Type)
	node := &calltree.Node{
		CallType:     callType,
		SelfDestruct: callType == evmtypes.CallTypeSelfDestruct,
		Failed:       raw.Error != "",
	}

	to := raw.To
	if to == "" {
		to = raw.Receiver
	}
	if to != "" {
		addrBytes, err := evmtypes.BytesFromHex(to)
		if err != nil {
			return nil, err
		}
		node.Address = evmtypes.AddressFromBytes(addrBytes)
	}

	if raw.Input != "" {
		calldata, err := evmtypes.BytesFromHex(raw.Input)
		if err != nil {
			return nil, err
		}
		node.Calldata = calldata
	}
	if raw.Output != "" {
		returndata, err := evmtypes.BytesFromHex(raw.Output)
		if err != nil {
			return nil, err
		}
		node.Returndata = returndata
	}
	if raw.Value != "" {
		v, err := evmtypes.BytesFromHex(raw.Value)
		if err != nil {
			return nil, err
		}
		node.Value = *new(uint256.Int).SetBytes(v)
	}
	if raw.Gas != "" {
		limit, err := decodeGasHex(raw.Gas)
		if err != nil {
			return nil, err
		}
		node.GasLimit = &limit
	}
	if raw.GasUsed != "" {
		cost, err := decodeGasHex(raw.GasUsed)
		if err != nil {
			return nil, err
		}
		node.GasCost = &cost
	}

	for _, childData := range raw.Calls {
		child, err := parseCall(childData)
		if err != nil {
			log.Warn("calltracegeth: skipping malformed child call", "err", err)
			continue
		}
		node.Calls = append(node.Calls, child)
	}

	return node, nil
}

func normalizeCallType(t string) evmtypes.CallType {
	upper := strings.ToUpper(t)
	if upper == "SUICIDE" {
		return evmtypes.CallTypeSelfDestruct
	}
	return evmtypes.CallType(upper)
}

func decodeGasHex(s string) (uint64, error) {
	b, err := evmtypes.BytesFromHex(s)
	if err != nil {
		return 0, err
	}
	return b.Uint().Uint64(), nil
}

// fixDepth rewrites node's depth and recurses into its children with
// depth+1, since the call-tracer JSON carries no depth field of its
// own (spec §4.E).
func fixDepth(node *calltree.Node, depth uint64) {
	node.Depth = depth
	for _, child := range node.Calls {
		fixDepth(child, depth+1)
	}
}
