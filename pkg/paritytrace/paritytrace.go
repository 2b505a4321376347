// Package paritytrace assembles a calltree.Node from a flat list of
// Parity/OpenEthereum trace_transaction records, each carrying an
// explicit trace_address path instead of a nested shape. TAction and
// TResult model the same action/result JSON payload as the original
// `trace_transaction` RPC response; the tree-assembly algorithm
// (attach each record to the parent whose trace_address is its
// length-1 prefix) mirrors `get_calltree_from_parity_trace`.
package paritytrace

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ethgraph/calltrace/pkg/calltree"
	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

// TAction is the Parity action payload, shared across CALL/CREATE/
// SELFDESTRUCT records. Field presence differs by TraceType.
type TAction struct {
	CallType      *string         `json:"callType,omitempty"`
	From          *common.Address `json:"from,omitempty"`
	To            *common.Address `json:"to,omitempty"`
	Value         hexutil.Big     `json:"value"`
	Gas           hexutil.Uint64  `json:"gas"`
	Init          hexutil.Bytes   `json:"init,omitempty"`
	Input         hexutil.Bytes   `json:"input,omitempty"`
	Address       *common.Address `json:"address,omitempty"`
	RefundAddress *common.Address `json:"refundAddress,omitempty"`
}

// TResult is the Parity result payload, present unless the call
// errored.
type TResult struct {
	GasUsed hexutil.Uint64  `json:"gasUsed"`
	Output  *hexutil.Bytes  `json:"output,omitempty"`
	Address *common.Address `json:"address,omitempty"`
}

// Record is one flat Parity trace_transaction entry, per spec §6's
// "Input shape — Parity trace entry".
type Record struct {
	Type         string   `json:"type"`
	Action       TAction  `json:"action"`
	Result       *TResult `json:"result"`
	Error        *string  `json:"error"`
	TraceAddress []int    `json:"traceAddress"`
}

// Build assembles records into a tree rooted at the record whose
// TraceAddress is empty, per spec §4.F. Records are otherwise
// order-independent: a child may appear before or after its parent in
// the input slice.
func Build(records []Record) (*calltree.Node, error) {
	nodes := make([]*calltree.Node, len(records))
	byPrefix := make(map[string]int, len(records))

	for i, rec := range records {
		nodes[i] = toNode(rec)
		byPrefix[addrKey(rec.TraceAddress)] = i
	}

	var root *calltree.Node
	for i, rec := range records {
		if len(rec.TraceAddress) == 0 {
			root = nodes[i]
			continue
		}
		parentKey := addrKey(rec.TraceAddress[:len(rec.TraceAddress)-1])
		parentIdx, ok := byPrefix[parentKey]
		if !ok {
			return nil, evmtypes.NewMissingField("traceAddress: no parent record for prefix")
		}
		nodes[parentIdx].Calls = append(nodes[parentIdx].Calls, nodes[i])
	}

	if root == nil {
		return nil, evmtypes.NewMissingField("traceAddress: no root record (empty traceAddress)")
	}
	return root, nil
}

func addrKey(path []int) string {
	var sb strings.Builder
	for _, p := range path {
		sb.WriteString(strconv.Itoa(p))
		sb.WriteByte('/')
	}
	return sb.String()
}

func toNode(rec Record) *calltree.Node {
	callType := normalizeType(rec.Type, rec.Action.CallType)
	node := &calltree.Node{
		CallType:     callType,
		Depth:        uint64(len(rec.TraceAddress)),
		Failed:       rec.Error != nil,
		SelfDestruct: callType == evmtypes.CallTypeSelfDestruct,
	}

	switch callType {
	case evmtypes.CallTypeCreate, evmtypes.CallTypeCreate2:
		if rec.Action.Value.ToInt() != nil {
			node.Value.SetBytes(rec.Action.Value.ToInt().Bytes())
		}
		gas := uint64(rec.Action.Gas)
		node.GasLimit = &gas
		if rec.Result != nil && rec.Result.Address != nil {
			node.Address = evmtypes.AddressFromBytes(rec.Result.Address[:])
		}

	case evmtypes.CallTypeSelfDestruct:
		if rec.Action.RefundAddress != nil {
			node.Address = evmtypes.AddressFromBytes(rec.Action.RefundAddress[:])
		}

	default: // CALL, CALLCODE, DELEGATECALL, STATICCALL
		if rec.Action.To != nil {
			node.Address = evmtypes.AddressFromBytes(rec.Action.To[:])
		}
		if rec.Action.Value.ToInt() != nil {
			node.Value.SetBytes(rec.Action.Value.ToInt().Bytes())
		}
		gas := uint64(rec.Action.Gas)
		node.GasLimit = &gas
		node.Calldata = evmtypes.Bytes(rec.Action.Input)
		if rec.Error == nil && rec.Result != nil {
			cost := uint64(rec.Result.GasUsed)
			node.GasCost = &cost
			if rec.Result.Output != nil {
				node.Returndata = evmtypes.Bytes(*rec.Result.Output)
			}
		}
	}

	return node
}

// normalizeType resolves the record's CallType tag: SELFDESTRUCT
// records carry their sub-type in the top-level "type" field
// ("suicide" in Parity's own vocabulary); CALL-family records instead
// carry it in action.callType; CREATE records use the top-level type
// directly.
func normalizeType(recordType string, actionCallType *string) evmtypes.CallType {
	switch strings.ToLower(recordType) {
	case "suicide", "selfdestruct":
		return evmtypes.CallTypeSelfDestruct
	case "create":
		return evmtypes.CallTypeCreate
	case "call":
		if actionCallType != nil {
			return evmtypes.CallType(strings.ToUpper(*actionCallType))
		}
		return evmtypes.CallTypeCall
	default:
		return evmtypes.CallType(strings.ToUpper(recordType))
	}
}
