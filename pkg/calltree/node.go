// Package calltree implements the hard core of this module: a
// single-pass recursive consumer of a Geth struct-log frame stream
// that reconstructs a typed call tree.
package calltree

import (
	"github.com/holiman/uint256"

	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

// Node is the immutable result of reconstructing one call/create frame
// (or the root transaction) from a struct-log stream.
// It is created on entry to the builder and is only safe to read from
// multiple goroutines once Build has returned.
type Node struct {
	CallType     evmtypes.CallType
	Address      evmtypes.Address
	Value        uint256.Int
	Depth        uint64
	GasLimit     *uint64
	GasCost      *uint64
	Calldata     evmtypes.Bytes
	Returndata   evmtypes.Bytes
	Calls        []*Node
	Events       []*EventNode
	SelfDestruct bool
	Failed       bool

	// returndataSet tracks whether a terminator has already assigned
	// Returndata/Failed, so a stray second RETURN/REVERT on an
	// anomalous trace is ignored. It is not part of the public data
	// model.
	returndataSet bool
}

// EventNode is an emitted LOG0-LOG4 record attached to the node that
// was open when it fired.
type EventNode struct {
	CallType evmtypes.CallType // always evmtypes.CallTypeEvent
	Depth    uint64
	Topics   []evmtypes.Word // length 0-4 (LOG0-LOG4); Topics[0], when present, is the selector
	Data     evmtypes.Bytes
}

// Selector returns the event's first topic, or the zero word if
// Topics is empty (as it is for a LOG0 event).
func (e *EventNode) Selector() evmtypes.Word {
	if len(e.Topics) == 0 {
		return evmtypes.Word{}
	}
	return e.Topics[0]
}

// NodeParams is the partial root-node description a caller (or a
// recursive call into the builder) supplies: call-type, address,
// calldata, value, and so on, per the builder contract.
type NodeParams struct {
	CallType evmtypes.CallType
	Address  evmtypes.Address
	Value    uint256.Int
	Depth    uint64
	GasLimit *uint64
	GasCost  *uint64
	Calldata evmtypes.Bytes
}
