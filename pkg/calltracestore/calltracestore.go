// Package calltracestore persists an already-reconstructed
// calltree.Node keyed by transaction hash, so a caller that built a
// tree once does not need to re-walk its struct-log source to inspect
// it again. It is optional ambient infrastructure: the hard core in
// package calltree has no dependency on it.
//
// Uses the same "flatten pointers and maps into an RLP-friendly wire
// shape, then convert back" pattern as other RLP-encoded trace
// envelopes in this ecosystem, applied here to a recursive call tree
// rather than a flat action list.
package calltracestore

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/ethgraph/calltrace/pkg/calltree"
	"github.com/ethgraph/calltrace/pkg/evmtypes"
)

// Store is the key-value backend calltracestore persists through.
// Implementations typically wrap a KV database keyed by transaction
// hash.
type Store interface {
	ReadCallTrace(ctx context.Context, txHash common.Hash) ([]byte, error)
	WriteCallTrace(ctx context.Context, txHash common.Hash, data []byte) error
}

// wireEvent is the RLP-friendly shape of a calltree.EventNode: fixed
// [32]byte topics round-trip through RLP natively as byte arrays.
type wireEvent struct {
	Depth  uint64
	Topics []common.Hash
	Data   []byte
}

// wireNode is the RLP-friendly shape of a calltree.Node. GasLimit and
// GasCost are carried as a value plus a present flag rather than as
// pointers, since RLP has no native nil-pointer encoding outside of
// trailing optional struct fields.
type wireNode struct {
	CallType     string
	Address      common.Address
	Value        *big.Int
	Depth        uint64
	GasLimit     uint64
	HasGasLimit  bool
	GasCost      uint64
	HasGasCost   bool
	Calldata     []byte
	Returndata   []byte
	Calls        []wireNode
	Events       []wireEvent
	SelfDestruct bool
	Failed       bool
}

func toWireNode(n *calltree.Node) wireNode {
	w := wireNode{
		CallType:     string(n.CallType),
		Address:      common.Address(n.Address),
		Value:        n.Value.ToBig(),
		Depth:        n.Depth,
		Calldata:     []byte(n.Calldata),
		Returndata:   []byte(n.Returndata),
		SelfDestruct: n.SelfDestruct,
		Failed:       n.Failed,
	}
	if n.GasLimit != nil {
		w.GasLimit, w.HasGasLimit = *n.GasLimit, true
	}
	if n.GasCost != nil {
		w.GasCost, w.HasGasCost = *n.GasCost, true
	}
	for _, child := range n.Calls {
		w.Calls = append(w.Calls, toWireNode(child))
	}
	for _, ev := range n.Events {
		w.Events = append(w.Events, toWireEvent(ev))
	}
	return w
}

func toWireEvent(ev *calltree.EventNode) wireEvent {
	w := wireEvent{Depth: ev.Depth, Data: []byte(ev.Data)}
	for _, topic := range ev.Topics {
		w.Topics = append(w.Topics, common.Hash(topic))
	}
	return w
}

func fromWireNode(w wireNode) *calltree.Node {
	n := &calltree.Node{
		CallType:     evmtypes.CallType(w.CallType),
		Address:      evmtypes.Address(w.Address),
		Depth:        w.Depth,
		Calldata:     evmtypes.Bytes(w.Calldata),
		Returndata:   evmtypes.Bytes(w.Returndata),
		SelfDestruct: w.SelfDestruct,
		Failed:       w.Failed,
	}
	if w.Value != nil {
		n.Value = *new(uint256.Int).SetBytes(w.Value.Bytes())
	}
	if w.HasGasLimit {
		gasLimit := w.GasLimit
		n.GasLimit = &gasLimit
	}
	if w.HasGasCost {
		gasCost := w.GasCost
		n.GasCost = &gasCost
	}
	for _, childWire := range w.Calls {
		n.Calls = append(n.Calls, fromWireNode(childWire))
	}
	for _, evWire := range w.Events {
		n.Events = append(n.Events, fromWireEvent(evWire))
	}
	return n
}

func fromWireEvent(w wireEvent) *calltree.EventNode {
	ev := &calltree.EventNode{
		CallType: evmtypes.CallTypeEvent,
		Depth:    w.Depth,
		Data:     evmtypes.Bytes(w.Data),
	}
	for _, topic := range w.Topics {
		ev.Topics = append(ev.Topics, evmtypes.Word(topic))
	}
	return ev
}

// Encode RLP-encodes a built call tree for persistence.
func Encode(root *calltree.Node) ([]byte, error) {
	return rlp.EncodeToBytes(toWireNode(root))
}

// Decode reverses Encode.
func Decode(data []byte) (*calltree.Node, error) {
	var w wireNode
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode rlp call tree: %w", err)
	}
	return fromWireNode(w), nil
}

// Persist encodes root and writes it to store under txHash, logging
// (not returning) a failure. A storage write never fails the caller's
// larger request.
func Persist(ctx context.Context, store Store, txHash common.Hash, root *calltree.Node) {
	data, err := Encode(root)
	if err != nil {
		log.Error("Failed to encode call tree for storage", "txHash", txHash, "err", err)
		return
	}
	if err := store.WriteCallTrace(ctx, txHash, data); err != nil {
		log.Error("Failed to persist call tree to store", "txHash", txHash, "err", err)
		return
	}
	log.Debug("Persisted call tree", "txHash", txHash, "bytes", len(data))
}

// Load reads and decodes a previously persisted call tree.
func Load(ctx context.Context, store Store, txHash common.Hash) (*calltree.Node, error) {
	data, err := store.ReadCallTrace(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("call trace for tx %s not found in store", txHash)
	}
	return Decode(data)
}
