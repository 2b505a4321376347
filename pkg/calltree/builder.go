package calltree

import (
	"github.com/ethgraph/calltrace/pkg/evmtypes"
	"github.com/ethgraph/calltrace/pkg/tracelog"
)

// Option configures Build. The only option this core recognizes is
// WithInternalCalls, which has a fixed, documented answer: requesting
// it is a hard error.
type Option func(*buildOptions)

type buildOptions struct {
	showInternal bool
}

// WithInternalCalls requests JUMP/JUMPI-based intra-contract call
// reconstruction. This core does not implement it and Build returns
// an UnsupportedFeature error immediately, with no partial tree, when
// it is set.
func WithInternalCalls() Option {
	return func(o *buildOptions) { o.showInternal = true }
}

// Build consumes trace, a stream of already-typed struct-log frames,
// and reconstructs one CallTreeNode rooted at the kwargs described by
// root. It is the entry point for the hard core of this module.
//
// trace is consumed exactly once and must not be shared across
// goroutines while Build runs. Passing an Iterator backed by a
// pre-materialised []tracelog.Frame (via tracelog.NewSliceIterator)
// behaves identically to a streaming source — Build never holds more
// than the current call-stack's worth of frames in flight, so there is
// no unbounded recursion hazard in either case.
func Build(trace tracelog.Iterator, root NodeParams, opts ...Option) (*Node, error) {
	var cfg buildOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.showInternal {
		return nil, evmtypes.NewUnsupportedFeature("show_internal")
	}
	return buildNode(trace, root), nil
}

// pendingCreate tracks a CREATE/CREATE2 child node whose address and
// calldata are still deferred, per the look-ahead resolution rule
// below. It is a stack so nested CREATEs resolve innermost-first.
type pendingCreate struct {
	depth uint64
	node  *Node
}

// buildNode is the recursive state machine at the heart of this
// module. It consumes frames from trace until it observes this node's
// terminator (or trace is exhausted), dispatching call/create opcodes
// to a recursive invocation of itself that consumes the same shared
// iterator.
func buildNode(trace tracelog.Iterator, params NodeParams) *Node {
	node := &Node{
		CallType: params.CallType,
		Address:  params.Address,
		Value:    params.Value,
		Depth:    params.Depth,
		GasLimit: params.GasLimit,
		GasCost:  params.GasCost,
		Calldata: params.Calldata,
	}

	var pending []pendingCreate

	for {
		frame, ok := trace.Next()
		if !ok {
			// Truncated trace: implicit EOF. Return the best-effort
			// node as-is; any still-pending CREATE children keep
			// their zero-address placeholder.
			return node
		}

		resolvePendingCreates(&pending, &frame)

		switch frame.Op {
		case "CALL", "CALLCODE":
			if child, ok := dispatchCall(&frame, callTypeFor(frame.Op)); ok {
				node.Calls = append(node.Calls, buildNode(trace, child))
			}

		case "DELEGATECALL", "STATICCALL":
			if child, ok := dispatchDelegateOrStatic(&frame, callTypeFor(frame.Op)); ok {
				node.Calls = append(node.Calls, buildNode(trace, child))
			}

		case "CREATE", "CREATE2":
			if child, ok := dispatchCreate(&frame, callTypeFor(frame.Op)); ok {
				childNode := buildNode(trace, child)
				node.Calls = append(node.Calls, childNode)
				pending = append(pending, pendingCreate{depth: frame.Depth, node: childNode})
			}

		case "SELFDESTRUCT":
			node.SelfDestruct = true
			return node

		case "STOP":
			return node

		case "RETURN", "REVERT":
			setReturndata(node, &frame)
			return node

		case "LOG0", "LOG1", "LOG2", "LOG3", "LOG4":
			if event, ok := buildEvent(&frame); ok {
				node.Events = append(node.Events, event)
			}

			// All other opcodes are ignored.
		}
	}
}

func callTypeFor(op string) evmtypes.CallType {
	switch op {
	case "CALL":
		return evmtypes.CallTypeCall
	case "CALLCODE":
		return evmtypes.CallTypeCallCode
	case "DELEGATECALL":
		return evmtypes.CallTypeDelegateCall
	case "STATICCALL":
		return evmtypes.CallTypeStaticCall
	case "CREATE":
		return evmtypes.CallTypeCreate
	case "CREATE2":
		return evmtypes.CallTypeCreate2
	default:
		return ""
	}
}

// resolvePendingCreates applies the deferred CREATE/CREATE2
// resolution: on the next frame whose depth equals the CREATE frame's
// own depth, the most recently pending child gets its address from
// the resolving frame's top-of-stack and its calldata from the
// resolving frame's memory window, when the stack is deep enough to
// carry one.
func resolvePendingCreates(pending *[]pendingCreate, frame *tracelog.Frame) {
	p := *pending
	for len(p) > 0 && frame.Depth == p[len(p)-1].depth {
		top := p[len(p)-1]
		p = p[:len(p)-1]

		if addr, ok := frame.StackTop(1); ok {
			top.node.Address = evmtypes.AddressFromWord(addr)
		}
		if len(frame.Stack) >= 5 {
			offset, _ := frame.StackTop(4)
			size, _ := frame.StackTop(5)
			top.node.Calldata = evmtypes.ExtractMemory(offset.Bytes(), size.Bytes(), frame.Memory)
		}
	}
	*pending = p
}

// dispatchCall implements the CALL/CALLCODE row of the dispatch
// table: stack [gas, to, value, argsOff, argsSize, retOff, retSize],
// top-first.
func dispatchCall(frame *tracelog.Frame, callType evmtypes.CallType) (NodeParams, bool) {
	if len(frame.Stack) < 7 {
		return NodeParams{}, false
	}
	gasW, _ := frame.StackTop(1)
	toW, _ := frame.StackTop(2)
	valueW, _ := frame.StackTop(3)
	argsOff, _ := frame.StackTop(4)
	argsSize, _ := frame.StackTop(5)

	gas := gasW.Big().Uint64()
	params := NodeParams{
		CallType: callType,
		Address:  evmtypes.AddressFromWord(toW),
		Depth:    frame.Depth,
		GasLimit: &gas,
		Calldata: evmtypes.ExtractMemory(argsOff.Bytes(), argsSize.Bytes(), frame.Memory),
	}
	params.Value.SetBytes(valueW[:])
	return params, true
}

// dispatchDelegateOrStatic implements the DELEGATECALL/STATICCALL row:
// stack [gas, to, argsOff, argsSize, retOff, retSize], no value.
func dispatchDelegateOrStatic(frame *tracelog.Frame, callType evmtypes.CallType) (NodeParams, bool) {
	if len(frame.Stack) < 6 {
		return NodeParams{}, false
	}
	gasW, _ := frame.StackTop(1)
	toW, _ := frame.StackTop(2)
	argsOff, _ := frame.StackTop(3)
	argsSize, _ := frame.StackTop(4)

	gas := gasW.Big().Uint64()
	return NodeParams{
		CallType: callType,
		Address:  evmtypes.AddressFromWord(toW),
		Depth:    frame.Depth,
		GasLimit: &gas,
		Calldata: evmtypes.ExtractMemory(argsOff.Bytes(), argsSize.Bytes(), frame.Memory),
	}, true
}

// dispatchCreate implements the CREATE/CREATE2 row: stack [value,
// memOff, memSize] (CREATE2 additionally carries a trailing salt).
// Address and calldata are deferred; see resolvePendingCreates.
func dispatchCreate(frame *tracelog.Frame, callType evmtypes.CallType) (NodeParams, bool) {
	minDepth := 3
	if callType == evmtypes.CallTypeCreate2 {
		minDepth = 4
	}
	if len(frame.Stack) < minDepth {
		return NodeParams{}, false
	}
	valueW, _ := frame.StackTop(1)

	params := NodeParams{
		CallType: callType,
		Address:  evmtypes.ZeroAddress,
		Depth:    frame.Depth,
	}
	params.Value.SetBytes(valueW[:])
	return params, true
}

// setReturndata implements the RETURN/REVERT row, including the
// tie-break that only the first terminator of either kind sets
// Returndata/Failed.
func setReturndata(node *Node, frame *tracelog.Frame) {
	if node.returndataSet {
		return
	}
	offset, ok1 := frame.StackTop(1)
	size, ok2 := frame.StackTop(2)
	if ok1 && ok2 {
		node.Returndata = evmtypes.ExtractMemory(offset.Bytes(), size.Bytes(), frame.Memory)
	} else {
		node.Returndata = evmtypes.Bytes{}
	}
	node.Failed = frame.Op == "REVERT"
	node.returndataSet = true
}
