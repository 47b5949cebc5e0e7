package vm

import (
	"github.com/chainforge/ledger/foundation/blockchain/database"
)

// BalanceLedger is the read access to account balances TRANSFER and
// BALANCE need. The VM never mutates it directly: balance changes made
// during execution are staged as deltas and left for the caller to apply
// only once execution has succeeded.
type BalanceLedger interface {
	GetBalance(id database.AccountID) uint64
}

// CallFunc dispatches a CALL opcode to another contract. A Context
// without one rejects CALL; wiring this up is left to the caller that
// knows how to look up and re-enter a contract's bytecode.
type CallFunc func(address database.AccountID, args []Value) (Value, error)

// Context is everything about the surrounding chain state an execution
// needs and cannot derive from its own bytecode: the caller, contract
// identity, block metadata, a view of account balances, and the
// contract's persistent storage as of just before this call.
type Context struct {
	Caller          database.AccountID
	ContractAddress database.AccountID
	Timestamp       string
	BlockNumber     uint64
	Gas             uint64
	Ledger          BalanceLedger
	Storage         map[string]Value
	Call            CallFunc
}

// Result is everything an execution produced. Storage and BalanceDeltas
// are only meaningful, and only to be committed by the caller, when
// Success is true: a failed or reverted execution leaves no trace beyond
// GasUsed.
type Result struct {
	Success       bool
	ReturnValue   Value
	GasUsed       uint64
	GasRemaining  uint64
	Storage       map[string]Value
	BalanceDeltas map[database.AccountID]int64
	ErrorMessage  string
}

// execution is the mutable state of a single Execute call.
type execution struct {
	ctx     Context
	stack   []Value
	storage map[string]Value
	scratch map[string]Value
	deltas  map[database.AccountID]int64
	gas     uint64
	used    uint64
}

// Execute runs code against ctx and returns the outcome. It never panics:
// every failure mode (stack over/underflow, out of gas, division by zero,
// a failed ASSERT, an explicit REVERT, an unknown opcode) is reported
// through Result.
func Execute(code []Instruction, ctx Context) Result {
	gas := ctx.Gas
	if gas == 0 {
		gas = DefaultGas
	}

	e := &execution{
		ctx:     ctx,
		storage: cloneStorage(ctx.Storage),
		scratch: make(map[string]Value),
		deltas:  make(map[database.AccountID]int64),
		gas:     gas,
	}

	return e.run(code)
}

func cloneStorage(src map[string]Value) map[string]Value {
	dst := make(map[string]Value, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (e *execution) run(code []Instruction) Result {
	for pc := 0; pc < len(code); pc++ {
		instr := code[pc]

		if err := e.charge(instr.Op); err != nil {
			return e.fail(err)
		}

		switch instr.Op {
		case OpStop:
			return e.succeed(e.topOrZero())

		case OpPush:
			if err := e.push(instr.Arg); err != nil {
				return e.fail(err)
			}

		case OpPop:
			if _, err := e.pop(); err != nil {
				return e.fail(err)
			}

		case OpDup:
			v, err := e.peek()
			if err != nil {
				return e.fail(err)
			}
			if err := e.push(v); err != nil {
				return e.fail(err)
			}

		case OpSwap:
			if err := e.swap(); err != nil {
				return e.fail(err)
			}

		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			if err := e.arith(instr.Op); err != nil {
				return e.fail(err)
			}

		case OpLoad:
			key, err := instr.Arg.AsString()
			if err != nil {
				return e.fail(err)
			}
			if err := e.push(e.storage[key]); err != nil {
				return e.fail(err)
			}

		case OpStore:
			key, err := instr.Arg.AsString()
			if err != nil {
				return e.fail(err)
			}
			v, err := e.pop()
			if err != nil {
				return e.fail(err)
			}
			e.storage[key] = v

		case OpSload:
			key, err := instr.Arg.AsString()
			if err != nil {
				return e.fail(err)
			}
			if err := e.push(e.scratch[key]); err != nil {
				return e.fail(err)
			}

		case OpSstore:
			key, err := instr.Arg.AsString()
			if err != nil {
				return e.fail(err)
			}
			v, err := e.pop()
			if err != nil {
				return e.fail(err)
			}
			e.scratch[key] = v

		case OpCall:
			if err := e.call(); err != nil {
				return e.fail(err)
			}

		case OpReturn:
			return e.succeed(e.topOrZero())

		case OpTransfer:
			if err := e.transfer(); err != nil {
				return e.fail(err)
			}

		case OpBalance:
			addr, err := e.popAddress()
			if err != nil {
				return e.fail(err)
			}
			bal := e.balanceOf(addr)
			if err := e.push(Int64(int64(bal))); err != nil {
				return e.fail(err)
			}

		case OpCaller:
			if err := e.push(Address(e.ctx.Caller)); err != nil {
				return e.fail(err)
			}

		case OpAddress:
			if err := e.push(Address(e.ctx.ContractAddress)); err != nil {
				return e.fail(err)
			}

		case OpTimestamp:
			if err := e.push(String(e.ctx.Timestamp)); err != nil {
				return e.fail(err)
			}

		case OpBlockNumber:
			if err := e.push(Int64(int64(e.ctx.BlockNumber))); err != nil {
				return e.fail(err)
			}

		case OpRevert:
			return e.fail(&VmError{Message: "reverted"})

		case OpAssert:
			v, err := e.peek()
			if err != nil {
				return e.fail(err)
			}
			if !v.Truthy() {
				return e.fail(&VmError{Message: "assertion failed"})
			}

		default:
			return e.fail(&VmError{Message: "unknown opcode"})
		}
	}

	return e.succeed(e.topOrZero())
}

func (e *execution) charge(op Op) error {
	cost := gasCost(op)
	if cost > e.gas {
		return ErrOutOfGas
	}
	e.gas -= cost
	e.used += cost
	return nil
}

func (e *execution) push(v Value) error {
	if len(e.stack) >= MaxStackDepth {
		return ErrStackOverflow
	}
	e.stack = append(e.stack, v)
	return nil
}

func (e *execution) pop() (Value, error) {
	if len(e.stack) == 0 {
		return Value{}, ErrStackUnderflow
	}
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v, nil
}

func (e *execution) peek() (Value, error) {
	if len(e.stack) == 0 {
		return Value{}, ErrStackUnderflow
	}
	return e.stack[len(e.stack)-1], nil
}

func (e *execution) topOrZero() Value {
	if len(e.stack) == 0 {
		return Int64(0)
	}
	return e.stack[len(e.stack)-1]
}

func (e *execution) swap() error {
	if len(e.stack) < 2 {
		return ErrStackUnderflow
	}
	n := len(e.stack)
	e.stack[n-1], e.stack[n-2] = e.stack[n-2], e.stack[n-1]
	return nil
}

func (e *execution) arith(op Op) error {
	b, err := e.pop()
	if err != nil {
		return err
	}
	a, err := e.pop()
	if err != nil {
		return err
	}

	av, err := a.AsInteger()
	if err != nil {
		return err
	}
	bv, err := b.AsInteger()
	if err != nil {
		return err
	}

	var result int64
	switch op {
	case OpAdd:
		result = av + bv
	case OpSub:
		result = av - bv
	case OpMul:
		result = av * bv
	case OpDiv:
		if bv == 0 {
			return &VmError{Message: "division by zero"}
		}
		result = av / bv
	case OpMod:
		if bv == 0 {
			return &VmError{Message: "division by zero"}
		}
		result = av % bv
	}

	return e.push(Int64(result))
}

func (e *execution) popAddress() (database.AccountID, error) {
	v, err := e.pop()
	if err != nil {
		return "", err
	}
	return v.AsAddress()
}

func (e *execution) balanceOf(addr database.AccountID) uint64 {
	base := int64(0)
	if e.ctx.Ledger != nil {
		base = int64(e.ctx.Ledger.GetBalance(addr))
	}
	return uint64(base + e.deltas[addr])
}

func (e *execution) transfer() error {
	amountV, err := e.pop()
	if err != nil {
		return err
	}
	to, err := e.popAddress()
	if err != nil {
		return err
	}
	amount, err := amountV.AsInteger()
	if err != nil {
		return err
	}
	if amount < 0 {
		return &VmError{Message: "transfer amount must be non-negative"}
	}

	from := e.ctx.Caller
	if e.balanceOf(from) < uint64(amount) {
		return &VmError{Message: "insufficient balance for transfer"}
	}

	e.deltas[from] -= amount
	e.deltas[to] += amount
	return e.push(Int64(1))
}

func (e *execution) call() error {
	if e.ctx.Call == nil {
		return &VmError{Message: "CALL is not supported in this context"}
	}

	addr, err := e.popAddress()
	if err != nil {
		return err
	}

	result, err := e.ctx.Call(addr, nil)
	if err != nil {
		return err
	}

	return e.push(result)
}

func (e *execution) succeed(ret Value) Result {
	return Result{
		Success:       true,
		ReturnValue:   ret,
		GasUsed:       e.used,
		GasRemaining:  e.gas,
		Storage:       e.storage,
		BalanceDeltas: e.deltas,
	}
}

func (e *execution) fail(err error) Result {
	return Result{
		Success:      false,
		GasUsed:      e.used,
		GasRemaining: e.gas,
		ErrorMessage: err.Error(),
	}
}
