package vm_test

import (
	"testing"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/vm"
)

const (
	success = "✓"
	failed  = "✗"
)

type fakeLedger map[database.AccountID]uint64

func (f fakeLedger) GetBalance(id database.AccountID) uint64 { return f[id] }

func TestArithmetic(t *testing.T) {
	type table struct {
		name string
		code []vm.Instruction
		want int64
	}

	tt := []table{
		{
			name: "add",
			code: []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Int64(2)},
				{Op: vm.OpPush, Arg: vm.Int64(3)},
				{Op: vm.OpAdd},
				{Op: vm.OpReturn},
			},
			want: 5,
		},
		{
			name: "sub then mul",
			code: []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Int64(10)},
				{Op: vm.OpPush, Arg: vm.Int64(4)},
				{Op: vm.OpSub},
				{Op: vm.OpPush, Arg: vm.Int64(2)},
				{Op: vm.OpMul},
				{Op: vm.OpReturn},
			},
			want: 12,
		},
	}

	t.Log("Given the need to execute arithmetic bytecode.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen executing %q.", testID, tst.name)
			{
				result := vm.Execute(tst.code, vm.Context{Gas: vm.DefaultGas})
				if !result.Success {
					t.Fatalf("\t%s\tTest %d:\tShould succeed, got error %q.", failed, testID, result.ErrorMessage)
				}
				t.Logf("\t%s\tTest %d:\tShould succeed.", success, testID)

				got, err := result.ReturnValue.AsInteger()
				if err != nil || got != tst.want {
					t.Fatalf("\t%s\tTest %d:\tShould return %d, got %d.", failed, testID, tst.want, got)
				}
				t.Logf("\t%s\tTest %d:\tShould return %d.", success, testID, tst.want)
			}
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	t.Log("Given the need to reject a division by zero.")
	{
		t.Logf("\tTest 0:\tWhen dividing by a zero operand.")
		{
			code := []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Int64(10)},
				{Op: vm.OpPush, Arg: vm.Int64(0)},
				{Op: vm.OpDiv},
			}

			result := vm.Execute(code, vm.Context{Gas: vm.DefaultGas})
			if result.Success {
				t.Fatalf("\t%s\tTest 0:\tShould fail on division by zero.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould fail on division by zero: %s", success, result.ErrorMessage)
		}
	}
}

func TestStackUnderflow(t *testing.T) {
	t.Log("Given the need to reject an operation with too few operands.")
	{
		t.Logf("\tTest 0:\tWhen popping from an empty stack.")
		{
			code := []vm.Instruction{{Op: vm.OpPop}}

			result := vm.Execute(code, vm.Context{Gas: vm.DefaultGas})
			if result.Success {
				t.Fatalf("\t%s\tTest 0:\tShould fail with a stack underflow.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould fail with a stack underflow: %s", success, result.ErrorMessage)
		}
	}
}

func TestOutOfGas(t *testing.T) {
	t.Log("Given the need to halt execution once gas runs out.")
	{
		t.Logf("\tTest 0:\tWhen the gas budget is smaller than a single PUSH costs.")
		{
			code := []vm.Instruction{{Op: vm.OpPush, Arg: vm.Int64(1)}}

			result := vm.Execute(code, vm.Context{Gas: 1})
			if result.Success {
				t.Fatalf("\t%s\tTest 0:\tShould fail with out of gas.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould fail with out of gas: %s", success, result.ErrorMessage)
		}
	}
}

func TestRevertAndAssert(t *testing.T) {
	t.Log("Given the need to halt execution on REVERT or a failed ASSERT.")
	{
		t.Logf("\tTest 0:\tWhen executing an explicit REVERT.")
		{
			code := []vm.Instruction{{Op: vm.OpRevert}}
			result := vm.Execute(code, vm.Context{Gas: vm.DefaultGas})
			if result.Success {
				t.Fatalf("\t%s\tTest 0:\tShould fail on REVERT.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould fail on REVERT.", success)
		}

		t.Logf("\tTest 1:\tWhen ASSERT is given a falsy value.")
		{
			code := []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Int64(0)},
				{Op: vm.OpAssert},
			}
			result := vm.Execute(code, vm.Context{Gas: vm.DefaultGas})
			if result.Success {
				t.Fatalf("\t%s\tTest 1:\tShould fail a falsy ASSERT.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould fail a falsy ASSERT.", success)
		}
	}
}

func TestStorageCommitOnlyOnSuccess(t *testing.T) {
	t.Log("Given the need to only surface storage writes from a successful run.")
	{
		t.Logf("\tTest 0:\tWhen a run stores a value then succeeds.")
		{
			code := []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Int64(42)},
				{Op: vm.OpStore, Arg: vm.String("answer")},
				{Op: vm.OpStop},
			}

			result := vm.Execute(code, vm.Context{Gas: vm.DefaultGas, Storage: map[string]vm.Value{}})
			if !result.Success {
				t.Fatalf("\t%s\tTest 0:\tShould succeed: %s", failed, result.ErrorMessage)
			}

			got, err := result.Storage["answer"].AsInteger()
			if err != nil || got != 42 {
				t.Fatalf("\t%s\tTest 0:\tShould commit the stored value, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould commit the stored value on success.", success)
		}

		t.Logf("\tTest 1:\tWhen a run stores a value then reverts.")
		{
			code := []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Int64(42)},
				{Op: vm.OpStore, Arg: vm.String("answer")},
				{Op: vm.OpRevert},
			}

			result := vm.Execute(code, vm.Context{Gas: vm.DefaultGas, Storage: map[string]vm.Value{}})
			if result.Success {
				t.Fatalf("\t%s\tTest 1:\tShould fail once REVERT runs.", failed)
			}
			if result.Storage != nil {
				t.Fatalf("\t%s\tTest 1:\tShould not surface any storage on failure.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not surface storage writes from a reverted run.", success)
		}
	}
}

func TestTransferStagesDeltas(t *testing.T) {
	t.Log("Given the need to stage TRANSFER as balance deltas debited from the caller, not a mutation.")
	{
		t.Logf("\tTest 0:\tWhen a caller transfers part of its balance to another address through a contract.")
		{
			const callerAddr = database.AccountID("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
			const contractAddr = database.AccountID("0xcccccccccccccccccccccccccccccccccccccc")
			const otherAddr = database.AccountID("0xdddddddddddddddddddddddddddddddddddddd")

			ledger := fakeLedger{callerAddr: 100, contractAddr: 0}

			code := []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Address(otherAddr)},
				{Op: vm.OpPush, Arg: vm.Int64(30)},
				{Op: vm.OpTransfer},
				{Op: vm.OpReturn},
			}

			result := vm.Execute(code, vm.Context{
				Gas:             vm.DefaultGas,
				Caller:          callerAddr,
				ContractAddress: contractAddr,
				Ledger:          ledger,
			})
			if !result.Success {
				t.Fatalf("\t%s\tTest 0:\tShould succeed: %s", failed, result.ErrorMessage)
			}
			t.Logf("\t%s\tTest 0:\tShould succeed.", success)

			if result.BalanceDeltas[callerAddr] != -30 || result.BalanceDeltas[otherAddr] != 30 {
				t.Fatalf("\t%s\tTest 0:\tShould debit the caller, not the contract, and credit the recipient.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould stage the transfer as balance deltas debited from the caller.", success)

			if result.BalanceDeltas[contractAddr] != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the contract's own balance untouched.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the contract's own balance untouched.", success)

			if ledger[callerAddr] != 100 {
				t.Fatalf("\t%s\tTest 0:\tShould never mutate the ledger directly.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould never mutate the ledger directly.", success)

			got, err := result.ReturnValue.AsInteger()
			if err != nil || got != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould push a success value of 1 onto the stack, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould push a success value after a successful transfer.", success)
		}

		t.Logf("\tTest 1:\tWhen a caller tries to transfer more than it holds.")
		{
			const callerAddr = database.AccountID("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
			const contractAddr = database.AccountID("0xcccccccccccccccccccccccccccccccccccccc")
			const otherAddr = database.AccountID("0xdddddddddddddddddddddddddddddddddddddd")

			ledger := fakeLedger{callerAddr: 5, contractAddr: 1000}

			code := []vm.Instruction{
				{Op: vm.OpPush, Arg: vm.Address(otherAddr)},
				{Op: vm.OpPush, Arg: vm.Int64(30)},
				{Op: vm.OpTransfer},
			}

			result := vm.Execute(code, vm.Context{
				Gas:             vm.DefaultGas,
				Caller:          callerAddr,
				ContractAddress: contractAddr,
				Ledger:          ledger,
			})
			if result.Success {
				t.Fatalf("\t%s\tTest 1:\tShould reject a transfer the caller cannot afford, even though the contract holds enough.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a transfer the caller cannot afford.", success)
		}
	}
}
