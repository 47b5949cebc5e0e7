package validate_test

import (
	"testing"

	"github.com/chainforge/ledger/business/sys/validate"
)

const (
	success = "✓"
	failed  = "✗"
)

type params struct {
	Address string `json:"address" validate:"required"`
}

func TestCheckRequiredField(t *testing.T) {
	t.Log("Given the need to validate a struct's required fields.")
	{
		t.Logf("\tTest 0:\tWhen every required field is set.")
		{
			if err := validate.Check(params{Address: "0xaaaa"}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a fully populated struct: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept a fully populated struct.", success)
		}

		t.Logf("\tTest 1:\tWhen a required field is left empty.")
		{
			err := validate.Check(params{})
			if err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a struct missing a required field.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a struct missing a required field: %s", success, err)
		}
	}
}

func TestCheckNonStruct(t *testing.T) {
	t.Log("Given the need to report a useful error for an invalid validation target.")
	{
		t.Logf("\tTest 0:\tWhen Check is given something that is not a struct.")
		{
			if err := validate.Check("not a struct"); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould report an error for a non-struct value.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report an error for a non-struct value.", success)
		}
	}
}
