package cryptotax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tx_type", validateTxType)
	v.RegisterStructValidation(validateLegs, Transaction{})
	return v
}

func validateTxType(fl validator.FieldLevel) bool {
	t := TxType(fl.Field().String())
	for _, x := range TxTypes {
		if x == t {
			return true
		}
	}
	return false
}

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool { return money.GetCurrency(code) != nil }

// validateLegs checks that the legs required by the transaction type are
// present with a positive amount.
func validateLegs(sl validator.StructLevel) {
	tx := sl.Current().Interface().(Transaction)
	in := tx.TokenIn != nil && tx.AmountIn.IsPositive()
	out := tx.TokenOut != nil && tx.AmountOut.IsPositive()

	switch tx.Type {
	case Buy, Deposit, StakeReward:
		if !out {
			sl.ReportError(tx.AmountOut, "AmountOut", "amount_out", "required_positive", "")
		}
	case Sell, Withdrawal:
		if !in {
			sl.ReportError(tx.AmountIn, "AmountIn", "amount_in", "required_positive", "")
		}
	case Swap:
		if !in {
			sl.ReportError(tx.AmountIn, "AmountIn", "amount_in", "required_positive", "")
		}
		if !out {
			sl.ReportError(tx.AmountOut, "AmountOut", "amount_out", "required_positive", "")
		}
	case Transfer:
		if in == out {
			sl.ReportError(tx.AmountIn, "AmountIn", "amount_in", "one_side", "")
		}
	}
	if tx.AmountIn.IsNegative() {
		sl.ReportError(tx.AmountIn, "AmountIn", "amount_in", "gte_zero", "")
	}
	if tx.AmountOut.IsNegative() {
		sl.ReportError(tx.AmountOut, "AmountOut", "amount_out", "gte_zero", "")
	}
	if tx.Fee.IsNegative() {
		sl.ReportError(tx.Fee, "Fee", "fee", "gte_zero", "")
	}
	if tx.Fee.IsPositive() && tx.FeeToken == nil {
		sl.ReportError(tx.FeeToken, "FeeToken", "fee_token", "required_with_fee", "")
	}
}

// Validate checks that tx is a consistent input record.
func (tx *Transaction) Validate() error {
	err := validate.Struct(tx)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid transaction %q: %s", tx.ID, strings.Join(msgs, ", "))
}
