package model

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/blndgs/guardian/guarderr"
)

// TransactionParams describes a call the agent wants the account to make.
type TransactionParams struct {
	Target string        `json:"target" validate:"required,eth_addr"`
	Value  *big.Int      `json:"value"`
	Data   []byte        `json:"data,omitempty"`
	Gas    *GasOverrides `json:"gas,omitempty"`
}

// GasOverrides replaces individual gas defaults for one operation.
type GasOverrides struct {
	CallGasLimit         *big.Int `json:"callGasLimit,omitempty"`
	VerificationGasLimit *big.Int `json:"verificationGasLimit,omitempty"`
	PreVerificationGas   *big.Int `json:"preVerificationGas,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
}

// Custom validation for Ethereum address using go-playground validator.
func validEthAddress(fl validator.FieldLevel) bool {
	return IsAddress(fl.Field().String())
}

// Custom validation for the ChainID to ensure it's a positive integer.
func validChainID(fl validator.FieldLevel) bool {
	return fl.Field().Uint() > 0
}

// validVerdict checks if the verdict is among the predefined set.
func validVerdict(fl validator.FieldLevel) bool {
	switch Verdict(fl.Field().String()) {
	case Approved, Rejected:
		return true
	default:
		return false
	}
}

// RegisterValidators installs the SDK's custom tags (eth_addr, chain_id,
// verdict) on v. It is used for the package validator and for gin's binding
// engine in the mock Guardian server.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("eth_addr", validEthAddress); err != nil {
		return fmt.Errorf("failed to register validator for eth_addr: %w", err)
	}

	if err := v.RegisterValidation("chain_id", validChainID); err != nil {
		return fmt.Errorf("failed to register validator for chain_id: %w", err)
	}

	if err := v.RegisterValidation("verdict", validVerdict); err != nil {
		return fmt.Errorf("failed to register validator for verdict: %w", err)
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the package validator with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		if err := RegisterValidators(validate); err != nil {
			panic(err)
		}
	})
	return validate
}

// ValidateTransaction checks tx before any network or crypto work happens.
func ValidateTransaction(tx TransactionParams) error {
	const op = "validateTransaction"
	if err := Validator().Struct(tx); err != nil {
		return guarderr.Wrap(guarderr.InvalidInput, op, err, "%s", describeValidation(err))
	}

	amounts := map[string]*big.Int{"Value": tx.Value}
	if tx.Gas != nil {
		amounts["CallGasLimit"] = tx.Gas.CallGasLimit
		amounts["VerificationGasLimit"] = tx.Gas.VerificationGasLimit
		amounts["PreVerificationGas"] = tx.Gas.PreVerificationGas
		amounts["MaxFeePerGas"] = tx.Gas.MaxFeePerGas
		amounts["MaxPriorityFeePerGas"] = tx.Gas.MaxPriorityFeePerGas
	}
	for name, v := range amounts {
		if v != nil && (v.Sign() < 0 || v.Cmp(maxUint256) > 0) {
			return guarderr.InvalidInputf(op, "%s must be a non-negative 256-bit integer", name)
		}
	}
	return nil
}

// ValidateStruct validates v against its validate tags. The returned
// InvalidInput error names the first failing field but never its value.
func ValidateStruct(op string, v any) error {
	if err := Validator().Struct(v); err != nil {
		return guarderr.InvalidInputf(op, "%s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid input"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "eth_addr":
		return fmt.Sprintf("%s must be a 0x-prefixed 20-byte hex address", fe.Field())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
