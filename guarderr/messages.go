package guarderr

import "errors"

// userMessages maps each kind to copy suitable for end users.
var userMessages = map[Kind]string{
	Unknown:      "Something went wrong. Please try again.",
	InvalidInput: "Some of the details you entered are not valid. Check addresses and amounts and try again.",
	Auth:         "Your session has expired or the required key is not configured. Sign in again or check your keys.",
	Network:      "The network could not be reached. Check your connection or RPC provider and try again.",
	API:          "The Guardian service could not process the request. Please try again shortly.",
	Rejection:    "The Guardian rejected this transaction as too risky.",
	Recovery:     "The recovery settings are not valid. Review the guardian set, threshold and delay.",
	Upgrade:      "The upgrade request is not valid. Check the implementation address and timelock.",
	Contract:     "The wallet contract reverted the transaction.",
}

// UserMessage returns human-actionable copy for err based on its kind. For
// InvalidInput, Recovery and Upgrade errors the SDK message is appended since it
// names the offending field and never contains secret material.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	msg := userMessages[kind]

	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		switch kind {
		case InvalidInput, Recovery, Upgrade:
			return msg + " (" + e.Message + ")"
		}
	}
	return msg
}
