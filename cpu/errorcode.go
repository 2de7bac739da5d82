package cpu

import "fmt"

// An ErrorCode classifies how a job terminated. The numeric values and the
// messages are part of the output format and must not change.
type ErrorCode int

// Termination classifications.
const (
	NoError ErrorCode = iota
	OutOfData
	LineLimitExceeded
	TimeLimitExceeded
	OperationCodeError
	OperandError
	InvalidPageFault
	MemoryExhausted
)

var errorMessages = [...]string{
	NoError:            "No Error",
	OutOfData:          "Out of Data",
	LineLimitExceeded:  "Line Limit Exceeded",
	TimeLimitExceeded:  "Time Limit Exceeded",
	OperationCodeError: "Operation Code Error",
	OperandError:       "Operand Error",
	InvalidPageFault:   "Invalid Page Fault",
	MemoryExhausted:    "Memory Exhausted",
}

// Message returns the human-readable description of the code.
func (c ErrorCode) Message() string {
	if c < 0 || int(c) >= len(errorMessages) {
		return fmt.Sprintf("Unknown Error %d", int(c))
	}

	return errorMessages[c]
}

func (c ErrorCode) String() string {
	return c.Message()
}

// IsNormal tells if the code represents a normal termination.
func (c ErrorCode) IsNormal() bool {
	return c == NoError
}
