package vmerrors

import (
	"errors"
	"strings"
)

// Machine faults (F). Any of these aborts the current run.
var (
	ErrFParse              = errors.New("F1|ParseError: A syscall selector register holds an unknown value.")
	ErrFIO                 = errors.New("F2|IOError: Backing data for a syscall could not be read.")
	ErrFMemory             = errors.New("F3|MemoryFault: Memory access or mapping outside the permitted range.")
	ErrFInvalidEcall       = errors.New("F4|InvalidEcall: No syscall provider handled the ecall number.")
	ErrFInvalidInstruction = errors.New("F5|InvalidInstruction: The instruction word could not be decoded.")
	ErrFCyclesExceeded     = errors.New("F6|CyclesExceeded: The run consumed more cycles than allowed.")
	ErrFInvalidText        = errors.New("F7|InvalidText: Debug text is not valid UTF-8.")
	ErrFInvalidElf         = errors.New("F8|InvalidElf: The script is not a loadable RISC-V ELF image.")
)

// Lookup errors (L). Recovered by the resolver, never surfaced as faults.
var (
	ErrLLookupFailure = errors.New("L1|LookupFailure: Remote call failed or the record does not exist.")
)

var faults = []error{
	ErrFParse,
	ErrFIO,
	ErrFMemory,
	ErrFInvalidEcall,
	ErrFInvalidInstruction,
	ErrFCyclesExceeded,
	ErrFInvalidText,
	ErrFInvalidElf,
	ErrLLookupFailure,
}

// FaultName returns the catalogue name of the first sentinel err wraps,
// falling back to parsing the message for unwrapped catalogue errors.
func FaultName(err error) string {
	if err == nil {
		return "No Error"
	}
	for _, f := range faults {
		if errors.Is(err, f) {
			return GetErrorName(f)
		}
	}
	return GetErrorName(err)
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, f := range faults {
		if errors.Is(err, f) {
			err = f
			break
		}
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := FaultName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}
