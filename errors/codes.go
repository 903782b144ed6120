package errors

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E1xxx: Format errors (the input departs from the dump grammar or
//     from the layout the builder relies on)
//   - E2xxx: Lookup errors (a reference names an address or method that
//     does not exist)
type ErrorCode string

const (
	// Format errors (E1xxx)
	E1001 ErrorCode = "E1001" // Malformed disassembly line
	E1002 ErrorCode = "E1002" // Address out of order
	E1003 ErrorCode = "E1003" // Instruction after payload data
	E1004 ErrorCode = "E1004" // Unknown switch table tag
	E1005 ErrorCode = "E1005" // Switch table pointer mismatch
	E1006 ErrorCode = "E1006" // No terminating branch
	E1007 ErrorCode = "E1007" // Unterminated block
	E1008 ErrorCode = "E1008" // Invalid catch table
	E1009 ErrorCode = "E1009" // No switch table reader
	E1010 ErrorCode = "E1010" // Unterminated string literal
	E1011 ErrorCode = "E1011" // Jump into payload data
	E1012 ErrorCode = "E1012" // Malformed operand
	E1013 ErrorCode = "E1013" // Malformed method metadata

	// Lookup errors (E2xxx)
	E2001 ErrorCode = "E2001" // Unknown jump target
	E2002 ErrorCode = "E2002" // Unknown handler target
	E2003 ErrorCode = "E2003" // Method not found
)

var codeDescriptions = map[ErrorCode]string{
	E1001: "malformed disassembly line",
	E1002: "address out of order",
	E1003: "instruction after payload data",
	E1004: "unknown switch table tag",
	E1005: "switch table pointer mismatch",
	E1006: "no terminating branch",
	E1007: "unterminated block",
	E1008: "invalid catch table",
	E1009: "no switch table reader",
	E1010: "unterminated string literal",
	E1011: "jump into payload data",
	E1012: "malformed operand",
	E1013: "malformed method metadata",

	E2001: "unknown jump target",
	E2002: "unknown handler target",
	E2003: "method not found",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "format"
	case '2':
		return "lookup"
	default:
		return "unknown"
	}
}
