package loader

import "fmt"

// Error codes shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No model files found
	ErrCodeLoadFailed  = "E004" // File could not be read or parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Declaration errors
	ErrCodeUnknownRule    = "E101" // Unknown rule key
	ErrCodeInvalidRule    = "E102" // Rule value has the wrong shape
	ErrCodeInvalidType    = "E103" // Field type cannot be parsed
	ErrCodeDuplicateModel = "E104" // Model declared twice
	ErrCodeInvalidModel   = "E105" // Model body is malformed
	ErrCodeAnomaly        = "E106" // Registration raised a compilation anomaly
)

// Position locates a declaration in its source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the position carries a line.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return p.File
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// LoadError is an error found while loading declarations.
type LoadError struct {
	Code    string
	Message string
	Pos     Position
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errorf(code string, pos Position, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}
