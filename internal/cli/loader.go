package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/strobe/internal/compiler"
	"github.com/roach88/strobe/internal/ir"
)

// LoadError represents an error that occurred during patch loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPatch loads a patch document from a .cue file or a directory of CUE
// files and compiles it to a Program.
//
// For a directory, all CUE files are unified through the standard loader,
// so a document may be split across files as long as they build one
// top-level "patch" struct. Compilation errors (including validation
// errors from the builder) are returned with position and code info where
// available.
func LoadPatch(path string) (*ir.Program, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("patch not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing patch: %v", err)}}
	}

	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading patch file: %v", err)}}
		}
		prog, err := compiler.CompilePatchSource(string(src))
		if err != nil {
			return nil, convertCompileErrors(err)
		}
		return prog, nil
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: path}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	patch := value.LookupPath(cue.ParsePath("patch"))
	if !patch.Exists() {
		return nil, []error{&LoadError{Code: ErrCodeNoPatch, Message: fmt.Sprintf("no top-level patch struct in %s", path)}}
	}

	prog, err := compiler.CompilePatch(patch)
	if err != nil {
		return nil, convertCompileErrors(err)
	}
	return prog, nil
}

// convertCompileErrors flattens a compile error (possibly a joined set of
// validation errors from Build) into positioned LoadErrors.
func convertCompileErrors(err error) []error {
	var out []error
	for _, e := range flatten(err) {
		var compileErr *compiler.CompileError
		if errors.As(e, &compileErr) {
			out = append(out, &LoadError{
				Code:    ErrCodeInvalidDoc,
				Message: compileErr.Field + ": " + compileErr.Message,
				Pos:     compileErr.Pos,
			})
			continue
		}
		var validationErr compiler.ValidationError
		if errors.As(e, &validationErr) {
			out = append(out, &LoadError{
				Code:    validationErr.Code,
				Message: validationErr.Field + ": " + validationErr.Message,
			})
			continue
		}
		var buildErr *compiler.BuildError
		if errors.As(e, &buildErr) {
			out = append(out, &LoadError{
				Code:    ErrCodeBuildFailed,
				Message: buildErr.Error(),
			})
			continue
		}
		out = append(out, &LoadError{Code: ErrCodeGeneric, Message: e.Error()})
	}
	return out
}

// flatten expands errors joined with errors.Join into their leaves.
func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeLoadFailed  = "E003" // CUE load failed
	ErrCodeBuildFailed = "E004" // CUE build / program assembly failed
	ErrCodeNoPatch     = "E005" // No patch struct in document
	ErrCodeInvalidDoc  = "E006" // Document decode error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeEvalFailed  = "E008" // Evaluation error
	ErrCodeStoreError  = "E009" // Snapshot store error
)
