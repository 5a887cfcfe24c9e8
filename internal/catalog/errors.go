package catalog

import "fmt"

// Kind classifies a catalog-domain error by which subsystem raised it.
// Callers use errors.As to recover the Kind from a wrapped error
// without string-matching messages.
type Kind int

const (
	// KindIO covers file-not-found, permission, and short-read errors.
	KindIO Kind = iota
	// KindHash covers stream errors while digesting a file.
	KindHash
	// KindExif covers exiftool process or parse failures.
	KindExif
	// KindDatabase covers catalog parse failure, unknown version, or an
	// invariant violated on load. Fatal — aborts the command.
	KindDatabase
	// KindCollection covers a collect target that exists with different
	// content and cannot be renamed to a unique name.
	KindCollection
	// KindVerification covers a digest mismatch found by the verifier.
	// Accumulated, not fatal.
	KindVerification
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IoError"
	case KindHash:
		return "HashError"
	case KindExif:
		return "ExifError"
	case KindDatabase:
		return "DatabaseError"
	case KindCollection:
		return "CollectionError"
	case KindVerification:
		return "VerificationMismatch"
	default:
		return "UnknownError"
	}
}

// Error is a typed, wrapped error carrying one of the Kind values above.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches a Kind to err, associated with path (may be empty for
// errors with no single file of origin, e.g. database-load failures).
func Wrap(kind Kind, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Path: path, Err: err}
}
