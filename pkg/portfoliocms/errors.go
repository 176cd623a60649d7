package portfoliocms

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it,
// most notably the HTTP layer when choosing a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_error"
	default:
		return "internal_error"
	}
}

// Error types
var (
	// ErrSectionNotFound indicates an unknown section name
	ErrSectionNotFound = errors.New("section not found")

	// ErrFieldNotFound indicates a (section, fieldName) row does not exist
	ErrFieldNotFound = errors.New("content field not found")

	// ErrVersionNotFound indicates a version id does not exist
	ErrVersionNotFound = errors.New("version not found")

	// ErrMediaNotFound indicates a media record does not exist
	ErrMediaNotFound = errors.New("media not found")

	// ErrItemNotFound indicates a list item id does not exist in its section
	ErrItemNotFound = errors.New("list item not found")

	// ErrConflict indicates a unique constraint was violated
	ErrConflict = errors.New("conflict")

	// ErrObjectNotFound indicates a blob is missing from the storage backend
	ErrObjectNotFound = errors.New("object not found")

	// ErrNoDirectURL indicates a storage backend cannot serve blobs by URL
	ErrNoDirectURL = errors.New("direct URL not supported by storage backend")
)

// FieldViolation describes one rejected request field.
type FieldViolation struct {
	Field     string `json:"field"`
	Violation string `json:"violation"`
	Message   string `json:"message"`
}

// Error is the tagged error returned by the service layer.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  []FieldViolation
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Untagged errors are classified by the
// sentinel they wrap and default to KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrSectionNotFound),
		errors.Is(err, ErrFieldNotFound),
		errors.Is(err, ErrVersionNotFound),
		errors.Is(err, ErrMediaNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrObjectNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	}
	return KindInternal
}

// MessageOf returns the user facing message carried by err, if any.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// FieldsOf returns the field violations carried by err, if any.
func FieldsOf(err error) []FieldViolation {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

func notFound(op, message string, sentinel error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message, Err: sentinel}
}

func validationError(op, message string, fields ...FieldViolation) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message, Fields: fields}
}

// wrap tags err with op, preserving the kind of an already tagged error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindOf(err), Op: op, Err: err}
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
