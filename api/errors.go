package api

import "fmt"

// ErrorKind discriminates the five error partitions a caller must be able
// to distinguish: decode-time, type-check-time, link-time, instantiation-time,
// and runtime-trap failures.
type ErrorKind int

const (
	// KindMalformed means the byte stream does not conform to the binary
	// format.
	KindMalformed ErrorKind = iota
	// KindValidation means the module is structurally well-formed but
	// semantically ill-typed.
	KindValidation
	// KindUnlinkable means instantiation could not resolve or type-match an
	// import.
	KindUnlinkable
	// KindUninstantiable means instantiation failed for a semantic reason
	// other than linking, e.g. an active segment offset out of bounds.
	KindUninstantiable
	// KindTrap means a runtime trap terminated execution.
	KindTrap
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindValidation:
		return "validation"
	case KindUnlinkable:
		return "unlinkable"
	case KindUninstantiable:
		return "uninstantiable"
	case KindTrap:
		return "trap"
	default:
		return "unknown"
	}
}

// Reason enumerates the specific discriminants named in spec.md §7/§8. Not
// every Reason pairs with every Kind; see NewError for the canonical
// pairing and reasonMessage for the oracle-matching text.
type Reason int

const (
	ReasonUnspecified Reason = iota

	// Malformed reasons.
	ReasonMagicSignature
	ReasonUnsupportedVersion
	ReasonSectionID
	ReasonSectionSizeMismatch
	ReasonLEB128
	ReasonTypeSentinel
	ReasonUTF8Encoding
	ReasonReferenceType
	ReasonType
	ReasonInvalidImport
	ReasonMutability
	ReasonFunctionCodeSectionMismatch
	ReasonTooManyLocals
	ReasonDataCountMismatch
	ReasonMissingDataCountSection
	ReasonLimits
	ReasonMultipleStartSections
	ReasonIllegalOpcode
	ReasonDataType
	ReasonElementType

	// Validation reasons.
	ReasonTypeMismatch
	ReasonTypeMustBeNumeric
	ReasonUnknownLabel
	ReasonUnknownLocal
	ReasonUnknownGlobal
	ReasonUnknownFunction
	ReasonUnknownTable
	ReasonUnknownMemory
	ReasonUnknownElement
	ReasonUnknownData
	ReasonImmutableGlobal
	ReasonBadAlignment
	ReasonMultipleTables
	ReasonMultipleMemories
	ReasonMemoryMaxPagesExceeded
	ReasonBadConstantExpression
	ReasonConstantExpressionGlobalMustBeImport
	ReasonConstantExpressionGlobalMustBeImmutable
	ReasonFuncRefUndeclared
	ReasonDuplicateExportName
	ReasonIfElseMismatch
	ReasonStartFunctionType

	// Unlinkable reasons.
	ReasonUnknownImport
	ReasonIncompatibleImportType

	// Uninstantiable reasons.
	ReasonOutOfBoundsTableAccessInit
	ReasonOutOfBoundsMemoryAccessInit

	// Trap reasons.
	ReasonUnreachable
	ReasonIntegerDivisionByZero
	ReasonIntegerOverflow
	ReasonInvalidIntegerConversion
	ReasonOutOfBoundsMemoryAccess
	ReasonOutOfBoundsTableAccess
	ReasonUndefinedElement
	ReasonUninitializedElement
	ReasonIndirectCallTypeMismatch
	ReasonStackExhausted
)

// reasonMessage maps a Reason to the exact oracle text from spec.md §8 where
// one is specified. Reasons without a fixed oracle string format their own
// message at construction time instead (see NewError's msg parameter).
var reasonMessage = map[Reason]string{
	ReasonMagicSignature:            "magic header not detected",
	ReasonUnsupportedVersion:        "unknown binary version",
	ReasonTypeMismatch:              "type mismatch",
	ReasonTypeMustBeNumeric:         "type mismatch: select operands must be numeric",
	ReasonImmutableGlobal:           "global is immutable",
	ReasonUnknownImport:             "unknown import",
	ReasonOutOfBoundsMemoryAccess:   "out of bounds memory access",
	ReasonStackExhausted:            "call stack exhausted",
	ReasonIntegerDivisionByZero:     "integer divide by zero",
	ReasonIntegerOverflow:           "integer overflow",
	ReasonInvalidIntegerConversion:  "invalid conversion to integer",
	ReasonUnreachable:               "unreachable",
	ReasonOutOfBoundsTableAccess:    "out of bounds table access",
	ReasonUndefinedElement:          "undefined element",
	ReasonUninitializedElement:      "uninitialized element",
	ReasonIndirectCallTypeMismatch:  "indirect call type mismatch",
	ReasonDuplicateExportName:       "duplicate export name",
	ReasonMultipleTables:            "multiple tables",
	ReasonMultipleMemories:          "multiple memories",
	ReasonMemoryMaxPagesExceeded:    "memory size must be at most 65536 pages",
	ReasonIncompatibleImportType:    "incompatible import type",
}

// Error is the common shape of every error this runtime returns from a
// public entry point: a Kind (one of the five oracle partitions), a Reason
// (the specific discriminant), and a message.
type Error struct {
	Kind   ErrorKind
	Reason Reason
	msg    string
}

func (e *Error) Error() string { return e.msg }

// Is supports errors.Is comparison against a bare *Error carrying only a
// Kind and/or Reason, e.g. errors.Is(err, &api.Error{Reason: api.ReasonUnknownImport}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason != ReasonUnspecified && t.Reason != e.Reason {
		return false
	}
	return t.Kind == e.Kind
}

// NewError constructs an *Error of the given kind/reason. If msg is empty,
// the oracle-fixed message for reason is used when one is registered.
func NewError(kind ErrorKind, reason Reason, msg string, args ...interface{}) *Error {
	if msg == "" {
		msg = reasonMessage[reason]
	} else if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Kind: kind, Reason: reason, msg: msg}
}

// MalformedError, ValidationError, UnlinkableError, UninstantiableError, and
// NewTrap are convenience constructors fixing Kind for each spec.md §7
// partition.
func MalformedError(reason Reason, msg string, args ...interface{}) *Error {
	return NewError(KindMalformed, reason, msg, args...)
}

func ValidationError(reason Reason, msg string, args ...interface{}) *Error {
	return NewError(KindValidation, reason, msg, args...)
}

func UnlinkableError(reason Reason, msg string, args ...interface{}) *Error {
	return NewError(KindUnlinkable, reason, msg, args...)
}

func UninstantiableError(reason Reason, msg string, args ...interface{}) *Error {
	return NewError(KindUninstantiable, reason, msg, args...)
}

// Trap is an Error of KindTrap: a runtime fault that unwinds the current
// invocation.
type Trap = Error

func NewTrap(reason Reason, msg string, args ...interface{}) *Trap {
	return NewError(KindTrap, reason, msg, args...)
}
