// Package brcode implements decoding, schema validation and classification
// of Brazilian Instant Payment ("PIX") QR-code payloads ("BR Codes"), a
// profile of the EMV QR Code Specification for Payment Systems (EMV QRCPS)
// Merchant-Presented Mode that the Brazilian central bank (Banco Central do
// Brasil) layers PIX-specific semantics onto.
//
// The payload format uses a TLV (Tag-Length-Value) structure where each data
// object is encoded as:
//
//	ID (2 digits) + Length (2 digits) + Value (variable alphanumeric string)
//
// Example usage:
//
//	fields, err := brcode.Decode(raw, brcode.DecodeOptions{})
//	code, err := brcode.DecodeTo(raw, brcode.DecodeOptions{})
//	// code.Type is one of CodeTypeStatic, CodeTypeDynamicImmediate,
//	// CodeTypeDynamicWithDueDate.
package brcode

import (
	"errors"
	"fmt"
)

// -------------------------------------------------------------------------
// Field IDs (BR Code tag mapping, Banco Central do Brasil)
// -------------------------------------------------------------------------

const (
	// IDPayloadFormatIndicator is the payload format indicator, always "01".
	IDPayloadFormatIndicator = "00"
	// IDPointOfInitiationMethod distinguishes static ("11") from dynamic
	// ("12") presentation. PIX only ever emits "12" when present at all.
	IDPointOfInitiationMethod = "01"
	// IDMerchantAccountInformation is the PIX merchant account template.
	// Sub-fields: 00=gui, 01=chave, 25=url.
	IDMerchantAccountInformation = "26"
	// IDMerchantCategoryCode is the merchant category code, default "0000".
	IDMerchantCategoryCode = "52"
	// IDTransactionCurrency must equal "986" (BRL, ISO 4217 numeric).
	IDTransactionCurrency = "53"
	// IDTransactionAmount is the optional decimal transaction amount.
	IDTransactionAmount = "54"
	// IDCountryCode must equal "BR".
	IDCountryCode = "58"
	// IDMerchantName is the payee display name.
	IDMerchantName = "59"
	// IDMerchantCity is the payee city.
	IDMerchantCity = "60"
	// IDPostalCode is the optional 8-digit postal code.
	IDPostalCode = "61"
	// IDAdditionalDataFieldTemplate carries the reference label sub-field (05).
	IDAdditionalDataFieldTemplate = "62"
	// IDCRC is the trailing CRC16-CCITT/FALSE checksum, as 4 hex digits.
	IDCRC = "63"
	// IDUnreservedTemplates is the sole assigned unreserved template tag;
	// sub-field 00=gui. "81"-"99" are unmapped, not part of this template.
	IDUnreservedTemplates = "80"
)

// Sub-field IDs for the Merchant Account Information template (ID "26").
const (
	MAIGloballyUniqueID = "00"
	MAIChave            = "01"
	MAIInfoAdicional    = "02"
	MAIURL              = "25"
)

// Sub-field ID for the Additional Data Field Template (ID "62").
const (
	ADFReferenceLabel = "05"
)

// GUI values accepted for the "br.gov.bcb.pix" arrangement. The central
// bank's BR Code spec permits either case for historical reasons.
const (
	GUIPixLower = "br.gov.bcb.pix"
	GUIPixUpper = "BR.GOV.BCB.PIX"
)

// CodeType classifies a validated BRCode as static or one of the two dynamic
// shapes, derived from which merchant-account-information fields are present.
type CodeType string

const (
	// CodeTypeStatic carries the payee key directly; no network fetch needed.
	CodeTypeStatic CodeType = "static"
	// CodeTypeDynamicImmediate carries a PSP URL for an immediate-charge cobrança.
	CodeTypeDynamicImmediate CodeType = "dynamic_payment_immediate"
	// CodeTypeDynamicWithDueDate carries a PSP URL for a cobrança with due date (cobv).
	CodeTypeDynamicWithDueDate CodeType = "dynamic_payment_with_due_date"
)

// -------------------------------------------------------------------------
// Data structures
// -------------------------------------------------------------------------

// DataObject is a generic TLV data object, used for unrecognised fields
// retained for forward compatibility (non-strict mode never produces these;
// they only appear when callers decode manually with lower-level helpers).
type DataObject struct {
	ID    string
	Value string
}

// MerchantAccountInformation is the decoded contents of tag "26". Exactly
// one of Chave or URL is populated for a value that has passed validation;
// both may be empty immediately after raw decoding, before C2 validation
// enforces "exactly one of chave or url".
type MerchantAccountInformation struct {
	// GUI identifies the arrangement; must be "br.gov.bcb.pix" or
	// "BR.GOV.BCB.PIX" (mixed case is rejected).
	GUI string
	// Chave is the PIX key for a static code (length 1..77).
	Chave string
	// URL is the PSP endpoint for a dynamic code (length 1..77).
	URL string
	// InfoAdicional is optional free text, only valid alongside Chave.
	InfoAdicional string
}

// AdditionalDataFieldTemplate is the decoded contents of tag "62".
type AdditionalDataFieldTemplate struct {
	// ReferenceLabel is required, length 1..25.
	ReferenceLabel string
}

// Fields is the raw decoded mapping produced by Decode (C1): a structural
// parse of the TLV tree with no schema validation applied yet. Optional
// scalar fields use pointers so "absent" is distinguishable from "empty
// string present".
type Fields struct {
	PayloadFormatIndicator     string
	PointOfInitiationMethod    *string
	MerchantAccountInformation MerchantAccountInformation
	HasMerchantAccountInfo     bool
	MerchantCategoryCode       string
	HasMerchantCategoryCode    bool
	TransactionCurrency        string
	TransactionAmount          *string
	CountryCode                string
	MerchantName               string
	MerchantCity               string
	PostalCode                 *string
	AdditionalData             AdditionalDataFieldTemplate
	HasAdditionalData          bool
	UnreservedTemplates        []UnreservedTemplate
	CRC                        string

	// RFUFields holds top-level tags the decoder does not assign a dedicated
	// field to; populated only when produced by a caller in strict mode that
	// chooses to retain them (Decode itself discards skipped unknown tags).
	RFUFields []DataObject
}

// UnreservedTemplate is the decoded contents of the unreserved template tag
// ("80"); sub-field 00 is the arrangement's GUI.
type UnreservedTemplate struct {
	ID  string
	GUI string
}

// BRCode is the schema-validated, classified output of C2 (the BR Code
// Validator), built from a Fields value.
type BRCode struct {
	PayloadFormatIndicator     string
	PointOfInitiationMethod    string
	MerchantAccountInformation MerchantAccountInformation
	MerchantCategoryCode       string
	TransactionCurrency        string
	TransactionAmount          string
	CountryCode                string
	MerchantName               string
	MerchantCity               string
	PostalCode                 string
	AdditionalData             AdditionalDataFieldTemplate
	CRC                        string
	Type                       CodeType
}

// -------------------------------------------------------------------------
// Errors
// -------------------------------------------------------------------------

var (
	// ErrInvalidCRC is returned when the embedded CRC does not match the
	// CRC16-CCITT/FALSE checksum of the preceding bytes.
	ErrInvalidCRC = errors.New("brcode: invalid_crc")
	// ErrSizeNotAnInteger is returned when a TLV length field is not numeric.
	ErrSizeNotAnInteger = errors.New("brcode: validation: size_not_an_integer")
	// ErrInvalidTLV is returned when the TLV structure is truncated or a
	// declared length exceeds the remaining data.
	ErrInvalidTLV = errors.New("brcode: validation: invalid_tag_length_value")
	// ErrUnknownKey is returned in non-strict mode for a tag outside the
	// known BR Code tag mapping.
	ErrUnknownKey = errors.New("brcode: validation: unknown_key")
)

// UnknownKeyError carries the offending tag for ErrUnknownKey.
type UnknownKeyError struct {
	Tag string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnknownKey, e.Tag)
}

func (e *UnknownKeyError) Unwrap() error { return ErrUnknownKey }

// FieldError describes a single schema-validation failure, used to
// accumulate every problem found while casting Fields to BRCode (design
// note: "a validator pipeline that accumulates errors").
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError wraps the accumulated FieldErrors produced by C2 schema
// casting (Validate). It is the portable "{:error, {:validation, errors}}" shape
// from design note §9.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("brcode: validation: %s", e.Errors[0])
	}
	return fmt.Sprintf("brcode: validation: %d errors (first: %s)", len(e.Errors), e.Errors[0])
}

func newValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
