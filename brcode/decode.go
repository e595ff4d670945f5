package brcode

import (
	"strings"
)

// DecodeOptions controls optional decoder behaviour (C1 §4.1).
type DecodeOptions struct {
	// StrictValidation, when true, silently skips unknown top-level and
	// nested tags instead of failing with ErrUnknownKey. Default: false.
	StrictValidation bool
}

// Decode parses a raw BR Code string into its structural TLV mapping (C1).
// The CRC is always checked first and fails fast, before any structural
// parsing, per §4.1.
func Decode(raw string, opts DecodeOptions) (*Fields, error) {
	if err := validateCRC(raw); err != nil {
		return nil, err
	}

	objects, err := parseTLV(raw)
	if err != nil {
		return nil, err
	}

	f := &Fields{}
	for _, obj := range objects {
		if err := f.applyObject(obj, opts); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// DecodeTo decodes raw and casts the result to a classified BRCode (C1+C2).
func DecodeTo(raw string, opts DecodeOptions) (*BRCode, error) {
	fields, err := Decode(raw, opts)
	if err != nil {
		return nil, err
	}
	return Validate(fields)
}

// validateCRC checks the CRC16-CCITT/FALSE checksum embedded in the raw
// string. The CRC covers everything up to and including the "6304" prefix
// of the CRC field, per §4.1.
func validateCRC(raw string) error {
	if len(raw) < 8 {
		return ErrInvalidCRC
	}
	crcFieldStart := strings.LastIndex(raw, "6304")
	if crcFieldStart == -1 {
		return ErrInvalidCRC
	}
	dataPart := raw[:crcFieldStart+4]
	crcValue := raw[crcFieldStart+4 : crcFieldStart+8]

	computed := crc16CCITT([]byte(dataPart))
	expected := crcString(computed)
	if !strings.EqualFold(crcValue, expected) {
		return ErrInvalidCRC
	}
	return nil
}

// applyObject maps a single top-level TLV object onto Fields.
func (f *Fields) applyObject(obj tlvObject, opts DecodeOptions) error {
	id := obj.id
	val := obj.value

	switch id {
	case IDPayloadFormatIndicator:
		f.PayloadFormatIndicator = val

	case IDPointOfInitiationMethod:
		v := val
		f.PointOfInitiationMethod = &v

	case IDMerchantAccountInformation:
		mai, err := decodeMerchantAccountInformation(val, opts)
		if err != nil {
			return err
		}
		f.MerchantAccountInformation = *mai
		f.HasMerchantAccountInfo = true

	case IDMerchantCategoryCode:
		f.MerchantCategoryCode = val
		f.HasMerchantCategoryCode = true

	case IDTransactionCurrency:
		f.TransactionCurrency = val

	case IDTransactionAmount:
		v := val
		f.TransactionAmount = &v

	case IDCountryCode:
		f.CountryCode = val

	case IDMerchantName:
		f.MerchantName = val

	case IDMerchantCity:
		f.MerchantCity = val

	case IDPostalCode:
		v := val
		f.PostalCode = &v

	case IDAdditionalDataFieldTemplate:
		adf, err := decodeAdditionalDataField(val, opts)
		if err != nil {
			return err
		}
		f.AdditionalData = *adf
		f.HasAdditionalData = true

	case IDCRC:
		f.CRC = strings.ToUpper(val)

	default:
		if isUnreservedTemplate(id) {
			ut, err := decodeUnreservedTemplate(id, val, opts)
			if err != nil {
				return err
			}
			f.UnreservedTemplates = append(f.UnreservedTemplates, *ut)
			return nil
		}
		if opts.StrictValidation {
			return nil
		}
		return &UnknownKeyError{Tag: id}
	}
	return nil
}

// isUnreservedTemplate reports whether id is the "80" unreserved templates
// tag. Only "80" is assigned meaning by the BR Code tag mapping; "81"-"99"
// are not part of it and fall through to the unknown-key path like any
// other unmapped tag.
func isUnreservedTemplate(id string) bool {
	return id == IDUnreservedTemplates
}

// decodeMerchantAccountInformation decodes the contents of tag "26".
func decodeMerchantAccountInformation(val string, opts DecodeOptions) (*MerchantAccountInformation, error) {
	subs, err := parseTLV(val)
	if err != nil {
		return nil, err
	}
	mai := &MerchantAccountInformation{}
	for _, s := range subs {
		switch s.id {
		case MAIGloballyUniqueID:
			mai.GUI = s.value
		case MAIChave:
			mai.Chave = s.value
		case MAIInfoAdicional:
			mai.InfoAdicional = s.value
		case MAIURL:
			mai.URL = s.value
		default:
			if !opts.StrictValidation {
				return nil, &UnknownKeyError{Tag: s.id}
			}
		}
	}
	return mai, nil
}

// decodeAdditionalDataField decodes the contents of tag "62".
func decodeAdditionalDataField(val string, opts DecodeOptions) (*AdditionalDataFieldTemplate, error) {
	subs, err := parseTLV(val)
	if err != nil {
		return nil, err
	}
	adf := &AdditionalDataFieldTemplate{}
	for _, s := range subs {
		switch s.id {
		case ADFReferenceLabel:
			adf.ReferenceLabel = s.value
		default:
			if !opts.StrictValidation {
				return nil, &UnknownKeyError{Tag: s.id}
			}
		}
	}
	return adf, nil
}

// decodeUnreservedTemplate decodes the unreserved template tag ("80").
func decodeUnreservedTemplate(id, val string, opts DecodeOptions) (*UnreservedTemplate, error) {
	subs, err := parseTLV(val)
	if err != nil {
		return nil, err
	}
	ut := &UnreservedTemplate{ID: id}
	for _, s := range subs {
		switch s.id {
		case MAIGloballyUniqueID:
			ut.GUI = s.value
		default:
			if !opts.StrictValidation {
				return nil, &UnknownKeyError{Tag: s.id}
			}
		}
	}
	return ut, nil
}
