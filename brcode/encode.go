package brcode

import "strings"

// Encode serialises a validated BRCode back into its raw TLV string,
// computing and appending the CRC automatically. It is the inverse of
// DecodeTo: Encode(code) round-trips through Decode/DecodeTo for any code
// that Validate accepted (§8, testable property 1).
func Encode(c *BRCode) (string, error) {
	var sb strings.Builder

	write(&sb, IDPayloadFormatIndicator, c.PayloadFormatIndicator)

	if c.PointOfInitiationMethod != "" {
		write(&sb, IDPointOfInitiationMethod, c.PointOfInitiationMethod)
	}

	mai, err := encodeMerchantAccountInformation(c.MerchantAccountInformation)
	if err != nil {
		return "", err
	}
	sb.WriteString(mai)

	write(&sb, IDMerchantCategoryCode, c.MerchantCategoryCode)
	write(&sb, IDTransactionCurrency, c.TransactionCurrency)

	if c.TransactionAmount != "" {
		write(&sb, IDTransactionAmount, c.TransactionAmount)
	}

	write(&sb, IDCountryCode, c.CountryCode)
	write(&sb, IDMerchantName, c.MerchantName)
	write(&sb, IDMerchantCity, c.MerchantCity)

	if c.PostalCode != "" {
		write(&sb, IDPostalCode, c.PostalCode)
	}

	adf, err := encodeAdditionalDataField(c.AdditionalData)
	if err != nil {
		return "", err
	}
	sb.WriteString(adf)

	// CRC (ID "63") is computed last and covers everything up to and
	// including the "6304" prefix, per §4.1.
	crcPrefix := sb.String() + "6304"
	crcVal := crc16CCITT([]byte(crcPrefix))
	sb.WriteString("6304")
	sb.WriteString(crcString(crcVal))

	return sb.String(), nil
}

// write appends a TLV-encoded field to the string builder. Panics on values
// over 99 chars; callers are expected to have validated first.
func write(sb *strings.Builder, id, value string) {
	sb.WriteString(mustEncodeTLV(id, value))
}

// encodeMerchantAccountInformation encodes tag "26" from its sub-fields.
func encodeMerchantAccountInformation(mai MerchantAccountInformation) (string, error) {
	var inner strings.Builder
	if mai.GUI != "" {
		chunk, err := encodeTLV(MAIGloballyUniqueID, mai.GUI)
		if err != nil {
			return "", err
		}
		inner.WriteString(chunk)
	}
	if mai.Chave != "" {
		chunk, err := encodeTLV(MAIChave, mai.Chave)
		if err != nil {
			return "", err
		}
		inner.WriteString(chunk)
	}
	if mai.InfoAdicional != "" {
		chunk, err := encodeTLV(MAIInfoAdicional, mai.InfoAdicional)
		if err != nil {
			return "", err
		}
		inner.WriteString(chunk)
	}
	if mai.URL != "" {
		chunk, err := encodeTLV(MAIURL, mai.URL)
		if err != nil {
			return "", err
		}
		inner.WriteString(chunk)
	}
	return encodeTLV(IDMerchantAccountInformation, inner.String())
}

// encodeAdditionalDataField encodes tag "62" from its sub-fields.
func encodeAdditionalDataField(adf AdditionalDataFieldTemplate) (string, error) {
	chunk, err := encodeTLV(ADFReferenceLabel, adf.ReferenceLabel)
	if err != nil {
		return "", err
	}
	return encodeTLV(IDAdditionalDataFieldTemplate, chunk)
}
