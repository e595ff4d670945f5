package brcode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// s1Static is the literal static-code scenario from the BR Code tag mapping
// examples: a PIX key, no transaction amount, reference label "***".
const s1Static = "00020126580014br.gov.bcb.pix0136123e4567-e12b-12d1-a456-4266554400005204000053039865802BR5913Fulano de Tal6008BRASILIA62070503***63041D3D"

func TestDecodeTo_S1_StaticDecode(t *testing.T) {
	code, err := DecodeTo(s1Static, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeTo() error: %v", err)
	}
	if code.Type != CodeTypeStatic {
		t.Errorf("Type = %q, want %q", code.Type, CodeTypeStatic)
	}
	want := "123e4567-e12b-12d1-a456-426655440000"
	if code.MerchantAccountInformation.Chave != want {
		t.Errorf("Chave = %q, want %q", code.MerchantAccountInformation.Chave, want)
	}
	if code.CRC != "1D3D" {
		t.Errorf("CRC = %q, want %q", code.CRC, "1D3D")
	}
	if code.AdditionalData.ReferenceLabel != "***" {
		t.Errorf("ReferenceLabel = %q, want %q", code.AdditionalData.ReferenceLabel, "***")
	}
}

func TestEncode_S1_RoundTrip(t *testing.T) {
	code, err := DecodeTo(s1Static, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeTo() error: %v", err)
	}
	raw, err := Encode(code)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	roundTripped, err := DecodeTo(raw, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeTo(Encode(code)) error: %v", err)
	}
	if diff := cmp.Diff(code, roundTripped); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTo_S2_DynamicImmediate(t *testing.T) {
	raw := buildDynamicPayload(t, "exemplodeurl.com.br/pix/v2/11111111-1111-1111-1111-111111111111", "0.01")
	code, err := DecodeTo(raw, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeTo() error: %v", err)
	}
	if code.Type != CodeTypeDynamicImmediate {
		t.Errorf("Type = %q, want %q", code.Type, CodeTypeDynamicImmediate)
	}
	if code.TransactionAmount != "0.01" {
		t.Errorf("TransactionAmount = %q, want %q", code.TransactionAmount, "0.01")
	}
}

func TestDecodeTo_S2b_DynamicWithDueDate(t *testing.T) {
	raw := buildDynamicPayload(t, "exemplodeurl.com.br/pix/v2/11111111-1111-1111-1111-111111111111/cobv", "0.01")
	code, err := DecodeTo(raw, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeTo() error: %v", err)
	}
	if code.Type != CodeTypeDynamicWithDueDate {
		t.Errorf("Type = %q, want %q", code.Type, CodeTypeDynamicWithDueDate)
	}
}

func TestDecode_S3_CRCFailure(t *testing.T) {
	tampered := s1Static[:len(s1Static)-1] + flipHexDigit(s1Static[len(s1Static)-1])
	_, err := Decode(tampered, DecodeOptions{})
	if !errors.Is(err, ErrInvalidCRC) {
		t.Fatalf("err = %v, want ErrInvalidCRC", err)
	}
}

func TestDecode_S4_UnknownTag_NonStrict(t *testing.T) {
	injected := injectUnknownTag(t, s1Static, "99", "AB")

	_, err := Decode(injected, DecodeOptions{StrictValidation: false})
	var unknownErr *UnknownKeyError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("err = %v, want *UnknownKeyError", err)
	}
	if unknownErr.Tag != "99" {
		t.Errorf("Tag = %q, want %q", unknownErr.Tag, "99")
	}

	fields, err := Decode(injected, DecodeOptions{StrictValidation: true})
	if err != nil {
		t.Fatalf("strict Decode() error: %v", err)
	}
	if fields.MerchantName != "Fulano de Tal" {
		t.Errorf("MerchantName = %q, want %q", fields.MerchantName, "Fulano de Tal")
	}
}

func TestValidate_MissingMerchantAccountInformation(t *testing.T) {
	f := &Fields{
		PayloadFormatIndicator: "01",
		TransactionCurrency:    "986",
		CountryCode:            "BR",
		MerchantName:           "Fulano de Tal",
		MerchantCity:           "BRASILIA",
		HasAdditionalData:      true,
		AdditionalData:         AdditionalDataFieldTemplate{ReferenceLabel: "***"},
		HasMerchantAccountInfo: false,
	}
	_, err := Validate(f)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	found := false
	for _, fe := range verr.Errors {
		if fe.Field == "merchant_account_information" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a merchant_account_information error, got %+v", verr.Errors)
	}
}

func TestValidate_ChaveAndURLBothPresent(t *testing.T) {
	f := validFieldsForTest()
	f.MerchantAccountInformation.URL = "exemplodeurl.com.br/pix/v2/abc"
	_, err := Validate(f)
	if err == nil {
		t.Fatal("expected error when both chave and url are present")
	}
}

func TestValidate_InfoAdicionalWithoutChave(t *testing.T) {
	f := validFieldsForTest()
	f.MerchantAccountInformation.Chave = ""
	f.MerchantAccountInformation.URL = "exemplodeurl.com.br/pix/v2/abc"
	f.MerchantAccountInformation.InfoAdicional = "nota"
	_, err := Validate(f)
	if err == nil {
		t.Fatal("expected error: info_adicional only valid alongside chave")
	}
}

// --- helpers -----------------------------------------------------------

func validFieldsForTest() *Fields {
	return &Fields{
		PayloadFormatIndicator: "01",
		MerchantAccountInformation: MerchantAccountInformation{
			GUI:   GUIPixLower,
			Chave: "123e4567-e12b-12d1-a456-426655440000",
		},
		HasMerchantAccountInfo: true,
		TransactionCurrency:    "986",
		CountryCode:            "BR",
		MerchantName:           "Fulano de Tal",
		MerchantCity:           "BRASILIA",
		HasAdditionalData:      true,
		AdditionalData:         AdditionalDataFieldTemplate{ReferenceLabel: "***"},
	}
}

// buildDynamicPayload builds and re-signs (re-checksums) a BR Code carrying
// a dynamic PSP url and a transaction amount, mirroring the S2 scenario.
func buildDynamicPayload(t *testing.T, pixURL, amount string) string {
	t.Helper()
	code := &BRCode{
		PayloadFormatIndicator:  "01",
		PointOfInitiationMethod: "12",
		MerchantAccountInformation: MerchantAccountInformation{
			GUI: GUIPixLower,
			URL: pixURL,
		},
		MerchantCategoryCode: "0000",
		TransactionCurrency:  "986",
		TransactionAmount:    amount,
		CountryCode:          "BR",
		MerchantName:         "Fulano de Tal",
		MerchantCity:         "BRASILIA",
		AdditionalData:       AdditionalDataFieldTemplate{ReferenceLabel: "***"},
	}
	raw, err := Encode(code)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return raw
}

// injectUnknownTag splices an extra TLV field with the given tag just before
// the CRC field, then recomputes the CRC over the modified payload.
func injectUnknownTag(t *testing.T, raw, tag, value string) string {
	t.Helper()
	const crcLen = 8 // "6304" + 4 hex digits
	body := raw[:len(raw)-crcLen]
	extra := mustEncodeTLV(tag, value)
	prefix := body + extra + "6304"
	crcVal := crc16CCITT([]byte(prefix))
	return prefix + crcString(crcVal)
}

// flipHexDigit returns a different hex digit than b, used to corrupt a CRC.
func flipHexDigit(b byte) string {
	if b == '0' {
		return "1"
	}
	return "0"
}
