package brcode

import (
	"net/url"
	"strings"
)

// Validate casts a decoded Fields mapping into a classified BRCode (C2).
// All field errors are accumulated; classification only runs once every
// field check has passed, per §4.2.
func Validate(f *Fields) (*BRCode, error) {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	if f.PayloadFormatIndicator != "01" {
		add("payload_format_indicator", `must equal "01"`)
	}

	var poi string
	if f.PointOfInitiationMethod != nil {
		poi = *f.PointOfInitiationMethod
		if poi != "12" {
			add("point_of_initiation_method", `must equal "12" when present`)
		}
	}

	mcc := f.MerchantCategoryCode
	if !f.HasMerchantCategoryCode {
		mcc = "0000"
	} else if len(mcc) != 4 || !isDigits(mcc) {
		add("merchant_category_code", "must be 4 digits")
	}

	if f.TransactionCurrency != "986" {
		add("transaction_currency", `must equal "986"`)
	}

	if f.CountryCode != "BR" {
		add("country_code", `must equal "BR"`)
	}

	if f.MerchantName == "" {
		add("merchant_name", "is required")
	}
	if f.MerchantCity == "" {
		add("merchant_city", "is required")
	}

	var postalCode string
	if f.PostalCode != nil {
		postalCode = *f.PostalCode
		if len(postalCode) != 8 {
			add("postal_code", "must be 8 characters when present")
		}
	}

	var amount string
	if f.TransactionAmount != nil {
		amount = *f.TransactionAmount
	}

	if !f.HasAdditionalData {
		add("additional_data_field_template.reference_label", "is required")
	} else if l := len(f.AdditionalData.ReferenceLabel); l < 1 || l > 25 {
		add("additional_data_field_template.reference_label", "must be 1..25 characters")
	}

	if !f.HasMerchantAccountInfo {
		add("merchant_account_information", "is required")
	}
	mai := f.MerchantAccountInformation

	switch mai.GUI {
	case GUIPixLower, GUIPixUpper:
	default:
		add("merchant_account_information.gui", `must be "br.gov.bcb.pix" or "BR.GOV.BCB.PIX"`)
	}

	hasChave := mai.Chave != ""
	hasURL := mai.URL != ""
	switch {
	case hasChave && hasURL:
		add("merchant_account_information", "exactly one of chave or url must be present")
	case !hasChave && !hasURL:
		add("merchant_account_information", "exactly one of chave or url must be present")
	case hasChave:
		if l := len(mai.Chave); l < 1 || l > 77 {
			add("merchant_account_information.chave", "must be 1..77 characters")
		}
		if l := len(mai.Chave) + len(mai.InfoAdicional); l > 99 {
			add("merchant_account_information", "chave + info_adicional must not exceed 99 characters")
		}
		if mai.InfoAdicional != "" {
			if l := len(mai.InfoAdicional); l > 72 {
				add("merchant_account_information.info_adicional", "must be at most 72 characters")
			}
		}
	case hasURL:
		if l := len(mai.URL); l < 1 || l > 77 {
			add("merchant_account_information.url", "must be 1..77 characters")
		}
		if mai.InfoAdicional != "" {
			add("merchant_account_information", "info_adicional is only allowed together with chave")
		}
		if err := validateURLPath(mai.URL); err != nil {
			add("merchant_account_information.url", err.Error())
		}
	}

	if len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	return &BRCode{
		PayloadFormatIndicator:     f.PayloadFormatIndicator,
		PointOfInitiationMethod:    poi,
		MerchantAccountInformation: mai,
		MerchantCategoryCode:       mcc,
		TransactionCurrency:        f.TransactionCurrency,
		TransactionAmount:          amount,
		CountryCode:                f.CountryCode,
		MerchantName:               f.MerchantName,
		MerchantCity:               f.MerchantCity,
		PostalCode:                 postalCode,
		AdditionalData:             f.AdditionalData,
		CRC:                        f.CRC,
		Type:                       classify(mai),
	}, nil
}

// classify derives the BRCode's Type from its merchant account information,
// applied only after all field validation succeeds, per §4.2.
func classify(mai MerchantAccountInformation) CodeType {
	switch {
	case mai.Chave != "":
		return CodeTypeStatic
	case strings.HasSuffix(strings.ToLower(mai.URL), "/cobv"):
		return CodeTypeDynamicWithDueDate
	default:
		return CodeTypeDynamicImmediate
	}
}

// validateURLPath requires that "https://" + url parses with a path
// containing at least two non-root segments, per §4.2.
func validateURLPath(rawURL string) error {
	u, err := url.Parse("https://" + rawURL)
	if err != nil {
		return &FieldError{Field: "url", Message: "does not parse as a URL"}
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	n := 0
	for _, s := range segments {
		if s != "" {
			n++
		}
	}
	if n < 2 {
		return &FieldError{Field: "url", Message: "path must contain at least two segments"}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
