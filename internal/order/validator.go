package order

import (
	"regexp"

	"ms-storefront/internal/models"
)

const (
	PhoneRuleStrict  = "strict"
	PhoneRuleLenient = "lenient"
)

var (
	// Egyptian mobile prefixes 010, 011, 012.
	strictPhonePattern  = regexp.MustCompile(`^01[0-2][0-9]{8}$`)
	lenientPhonePattern = regexp.MustCompile(`^01[0-9]{9}$`)
	walletPattern       = regexp.MustCompile(`^01[0-9]{9}$`)
)

type Validator struct {
	phone *regexp.Regexp
}

// NewValidator returns a validator for the named phone rule; unknown names fall back to strict.
func NewValidator(phoneRule string) *Validator {
	if phoneRule == PhoneRuleLenient {
		return &Validator{phone: lenientPhonePattern}
	}
	return &Validator{phone: strictPhonePattern}
}

// Validate checks the rules in a fixed order and reports the first failure.
func (v *Validator) Validate(o models.Order) error {
	if o.Platform == "" {
		return &ValidationError{Reason: ReasonMissingPlatform, Field: "platform"}
	}
	if o.AccountType == "" {
		return &ValidationError{Reason: ReasonMissingAccountType, Field: "accountType"}
	}
	if !v.phone.MatchString(o.CustomerPhone) {
		return &ValidationError{Reason: ReasonInvalidPhone, Field: "customerPhone"}
	}
	if o.Price <= 0 {
		return &ValidationError{Reason: ReasonInvalidPrice, Field: "price"}
	}
	if !o.PaymentMethod.Valid() {
		return &ValidationError{Reason: ReasonInvalidPaymentMethod, Field: "paymentMethod"}
	}
	if o.PaymentReference == "" {
		return &ValidationError{Reason: ReasonMissingPaymentReference, Field: "paymentReference"}
	}
	if o.PaymentMethod.IsWallet() && !walletPattern.MatchString(o.PaymentReference) {
		return &ValidationError{Reason: ReasonInvalidPaymentReference, Field: "paymentReference"}
	}
	return nil
}

func (v *Validator) IsValid(o models.Order) bool {
	return v.Validate(o) == nil
}
