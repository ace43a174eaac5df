package models

type PaymentMethod string

const (
	PaymentVodafone     PaymentMethod = "vodafone"
	PaymentOrange       PaymentMethod = "orange"
	PaymentEtisalat     PaymentMethod = "etisalat"
	PaymentBankTransfer PaymentMethod = "bank-transfer"
	PaymentInstaPay     PaymentMethod = "instapay"
)

var paymentLabels = map[PaymentMethod]string{
	PaymentVodafone:     "Vodafone Cash",
	PaymentOrange:       "Orange Money",
	PaymentEtisalat:     "Etisalat Cash",
	PaymentBankTransfer: "Bank transfer",
	PaymentInstaPay:     "InstaPay",
}

func (m PaymentMethod) Valid() bool {
	_, ok := paymentLabels[m]
	return ok
}

// IsWallet reports whether the reference must be a mobile wallet number.
func (m PaymentMethod) IsWallet() bool {
	return m == PaymentVodafone || m == PaymentOrange || m == PaymentEtisalat
}

// IsAlias reports whether the reference is a payment-app handle rather than a number.
func (m PaymentMethod) IsAlias() bool {
	return m == PaymentInstaPay
}

func (m PaymentMethod) Label() string {
	if label, ok := paymentLabels[m]; ok {
		return label
	}
	return string(m)
}

// ReferenceLabel is the name of the reference field for this method.
func (m PaymentMethod) ReferenceLabel() string {
	switch {
	case m.IsAlias():
		return "InstaPay handle"
	case m == PaymentBankTransfer:
		return "Transfer reference"
	default:
		return "Wallet number"
	}
}
