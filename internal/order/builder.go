package order

import (
	"strings"
	"time"

	"ms-storefront/internal/models"
	"ms-storefront/internal/utils"
)

// PriceLookup is the part of the catalog the builder needs.
type PriceLookup interface {
	Price(platform models.Platform, accountType models.AccountType) int
	GameName() string
}

// Builder turns a submitted form into a pending Order. It has no side effects.
type Builder struct {
	Catalog  PriceLookup
	Now      func() time.Time
	RandIntn func(int) int
	Location *time.Location
}

func NewBuilder(catalog PriceLookup) *Builder {
	return &Builder{
		Catalog:  catalog,
		Now:      time.Now,
		RandIntn: utils.CryptoIntn,
		Location: utils.CairoLocation(),
	}
}

func (b *Builder) BuildOrder(form models.OrderForm) models.Order {
	now := b.Now().UTC().Truncate(time.Millisecond)

	platform := models.Platform(strings.ToLower(strings.TrimSpace(form.Platform)))
	accountType := models.AccountType(strings.ToLower(strings.TrimSpace(form.AccountType)))

	return models.Order{
		OrderID:          utils.GenerateOrderID(now, b.RandIntn),
		Game:             b.Catalog.GameName(),
		Platform:         platform,
		AccountType:      accountType,
		Price:            b.Catalog.Price(platform, accountType),
		CustomerPhone:    strings.TrimSpace(form.CustomerPhone),
		PaymentMethod:    models.PaymentMethod(strings.ToLower(strings.TrimSpace(form.PaymentMethod))),
		PaymentReference: strings.TrimSpace(form.PaymentReference),
		CustomerEmail:    strings.TrimSpace(form.CustomerEmail),
		CustomerAddress:  strings.TrimSpace(form.CustomerAddress),
		Notes:            strings.TrimSpace(form.Notes),
		Status:           models.StatusPending,
		OrderTime:        utils.DisplayTime(now, b.Location),
		CreatedAt:        now,
		LastUpdated:      now,
	}
}
