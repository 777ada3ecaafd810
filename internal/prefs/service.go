package prefs

import (
	"context"
	"log/slog"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/erazemk/sneakerdex/internal/model"
)

// Storage keys.
const (
	KeySizeUnit = "pref_size_unit"
	KeyCurrency = "pref_currency"
	KeyLanguage = "pref_language"
)

// Defaults.
var (
	DefaultSizeUnit = model.SizeUnitEU
	DefaultCurrency = currency.EUR
	DefaultLanguage = language.English
)

// Service groups the collector preferences.
type Service struct {
	SizeUnit *Preference[model.SizeUnit]
	Currency *Preference[currency.Unit]
	Language *Preference[language.Tag]
}

// NewService creates the preferences backed by kv.
func NewService(kv Store, logger *slog.Logger) *Service {
	return &Service{
		SizeUnit: New(kv, KeySizeUnit, DefaultSizeUnit,
			func(u model.SizeUnit) string { return string(u) },
			model.ParseSizeUnit, logger),
		Currency: New(kv, KeyCurrency, DefaultCurrency,
			currency.Unit.String,
			currency.ParseISO, logger),
		Language: New(kv, KeyLanguage, DefaultLanguage,
			language.Tag.String,
			language.Parse, logger),
	}
}

// Init loads every preference.
func (s *Service) Init(ctx context.Context) {
	s.SizeUnit.Init(ctx)
	s.Currency.Init(ctx)
	s.Language.Init(ctx)
}

// Snapshot is the wire form of the preferences.
type Snapshot struct {
	SizeUnit string `json:"size_unit"`
	Currency string `json:"currency"`
	Language string `json:"language"`
}

// Snapshot returns the current values.
func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		SizeUnit: string(s.SizeUnit.Get()),
		Currency: s.Currency.Get().String(),
		Language: s.Language.Get().String(),
	}
}

// FormatMoney renders amount in the preferred currency, with number
// formatting for the preferred language.
func (s *Service) FormatMoney(amount float64) string {
	return FormatMoney(amount, s.Currency.Get(), s.Language.Get())
}

// FormatMoney renders amount in cur using the conventions of tag.
func FormatMoney(amount float64, cur currency.Unit, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(cur.Amount(amount)))
}
