package chat

import (
	"cherrypick/client/internal/localization"
	"log"
)

// Alerter surfaces a user-facing error. Both arguments are localization keys.
type Alerter interface {
	Alert(titleKey, messageKey string)
}

// LocalizedAlerter resolves keys through a Localizer before showing them.
type LocalizedAlerter struct {
	Localizer *localization.Localizer
	Lang      string
	// Show displays the resolved text; nil logs it.
	Show func(title, message string)
}

func NewLocalizedAlerter(l *localization.Localizer, lang string, show func(title, message string)) *LocalizedAlerter {
	return &LocalizedAlerter{Localizer: l, Lang: lang, Show: show}
}

func (a *LocalizedAlerter) Alert(titleKey, messageKey string) {
	title := a.Localizer.GetString(a.Lang, titleKey)
	message := a.Localizer.GetString(a.Lang, messageKey)
	if a.Show == nil {
		log.Printf("ALERT: %s: %s", title, message)
		return
	}
	a.Show(title, message)
}
