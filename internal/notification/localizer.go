package notification

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgDefaultLabel          = "label.default"
	msgUpcomingTitle         = "upcoming.title"
	msgUpcomingBody          = "upcoming.body"
	msgRingingBody           = "ringing.body"
	msgSnoozedTitle          = "snoozed.title"
	msgSnoozedBody           = "snoozed.body"
	msgMissedTitle           = "missed.title"
	msgMissedBody            = "missed.body"
	msgActionSnooze          = "action.snooze"
	msgActionStop            = "action.stop"
	msgActionCompleteMission = "action.complete_mission"
	msgActionDismiss         = "action.dismiss"
)

var translations = map[language.Tag]map[string]string{
	language.English: {
		msgDefaultLabel:          "Alarm",
		msgUpcomingTitle:         "Upcoming alarm",
		msgUpcomingBody:          "%s at %s",
		msgRingingBody:           "Set for %s",
		msgSnoozedTitle:          "Snoozed",
		msgSnoozedBody:           "%s rings again at %s",
		msgMissedTitle:           "Missed alarm",
		msgMissedBody:            "%s at %s was not answered",
		msgActionSnooze:          "Snooze",
		msgActionStop:            "Stop",
		msgActionCompleteMission: "Complete mission",
		msgActionDismiss:         "Dismiss",
	},
	language.Russian: {
		msgDefaultLabel:          "Будильник",
		msgUpcomingTitle:         "Скоро будильник",
		msgUpcomingBody:          "%s в %s",
		msgRingingBody:           "Установлен на %s",
		msgSnoozedTitle:          "Отложено",
		msgSnoozedBody:           "%s зазвонит снова в %s",
		msgMissedTitle:           "Пропущенный будильник",
		msgMissedBody:            "%s в %s остался без ответа",
		msgActionSnooze:          "Отложить",
		msgActionStop:            "Выключить",
		msgActionCompleteMission: "Выполнить задание",
		msgActionDismiss:         "Закрыть",
	},
}

var supported = []language.Tag{language.English, language.Russian}

// Localizer resolves notification texts for one locale.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer picks the best supported language for locale, English by default.
func NewLocalizer(locale string) *Localizer {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))

	for tag, messages := range translations {
		for key, text := range messages {
			// SetString only fails for malformed messages; the table above is static.
			_ = builder.SetString(tag, key, text)
		}
	}

	tag := language.English

	if requested, err := language.Parse(locale); err == nil {
		_, index, confidence := language.NewMatcher(supported).Match(requested)
		if confidence != language.No {
			tag = supported[index]
		}
	}

	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

// Language returns the resolved language.
func (l *Localizer) Language() language.Tag {
	return l.tag
}

// Text formats the message for key.
func (l *Localizer) Text(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}
