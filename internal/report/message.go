package report

import (
	"net/url"
	"strings"
	"unicode"
)

// ChatLink builds a WhatsApp click-to-chat link. Non-digits are stripped from
// phone; the number is otherwise used as entered.
func ChatLink(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// AbsenceMessage is the nudge sent to a parent.
func AbsenceMessage(name, date string) string {
	return "Hello, " + name + " was absent on " + date + "."
}

// RenewalMessage is sent to the developer to renew the subscription.
const RenewalMessage = "Hi, I want to renew my Grower App subscription."
