package service

import (
	"strings"
	"unicode/utf8"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// Maximum field lengths accepted by the gateway for a billing address.
const (
	maxNameLen    = 50
	maxCompanyLen = 50
	maxAddressLen = 60
	maxCityLen    = 40
	maxStateLen   = 40
	maxZipLen     = 20
	maxCountryLen = 60
	maxPhoneLen   = 25
)

// MaskChar replaces redacted card digits.
const MaskChar = "X"

// prefixRange is an inclusive range of equal-length numeric prefixes.
// A literal prefix has lo == hi.
type prefixRange struct {
	lo, hi string
}

type cardNetwork struct {
	Name     string
	Acronym  string
	prefixes []prefixRange
}

func literal(p string) prefixRange { return prefixRange{p, p} }

func span(lo, hi string) prefixRange { return prefixRange{lo, hi} }

func (r prefixRange) length() int { return len(r.lo) }

func (r prefixRange) matches(s string) bool {
	if len(s) < len(r.lo) {
		return false
	}
	p := s[:len(r.lo)]
	return p >= r.lo && p <= r.hi
}

// Table order breaks ties between equally long matches.
var cardNetworks = []cardNetwork{
	{Name: "Visa", Acronym: "VISA", prefixes: []prefixRange{literal("4")}},
	{Name: "MasterCard", Acronym: "MC", prefixes: []prefixRange{span("51", "55"), span("2221", "2720")}},
	{Name: "American Express", Acronym: "AMEX", prefixes: []prefixRange{literal("34"), literal("37")}},
	{Name: "Discover", Acronym: "DISC", prefixes: []prefixRange{literal("6011"), literal("65"), span("622126", "622925"), span("644", "649")}},
	{Name: "Diners Club", Acronym: "DC", prefixes: []prefixRange{span("300", "305"), literal("309"), literal("36"), span("38", "39")}},
	{Name: "JCB", Acronym: "JCB", prefixes: []prefixRange{span("3528", "3589")}},
	{Name: "China UnionPay", Acronym: "CUP", prefixes: []prefixRange{literal("62")}},
	{Name: "Maestro", Acronym: "MAESTRO", prefixes: []prefixRange{literal("50"), span("56", "58"), literal("6304"), literal("6759"), literal("676770"), literal("676774")}},
}

// lookupCardNetwork returns the network whose matching prefix is longest.
func lookupCardNetwork(number string) *cardNetwork {
	number = digitsOnly(number)
	var best *cardNetwork
	bestLen := 0
	for i := range cardNetworks {
		for _, p := range cardNetworks[i].prefixes {
			if p.length() > bestLen && p.matches(number) {
				best, bestLen = &cardNetworks[i], p.length()
			}
		}
	}
	return best
}

// ClassifyCardNetwork returns the card network name for number, or "" when
// no prefix matches.
func ClassifyCardNetwork(number string) string {
	if n := lookupCardNetwork(number); n != nil {
		return n.Name
	}
	return ""
}

// CardNetworkAcronym returns the short network label, or "" when unknown.
func CardNetworkAcronym(number string) string {
	if n := lookupCardNetwork(number); n != nil {
		return n.Acronym
	}
	return ""
}

// NormalizeAddress trims every present field to its gateway limit. Address
// lines one and two are joined before trimming.
func NormalizeAddress(b *models.BillingInfo) models.GatewayAddress {
	if b == nil {
		return models.GatewayAddress{}
	}
	line := strings.TrimSpace(b.Address1)
	if l2 := strings.TrimSpace(b.Address2); l2 != "" {
		if line != "" {
			line += " "
		}
		line += l2
	}
	return models.GatewayAddress{
		FirstName:   capField(b.FirstName, maxNameLen),
		LastName:    capField(b.LastName, maxNameLen),
		Company:     capField(b.Company, maxCompanyLen),
		Address:     capField(line, maxAddressLen),
		City:        capField(b.City, maxCityLen),
		State:       capField(b.State, maxStateLen),
		Zip:         capField(b.PostalCode, maxZipLen),
		Country:     capField(b.Country, maxCountryLen),
		PhoneNumber: capField(b.Phone, maxPhoneLen),
	}
}

// capField trims whitespace and cuts s to at most limit runes.
func capField(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit]))
}

// RedactCard masks all but the last four digits of the card number and the
// whole card code. Numbers of four digits or fewer are left as is.
func RedactCard(c models.CardInfo) models.CardInfo {
	out := c
	if n := len(c.CardNumber); n > 4 {
		out.CardNumber = strings.Repeat(MaskChar, n-4) + c.CardNumber[n-4:]
	}
	out.CardCode = strings.Repeat(MaskChar, len(c.CardCode))
	return out
}

// LastFour returns the trailing four digits of a card number.
func LastFour(number string) string {
	number = digitsOnly(number)
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

// ShortAddress is the first address line and the city.
func ShortAddress(a models.GatewayAddress) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{a.Address, a.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FullAddress is the complete single-line address text.
func FullAddress(a models.GatewayAddress) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Address, a.City, a.State, a.Zip, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// StoredPaymentLabel builds the display label of a stored card, e.g.
// "VISA-1111 1 Main St, Springfield".
func StoredPaymentLabel(cardNumber string, addr models.GatewayAddress) string {
	acronym := CardNetworkAcronym(cardNumber)
	if acronym == "" {
		acronym = "CARD"
	}
	label := acronym + "-" + LastFour(cardNumber)
	if short := ShortAddress(addr); short != "" {
		label += " " + short
	}
	return label
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
