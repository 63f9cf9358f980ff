package dental

import (
	"regexp"
	"strings"
)

// TimeSlots is the fixed list of bookable times of day, in display order.
var TimeSlots = []string{
	"9:00 AM",
	"10:00 AM",
	"11:00 AM",
	"1:00 PM",
	"2:00 PM",
	"3:00 PM",
	"4:00 PM",
}

// SlotIndex returns the position of t in TimeSlots, or -1.
func SlotIndex(t string) int {
	for i, s := range TimeSlots {
		if s == t {
			return i
		}
	}
	return -1
}

// ValidTimeSlot reports whether t is one of the enumerated slots.
func ValidTimeSlot(t string) bool {
	return SlotIndex(t) >= 0
}

// Procedure is an entry of the clinic price list. Prices are whole pesos.
type Procedure struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// PriceList is the static procedure catalog.
var PriceList = []Procedure{
	{Name: "Consultation", Price: 500},
	{Name: "Oral Prophylaxis", Price: 1500},
	{Name: "Tooth Extraction", Price: 1000},
	{Name: "Tooth Filling", Price: 1200},
	{Name: "Root Canal Treatment", Price: 8000},
	{Name: "Teeth Whitening", Price: 5000},
	{Name: "Braces Adjustment", Price: 1000},
	{Name: "Dentures", Price: 10000},
	{Name: "Dental X-Ray", Price: 800},
}

// PriceFor looks up the list price of a procedure.
func PriceFor(procedure string) (int64, bool) {
	for _, p := range PriceList {
		if strings.EqualFold(p.Name, strings.TrimSpace(procedure)) {
			return p.Price, true
		}
	}
	return 0, false
}

// CanonicalProcedure returns the catalog spelling of a procedure name.
func CanonicalProcedure(procedure string) (string, bool) {
	for _, p := range PriceList {
		if strings.EqualFold(p.Name, strings.TrimSpace(procedure)) {
			return p.Name, true
		}
	}
	return "", false
}

// PhonePrefix is the leading digits of a local mobile number.
const PhonePrefix = "09"

// PhoneDigits is the length of a local mobile number.
const PhoneDigits = 11

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// ValidPhone accepts numbers that reduce to 11 digits starting with 09.
func ValidPhone(phone string) bool {
	digits := NormalizePhone(phone)
	return len(digits) == PhoneDigits && strings.HasPrefix(digits, PhonePrefix)
}

// EmailDomains lists the consumer mail providers accepted on booking forms.
var EmailDomains = []string{
	"gmail.com",
	"yahoo.com",
	"outlook.com",
	"hotmail.com",
	"icloud.com",
	"live.com",
	"ymail.com",
}

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@([A-Za-z0-9.\-]+)$`)

// ValidEmail accepts addresses on one of the permitted consumer domains.
func ValidEmail(email string) bool {
	m := emailPattern.FindStringSubmatch(strings.TrimSpace(email))
	if m == nil {
		return false
	}
	domain := strings.ToLower(m[1])
	for _, d := range EmailDomains {
		if domain == d {
			return true
		}
	}
	return false
}
