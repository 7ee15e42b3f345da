// Package buyer validates the contact details collected at checkout.  Ticket
// and merch purchases share the same rules.
package buyer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rodetes-party/rodetes/internal/apperr"
)

// MaxQuantity bounds a single ticket or merch order.
const MaxQuantity = 100

// emailPattern is deliberately loose: something@something.tld, no spaces.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Buyer is the person a ticket or merch order is issued to.
type Buyer struct {
	Name    string
	Surname string
	Email   string
}

// NormalizeEmail trims and lowercases an address.  Tickets are looked up by
// the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims every field and lowercases the email.
func (b Buyer) Normalize() Buyer {
	return Buyer{
		Name:    strings.TrimSpace(b.Name),
		Surname: strings.TrimSpace(b.Surname),
		Email:   NormalizeEmail(b.Email),
	}
}

// Validate checks b (normalized first) plus the requested quantity and
// returns the normalized buyer.  allowed is a list of email domains; an
// address passes when its domain equals an entry or is a subdomain of it.
// An empty list accepts any domain.
func Validate(b Buyer, quantity int, allowed []string) (Buyer, error) {
	b = b.Normalize()
	verr := &apperr.ValidationError{}
	if b.Name == "" {
		verr.Add("name", "is required")
	}
	if b.Surname == "" {
		verr.Add("surname", "is required")
	}
	switch {
	case !emailPattern.MatchString(b.Email):
		verr.Add("email", "is not a valid address")
	case !DomainAllowed(b.Email, allowed):
		verr.Add("email", "domain is not accepted")
	}
	switch {
	case quantity < 1:
		verr.Add("quantity", "must be at least 1")
	case quantity > MaxQuantity:
		verr.Add("quantity", fmt.Sprintf("must be at most %d", MaxQuantity))
	}
	return b, verr.OrNil()
}

// DomainAllowed applies the allow-list to an already normalized address.
func DomainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range allowed {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d == "" {
			continue
		}
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
