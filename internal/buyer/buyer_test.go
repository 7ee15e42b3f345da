package buyer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodetes-party/rodetes/internal/apperr"
)

func TestValidateNormalizes(t *testing.T) {
	b, err := Validate(Buyer{Name: " Ana ", Surname: "Pérez", Email: "  Ana@Example.COM "}, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, Buyer{Name: "Ana", Surname: "Pérez", Email: "ana@example.com"}, b)
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	_, err := Validate(Buyer{Name: "", Surname: " ", Email: "not-an-email"}, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 4)
	assert.Contains(t, verr.Fields, "quantity")
}

func TestValidateEmailShapes(t *testing.T) {
	for _, email := range []string{"a@b", "a b@c.de", "@c.de", "a@@c.de", ""} {
		_, err := Validate(Buyer{Name: "A", Surname: "B", Email: email}, 1, nil)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, email)
	}
}

func TestDomainAllowList(t *testing.T) {
	allowed := []string{"@gmail.com", "rodetes.org"}
	cases := map[string]bool{
		"x@gmail.com":        true,
		"x@rodetes.org":      true,
		"x@mail.rodetes.org": true,
		"x@notgmail.com":     false,
		"x@yahoo.es":         false,
	}
	for email, want := range cases {
		assert.Equal(t, want, DomainAllowed(email, allowed), email)
	}
	assert.True(t, DomainAllowed("x@anything.io", nil))

	_, err := Validate(Buyer{Name: "A", Surname: "B", Email: "x@yahoo.es"}, 1, allowed)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "domain is not accepted", verr.Fields["email"])
}

func TestValidateCapsQuantity(t *testing.T) {
	b := Buyer{Name: "Ana", Surname: "Drag", Email: "ana@x.com"}
	_, err := Validate(b, MaxQuantity, nil)
	require.NoError(t, err)

	_, err = Validate(b, MaxQuantity+1, nil)
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields["quantity"], "at most")
}
