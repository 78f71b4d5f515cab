package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type phoneInput struct {
	Phone string `validate:"required,loosephone"`
}

type emailInput struct {
	Email string `validate:"required"`
}

func TestPhone(t *testing.T) {
	cases := map[string]bool{
		"+1 (555) 123-4567": true,
		"5551234567":        true,
		"+44 20 7946 0958":  true,
		"abc":               false,
		"12345":             false,
		"555-123-456x":      false,
		"++15551234567":     false,
		"":                  false,
	}
	for in, want := range cases {
		assert.Equal(t, want, Phone(in), in)
	}
}

func TestStruct_LoosePhoneTag(t *testing.T) {
	assert.NoError(t, Struct(phoneInput{Phone: "+15551234567"}))

	err := Struct(phoneInput{Phone: "abc"})
	assert.ErrorContains(t, err, "field 'Phone' failed 'loosephone'")
}

func TestStruct_Required(t *testing.T) {
	err := Struct(emailInput{})
	assert.ErrorContains(t, err, "field 'Email' failed 'required'")
}
