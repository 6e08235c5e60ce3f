package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPolicy_Normalize(t *testing.T) {
	p := CanonicalPolicy{CountryCode: "212", SubscriberDigits: 9}

	tests := []struct {
		name string
		raw  string
		want string
		err  error
	}{
		{name: "leading zero", raw: "0655000000", want: "212655000000"},
		{name: "formatted", raw: "06 92-15.09 52", want: "212692150952"},
		{name: "international prefix", raw: "+212 655 000 000", want: "212655000000"},
		{name: "bare subscriber", raw: "655000000", want: "212655000000"},
		{name: "empty", raw: "", err: ErrEmptyAddress},
		{name: "no digits", raw: "n/a", err: ErrEmptyAddress},
		{name: "too short", raw: "06550000", err: ErrInvalidAddressLength},
		{name: "too long", raw: "065500000012", err: ErrInvalidAddressLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Normalize(tt.raw)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, p.TotalLength())
		})
	}
}

func TestDisplayPolicy_Normalize(t *testing.T) {
	p := DisplayPolicy{CountryCode: "212"}

	got, err := p.Normalize("06 55 00 00 00")
	require.NoError(t, err)
	assert.Equal(t, "+212655000000", got)

	got, err = p.Normalize("+33 6 12")
	require.NoError(t, err)
	assert.Equal(t, "+33612", got, "display policy does not enforce length")

	_, err = p.Normalize("  ")
	assert.ErrorIs(t, err, ErrEmptyAddress)
}
