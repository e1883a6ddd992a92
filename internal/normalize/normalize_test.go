package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", " \t\n ", ""},
		{"plain", "Dior", "dior"},
		{"padded upper", "  DIOR  ", "dior"},
		{"inner runs", "Maison   Francis\tKurkdjian", "maison francis kurkdjian"},
		{"non-breaking space", "Tom\u00a0Ford", "tom ford"},
		{"composed accent", "Fran\u00e7ois Demachy", "fran\u00e7ois demachy"},
		{"decomposed accent kept", "Franc\u0327ois Demachy", "franc\u0327ois demachy"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Key(tc.in))
		})
	}
}

func TestKeyKeepsDecomposedBytes(t *testing.T) {
	got := Key("Cafe\u0301  Noir")
	assert.Equal(t, []byte("cafe\xcc\x81 noir"), []byte(got))
	assert.NotEqual(t, Key("Caf\u00e9 Noir"), got)
}

func TestComposedKey(t *testing.T) {
	assert.Equal(t, "caf\u00e9 noir", ComposedKey("Cafe\u0301  Noir"))
	assert.Equal(t, ComposedKey("Caf\u00e9 Noir"), ComposedKey("Cafe\u0301 Noir"))
	assert.Equal(t, "", ComposedKey("  "))
}

func TestFor(t *testing.T) {
	assert.Equal(t, "cafe\u0301", For(false)("Cafe\u0301"))
	assert.Equal(t, "caf\u00e9", For(true)("Cafe\u0301"))
}

func TestKeyIsIdempotent(t *testing.T) {
	for _, in := range []string{"  Eau  de Parfum ", "SAUVAGE", "Acqua di Gi\u00f2", "Cafe\u0301"} {
		once := Key(in)
		assert.Equal(t, once, Key(once))
		composed := ComposedKey(in)
		assert.Equal(t, composed, ComposedKey(composed))
	}
}

func TestIsEmptyKey(t *testing.T) {
	assert.True(t, IsEmptyKey(""))
	assert.True(t, IsEmptyKey("   "))
	assert.False(t, IsEmptyKey(" x "))
}
