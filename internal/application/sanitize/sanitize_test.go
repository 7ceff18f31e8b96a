package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  plain  ", "plain"},
		{"<b>Pago</b> de marzo", "Pago de marzo"},
		{`<script>alert(1)</script>nota`, "nota"},
		{"Pérez & Asociados", "Pérez & Asociados"},
		{`<a href="x">ver</a>`, "ver"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Text(tt.in), tt.in)
	}
}

func TestPtr(t *testing.T) {
	assert.Nil(t, Ptr(nil))
	in := "<i>x</i>"
	assert.Equal(t, "x", *Ptr(&in))
}
