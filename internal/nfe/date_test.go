package nfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToISODate(t *testing.T) {
	freezeClock(t)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"timestamp sem fuso", "2024-03-15T10:00:00", "2024-03-15"},
		{"timestamp com fuso", "2024-03-15T23:30:00-03:00", "2024-03-15"},
		{"timestamp UTC", "2024-03-15T01:00:00Z", "2024-03-15"},
		{"timestamp sem segundos", "2024-03-15T10:00", "2024-03-15"},
		{"brasileiro", "15/03/2024", "2024-03-15"},
		{"brasileiro com hora", "15/03/2024 10:00", "2024-03-15"},
		{"brasileiro sem ano", "15/03", "1970-03-15"},
		{"brasileiro só dia", "15/", "1970-01-15"},
		{"brasileiro estourado", "31/02/2024", "2024-03-02"},
		{"brasileiro ano com dois dígitos", "15/03/24", "1924-03-15"},
		{"brasileiro ano zero", "01/01/00", "1900-01-01"},
		// lido como dia 2024 de março de 1915
		{"ano na frente", "2024/03/15", "1920-09-13"},
		{"iso", "2024-03-15", "2024-03-15"},
		{"iso sem zero", "2024-3-5", "2024-03-05"},
		{"vazio", "", "2026-10-15"},
		{"espaços", "   ", "2026-10-15"},
		{"lixo", "ontem", "2026-10-15"},
		{"timestamp inválido", "2024-13-45T99:99:99", "2026-10-15"},
		{"brasileiro inválido", "aa/bb/cccc", "2026-10-15"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToISODate(tc.in))
		})
	}
}
