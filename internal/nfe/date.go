package nfe

import (
	"strconv"
	"strings"
	"time"
)

const isoDateLayout = "2006-01-02"

// now é variável pra os testes poderem congelar o relógio.
var now = time.Now

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ToISODate normaliza as datas que aparecem nas NF-e (dhEmi com hora,
// DD/MM/YYYY de emissores antigos, YYYY-MM-DD puro) para YYYY-MM-DD.
// Qualquer coisa ilegível vira a data de hoje.
func ToISODate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return today()
	}

	switch {
	case strings.Contains(s, "T"):
		return fromTimestamp(s)
	case strings.Contains(s, "/"):
		return fromBrazilianDate(s)
	default:
		for _, layout := range []string{isoDateLayout, "2006-1-2"} {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t.Format(isoDateLayout)
			}
		}
		return today()
	}
}

func today() string {
	return now().Format(isoDateLayout)
}

// fromTimestamp mantém a data como foi escrita, sem converter o fuso.
func fromTimestamp(s string) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDateLayout)
		}
	}
	return today()
}

// fromBrazilianDate interpreta DD/MM/YYYY. Segmentos ausentes viram
// dia 1, mês 1, ano 1970; estouros (31/02) seguem o calendário. Ano de
// 0 a 99 é 19xx.
func fromBrazilianDate(s string) string {
	parts := strings.Split(s, "/")
	values := []int{1, 1, 1970} // dia, mês, ano

	for i := 0; i < len(parts) && i < len(values); i++ {
		seg := strings.TrimSpace(parts[i])
		if i == 2 {
			// "15/03/2024 10:00" – ignora a hora
			if f := strings.Fields(seg); len(f) > 0 {
				seg = f[0]
			}
		}
		if seg == "" {
			continue
		}
		n, err := strconv.Atoi(seg)
		if err != nil {
			return today()
		}
		values[i] = n
	}

	if values[2] >= 0 && values[2] < 100 {
		values[2] += 1900
	}

	t := time.Date(values[2], time.Month(values[1]), values[0], 0, 0, 0, 0, time.Local)
	return t.Format(isoDateLayout)
}
