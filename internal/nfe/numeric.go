package nfe

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ToNumber converte valores vindos do XML em decimal exato.
// Nunca falha: tudo que não dá pra interpretar vira zero.
func ToNumber(v any) decimal.Decimal {
	switch t := v.(type) {
	case decimal.Decimal:
		return t
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero
		}
		return *t
	case int:
		return decimal.NewFromInt(int64(t))
	case int8:
		return decimal.NewFromInt(int64(t))
	case int16:
		return decimal.NewFromInt(int64(t))
	case int32:
		return decimal.NewFromInt32(t)
	case int64:
		return decimal.NewFromInt(t)
	case uint:
		return decimal.NewFromUint64(uint64(t))
	case uint8:
		return decimal.NewFromUint64(uint64(t))
	case uint16:
		return decimal.NewFromUint64(uint64(t))
	case uint32:
		return decimal.NewFromUint64(uint64(t))
	case uint64:
		return decimal.NewFromUint64(t)
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case string:
		return numberFromString(t)
	default:
		return decimal.Zero
	}
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// numberFromString remove ruído (moeda, espaços, sinais) e resolve os
// separadores. "1.234,56" e "1,234.56" viram 1234.56; com vírgula só,
// a primeira vírgula é a casa decimal.
func numberFromString(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	clean := b.String()

	lastDot := strings.LastIndexByte(clean, '.')
	lastComma := strings.LastIndexByte(clean, ',')

	switch {
	case lastDot >= 0 && lastComma > lastDot:
		// formato brasileiro com milhar: 1.234,56
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case lastComma >= 0 && lastDot > lastComma:
		// formato americano com milhar: 1,234.56
		clean = strings.ReplaceAll(clean, ",", "")
	case lastComma >= 0:
		clean = strings.Replace(clean, ",", ".", 1)
	case strings.Count(clean, ".") > 1:
		// 1.234.567 – só separador de milhar
		clean = strings.ReplaceAll(clean, ".", "")
	}

	clean = leadingDecimal(clean)
	if clean == "" || clean == "." {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// leadingDecimal corta no primeiro caractere que invalidaria o número
// (segundo ponto ou vírgula remanescente).
func leadingDecimal(s string) string {
	seenDot := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.':
			if seenDot {
				return s[:i]
			}
			seenDot = true
		case ',':
			return s[:i]
		}
	}
	return s
}
