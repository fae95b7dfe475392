package certificate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayDateLayout is used for issued and valid-until dates.
const DisplayDateLayout = "January 2, 2006"

// FormatNumber renders a certificate number such as CERT-2026-00042.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("CERT-%d-%05d", year, seq)
}

// FormatAmount renders d with thousands grouping and two decimals, prefixed by currency.
func FormatAmount(currency string, d decimal.Decimal) string {
	grouped := groupDecimal(d)
	if currency == "" {
		return grouped
	}
	return currency + " " + grouped
}

// FormatArea renders a lot area in square metres.
func FormatArea(d decimal.Decimal) string {
	return groupDecimal(d) + " sq m"
}

func groupDecimal(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return d.StringFixed(2)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + message.NewPrinter(language.English).Sprintf("%d", n) + "." + frac
}

// TitleName normalises an applicant name for display: "JANE dela cruz" → "Jane Dela Cruz".
func TitleName(name string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}

// FormatDate renders t in the certificate date layout.
func FormatDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}
