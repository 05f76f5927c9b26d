package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// UnbrandedSKUPrefix is used in place of a brand code for unbranded items
const UnbrandedSKUPrefix = "UNB"

// GenerateSKU derives a traceability code from brand, product and time.
// SKUs are not unique: two items sold in the same millisecond collide.
func GenerateSKU(brandName *string, productName string, at time.Time) string {
	prefix := UnbrandedSKUPrefix
	if brandName != nil && strings.TrimSpace(*brandName) != "" {
		prefix = skuCode(*brandName, 3)
	}
	suffix := at.UnixMilli() % 1000000
	return fmt.Sprintf("%s-%s-%06d", prefix, skuCode(productName, 4), suffix)
}

// skuCode keeps the first n letters or digits of s, upper-cased
func skuCode(s string, n int) string {
	var b strings.Builder
	count := 0
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			count++
			if count >= n {
				break
			}
		}
	}
	if count == 0 {
		return strings.Repeat("X", n)
	}
	return b.String()
}
