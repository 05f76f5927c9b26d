package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSKU(t *testing.T) {
	at := time.UnixMilli(1718000123456)
	brand := "Coca-Cola"
	blank := "  "

	tests := []struct {
		name    string
		brand   *string
		product string
		want    string
	}{
		{name: "branded", brand: &brand, product: "Coke 1.5L", want: "COC-COKE-123456"},
		{name: "unbranded", brand: nil, product: "bigas", want: "UNB-BIGA-123456"},
		{name: "blank brand is unbranded", brand: &blank, product: "itlog", want: "UNB-ITLO-123456"},
		{name: "no usable characters", brand: nil, product: "--", want: "UNB-XXXX-123456"},
		{name: "non-ascii letters count once", brand: nil, product: "Piña colada", want: "UNB-PIÑA-123456"},
		{name: "non-ascii brand", brand: strPtr("Ñora"), product: "sardinas", want: "ÑOR-SARD-123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSKU(tt.brand, tt.product, at))
		})
	}
}

func strPtr(s string) *string { return &s }
