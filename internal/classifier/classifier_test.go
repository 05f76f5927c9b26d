package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		brand    *string
		category string
	}{
		{name: "rice is staple", text: "rice", category: domain.CategoryStaple},
		{name: "local rice", text: "isang kilo bigas", category: domain.CategoryStaple},
		{name: "meals before transportation", text: "restaurant beside taxi stand", category: domain.CategoryMeals},
		{name: "hotel", text: "Seaside Hotel", category: domain.CategoryAccommodation},
		{name: "cooking before staple", text: "rice and cooking oil combo", category: domain.CategoryCooking},
		{name: "eggs", text: "1 dozen itlog", category: domain.CategoryFresh},
		{name: "noodles", text: "Lucky Me Pancit Canton", category: domain.CategoryFood},
		{name: "coke", text: "Coke 1.5L", category: domain.CategoryBeverage},
		{name: "whole word only", text: "Cinnamon roll", category: domain.CategoryOther},
		{name: "brand catalog fallback", text: "Chippy BBQ", brand: strPtr("Chippy"), category: domain.CategorySnacks},
		{name: "unknown product", text: "Unknown Product", category: DefaultCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text, tt.brand)
			assert.Equal(t, tt.category, got.Category)
		})
	}
}

func TestClassifyNeverInfersBrand(t *testing.T) {
	got := Classify("Ganador rice 5kg", nil)

	assert.True(t, got.IsUnbranded)
	assert.Equal(t, domain.CategoryStaple, got.Category)
	assert.Equal(t, []string{"Ganador", "Sinandomeng", "Jasmine"}, got.SuggestedBrands)
}

func TestClassifyBrandedHasNoSuggestions(t *testing.T) {
	got := Classify("Coke 1.5L", strPtr("Coca-Cola"))

	assert.False(t, got.IsUnbranded)
	assert.Empty(t, got.SuggestedBrands)
}

func TestClassifyBlankBrandIsUnbranded(t *testing.T) {
	got := Classify("Coke", strPtr("  "))
	assert.True(t, got.IsUnbranded)
	assert.Equal(t, []string{"Coca-Cola", "Pepsi", "RC Cola"}, got.SuggestedBrands)
}

func TestClassifyLocalTerms(t *testing.T) {
	got := Classify("mantika", nil)

	require.NotNil(t, got.GenericName)
	require.NotNil(t, got.LocalName)
	assert.Equal(t, "Cooking Oil", *got.GenericName)
	assert.Equal(t, "mantika", *got.LocalName)
	assert.Equal(t, domain.CategoryCooking, got.Category)
	assert.Equal(t, []string{"Baguio", "Minola", "Golden Fiesta"}, got.SuggestedBrands)
}

func TestClassifyGenericEnglish(t *testing.T) {
	got := Classify("Fresh eggs", nil)

	require.NotNil(t, got.GenericName)
	assert.Equal(t, "Eggs", *got.GenericName)
	assert.Nil(t, got.LocalName)
	assert.Equal(t, []string{"Bounty Fresh", "Magnolia"}, got.SuggestedBrands)
}

func TestMerchantCategoriesHaveNoSuggestions(t *testing.T) {
	got := Classify("airport shuttle", nil)
	assert.Equal(t, domain.CategoryTravel, got.Category)
	assert.Nil(t, got.SuggestedBrands)
}

func TestCanonicalBrand(t *testing.T) {
	name, ok := CanonicalBrand("COCA COLA")
	assert.True(t, ok)
	assert.Equal(t, "Coca-Cola", name)

	name, ok = CanonicalBrand("coke")
	assert.True(t, ok)
	assert.Equal(t, "Coca-Cola", name)

	name, ok = CanonicalBrand(" Acme ")
	assert.False(t, ok)
	assert.Equal(t, "Acme", name)
}

func TestCustomRules(t *testing.T) {
	c := NewWithRules([]Rule{{Category: domain.CategorySnacks, Keywords: []string{"taho"}}})
	assert.Equal(t, domain.CategorySnacks, c.Classify("TAHO", nil).Category)
	assert.Equal(t, DefaultCategory, c.Classify("rice", nil).Category)
}

func TestIsProductWord(t *testing.T) {
	c := New()

	for _, word := range []string{"Coke", "LUCKY", "itlog", "rice", "sardinas", "Coca-Cola"} {
		assert.True(t, c.IsProductWord(word), word)
	}
	for _, word := range []string{"tray", "bandehado", ""} {
		assert.False(t, c.IsProductWord(word), word)
	}
}
