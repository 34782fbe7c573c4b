package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func fixtures(t *testing.T) (*pricing.Calculator, pricing.FontOption, pricing.ColorOption) {
	t.Helper()
	catalog := pricing.DefaultCatalog()
	font, ok := catalog.FontByID("arial")
	require.True(t, ok)
	black, ok := catalog.ColorByID("black")
	require.True(t, ok)
	return pricing.NewCalculator(pricing.DefaultRates()), font, black
}

func TestCart_TotalsAreSumsOfLines(t *testing.T) {
	calc, font, black := fixtures(t)
	c := New(calc)

	open := c.Add(NewTextItem(calc, "OPEN", font, black, 10, 1))
	bedrijf := c.Add(NewTextItem(calc, "BEDRIJF", font, black, 15, 6))

	require.NotEmpty(t, open.ID)
	require.NotEqual(t, open.ID, bedrijf.ID)
	assert.Equal(t, KindText, open.Kind)

	assert.Equal(t, 7, c.TotalItems())
	assertAmount(t, "134.69", c.TotalPrice())

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, open.ID, items[0].ID)
	assert.Equal(t, bedrijf.ID, items[1].ID)
}

func TestCart_RemoveSubtractsExactlyThatLine(t *testing.T) {
	calc, font, black := fixtures(t)
	c := New(calc)
	keep := c.Add(NewTextItem(calc, "OPEN", font, black, 10, 1))
	drop := c.Add(NewTextItem(calc, "BEDRIJF", font, black, 15, 6))

	beforeItems, beforePrice := c.TotalItems(), c.TotalPrice()
	require.NoError(t, c.Remove(drop.ID))

	assert.Equal(t, beforeItems-drop.Quantity, c.TotalItems())
	assert.True(t, beforePrice.Sub(drop.Price.Total).Equal(c.TotalPrice()))
	_, ok := c.Item(keep.ID)
	assert.True(t, ok)

	assert.ErrorIs(t, c.Remove(drop.ID), ErrItemNotFound)
}

func TestCart_UpdateQuantityReprices(t *testing.T) {
	calc, font, black := fixtures(t)
	c := New(calc)
	item := c.Add(NewTextItem(calc, "BEDRIJF", font, black, 15, 2))
	assertAmount(t, "46.20", item.Price.Total)
	assert.Nil(t, item.Price.VolumeDiscount)

	updated, err := c.UpdateQuantity(item.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Quantity)
	assert.Equal(t, 6, updated.Price.Quantity)
	assertAmount(t, "138.60", updated.Price.Subtotal)
	assertAmount(t, "13.86", updated.Price.DiscountAmount)
	assertAmount(t, "124.74", updated.Price.Total)
	require.NotNil(t, updated.Price.VolumeDiscount)
	assert.Equal(t, "10% korting", updated.Price.VolumeDiscount.Label)

	assertAmount(t, "124.74", c.TotalPrice())
	assert.Equal(t, 6, c.TotalItems())
}

func TestCart_UpdateQuantityRejects(t *testing.T) {
	calc, font, black := fixtures(t)
	c := New(calc)
	item := c.Add(NewTextItem(calc, "OPEN", font, black, 10, 1))

	_, err := c.UpdateQuantity(item.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = c.UpdateQuantity("missing", 2)
	assert.ErrorIs(t, err, ErrItemNotFound)

	got, _ := c.Item(item.ID)
	assert.Equal(t, 1, got.Quantity)
}

func TestCart_LogoLines(t *testing.T) {
	calc, _, _ := fixtures(t)
	c := New(calc)

	logo := Logo{Name: "logo.png", AspectRatio: 2, Size: pricing.LogoSize{WidthCm: 20, HeightCm: 10, AreaCm2: 200}}
	item := c.Add(NewLogoItem(calc, logo, 1))
	assert.Equal(t, KindLogo, item.Kind)
	assert.Equal(t, "Logo: logo.png", item.Text)
	assertAmount(t, "9", item.Price.Total)

	updated, err := c.UpdateQuantity(item.ID, 6)
	require.NoError(t, err)
	assertAmount(t, "54", updated.Price.Total)
	assert.Nil(t, updated.Price.VolumeDiscount)
}

func TestCart_SnapshotsSurviveRateChanges(t *testing.T) {
	oldCalc, font, black := fixtures(t)
	item := NewTextItem(oldCalc, "OPEN", font, black, 10, 1)

	rates := pricing.DefaultRates()
	rates.BaseRate = amount(t, "0.50")
	rates.MinimumOrder = decimal.Zero
	newCalc := pricing.NewCalculator(rates)

	c := Restore(newCalc, []Item{{ID: "a", Kind: item.Kind, Text: item.Text, Font: font, Color: black, HeightCm: 10, Quantity: 1, Price: item.Price}})
	assertAmount(t, "9.95", c.TotalPrice())

	updated, err := c.UpdateQuantity("a", 1)
	require.NoError(t, err)
	assertAmount(t, "20", updated.Price.Total)
}

func TestCart_ItemsIsACopy(t *testing.T) {
	calc, font, black := fixtures(t)
	c := New(calc)
	c.Add(NewTextItem(calc, "OPEN", font, black, 10, 1))

	items := c.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, c.TotalItems())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.True(t, c.TotalPrice().IsZero())
}

func TestMemoryStore(t *testing.T) {
	calc, font, black := fixtures(t)
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	items, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, items)

	c := New(calc)
	saved := c.Add(NewTextItem(calc, "BEDRIJF", font, black, 15, 6))
	require.NoError(t, store.Save(ctx, "s1", c.Items()))

	items, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, saved.ID, items[0].ID)
	assertAmount(t, "124.74", items[0].Price.Total)
	require.NotNil(t, items[0].Price.VolumeDiscount)
	assert.Equal(t, 6, items[0].Price.VolumeDiscount.MinQuantity)

	now = now.Add(2 * time.Hour)
	items, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, store.Save(ctx, "s2", c.Items()))
	require.NoError(t, store.Delete(ctx, "s2"))
	items, err = store.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, items)
}
