package processor

import "testing"

func TestParseMoneyRange(t *testing.T) {
	rates := DefaultCurrencyRates()
	res := ParseMoney("$10,000 - $50,000", rates)
	if res.Min == nil || res.Max == nil {
		t.Fatalf("expected both bounds, got %+v", res)
	}
	if *res.Min != 10000 || *res.Max != 50000 {
		t.Fatalf("got min=%d max=%d", *res.Min, *res.Max)
	}
}

func TestParseMoneyUpTo(t *testing.T) {
	res := ParseMoney("Up to $100,000 available", DefaultCurrencyRates())
	if res.Min == nil || *res.Min != 0 {
		t.Fatalf("expected min 0, got %+v", res.Min)
	}
	if res.Max == nil || *res.Max != 100000 {
		t.Fatalf("expected max 100000, got %+v", res.Max)
	}
}

func TestParseMoneyEURConversion(t *testing.T) {
	res := ParseMoney("€1,000", DefaultCurrencyRates())
	if res.Max == nil || *res.Max != 1100 {
		t.Fatalf("expected 1100 USD-equivalent, got %+v", res.Max)
	}
}

func TestParseMoneyEmpty(t *testing.T) {
	res := ParseMoney("", DefaultCurrencyRates())
	if res.Warning == "" {
		t.Fatal("expected a warning for empty input")
	}
}

func TestParseMoneyKSuffixScalesWholeNumber(t *testing.T) {
	res := ParseMoney("$50k", DefaultCurrencyRates())
	if res.Min == nil || res.Max == nil {
		t.Fatalf("expected both bounds, got %+v", res)
	}
	if *res.Min != 50000 || *res.Max != 50000 {
		t.Fatalf("got min=%d max=%d, want 50000/50000", *res.Min, *res.Max)
	}
}

func TestParseMoneyMillionSuffix(t *testing.T) {
	res := ParseMoney("Grants up to $2 million", DefaultCurrencyRates())
	if res.Max == nil || *res.Max != 2_000_000 {
		t.Fatalf("got max=%v, want 2000000", res.Max)
	}
}
