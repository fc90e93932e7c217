package model

import "testing"

func TestFormatCents(t *testing.T) {
	cases := []struct {
		in   Cents
		want string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{100, "$1.00"},
		{150050, "$1,500.50"},
		{123456789, "$1,234,567.89"},
		{-2500, "-$25.00"},
	}
	for _, c := range cases {
		if got := FormatCents(c.in); got != c.want {
			t.Errorf("FormatCents(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseCents(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
	}{
		{"1500.50", 150050},
		{"$1,500.50", 150050},
		{"25", 2500},
		{"25.5", 2550},
		{"$0.05", 5},
		{"-12.34", -1234},
	}
	for _, c := range cases {
		got, err := ParseCents(c.in)
		if err != nil {
			t.Errorf("ParseCents(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseCents(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseCentsRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "$"} {
		if _, err := ParseCents(in); err == nil {
			t.Errorf("ParseCents(%q): expected error", in)
		}
	}
}

func TestTransactionSigned(t *testing.T) {
	d := Transaction{Type: TxDeposit, AmountCents: 1000}
	if d.Signed() != 1000 {
		t.Errorf("deposit signed = %d, want 1000", d.Signed())
	}
	w := Transaction{Type: TxDisbursement, AmountCents: 400}
	if w.Signed() != -400 {
		t.Errorf("disbursement signed = %d, want -400", w.Signed())
	}
	i := Transaction{Type: TxInterest, AmountCents: 3}
	if i.Signed() != 3 {
		t.Errorf("interest signed = %d, want 3", i.Signed())
	}
}
