package num

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		milli uint64
	}{
		{"0", 0},
		{"1500", 1500000},
		{"12.25", 12250},
		{"1e6", 1000000000},
		{"2.5e3", 2500000},
		{"0.0005", 0},
		{".5", 500},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got.Milli() != tc.milli {
			t.Fatalf("parse %q: got %d milli, want %d", tc.in, got.Milli(), tc.milli)
		}
	}
	for _, bad := range []string{"", "-1", "1x", ".", "1e-3"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestStringTrimsFraction(t *testing.T) {
	if got := FromMilli(12250).String(); got != "12.25" {
		t.Fatalf("got %q", got)
	}
	if got := FromInt(7).String(); got != "7" {
		t.Fatalf("got %q", got)
	}
}

func TestSaturation(t *testing.T) {
	if got := Max.Add(One); got != Max {
		t.Fatalf("add should saturate, got %v", got)
	}
	if got := Max.Mul(2); got != Max {
		t.Fatalf("mul should saturate, got %v", got)
	}
	if got := FromInt(3).Sub(FromInt(5)); !got.IsZero() {
		t.Fatalf("sub should floor at zero, got %v", got)
	}
	if got := FromInt(math.MaxUint64 / 10); got != Max {
		t.Fatalf("from int should saturate, got %v", got)
	}
}

func TestMulFracExact(t *testing.T) {
	big := FromMilli(math.MaxUint64 / 3)
	got := big.MulFrac(3, 4)
	want := uint64((math.MaxUint64 / 3 / 4) * 3)
	// 128-bit intermediate keeps the product exact up to truncation of the final quotient.
	if got.Milli() < want || got.Milli() > want+3 {
		t.Fatalf("got %d, want about %d", got.Milli(), want)
	}
	if got := FromInt(50).MulFrac(150, 100); got != FromInt(75) {
		t.Fatalf("got %v", got)
	}
}

func TestRatioAndQuo(t *testing.T) {
	if got := FromInt(1).Ratio(FromInt(4), 16); got != 4 {
		t.Fatalf("ratio got %d", got)
	}
	if got := FromInt(9).Ratio(FromInt(4), 16); got != 16 {
		t.Fatalf("ratio should clamp, got %d", got)
	}
	if got := FromInt(3).Quo(FromInt(2)); got != FromMilli(1500) {
		t.Fatalf("quo got %v", got)
	}
	if got := FromInt(3).Quo(Zero); !got.IsZero() {
		t.Fatalf("quo by zero got %v", got)
	}
}

func TestCmpScaledDoesNotSaturate(t *testing.T) {
	big := FromMilli(math.MaxUint64 / 2)
	if big.Mul(1000) != big.Sub(FromInt(1)).Mul(1000) {
		t.Fatal("expected both products to saturate")
	}
	if got := big.CmpScaled(1000, big.Sub(FromInt(1)), 1000); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := FromInt(200).CmpScaled(1000, FromInt(1000), 200); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
	if got := FromInt(199).CmpScaled(1000, FromInt(1000), 200); got != -1 {
		t.Fatalf("got %d, want -1", got)
	}
}

func TestJSONText(t *testing.T) {
	type wrapper struct {
		V Number `json:"v"`
	}
	b, err := json.Marshal(wrapper{V: FromMilli(2500)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"v":"2.5"}` {
		t.Fatalf("got %s", b)
	}
	var back wrapper
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.V != FromMilli(2500) {
		t.Fatalf("got %v", back.V)
	}
}
