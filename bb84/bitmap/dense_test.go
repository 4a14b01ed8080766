package bitmap

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDenseGet(t *testing.T) {
	tcs := []struct {
		name  string
		data  Dense
		edata []bool
	}{
		{"implicit zeros", NewDense(nil, 3), []bool{false, false, false}},
		{"aligned", mustDense(t, "10101010"), []bool{true, false, true, false, true, false, true, false}},
		{"multibyte",
			mustDense(t, "00000000 101"),
			[]bool{false, false, false, false, false, false, false, false, true, false, true}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var d []bool
			for i := 0; i < tc.data.Size(); i++ {
				d = append(d, tc.data.Get(i))
			}
			if !reflect.DeepEqual(d, tc.edata) {
				t.Errorf("t.Get() == %v, want %v", d, tc.edata)
			}
			if tc.data.Get(-1) || tc.data.Get(tc.data.Size()) {
				t.Errorf("Get() outside the bitmap returned true")
			}
		})
	}
}

func TestNewDense(t *testing.T) {
	tcs := []struct {
		name   string
		data   []byte
		bitLen int
		ebits  []byte
		estr   string
	}{
		{"exact", []byte{0b00000101}, 8, []byte{0b00000101}, "10100000"},
		{"padded", []byte{0b1}, 10, []byte{0b1, 0}, "1000000000"},
		{"stray tail bits", []byte{0b10110010, 0xF5}, 12, []byte{0b10110010, 0x05}, "01001101 1010"},
		{"extra bytes", []byte{0xFF, 0xFF, 0xFF}, 4, []byte{0x0F}, "1111"},
		{"inferred", []byte{0x80}, -1, []byte{0x80}, "00000001"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDense(tc.data, tc.bitLen)
			if !bytes.Equal(d.Data(), tc.ebits) {
				t.Errorf("Data() == %08b, want %08b", d.Data(), tc.ebits)
			}
			want := mustDense(t, tc.estr)
			if d.String() != want.String() {
				t.Errorf("got %s, want %s", d, want)
			}
			if CountOnes(d) != CountOnes(want) || Parity(d) != Parity(want) {
				t.Errorf("CountOnes() == %d, want %d", CountOnes(d), CountOnes(want))
			}
		})
	}
}

func TestAppendBit(t *testing.T) {
	var d Dense
	for i, c := range "10110011 1" {
		if c == ' ' {
			continue
		}
		d.AppendBit(c == '1')
		if d.SizeBytes() != len(d.Data()) {
			t.Fatalf("after %d appends, holding %d bytes for %d bits", i, len(d.Data()), d.Size())
		}
	}
	if got, want := d.String(), "101100111"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
