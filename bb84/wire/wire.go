// Package wire encodes simulation results in protocol buffer wire format so a
// visualization or storage collaborator can consume them without linking the
// simulator.
//
// A Result is encoded as:
//
//	message Result {
//	  string run_id = 1;
//	  int64 seed = 2;
//	  int64 qubits = 3;
//	  bool eavesdrop = 4;
//	  double threshold = 5;
//	  double sample_fraction = 6;
//	  DenseBitArray alice_bits = 7;
//	  DenseBitArray alice_bases = 8;
//	  DenseBitArray bob_bases = 9;
//	  DenseBitArray bob_bits = 10;
//	  Interception interception = 11;
//	  repeated int64 sifted_indices = 12 [packed = true];
//	  repeated int64 sample = 13 [packed = true];
//	  int64 mismatches = 14;
//	  double error_rate = 15;
//	  bool secure = 16;
//	  DenseBitArray final_key = 17;
//	  DenseBitArray amplified_key = 18;
//	  Analysis analysis = 19;
//	}
//	message DenseBitArray { bytes bits = 1; int64 len = 2; }
//	message Interception { DenseBitArray bases = 1; DenseBitArray bits = 2; }
//	message Analysis {
//	  double rate = 1; int64 sample_size = 2; double confidence = 3;
//	  double std_err = 4; double lower = 5; double upper = 6;
//	}
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/alan-christopher/bb84sim/bb84/photon"
)

const (
	fieldRunID protowire.Number = iota + 1
	fieldSeed
	fieldQubits
	fieldEavesdrop
	fieldThreshold
	fieldSampleFraction
	fieldAliceBits
	fieldAliceBases
	fieldBobBases
	fieldBobBits
	fieldInterception
	fieldSiftedIndices
	fieldSample
	fieldMismatches
	fieldErrorRate
	fieldSecure
	fieldFinalKey
	fieldAmplifiedKey
	fieldAnalysis
)

// Marshal encodes res.
func Marshal(res *bb84.Result) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("marshalling nil result")
	}
	var b []byte
	b = appendString(b, fieldRunID, res.RunID)
	b = appendVarint(b, fieldSeed, uint64(res.Seed))
	b = appendVarint(b, fieldQubits, uint64(res.Qubits))
	b = appendVarint(b, fieldEavesdrop, protowire.EncodeBool(res.Eavesdrop))
	b = appendDouble(b, fieldThreshold, res.Threshold)
	b = appendDouble(b, fieldSampleFraction, res.SampleFraction)
	b = appendDense(b, fieldAliceBits, res.AliceBits)
	b = appendDense(b, fieldAliceBases, res.AliceBases)
	b = appendDense(b, fieldBobBases, res.BobBases)
	b = appendDense(b, fieldBobBits, res.BobBits)
	if ic := res.Interception; ic != nil {
		var m []byte
		m = appendDense(m, 1, ic.Bases)
		m = appendDense(m, 2, ic.Bits)
		b = protowire.AppendTag(b, fieldInterception, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	b = appendPacked(b, fieldSiftedIndices, res.Sifted.Indices)
	b = appendPacked(b, fieldSample, res.Sample)
	b = appendVarint(b, fieldMismatches, uint64(res.Mismatches))
	b = appendDouble(b, fieldErrorRate, res.ErrorRate)
	b = appendVarint(b, fieldSecure, protowire.EncodeBool(res.Secure))
	b = appendDense(b, fieldFinalKey, res.FinalKey)
	b = appendDense(b, fieldAmplifiedKey, res.AmplifiedKey)

	var a []byte
	a = appendDouble(a, 1, res.Analysis.Rate)
	a = appendVarint(a, 2, uint64(res.Analysis.SampleSize))
	a = appendDouble(a, 3, res.Analysis.Confidence)
	a = appendDouble(a, 4, res.Analysis.StdErr)
	a = appendDouble(a, 5, res.Analysis.Lower)
	a = appendDouble(a, 6, res.Analysis.Upper)
	b = protowire.AppendTag(b, fieldAnalysis, protowire.BytesType)
	b = protowire.AppendBytes(b, a)
	return b, nil
}

// Unmarshal decodes a Result encoded by Marshal. The sifted keys and the
// per-index records are rebuilt from the decoded sequences.
func Unmarshal(b []byte) (*bb84.Result, error) {
	res := &bb84.Result{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error {
		var err error
		switch num {
		case fieldRunID:
			res.RunID = string(raw)
		case fieldSeed:
			res.Seed = int64(v)
		case fieldQubits:
			res.Qubits = int(v)
		case fieldEavesdrop:
			res.Eavesdrop = protowire.DecodeBool(v)
		case fieldThreshold:
			res.Threshold = math.Float64frombits(v)
		case fieldSampleFraction:
			res.SampleFraction = math.Float64frombits(v)
		case fieldAliceBits:
			res.AliceBits, err = decodeDense(raw)
		case fieldAliceBases:
			res.AliceBases, err = decodeDense(raw)
		case fieldBobBases:
			res.BobBases, err = decodeDense(raw)
		case fieldBobBits:
			res.BobBits, err = decodeDense(raw)
		case fieldInterception:
			res.Interception, err = decodeInterception(raw)
		case fieldSiftedIndices:
			res.Sifted.Indices, err = decodePacked(typ, v, raw, res.Sifted.Indices)
		case fieldSample:
			res.Sample, err = decodePacked(typ, v, raw, res.Sample)
		case fieldMismatches:
			res.Mismatches = int(v)
		case fieldErrorRate:
			res.ErrorRate = math.Float64frombits(v)
		case fieldSecure:
			res.Secure = protowire.DecodeBool(v)
		case fieldFinalKey:
			res.FinalKey, err = decodeDense(raw)
		case fieldAmplifiedKey:
			res.AmplifiedKey, err = decodeDense(raw)
		case fieldAnalysis:
			res.Analysis, err = decodeAnalysis(raw)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := restore(res); err != nil {
		return nil, err
	}
	return res, nil
}

func restore(res *bb84.Result) error {
	for name, d := range map[string]bitmap.Dense{
		"alice bits":  res.AliceBits,
		"alice bases": res.AliceBases,
		"bob bases":   res.BobBases,
		"bob bits":    res.BobBits,
	} {
		if d.Size() != res.Qubits {
			return fmt.Errorf("decoding result: %s has %d entries, want %d", name, d.Size(), res.Qubits)
		}
	}
	var err error
	if res.Sifted.Alice, err = bitmap.Pick(res.AliceBits, res.Sifted.Indices); err != nil {
		return fmt.Errorf("decoding sifted indices: %w", err)
	}
	if res.Sifted.Bob, err = bitmap.Pick(res.BobBits, res.Sifted.Indices); err != nil {
		return fmt.Errorf("decoding sifted indices: %w", err)
	}
	for _, s := range res.Sample {
		if s < 0 || s >= len(res.Sifted.Indices) {
			return fmt.Errorf("decoding sample: position %d outside sifted key of len %d", s, len(res.Sifted.Indices))
		}
	}
	res.BuildRecords()
	return nil
}

// walk calls f for every top-level field of b. Varint and fixed64 fields are
// passed in v, length-delimited fields in raw.
func walk(b []byte, f func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var (
			v   uint64
			raw []byte
		)
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := f(num, typ, v, raw); err != nil {
			return err
		}
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendDense(b []byte, num protowire.Number, d bitmap.Dense) []byte {
	var m []byte
	m = protowire.AppendTag(m, 1, protowire.BytesType)
	m = protowire.AppendBytes(m, d.Data()[:d.SizeBytes()])
	m = appendVarint(m, 2, uint64(d.Size()))
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func appendPacked(b []byte, num protowire.Number, vs []int) []byte {
	if len(vs) == 0 {
		return b
	}
	var m []byte
	for _, v := range vs {
		m = protowire.AppendVarint(m, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func decodeDense(b []byte) (bitmap.Dense, error) {
	var (
		data []byte
		size int
	)
	err := walk(b, func(num protowire.Number, _ protowire.Type, v uint64, raw []byte) error {
		switch num {
		case 1:
			data = append([]byte(nil), raw...)
		case 2:
			size = int(v)
		}
		return nil
	})
	if err != nil {
		return bitmap.Empty(), err
	}
	if size < 0 || size > len(data)*8 || bitmap.BytesFor(size) != len(data) {
		return bitmap.Empty(), fmt.Errorf("decoding bit array: %d bytes cannot hold exactly %d bits", len(data), size)
	}
	return bitmap.NewDense(data, size), nil
}

// decodePacked accepts both packed and unpacked encodings of a repeated int64.
func decodePacked(typ protowire.Type, v uint64, raw []byte, into []int) ([]int, error) {
	if typ == protowire.VarintType {
		return append(into, int(v)), nil
	}
	for len(raw) > 0 {
		x, n := protowire.ConsumeVarint(raw)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		into = append(into, int(x))
		raw = raw[n:]
	}
	return into, nil
}

func decodeInterception(b []byte) (*photon.Interception, error) {
	ic := &photon.Interception{}
	err := walk(b, func(num protowire.Number, _ protowire.Type, _ uint64, raw []byte) error {
		var err error
		switch num {
		case 1:
			ic.Bases, err = decodeDense(raw)
		case 2:
			ic.Bits, err = decodeDense(raw)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return ic, nil
}

func decodeAnalysis(b []byte) (bb84.Analysis, error) {
	var a bb84.Analysis
	err := walk(b, func(num protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
		switch num {
		case 1:
			a.Rate = math.Float64frombits(v)
		case 2:
			a.SampleSize = int(v)
		case 3:
			a.Confidence = math.Float64frombits(v)
		case 4:
			a.StdErr = math.Float64frombits(v)
		case 5:
			a.Lower = math.Float64frombits(v)
		case 6:
			a.Upper = math.Float64frombits(v)
		}
		return nil
	})
	return a, err
}
