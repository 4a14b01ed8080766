// bench.go runs a batch of BB84 simulations for each entry in the cartesian
// product of a collection of different tuning parameters, e.g. qubits sent and
// whether an eavesdropper is present, and outputs a CSV of relevant statistics
// for each different combination, e.g. observed error rate and final key
// length.
package main

import (
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"gonum.org/v1/gonum/stat"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/internal/logger"
)

var (
	qubits    = flag.IntSlice("qubits", []int{1000}, "The number of qubits Alice sends per run.")
	eavesdrop = flag.BoolSlice("eavesdrop", []bool{false, true}, "Whether an intercept-resend eavesdropper taps the channel.")
	sample    = flag.Float64Slice("sample", []float64{bb84.DefaultSampleFraction}, "The fraction of the sifted key disclosed for error estimation.")
	threshold = flag.Float64Slice("threshold", []float64{bb84.DefaultErrorThreshold}, "The highest acceptable estimated error rate.")
	trials    = flag.Int("trials", 100, "The number of seeded runs per parameterization.")
	seed      = flag.Int64("seed", 1, "The seed of the first run of each parameterization; later runs count up from it.")
	logLevel  = flag.String("log-level", "warn", "debug, info, warn or error.")
)

var (
	inputs = []string{"qubits", "eavesdrop", "sample", "threshold"}
	// TODO: consider using reflection to pull this out of the Experiment data
	//   type.
	columns = []string{"Qubits", "Eavesdrop", "SampleFraction", "Threshold",
		"Trials", "MeanSifted", "MeanQBER", "StdQBER", "MeanKeyBits", "StdKeyBits",
		"SecureRate"}
)

// An Experiment packages together the result of benchmarking a single
// parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	Qubits         int
	Eavesdrop      bool
	SampleFraction float64
	Threshold      float64

	// Fields corresponding to experiment results
	Trials      int
	MeanSifted  float64
	MeanQBER    float64
	StdQBER     float64
	MeanKeyBits float64
	StdKeyBits  float64
	SecureRate  float64
}

func main() {
	flag.Parse()
	log := logger.New(logger.Config{Level: *logLevel})
	fmt.Println(header())
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	var args [][]interface{}
	for _, inp := range inputs {
		args = append(args, lookupInput(log, inp))
	}
	applyCartesian(func(args []interface{}) {
		exp := &Experiment{
			Qubits:         args[inpIndex("qubits")].(int),
			Eavesdrop:      args[inpIndex("eavesdrop")].(bool),
			SampleFraction: args[inpIndex("sample")].(float64),
			Threshold:      args[inpIndex("threshold")].(float64),
		}
		if err := bench(exp, *trials, *seed, log); err != nil {
			log.Error().Err(err).Interface("experiment", exp).Msg("benching")
		}
		if err := tmpl.Execute(os.Stdout, exp); err != nil {
			log.Fatal().Err(err).Msg("BUG: could not fill in line template")
		}
	}, args)
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func bench(exp *Experiment, trials int, firstSeed int64, log zerolog.Logger) error {
	var sifted, qbers, keyBits []float64
	secure := 0
	for i := 0; i < trials; i++ {
		res, err := bb84.Simulate(bb84.Options{
			Qubits:         exp.Qubits,
			Eavesdrop:      exp.Eavesdrop,
			ErrorThreshold: bb84.Float64(exp.Threshold),
			SampleFraction: exp.SampleFraction,
			Seed:           bb84.Int64(firstSeed + int64(i)),
			Logger:         &log,
		})
		if err != nil {
			return err
		}
		exp.Trials++
		sifted = append(sifted, float64(res.SiftedLength()))
		qbers = append(qbers, res.ErrorRate)
		keyBits = append(keyBits, float64(res.FinalKey.Size()))
		if res.Secure {
			secure++
		}
	}
	if exp.Trials == 0 {
		return nil
	}
	exp.MeanSifted = stat.Mean(sifted, nil)
	exp.MeanQBER, exp.StdQBER = stat.MeanStdDev(qbers, nil)
	exp.MeanKeyBits, exp.StdKeyBits = stat.MeanStdDev(keyBits, nil)
	exp.SecureRate = float64(secure) / float64(exp.Trials)
	return nil
}

func header() string {
	return strings.Join(columns, ", ")
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput(log zerolog.Logger, name string) []interface{} {
	var r []interface{}
	if v, err := flag.CommandLine.GetIntSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetFloat64Slice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetBoolSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else {
		log.Fatal().Str("input", name).Msg("unknown type for input")
	}
	return r
}

func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
