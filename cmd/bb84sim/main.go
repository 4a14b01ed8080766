// bb84sim runs a single simulated BB84 exchange and prints a report of the
// transmission, the sifted key and the security decision. Settings come from
// BB84_* environment variables (or a .env file) and may be overridden with
// flags.
package main

import (
	"fmt"
	"os"
	"text/template"

	flag "github.com/spf13/pflag"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/alan-christopher/bb84sim/bb84/wire"
	"github.com/alan-christopher/bb84sim/internal/config"
	"github.com/alan-christopher/bb84sim/internal/logger"
)

var (
	qubits    = flag.Int("qubits", 0, "The number of qubits Alice sends. Overrides BB84_QUBITS.")
	eavesdrop = flag.Bool("eavesdrop", false, "Place an intercept-resend eavesdropper on the channel. Overrides BB84_EAVESDROP.")
	threshold = flag.Float64("threshold", 0, "The highest acceptable estimated error rate. Overrides BB84_THRESHOLD.")
	sample    = flag.Float64("sample", 0, "The fraction of the sifted key disclosed for error estimation. Overrides BB84_SAMPLE_FRACTION.")
	seed      = flag.Int64("seed", 0, "Seed for the random source. Overrides BB84_SEED.")
	amplify   = flag.Bool("amplify", false, "Compress a secure key with a Toeplitz hash.")
	preview   = flag.Int("preview", 20, "The number of transmissions to list in the report.")
	out       = flag.String("out", "", "Append the framed, wire-encoded result to this file.")
	logLevel  = flag.String("log-level", "", "debug, info, warn or error. Overrides BB84_LOG_LEVEL.")
)

const report = `run        {{.RunID}}
seed       {{.Seed}}
qubits     {{.Qubits}}
eavesdrop  {{.Eavesdrop}}

 idx  alice  a-basis  b-basis  bob  kept  sampled
{{range .Preview}}{{printf "%4d" .Index}}  {{bit .AliceBit}}      {{.AliceBasis}}        {{.BobBasis}}        {{bit .BobBit}}    {{mark .Matched}}     {{mark .Sampled}}
{{end}}
sifted     {{.SiftedLength}}
sample     {{.SampleSize}} ({{.Mismatches}} mismatches)
error rate {{printf "%.4f" .ErrorRate}} (threshold {{printf "%.4f" .Threshold}}, {{printf "%.0f" (pct .Analysis.Confidence)}}% CI [{{printf "%.4f" .Analysis.Lower}}, {{printf "%.4f" .Analysis.Upper}}])
secure     {{.Secure}}
{{if .Secure}}key        {{.KeyString}} ({{.FinalKey.Size}} bits, {{.Zeros}} zeros, {{.Ones}} ones)
{{if .Amplified}}amplified  {{.AmplifiedKey}} ({{.AmplifiedKey.Size}} bits)
{{end}}{{else}}key        discarded, eavesdropping suspected
{{end}}`

type view struct {
	*bb84.Result
	Preview   []bb84.Record
	Zeros     int
	Ones      int
	Amplified bool
}

func main() {
	flag.Parse()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(2)
	}
	applyFlags(cfg)

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	opts := cfg.Options()
	opts.PrivacyAmplification = *amplify
	opts.Logger = &log

	res, err := bb84.Simulate(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
	if err := printReport(res, *preview, *amplify); err != nil {
		log.Fatal().Err(err).Msg("BUG: could not fill in report template")
	}
	if *out != "" {
		if err := save(*out, res); err != nil {
			log.Fatal().Err(err).Str("path", *out).Msg("saving result")
		}
		log.Info().Str("path", *out).Msg("result saved")
	}
}

func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "qubits":
			cfg.Qubits = *qubits
		case "eavesdrop":
			cfg.Eavesdrop = *eavesdrop
		case "threshold":
			cfg.Threshold = *threshold
		case "sample":
			cfg.SampleFraction = *sample
		case "seed":
			cfg.Seed = seed
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
}

func printReport(res *bb84.Result, n int, amplified bool) error {
	tmpl := template.Must(template.New("report").Funcs(template.FuncMap{
		"bit": func(b bool) string {
			if b {
				return "1"
			}
			return "0"
		},
		"mark": func(b bool) string {
			if b {
				return "*"
			}
			return " "
		},
		"pct": func(f float64) float64 { return f * 100 },
	}).Parse(report))
	zeros, ones := res.KeyBalance()
	return tmpl.Execute(os.Stdout, view{
		Result:    res,
		Preview:   res.Preview(n),
		Zeros:     zeros,
		Ones:      ones,
		Amplified: amplified,
	})
}

func save(path string, res *bb84.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := wire.NewWriter(f).Write(res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
