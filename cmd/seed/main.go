package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ardexa/solarlog/pkg/decode"
	"github.com/ardexa/solarlog/pkg/log"
	"github.com/ardexa/solarlog/pkg/types"
	"github.com/levenlabs/go-lflag"
)

func main() {
	vendor := lflag.String("inverter-type", "sma", "Inverter vendor whose export format is generated")
	inverters := lflag.String("inverters", "1", "Comma-separated inverter ids on the bus")
	interval := lflag.Duration("interval", 5*time.Minute, "Time between export rows")
	day := lflag.String("day", "", "Day to generate (YYYY-MM-DD, empty for today)")
	out := lflag.String("out", "", "File to write the export to (empty for stdout)")
	lflag.Configure()

	ctx := context.Background()

	v, err := types.ParseVendor(*vendor)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid inverter type", slog.Any("error", err))
		os.Exit(1)
	}
	d, err := decode.New(v)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid inverter type", slog.Any("error", err))
		os.Exit(1)
	}

	start := time.Now()
	if *day != "" {
		start, err = time.ParseInLocation(time.DateOnly, *day, time.Local)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "invalid day", slog.Any("error", err))
			os.Exit(1)
		}
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local)

	w := io.Writer(os.Stdout)
	if *out != "" {
		fh, err := os.Create(*out)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to create export", slog.Any("error", err))
			os.Exit(1)
		}
		defer fh.Close()
		w = fh
	}

	g := &generator{
		decoder:   d,
		inverters: strings.Split(*inverters, ","),
		interval:  *interval,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	n, err := g.write(w, start)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write export", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeded export", slog.String("vendor", v.String()), slog.Int("rows", n))
}

// Simulation constants for a single inverter
const (
	peakW      = 5000.0
	nominalDCV = 560.0
	gridV      = 230.0
)

type generator struct {
	decoder   *decode.Decoder
	inverters []string
	interval  time.Duration
	rng       *rand.Rand
}

// write emits one gateway line per interval from 06:00 until 20:00, every
// inverter's readings back to back. Each line is decoded before it is written.
func (g *generator) write(w io.Writer, day time.Time) (int, error) {
	if g.interval <= 0 {
		return 0, fmt.Errorf("invalid interval: %s", g.interval)
	}
	schema := g.decoder.Schema()
	energy := make([]float64, len(g.inverters))

	bw := bufio.NewWriter(w)
	rows := 0
	for t := day.Add(6 * time.Hour); t.Before(day.Add(20 * time.Hour)); t = t.Add(g.interval) {
		// Solar (bell curve around 13:00)
		hours := t.Sub(day).Hours()
		dist := math.Abs(hours - 13.0)
		solarW := peakW * math.Exp(-(dist*dist)/8.0)

		fields := rawDateTime(schema.Vendor, t)
		for i, id := range g.inverters {
			acW := solarW * (0.9 + g.rng.Float64()*0.1)
			energy[i] += acW * g.interval.Hours()
			fields = append(fields, id)
			fields = append(fields, g.readings(schema, acW, energy[i])...)
		}

		line := strings.Join(fields, ";")
		if _, err := g.decoder.Demux(line); err != nil {
			return rows, fmt.Errorf("generated line does not decode: %w", err)
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return rows, err
		}
		rows++
	}
	return rows, bw.Flush()
}

// rawDateTime renders t the way the vendor's gateway export does.
func rawDateTime(v types.Vendor, t time.Time) []string {
	if v == types.VendorSMA {
		return []string{t.Format("02/01/06"), t.Format("3:04:05 PM")}
	}
	return []string{t.Format("02.01.06"), t.Format("15:04:05")}
}

// readings fills every telemetry column after Datetime and Inverter.
func (g *generator) readings(schema decode.Schema, acW, energyWh float64) []string {
	nStrings := 0
	for _, c := range schema.Columns {
		if strings.HasPrefix(c, "DC Power") {
			nStrings++
		}
	}
	dcW := acW / 0.96 / float64(max(nStrings, 1))
	dcV := nominalDCV + g.rng.Float64()*20 - 10

	status := "0"
	if acW > 10 {
		status = "4"
	}

	vals := make([]string, 0, len(schema.Columns)-2)
	for _, c := range schema.Columns[2:] {
		var v float64
		prec := 0
		switch {
		case strings.HasPrefix(c, "AC power"):
			v = acW
		case strings.HasPrefix(c, "Daily Energy"):
			v = energyWh
		case c == "Status":
			vals = append(vals, status)
			continue
		case c == "Error":
			vals = append(vals, "0")
			continue
		case strings.HasPrefix(c, "DC Power"):
			v = dcW
		case strings.HasPrefix(c, "DC Voltage"):
			v = dcV
		case strings.HasPrefix(c, "DC Current"):
			v, prec = dcW/dcV, 1
		case strings.HasPrefix(c, "AC Voltage"):
			v = gridV + g.rng.Float64()*4 - 2
		case strings.HasPrefix(c, "AC Current"):
			v, prec = acW/gridV, 1
		case strings.HasPrefix(c, "Temperature"):
			v = 25 + acW/peakW*20
		}
		vals = append(vals, strconv.FormatFloat(v, 'f', prec, 64))
	}
	return vals
}
