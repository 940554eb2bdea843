// Package poller runs one poll of a solar-log gateway: download the export,
// find the rows added since the last poll, decode them and append them to
// the inverter logs.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ardexa/solarlog/pkg/decode"
	"github.com/ardexa/solarlog/pkg/log"
	"github.com/ardexa/solarlog/pkg/solarlog"
	"github.com/ardexa/solarlog/pkg/storage"
	"github.com/ardexa/solarlog/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// ErrUnknownVendor is returned by Init for an unsupported inverter type.
var ErrUnknownVendor = errors.New("only solarmax, refusol, abb or sma inverters are supported")

// Result summarizes a poll.
type Result struct {
	// NewLines counts the gateway lines not seen in the previous snapshot.
	NewLines int
	// Records counts the inverter lines appended to the logs.
	Records int
	// Rejected counts new gateway lines that could not be decoded.
	Rejected int
}

// Poller polls a single gateway for a single inverter vendor.
type Poller struct {
	gateway solarlog.Gateway
	store   storage.Store
	decoder *decode.Decoder
	now     func() time.Time

	vendor string
	zone   string
}

// New returns a Poller using the given collaborators.
func New(g solarlog.Gateway, s storage.Store, d *decode.Decoder) *Poller {
	return &Poller{
		gateway: g,
		store:   s,
		decoder: d,
		now:     time.Now,
	}
}

// Configured initializes the Poller with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(g solarlog.Gateway, s storage.Store) *Poller {
	p := New(g, s, nil)

	vendor := lflag.String("inverter-type", "", "Inverter vendor behind the gateway (sma, refusol, abb or solarmax)")
	zone := lflag.String("solarmax-zone", "", "IANA zone appended as a UTC offset to solarmax timestamps (empty for none)")

	lflag.Do(func() {
		p.vendor = *vendor
		p.zone = *zone
	})

	return p
}

// Init builds the decoder from the configured flags. It returns an error
// wrapping ErrUnknownVendor when the inverter type is not supported.
func (p *Poller) Init() error {
	v, err := types.ParseVendor(p.vendor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownVendor, err)
	}

	var opts []decode.Option
	if p.zone != "" {
		loc, err := time.LoadLocation(p.zone)
		if err != nil {
			return fmt.Errorf("failed to load solarmax zone: %w", err)
		}
		opts = append(opts, decode.WithLocation(loc))
	}

	d, err := decode.New(v, opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownVendor, err)
	}
	p.decoder = d
	return nil
}

// Run performs one poll. A failure to reach the gateway or to write to disk
// aborts the poll and is returned; a gateway line that cannot be decoded is
// logged and skipped.
func (p *Poller) Run(ctx context.Context) (Result, error) {
	var res Result
	if p.decoder == nil {
		return res, errors.New("poller not initialized")
	}

	if err := p.gateway.Prepare(ctx); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		// the last export the gateway built is still worth downloading
		log.Ctx(ctx).WarnContext(ctx, "failed to prepare solar-log export", slog.Any("error", err))
	}

	data, err := p.gateway.Download(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to download export: %w", err)
	}

	if err := p.store.WriteCurrent(ctx, data); err != nil {
		return res, fmt.Errorf("failed to save snapshot: %w", err)
	}

	lines, err := p.store.NewLines(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to find new lines: %w", err)
	}
	res.NewLines = len(lines)

	schema := p.decoder.Schema()
	header := schema.Header()
	day := p.now()

	for _, line := range lines {
		log.Ctx(ctx).DebugContext(ctx, "new gateway line", slog.String("line", line))

		records, err := p.decoder.Demux(line)
		if err != nil {
			res.Rejected++
			log.Ctx(ctx).WarnContext(ctx, "gateway line not recognised", slog.String("line", line), slog.Any("error", err))
			continue
		}

		if err := validate(records, schema.Vendor, day); err != nil {
			res.Rejected++
			log.Ctx(ctx).WarnContext(ctx, "gateway line not recognised", slog.String("line", line), slog.Any("error", err))
			continue
		}

		for _, r := range records {
			dest := types.Destination{Vendor: schema.Vendor, Inverter: r.Inverter, Day: day}
			if err := p.store.Append(ctx, dest, header, r.Line()); err != nil {
				return res, fmt.Errorf("failed to write inverter %s log: %w", r.Inverter, err)
			}
			res.Records++
		}
	}

	return res, nil
}

// validate checks every record of a line has a usable destination so that a
// line is either written in full or not at all.
func validate(records []types.Record, v types.Vendor, day time.Time) error {
	for _, r := range records {
		dest := types.Destination{Vendor: v, Inverter: r.Inverter, Day: day}
		if err := dest.Validate(); err != nil {
			return err
		}
	}
	return nil
}
