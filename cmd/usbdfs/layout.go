package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/ardnew/usbdfs/device"
	"github.com/ardnew/usbdfs/device/hal"
	"github.com/ardnew/usbdfs/device/hal/sim"
	"github.com/ardnew/usbdfs/internal/profile"
)

// LayoutCmd prints where each endpoint buffer lands in packet memory.
type LayoutCmd struct {
	Profile string `arg:"" help:"Device profile (YAML, TOML or JSON)" type:"existingfile"`
	JSON    bool   `help:"Print JSON instead of a table" env:"USBDFS_LAYOUT_JSON"`
}

// slotInfo is one buffer of the layout.
type slotInfo struct {
	Endpoint  uint8  `json:"endpoint"`
	Direction string `json:"direction"`
	Type      string `json:"type"`
	Offset    uint16 `json:"offset"`
	Size      uint16 `json:"size"`
	CountRx   uint16 `json:"count_rx,omitempty"` // COUNT_RX block encoding
}

type layoutInfo struct {
	Slots       []slotInfo `json:"slots"`
	End         uint16     `json:"end"`
	Free        int        `json:"free"`
	DataBuffers int        `json:"data_buffers"`
	Budget      int        `json:"budget"`
}

func (c *LayoutCmd) Run(kctx *kong.Context, logger *slog.Logger) error {
	p, err := profile.Load(c.Profile)
	if err != nil {
		return err
	}
	cfg, err := p.Config()
	if err != nil {
		return fmt.Errorf("%s: %w", c.Profile, err)
	}
	dev, err := device.New(sim.New(), cfg, p.Descriptors(), device.Hooks{})
	if err != nil {
		return err
	}
	info := describeLayout(dev.Config(), dev.Layout())
	logger.Debug("layout computed", "profile", c.Profile, "end", info.End)

	if c.JSON {
		enc := json.NewEncoder(kctx.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	return info.print(kctx.Stdout)
}

func describeLayout(cfg device.Config, l device.Layout) layoutInfo {
	info := layoutInfo{
		End:         l.End(),
		Free:        l.Free(),
		DataBuffers: cfg.DataBufferSize(),
		Budget:      device.DataBufferBudget,
	}
	for n := range uint8(device.NumEndpoints) {
		for _, dir := range []hal.Direction{hal.DirOut, hal.DirIn} {
			s := l.Slot(n, dir)
			if !s.Configured() {
				continue
			}
			si := slotInfo{
				Endpoint:  n,
				Direction: dir.String(),
				Type:      cfg.Endpoints[n].Type.String(),
				Offset:    s.Offset,
				Size:      s.Size,
			}
			if dir == hal.DirOut {
				si.CountRx = hal.RxCountField(s.Size)
			}
			info.Slots = append(info.Slots, si)
		}
	}
	return info
}

func (info layoutInfo) print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EP\tDIR\tTYPE\tOFFSET\tSIZE\tCOUNT_RX")
	for _, s := range info.Slots {
		count := "-"
		if s.Direction == hal.DirOut.String() {
			count = fmt.Sprintf("0x%04X", s.CountRx)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t0x%03X\t%d\t%s\n",
			s.Endpoint, s.Direction, s.Type, s.Offset, s.Size, count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "packet memory: %d of %d bytes used, %d free; data buffers %d of %d bytes\n",
		info.End, hal.PacketMemorySize, info.Free, info.DataBuffers, info.Budget)
	return err
}
