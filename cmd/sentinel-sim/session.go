//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sentinel-go/drivers/sentinel"
	"sentinel-go/errcode"
	"sentinel-go/services/supervisor"
)

// withSupervisor boots the supervisor from the persisted store, runs fn
// against it through the primary-side driver, then shuts it down.
func withSupervisor(cmd *cobra.Command, fn func(d *sentinel.Device) error) error {
	cfg, log, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	hb, err := supervisor.NewHostBoard(cfg, log)
	if err != nil {
		return err
	}
	defer hb.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	board, wctx := hb.PowerUp(ctx)
	sv, err := supervisor.New(supervisor.Options{Config: cfg, Board: board, Log: log})
	if err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() { errc <- sv.Run(wctx) }()

	d := sentinel.New(hb.Primary, cfg.Bus.Address)
	ferr := d.SyncAck()
	if ferr == nil {
		ferr = fn(d)
	}
	cancel()
	if err := <-errc; err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, supervisor.ErrSelfReset) {
		return err
	}
	return ferr
}

func newSendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <opcode>...",
		Short: "Send opcodes as one bus transaction and print the replies",
		Long: `Send opcodes as one bus transaction and print one reply word per opcode.

Gated opcodes need an unlock (1) in front of them. Opcodes that do not
reply while acks are off read as zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := make([]byte, 0, len(args))
			for _, a := range args {
				v, err := strconv.ParseUint(a, 0, 8)
				if err != nil {
					return fmt.Errorf("opcode %q: %w", a, err)
				}
				ops = append(ops, byte(v))
			}
			return withSupervisor(cmd, func(d *sentinel.Device) error {
				words, err := d.Raw(ops...)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "OPCODE\tREPLY\tHEX\tCODE")
				for i, v := range words {
					fmt.Fprintf(w, "%d\t%d\t0x%04X\t%s\n", ops[i], v, v, errcode.Code(v))
				}
				return w.Flush()
			})
		},
	}
}

type slotRow struct {
	Slot  int    `json:"slot"`
	Name  string `json:"name"`
	Value uint16 `json:"value"`
}

func newDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the persisted slot table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withSupervisor(cmd, func(d *sentinel.Device) error {
				rows := make([]slotRow, 0, supervisor.NumSlots)
				for i := 0; i < supervisor.NumSlots; i++ {
					v, err := d.DumpSlot(i)
					if err != nil {
						return fmt.Errorf("slot %d: %w", i, err)
					}
					rows = append(rows, slotRow{Slot: i, Name: supervisor.SlotName(i), Value: v})
				}
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(rows)
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SLOT\tNAME\tVALUE\tHEX")
				for _, r := range rows {
					fmt.Fprintf(w, "%d\t%s\t%d\t0x%04X\n", r.Slot, r.Name, r.Value, r.Value)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Bool("json", false, "Output JSON")
	return cmd
}

func newFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Restore every persisted setting to its default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSupervisor(cmd, func(d *sentinel.Device) error {
				if err := d.Format(); err != nil {
					return err
				}
				fmt.Println("Slot table formatted")
				return nil
			})
		},
	}
}
