package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/cellvm/costmodel"
	"github.com/colorfulnotion/cellvm/loader"
	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/syscalls"
	"github.com/colorfulnotion/cellvm/telemetry"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vm"
	"github.com/colorfulnotion/cellvm/vmerrors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/colorfulnotion/cellvm/cmd/cellvm")

func addMachineFlags(cmd *cobra.Command, cfg *types.RunConfig) {
	cmd.Flags().StringVar(&cfg.DataDir, "data", "", "read tx.json and cell files from this directory")
	cmd.Flags().StringVar(&cfg.DBPath, "db", "", "read a LevelDB snapshot written by resolve --db")
	cmd.Flags().Uint64Var(&cfg.MaxCycles, "max-cycles", 0, "fault once this many cycles are spent (0 means no limit)")
	cmd.Flags().BoolVar(&cfg.StrictDebug, "strict-debug", false, "fault on debug text that is not valid UTF-8")
}

// openStore picks the snapshot over the directory when both are given.
func openStore(cfg *types.RunConfig) (loader.Store, func() error, error) {
	switch {
	case cfg.DBPath != "":
		s, err := loader.OpenLevelDBStore(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case cfg.DataDir != "":
		return loader.NewDirStore(cfg.DataDir), func() error { return nil }, nil
	}
	return nil, nil, errors.New("one of --data or --db is required")
}

// newScriptMachine loads program and attaches the mmap and debug syscalls over
// store, with debug text going to out.
func newScriptMachine(cfg *types.RunConfig, program []byte, store loader.Store, out io.Writer) (*vm.Machine, error) {
	m := vm.NewMachine(
		vm.WithCostFunc(costmodel.InstructionCycles),
		vm.WithMaxCycles(cfg.MaxCycles),
		vm.WithSyscalls(
			syscalls.NewMmapSyscalls(loader.New(store)),
			syscalls.NewDebugSyscalls(
				syscalls.WithSink(syscalls.WriterSink(out)),
				syscalls.WithStrict(cfg.StrictDebug),
			),
		),
	)
	if err := m.LoadELF(program); err != nil {
		return nil, err
	}
	return m, nil
}

func newRunCmd(cfg *types.RunConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script.elf>",
		Short: "Run a script against a transaction and print its result and cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Script = args[0]
			log.Debug(log.VMMonitoring, "run config", "cfg", cfg.String())
			program, err := os.ReadFile(cfg.Script)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			m, err := newScriptMachine(cfg, program, store, out)
			if err != nil {
				return err
			}

			ctx, span := tracer.Start(cmd.Context(), "cellvm.run")
			defer span.End()
			span.SetAttributes(attribute.String("script", cfg.Script))

			code, err := m.Run(ctx)
			span.SetAttributes(attribute.Int64("cycles", int64(m.Cycles())))
			if err != nil {
				name := vmerrors.FaultName(err)
				telemetry.ObserveRun(name, m.Cycles())
				span.RecordError(err)
				span.SetStatus(codes.Error, name)
				fmt.Fprintf(out, "Fault: %s\nCycles: %d\n", name, m.Cycles())
				return err
			}
			telemetry.ObserveRun("ok", m.Cycles())
			fmt.Fprintf(out, "Result: %d\nCycles: %d\n", code, m.Cycles())
			return nil
		},
	}
	addMachineFlags(cmd, cfg)
	return cmd
}
