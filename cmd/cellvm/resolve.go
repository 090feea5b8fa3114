package main

import (
	"fmt"
	"os"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/loader"
	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/resolver"
	rpcclient "github.com/colorfulnotion/cellvm/rpc_client"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
)

// dialOptions is appended to every node connection; tests swap the transport.
var dialOptions []rpcclient.Option

func newResolveCmd(cfg *types.RunConfig) *cobra.Command {
	var (
		txPath string
		locals []string
		color  bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a transaction's deps and inputs against a node and materialise them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd.InOrStdin(), txPath)
			if err != nil {
				return err
			}
			tx, err := types.ParseTransaction(doc)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := rpcclient.Dial(ctx, cfg.RPC, dialOptions...)
			if err != nil {
				return err
			}
			defer client.Close()
			remote, err := resolver.New(ctx, client)
			if err != nil {
				return err
			}

			var provider resolver.CellProvider = remote
			if len(locals) > 0 {
				mem := resolver.NewMemoryProvider()
				for _, path := range locals {
					b, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					ltx, err := types.ParseTransaction(b)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					if _, err := mem.AddTransaction(ltx); err != nil {
						return err
					}
				}
				provider = resolver.Chain(mem, remote)
			}

			rt := resolver.ResolveTransaction(ctx, provider, tx)
			txHash, err := tx.Hash()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolvedTree(txHash, rt, remote, color).String())
			if n := rt.Unknown(); n > 0 {
				log.Warn(log.ResolverMonitoring, "unresolved cells", "count", n)
			}

			if cfg.DataDir != "" {
				if err := loader.WriteDir(cfg.DataDir, tx, rt.InputCells()); err != nil {
					return err
				}
				log.Info(log.LoaderMonitoring, "wrote data dir", "path", cfg.DataDir)
			}
			if cfg.DBPath != "" {
				store, err := loader.OpenLevelDBStore(cfg.DBPath)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.WriteSnapshot(tx, rt.InputCells()); err != nil {
					return err
				}
				log.Info(log.LoaderMonitoring, "wrote snapshot", "path", cfg.DBPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfg.RPC, "rpc", "r", rpcclient.DefaultEndpoint, "node JSON-RPC endpoint")
	cmd.Flags().StringVarP(&txPath, "tx", "t", "", "JSON transaction file (default stdin)")
	cmd.Flags().StringVar(&cfg.DataDir, "data", "", "write tx.json and cell files under this directory")
	cmd.Flags().StringVar(&cfg.DBPath, "db", "", "write a LevelDB snapshot at this path")
	cmd.Flags().BoolVar(&color, "color", false, "color cell statuses")
	cmd.Flags().StringSliceVar(&locals, "local", nil, "JSON transactions whose outputs are resolved before asking the node")
	return cmd
}

func resolvedTree(txHash common.Hash, rt *resolver.ResolvedTransaction, remote *resolver.RPCCellProvider, color bool) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(common.Colorize(color, common.ColorBlue, fmt.Sprintf("tx %s (tip #%d %s)", txHash.String_short(), remote.TipNumber(), remote.Tip().String_short())))
	deps := tree.AddBranch(fmt.Sprintf("deps (%d)", len(rt.Deps)))
	for i, s := range rt.Deps {
		deps.AddNode(fmt.Sprintf("%s %s", rt.Transaction.Deps[i], statusString(s, color)))
	}
	inputs := tree.AddBranch(fmt.Sprintf("inputs (%d)", len(rt.Inputs)))
	for i, s := range rt.Inputs {
		inputs.AddNode(fmt.Sprintf("%s %s", rt.Transaction.Inputs[i].PreviousOutput, statusString(s, color)))
	}
	outputs := tree.AddBranch(fmt.Sprintf("outputs (%d)", len(rt.Transaction.Outputs)))
	for i, out := range rt.Transaction.Outputs {
		outputs.AddNode(fmt.Sprintf("#%d capacity=%d lock=%d bytes", i, out.Capacity, len(out.Lock)))
	}
	return tree
}

func statusString(s types.CellStatus, color bool) string {
	if s.IsUnknown() {
		return common.Colorize(color, common.ColorRed, s.String())
	}
	return common.Colorize(color, common.ColorGreen, s.String())
}
