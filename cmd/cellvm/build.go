package main

import (
	"fmt"
	"os"

	"github.com/colorfulnotion/cellvm/types"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var (
		input  string
		output string
		debug  bool
		check  bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Convert a JSON transaction into the binary layout scripts read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			tx, err := types.ParseTransaction(doc)
			if err != nil {
				return err
			}
			if check {
				report, err := types.CheckRoundTrip(doc)
				if err != nil {
					return err
				}
				if report != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), report)
					return fmt.Errorf("binary form does not round trip")
				}
			}
			if debug {
				pretty, err := types.MarshalJSONIndent(tx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", pretty)
				return nil
			}
			encoded, err := types.EncodeTransaction(tx)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(encoded)
				return err
			}
			return os.WriteFile(output, encoded, 0o644)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON transaction file (default stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "binary output file (default stdout)")
	cmd.Flags().BoolVar(&debug, "debug", false, "print the parsed transaction instead of the binary")
	cmd.Flags().BoolVar(&check, "check", false, "verify the binary form decodes back to the same document")
	return cmd
}
