package main

import (
	"io"
	"log"
	"os"

	"github.com/fumin/kestrel"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := newCommand().Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func newCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "decompress [filename]",
		Short:         "Decompress a file, or stdin, to stdout",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := io.Reader(os.Stdin)
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "")
				}
				defer f.Close()
				r = f
			}
			if err := kestrel.Decompress(cmd.OutOrStdout(), r); err != nil {
				return errors.Wrap(err, "")
			}
			return nil
		},
	}
}
