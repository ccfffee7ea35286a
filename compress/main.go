package main

import (
	"bytes"
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
	var verbose bool
	cmd := &cobra.Command{
		Use:           "compress [filename]",
		Short:         "Compress a file, or stdin, to stdout",
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
			return compress(cmd.OutOrStdout(), r, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log sizes and compression ratio")
	return cmd
}

func compress(w io.Writer, r io.Reader, verbose bool) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "")
	}
	data, err := kestrel.Encode(src)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if verbose {
		ratio := 0.0
		if len(src) > 0 {
			ratio = float64(len(data)) / float64(len(src))
		}
		log.Printf("original: %d bytes, compressed: %d bytes, ratio: %.4f", len(src), len(data), ratio)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
