// Command cluster computes the normalized compression distance between every pair of files in a directory.
// The resulting matrix can be fed to a hierarchical clustering tool.
package main

import (
	"bytes"
	"compress/gzip"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fumin/kestrel"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Intelligence string
	DataDir      string
	Workers      int
	Dump         bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := newCommand().Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func newCommand() *cobra.Command {
	cfg := config{}
	cmd := &cobra.Command{
		Use:           "cluster",
		Short:         "Compute the normalized compression distance matrix of a directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Dump {
				log.Printf("config: %# v", pretty.Formatter(cfg))
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&cfg.Intelligence, "intelligence", "i", "kestrel", "compressor, kestrel or gzip")
	cmd.Flags().StringVarP(&cfg.DataDir, "data", "d", "mammals10", "data directory")
	cmd.Flags().IntVarP(&cfg.Workers, "jobs", "j", 4, "number of concurrent compressions")
	cmd.Flags().BoolVar(&cfg.Dump, "dump", false, "dump the configuration and the matrix")
	return cmd
}

func run(cfg config) error {
	data, err := listFiles(cfg.DataDir)
	if err != nil {
		return errors.Wrap(err, "")
	}
	distMat, err := distanceMatrix(cfg, data)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if cfg.Dump {
		log.Printf("%# v", pretty.Formatter(distMat))
	}

	if err := display(data, distMat); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func display(data []string, distMat []float64) error {
	// Print data as a comma separated array.
	buf := bytes.NewBuffer(nil)
	for i, fpath := range data {
		name := filepath.Base(fpath)
		base := strings.TrimSuffix(name, filepath.Ext(name))
		buf.WriteString(strconv.Quote(base))
		if i == len(data)-1 {
			break
		}
		buf.WriteByte(',')
	}
	log.Printf("[%s]", buf.Bytes())

	// Print distance matrix as a comma separated array.
	buf.Reset()
	for i, f := range distMat {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		if i == len(distMat)-1 {
			break
		}
		buf.WriteByte(',')
	}
	log.Printf("[%s]", buf.Bytes())

	return nil
}

// A complexityCache memoizes the compressed size of single files.
type complexityCache struct {
	mu    sync.Mutex
	sizes map[string]float64
}

func (c *complexityCache) get(intelligence, fpath string) (float64, error) {
	c.mu.Lock()
	size, ok := c.sizes[fpath]
	c.mu.Unlock()
	if ok {
		return size, nil
	}

	b, err := os.ReadFile(fpath)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	size, err = complexity(intelligence, b)
	if err != nil {
		return -1, errors.Wrap(err, fpath)
	}

	c.mu.Lock()
	c.sizes[fpath] = size
	c.mu.Unlock()
	return size, nil
}

func distance(cache *complexityCache, intelligence, x, y string) (float64, error) {
	bx, err := os.ReadFile(x)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	by, err := os.ReadFile(y)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	kxy, err := complexity(intelligence, append(bx, by...))
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	kx, err := cache.get(intelligence, x)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	ky, err := cache.get(intelligence, y)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	return ncd(kx, ky, kxy), nil
}

// ncd returns the normalized compression distance given the compressed sizes of x, y and their concatenation.
func ncd(kx, ky, kxy float64) float64 {
	minxy := kx
	if ky < kx {
		minxy = ky
	}
	maxxy := kx
	if ky > kx {
		maxxy = ky
	}
	if maxxy == 0 {
		return 0
	}
	return (kxy - minxy) / maxxy
}

func complexity(intelligence string, b []byte) (float64, error) {
	switch intelligence {
	case "kestrel":
		return complexityKestrel(b)
	case "gzip":
		return complexityGzip(b)
	default:
		return -1, errors.Errorf("unknown intelligence %q", intelligence)
	}
}

// complexityKestrel encodes b with a model of its own,
// so it is safe to call from several goroutines.
func complexityKestrel(b []byte) (float64, error) {
	data, err := kestrel.Encode(b)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	return float64(len(data)), nil
}

func complexityGzip(b []byte) (float64, error) {
	buf := bytes.NewBuffer(nil)
	zw, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	if _, err := zw.Write(b); err != nil {
		return -1, errors.Wrap(err, "")
	}
	if err := zw.Close(); err != nil {
		return -1, errors.Wrap(err, "")
	}
	return float64(buf.Len()), nil
}

// distanceMatrix returns the upper triangle of the distance matrix of data, row by row.
func distanceMatrix(cfg config, data []string) ([]float64, error) {
	cache := &complexityCache{sizes: make(map[string]float64)}

	n := len(data)
	if n < 2 {
		return nil, errors.Errorf("need at least two files, got %d", n)
	}
	mat := make([]float64, n*(n-1)/2)
	g := errgroup.Group{}
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	k := 0
	for i, dx := range data[:n-1] {
		for _, dy := range data[i+1:] {
			k, dx, dy := k, dx, dy
			g.Go(func() error {
				dist, err := distance(cache, cfg.Intelligence, dx, dy)
				if err != nil {
					return errors.Wrap(err, "")
				}
				mat[k] = dist
				log.Printf("\"%s\"-\"%s\": %f", dx, dy, dist)
				return nil
			})
			k++
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mat, nil
}

func listFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	data := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		fpath := filepath.Join(dir, f.Name())
		data = append(data, fpath)
	}
	return data, nil
}
