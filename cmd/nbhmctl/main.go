// Command nbhmctl drives a concurrent mixed read/write/delete workload
// against an nbhm.Map and reports the resulting table shape, as a smoke
// test and rough benchmark harness for the library.
package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonhanna/nbhm"
	"github.com/jonhanna/nbhm/pool"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("nbhmctl", pflag.ContinueOnError)

	configPath := flags.StringP("config", "c", "", "path to a hujson config file")
	workers := flags.IntP("workers", "w", 0, "override the number of concurrent workers")
	operations := flags.IntP("operations", "n", 0, "override the number of operations per worker")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging from the table")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}

		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	if *workers > 0 {
		cfg.Workers = *workers
	}

	if *operations > 0 {
		cfg.Operations = *operations
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)

			return 1
		}

		logger = l
	}

	defer logger.Sync() //nolint:errcheck

	opts := []nbhm.Option[string, int64]{nbhm.WithLogger[string, int64](logger)}
	if cfg.MigrationChunk > 0 {
		opts = append(opts, nbhm.WithMigrationChunk[string, int64](uint32(cfg.MigrationChunk)))
	}

	m, err := nbhm.NewComparable[string, int64](cfg.InitialCapacity, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	if err := runWorkload(m, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	stats := m.Stats()
	fmt.Printf("entries(est)=%d capacity=%d claimed(est)=%d generations=%d footprint=%s\n",
		stats.LenEstimate, stats.Capacity, stats.Claimed, stats.Generations, stats.FootprintEstimate)

	return 0
}

func runWorkload(m *nbhm.Map[string, int64], cfg Config) error {
	var g errgroup.Group

	keyBufs := pool.New(func() []byte { return make([]byte, 0, 20) })

	for w := 0; w < cfg.Workers; w++ {
		w := w

		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(w), uint64(w)*2654435761))

			for i := 0; i < cfg.Operations; i++ {
				buf := keyBufs.Get()
				buf = strconv.AppendUint(buf[:0], rng.Uint64N(uint64(cfg.Operations)), 10)
				key := string(buf)
				keyBufs.Put(buf)

				switch rng.IntN(3) {
				case 0:
					if _, _, err := m.Put(key, int64(i)); err != nil {
						return err
					}
				case 1:
					m.Get(key)
				case 2:
					if _, _, err := m.Remove(key); err != nil {
						return err
					}
				}
			}

			return nil
		})
	}

	return g.Wait()
}
