// Command bench drives the index over raw float32 datasets: an autotuning
// run that sweeps target recalls along the Pareto frontier, and a
// fixed-parameter timing run that sweeps vote thresholds.
//
//	bench N NTEST K TREESMAX DEPTHMIN DEPTHMAX VOTESMAX DIM MMAP RESULTFILE DATADIR DENSITY PARALLEL
//
// The data directory must hold train.bin ((N-NTEST) × DIM) and test.bin
// (NTEST × DIM), raw row-major float32. Exits 0 on success, -1 on error.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/kelseyhightower/envconfig"

	"github.com/ic-timon/mrpt/indexer"
	"github.com/ic-timon/mrpt/indexer/store"
	"github.com/ic-timon/mrpt/simd"
)

type cliArgs struct {
	N          int     `arg:"positional,required" help:"total points (train + test)"`
	NTest      int     `arg:"positional,required" help:"test queries held out from the end"`
	K          int     `arg:"positional,required" help:"neighbors per query"`
	TreesMax   int     `arg:"positional,required" help:"trees grown before pruning"`
	DepthMin   int     `arg:"positional,required" help:"shallowest depth evaluated"`
	DepthMax   int     `arg:"positional,required" help:"depth grown"`
	VotesMax   int     `arg:"positional,required" help:"largest vote threshold evaluated"`
	Dim        int     `arg:"positional,required" help:"dataset dimension"`
	Mmap       int     `arg:"positional,required" help:"1 maps train.bin instead of reading it"`
	ResultFile string  `arg:"positional,required" help:"CSV report path"`
	DataDir    string  `arg:"positional,required" help:"directory with train.bin and test.bin"`
	Density    float64 `arg:"positional,required" help:"random matrix density"`
	Parallel   int     `arg:"positional,required" help:"0 limits the index to one worker"`
	Stage      string  `arg:"--stage" default:"autotune" help:"autotune or timing"`
}

type envConfig struct {
	ResultDir string `envconfig:"RESULT_DIR"`
	Seed      int64  `envconfig:"SEED" default:"12345"`
}

func main() {
	var args cliArgs
	arg.MustParse(&args)
	var env envConfig
	if err := envconfig.Process("mrpt", &env); err != nil {
		log.Fatalf("bench: %v", err)
	}
	if err := run(args, env); err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(-1)
	}
}

func run(a cliArgs, env envConfig) error {
	nPoints := a.N - a.NTest
	if nPoints <= 0 {
		return fmt.Errorf("no training points: n=%d n_test=%d", a.N, a.NTest)
	}

	testStore, err := store.ReadMatrix(filepath.Join(a.DataDir, "test.bin"), a.NTest, a.Dim)
	if err != nil {
		return err
	}
	defer testStore.Close()
	trainStore, err := store.OpenMatrix(filepath.Join(a.DataDir, "train.bin"), nPoints, a.Dim, a.Mmap != 0)
	if err != nil {
		return err
	}
	defer trainStore.Close()

	train, err := indexer.NewMatrix(trainStore.Data(), nPoints, a.Dim)
	if err != nil {
		return err
	}
	test, err := indexer.NewMatrix(testStore.Data(), a.NTest, a.Dim)
	if err != nil {
		return err
	}

	resultPath := a.ResultFile
	if env.ResultDir != "" {
		resultPath = filepath.Join(env.ResultDir, filepath.Base(a.ResultFile))
	}

	log.Printf("bench: %d train, %d test, dim %d, kernels %s", nPoints, a.NTest, a.Dim, simd.ImplDesc())

	switch a.Stage {
	case "autotune":
		return runAutotune(train, test, a, env.Seed, resultPath)
	case "timing":
		return runTiming(train, test, a, env.Seed, resultPath)
	}
	return fmt.Errorf("unknown stage %q", a.Stage)
}

func newIndex(train *indexer.Matrix, parallel int) *indexer.Index {
	idx := indexer.New(train)
	if parallel == 0 {
		idx.SetWorkers(1)
	}
	return idx
}
