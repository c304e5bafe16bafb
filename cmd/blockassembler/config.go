package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/forgecoind/forgecoind/chaincfg"
)

const (
	defaultLogFilename    = "blockassembler.log"
	defaultErrLogFilename = "blockassembler_err.log"
)

var (
	defaultHomeDir    = filepath.Join(os.TempDir(), "blockassembler")
	defaultLogFile    = filepath.Join(defaultHomeDir, defaultLogFilename)
	defaultErrLogFile = filepath.Join(defaultHomeDir, defaultErrLogFilename)
)

// configFlags are the operator-tunable knobs spec.md's §6 Configuration
// table names, plus the bookkeeping every subsystem binary in this tree
// carries (version flag, log paths, contract store path).
type configFlags struct {
	ShowVersion     bool   `short:"V" long:"version" description:"Display version information and exit"`
	BlockMaxWeight  uint64 `long:"blockmaxweight" description:"Upper bound on block weight" default:"3000000"`
	BlockMinTxFee   int64  `long:"blockmintxfee" description:"Floor feerate for package inclusion, in satoshi per kilobyte" default:"1000"`
	BlockVersion    int32  `long:"blockversion" description:"Block version override; passed to mining.Policy, which does not apply it"`
	PrintPriority   bool   `long:"printpriority" description:"Log each accepted package's fee and txid"`
	ContractDataDir string `long:"contractdatadir" description:"Directory holding the persistent contract key-value store"`
	Height          uint32 `long:"height" description:"Height of the template to assemble" required:"true"`
	PrevHash        string `long:"prevhash" description:"Hex-encoded hash of the tip the template is built on"`
	CoinbaseScript  string `long:"coinbasescript" description:"Hex-encoded scriptPubKey the coinbase pays to" required:"true"`
}

func parseConfig() (*configFlags, error) {
	cfg := &configFlags{ContractDataDir: defaultHomeDir}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()

	if cfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		appName = strings.TrimSuffix(appName, filepath.Ext(appName))
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	if err != nil {
		return nil, err
	}

	if cfg.BlockMaxWeight > chaincfg.MaxBlockSerSize*chaincfg.WitnessScaleFactor {
		return nil, errors.Errorf("--blockmaxweight may not exceed %d", chaincfg.MaxBlockSerSize*chaincfg.WitnessScaleFactor)
	}

	initLog(defaultLogFile, defaultErrLogFile)

	return cfg, nil
}
