// Command blockassembler assembles a single PoW block template against
// an empty mempool and an optional persistent contract store, and logs
// its shape. It exists to exercise mining.Assembler end to end from a
// real CLI entrypoint, the way every subsystem in this tree has its
// own small driver binary under cmd/.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/forgecoind/forgecoind/chaincfg"
	"github.com/forgecoind/forgecoind/chainhash"
	"github.com/forgecoind/forgecoind/contractstate"
	"github.com/forgecoind/forgecoind/mempool"
	"github.com/forgecoind/forgecoind/mining"
)

func main() {
	cfg, err := parseConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	coinbaseScript, err := hex.DecodeString(cfg.CoinbaseScript)
	if err != nil {
		log.Errorf("invalid --coinbasescript: %s", err)
		os.Exit(1)
	}

	var prevHash chainhash.Hash
	if cfg.PrevHash != "" {
		b, err := hex.DecodeString(cfg.PrevHash)
		if err != nil || len(b) != chainhash.HashSize {
			log.Errorf("invalid --prevhash")
			os.Exit(1)
		}
		copy(prevHash[:], b)
	}

	var store *contractstate.Store
	if cfg.ContractDataDir != "" {
		store, err = contractstate.Open(cfg.ContractDataDir, "contractstate")
		if err != nil {
			log.Errorf("failed to open contract store: %s", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	policy := mining.Policy{
		BlockMaxWeight:  cfg.BlockMaxWeight,
		BlockMinFeeRate: cfg.BlockMinTxFee,
		BlockVersion:    cfg.BlockVersion,
		PrintPriority:   cfg.PrintPriority,
	}

	asm := mining.NewAssembler(&chaincfg.MainNetParams, mempool.New(), policy, store, nil, nil, nil)

	tmpl, err := asm.CreateNewBlock(cfg.Height, prevHash, coinbaseScript, 0)
	if err != nil {
		log.Errorf("block assembly failed: %s", err)
		os.Exit(1)
	}
	if tmpl == nil {
		log.Infof("assembly declined to produce a template at height %d", cfg.Height)
		return
	}
	log.Infof("assembled template at height %d: %d transactions, coinbase value %d",
		cfg.Height, len(tmpl.Txs), tmpl.Txs[0].TxOut[0].Value)
}
