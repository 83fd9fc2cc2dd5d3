package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// specification is one configured simulation run: an algorithm chain
// against a storage limit, writing its CSV series to outputPath.
type specification struct {
	name         string
	algorithms   string // "-"-joined algorithm chain, e.g. "MERGED-LRU-FIFO"
	storageLimit int64  // bytes
	outputPath   string
}

// oneShotSpecifications builds the single specification named by a
// one-shot invocation.
func oneShotSpecifications(sizeLimitGB uint64, algorithms []string, outputFolder, filename string) ([]specification, error) {
	if len(algorithms) == 0 {
		return nil, fmt.Errorf("one-shot requires at least one algorithm")
	}
	return []specification{{
		name:         strings.Join(algorithms, "-"),
		algorithms:   strings.Join(algorithms, "-"),
		storageLimit: gbToBytes(sizeLimitGB),
		outputPath:   filepath.Join(outputFolder, filename),
	}}, nil
}

// batchSpecifications builds one specification per definition at a single
// shared storage limit.
func batchSpecifications(sizeLimitGB uint64, definitions []string, outputFolder string) ([]specification, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("batch requires at least one algorithm definition")
	}
	storageLimit := gbToBytes(sizeLimitGB)

	specs := make([]specification, 0, len(definitions))
	for _, definition := range definitions {
		specs = append(specs, specification{
			name:         definition,
			algorithms:   definition,
			storageLimit: storageLimit,
			outputPath:   filepath.Join(outputFolder, definition+".csv"),
		})
	}
	return specs, nil
}

// sizeRampSpecifications builds one specification per (definition, storage
// limit) pair, with storage limits ranging over powers of two in GB from
// 2^lowerExponent to 2^(upperExponent-1) inclusive.
func sizeRampSpecifications(lowerExponent, upperExponent uint, definitions []string, outputFolder string) ([]specification, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("size-ramp requires at least one algorithm definition")
	}
	if upperExponent <= lowerExponent {
		return nil, fmt.Errorf("size-ramp requires upper-exponent > lower-exponent")
	}

	var specs []specification
	for exp := lowerExponent; exp < upperExponent; exp++ {
		sizeGB := uint64(1) << exp
		storageLimit := gbToBytes(sizeGB)
		limitName := strings.ReplaceAll(humanize.IBytes(uint64(storageLimit)), " ", "")
		sizeDirectory := filepath.Join(outputFolder, limitName)

		for _, definition := range definitions {
			specs = append(specs, specification{
				name:         fmt.Sprintf("%s-%s", definition, limitName),
				algorithms:   definition,
				storageLimit: storageLimit,
				outputPath:   filepath.Join(sizeDirectory, definition+".csv"),
			})
		}
	}
	return specs, nil
}

func gbToBytes(gb uint64) int64 {
	return int64(gb) * 1024 * 1024 * 1024
}
