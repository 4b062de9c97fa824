// scintegrate combines single-cell RNA-seq samples listed in a CSV manifest
// with one of five integration strategies and writes the combined object
// plus a diagnostic report into the output directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/scgenomics/scintegrate"
	"github.com/scgenomics/scintegrate/expr"
	"github.com/scgenomics/scintegrate/integrate"
	"github.com/scgenomics/scintegrate/persist"
	"github.com/scgenomics/scintegrate/report"
)

func main() {
	var manifestPath, outdir, strategyName, reference string
	var rank int
	var lambda, resolution float64
	var quickLook bool

	flag.StringVar(&manifestPath, "manifest", "", "Path to the CSV manifest listing sample_id, dataset, and path for each sample.")
	flag.StringVar(&outdir, "outdir", "", "Directory the combined object and report are written into.")
	flag.StringVar(&strategyName, "strategy", "", "Integration strategy: one of seurat-cca, seurat-largedata, sctransform, harmony, liger.")
	flag.StringVar(&reference, "reference", "0,1", "Comma-separated reference sample indices for the seurat-largedata strategy.")
	flag.IntVar(&rank, "rank", integrate.DefaultLigerRank, "Factorization rank for the liger strategy.")
	flag.Float64Var(&lambda, "lambda", integrate.DefaultLigerLambda, "Dataset-specific factor penalty for the liger strategy.")
	flag.Float64Var(&resolution, "resolution", integrate.DefaultResolution, "Clustering resolution for the liger strategy.")
	flag.BoolVar(&quickLook, "png", false, "Also write a quick-look PNG of the nonlinear embedding.")

	flag.Parse()

	if manifestPath == "" {
		log.Fatalln("Please provide -manifest")
	}

	if outdir == "" {
		log.Fatalln("Please provide -outdir")
	}

	if strategyName == "" {
		log.Fatalln("Please provide -strategy")
	}

	// The strategy is validated before any file is touched.
	strategy, err := integrate.ParseStrategy(strategyName)
	if err != nil {
		log.Fatalln(err)
	}

	refIdx, err := parseReference(reference)
	if err != nil {
		log.Fatalln(err)
	}

	opts := integrate.Options{
		Reference:  refIdx,
		Rank:       rank,
		Lambda:     lambda,
		Resolution: resolution,
	}

	log.Println("Launched scintegrate with strategy", strategy)

	if err := runAll(manifestPath, outdir, strategy, opts, quickLook); err != nil {
		log.Fatalln(err)
	}
}

func runAll(manifestPath, outdir string, strategy integrate.Strategy, opts integrate.Options, quickLook bool) error {

	datasets, err := expr.MergeFileData(scintegrate.ExpandHome(manifestPath))
	if err != nil {
		return err
	}
	log.Println("Loaded", len(datasets), "samples from", manifestPath)

	combined, err := integrate.Run(datasets, strategy, opts)
	if err != nil {
		return err
	}
	log.Println("Integrated", len(combined.Cells), "cells into a", combined.Linear.Cols, "dimension embedding")

	return writeArtifacts(scintegrate.ExpandHome(outdir), combined, quickLook)
}

// writeArtifacts writes the serialized object and report for one run. A run
// that cannot produce its full artifact set must leave nothing behind, so
// any failure after the object is saved removes what was already written.
func writeArtifacts(outdir string, combined *integrate.Combined, quickLook bool) error {
	objectPath, err := persist.Save(outdir, combined)
	if err != nil {
		return err
	}
	log.Println("Wrote", objectPath)

	reportPath, err := report.Write(outdir, combined)
	if err != nil {
		os.Remove(objectPath)
		return err
	}
	log.Println("Wrote", reportPath)

	if quickLook {
		pngPath, err := report.QuickLook(outdir, combined)
		if err != nil {
			os.Remove(objectPath)
			os.Remove(reportPath)
			return err
		}
		log.Println("Wrote", pngPath)
	}

	return nil
}

func parseReference(raw string) ([]int, error) {
	fields := strings.Split(raw, ",")

	out := make([]int, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid -reference value %q: %v", field, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("-reference lists no sample indices")
	}

	return out, nil
}
