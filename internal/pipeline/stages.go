package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut/internal/clone"
	"github.com/sibyllinesoft/valknut/internal/coverage"
	"github.com/sibyllinesoft/valknut/internal/entity"
	"github.com/sibyllinesoft/valknut/internal/vlog"
)

// stopMotifSampleSize is how many learned patterns runClone logs as a
// cache-quality sample whenever a stop-motif cache is loaded.
const stopMotifSampleSize = 5

// runCoverage discovers and parses coverage reports, grounded on
// internal/discovery's doublestar-glob walking style, and builds the
// coverage-gap packs for every report found.
func (o *Orchestrator) runCoverage(ctx context.Context, roots []string, reader *fileMapReader) ([]coverage.CoveragePack, error) {
	reportPaths, err := o.discoverCoverageReports(roots)
	if err != nil {
		return nil, err
	}
	if len(reportPaths) == 0 {
		return nil, nil
	}

	det := coverage.New(o.cfg.Coverage, o.ast, reader)

	var all []coverage.FileCoverage
	for _, p := range reportPaths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		format := coverageFormatFor(p)
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		files, err := coverage.ParseReport(format, f)
		f.Close()
		if err != nil {
			continue
		}
		all = append(all, files...)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return det.BuildPacks(all)
}

// discoverCoverageReports honors config.Coverage.CoverageFile as an explicit
// override, falling back to a doublestar-glob search of SearchPaths (or the
// analysis roots, if none are configured) when AutoDiscover is set.
func (o *Orchestrator) discoverCoverageReports(roots []string) ([]string, error) {
	cfg := o.cfg.Coverage
	if cfg.CoverageFile != "" {
		return []string{cfg.CoverageFile}, nil
	}
	if !cfg.AutoDiscover {
		return nil, nil
	}

	searchRoots := cfg.SearchPaths
	if len(searchRoots) == 0 {
		searchRoots = roots
	}

	var found []string
	seen := make(map[string]bool)
	for _, root := range searchRoots {
		for _, pattern := range cfg.FilePatterns {
			matches, err := doublestar.Glob(os.DirFS(root), pattern)
			if err != nil {
				continue
			}
			for _, m := range matches {
				full := filepath.Join(root, m)
				if seen[full] {
					continue
				}
				seen[full] = true
				found = append(found, full)
			}
		}
	}
	return found, nil
}

func coverageFormatFor(path string) coverage.ReportFormat {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "lcov") || strings.HasSuffix(base, ".info"):
		return coverage.FormatLCOV
	case strings.Contains(base, "cobertura") || strings.HasSuffix(base, ".xml") && !strings.Contains(base, "jacoco") && !strings.Contains(base, "clover"):
		return coverage.FormatCobertura
	case strings.Contains(base, "jacoco"):
		return coverage.FormatJaCoCo
	case strings.Contains(base, "clover"):
		return coverage.FormatClover
	case strings.HasSuffix(base, ".json"):
		return coverage.FormatJSON
	default:
		return coverage.FormatLCOV
	}
}

// runClone builds one clone.Document per function/method entity across
// compact and runs the clone detector over them. Grounded on 
// pipeline: tokenize for the MinHash corpus, preorder AST labels for APTED
// verification, and the same labels for the structural-gate's distinct-block
// count.
func (o *Orchestrator) runClone(compact []*fileRecord) ([]*clone.Candidate, clone.PhaseCounts, error) {
	var docs []*clone.Document
	labels := make(map[string][]string)

	for _, rec := range compact {
		ext := filepath.Ext(rec.path)
		ct, err := o.ast.GetAST(rec.path, ext, rec.content)
		if err != nil {
			continue
		}
		astCtx := o.ast.CreateContext(ct, rec.path)

		for _, er := range rec.entities {
			if er.entity.Kind != entity.KindFunction && er.entity.Kind != entity.KindMethod {
				continue
			}
			start, end := uint(er.entity.ByteRange.Start), uint(er.entity.ByteRange.End)
			nodeLabels := preorderLabels(astCtx, start, end)
			tokens := clone.Tokenize(er.entity.SourceCode)

			doc := &clone.Document{
				ID:             er.entity.ID,
				FilePath:       rec.path,
				StartLine:      er.entity.LineRange.Start,
				EndLine:        er.entity.LineRange.End,
				Source:         er.entity.SourceCode,
				Language:       rec.language,
				TokenCount:     len(tokens),
				ASTNodes:       len(nodeLabels),
				DistinctBlocks: distinctBlockCount(nodeLabels),
			}
			docs = append(docs, doc)
			labels[doc.ID] = nodeLabels
		}
	}

	if len(docs) < 2 {
		return nil, clone.PhaseCounts{}, nil
	}

	var cache *clone.StopMotifCache
	if o.cfg.Dedupe.CacheEnabled && o.cfg.Dedupe.CachePath != "" {
		if f, err := os.Open(o.cfg.Dedupe.CachePath); err == nil {
			if c, err := clone.LoadStopMotifCache(f); err == nil {
				cache = c
				if sample, err := c.SampleRepresentative(stopMotifSampleSize); err == nil && len(sample) > 0 {
					vlog.Stage("clone").Debug("loaded stop-motif cache",
						zap.Int("entries", len(c.TokenGrams)),
						zap.Strings("sample", sample),
					)
				}
			}
			f.Close()
		}
	}

	det := clone.New(o.cfg.LSH, o.cfg.Dedupe, o.cfg.Denoise, cache)
	support := &adapterSupport{labels: labels}
	candidates, counts := det.DetectWithTrace(docs, support)
	return candidates, counts, nil
}

// distinctBlockCount approximates the clone gate's "distinct control-flow
// blocks" count from preorder AST-kind labels: the number of distinct
// if/for/while/try-shaped node kinds present, language-neutral because it
// keys off common tree-sitter grammar naming rather than a per-language table.
func distinctBlockCount(nodeLabels []string) int {
	seen := make(map[string]bool)
	for _, kind := range nodeLabels {
		lower := strings.ToLower(kind)
		for _, part := range strings.Split(lower, "_") {
			switch part {
			case "if", "elif", "for", "while", "try", "catch", "switch", "case":
				seen[lower] = true
			}
		}
	}
	return len(seen)
}
