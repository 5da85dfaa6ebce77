package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/clone"
	"github.com/sibyllinesoft/valknut/internal/cohesion"
	"github.com/sibyllinesoft/valknut/internal/complexity"
	"github.com/sibyllinesoft/valknut/internal/config"
	"github.com/sibyllinesoft/valknut/internal/coverage"
	"github.com/sibyllinesoft/valknut/internal/discovery"
	"github.com/sibyllinesoft/valknut/internal/entity"
	verrors "github.com/sibyllinesoft/valknut/internal/errors"
	"github.com/sibyllinesoft/valknut/internal/langregistry"
	"github.com/sibyllinesoft/valknut/internal/refactor"
	"github.com/sibyllinesoft/valknut/internal/scoring"
	"github.com/sibyllinesoft/valknut/internal/security"
	"github.com/sibyllinesoft/valknut/internal/structure"
	"github.com/sibyllinesoft/valknut/internal/vlog"
)

// validationThresholdKB bounds how large a file must be before its header is
// checked for a disguised binary; smaller files aren't worth the extra stat+
// read.
const validationThresholdKB = 64

// Orchestrator wires every detector stage together. It owns the
// shared langregistry.Registry and astsvc.Service for the run, mirroring the
// teacher's own pattern of a long-lived service pair handed to every stage
// rather than rebuilt per file.
type Orchestrator struct {
	cfg       *config.Config
	registry  *langregistry.Registry
	ast       *astsvc.Service
	validator *security.FileValidator
}

// New builds an Orchestrator from a validated configuration.
func New(cfg *config.Config) (*Orchestrator, error) {
	registry, err := langregistry.NewDefault()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		ast:       astsvc.New(registry),
		validator: security.NewFileValidator(validationThresholdKB),
	}, nil
}

// entityRecord is the per-entity working state threaded from extraction
// through complexity, refactoring detection, and feature-vector assembly.
type entityRecord struct {
	entity     entity.CodeEntity
	metrics    complexity.Metrics
	paramCount int
	issues     []refactor.Issue
	suggestions []refactor.Suggestion
}

// fileRecord is the per-file working state built during the read+parse pass.
type fileRecord struct {
	path     string // relative, slash-normalized
	language string
	content  []byte
	entities []*entityRecord
}

// Run executes the full pipeline over roots and returns the aggregated
// AnalysisResults, steps 1-8.
func (o *Orchestrator) Run(ctx context.Context, roots []string) (*AnalysisResults, error) {
	start := time.Now()
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := vlog.Stage("pipeline").With(zap.String("run_id", runID))
	log.Info("run started", zap.Strings("roots", roots))

	var warnings []string
	var warnMu sync.Mutex
	warn := func(msg string) {
		warnMu.Lock()
		warnings = append(warnings, msg)
		warnMu.Unlock()
	}

	files, err := o.discoverFiles(roots)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return emptyResults(), nil
	}
	if o.cfg.Analysis.MaxFiles > 0 && len(files) > o.cfg.Analysis.MaxFiles {
		files = files[:o.cfg.Analysis.MaxFiles]
	}

	reader := newFileMapReader()
	records := make([]*fileRecord, len(files))

	batchSize := o.cfg.Performance.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	readGroup, readCtx := errgroup.WithContext(ctx)
	readGroup.SetLimit(batchSize)
	var recMu sync.Mutex

	for i, f := range files {
		i, f := i, f
		readGroup.Go(func() error {
			select {
			case <-readCtx.Done():
				return readCtx.Err()
			default:
			}

			if err := o.validator.ValidateLargeFile(f.Path); err != nil {
				warn(fmt.Sprintf("io: skipped %s: %v", f.RelPath, err))
				return nil
			}

			content, err := os.ReadFile(f.Path)
			if err != nil {
				warn(fmt.Sprintf("io: skipped %s: %v", f.RelPath, err))
				return nil
			}
			if int64(len(content)) > o.cfg.Analysis.MaxFileSizeBytes && o.cfg.Analysis.MaxFileSizeBytes > 0 {
				warn(fmt.Sprintf("io: skipped %s: exceeds max_file_size_bytes", f.RelPath))
				return nil
			}

			rec, err := o.processFile(f, content)
			if err != nil {
				warn(fmt.Sprintf("parse: skipped %s: %v", f.RelPath, err))
				return nil
			}

			recMu.Lock()
			records[i] = rec
			reader.put(f.RelPath, content, f.Language)
			recMu.Unlock()
			return nil
		})
	}
	if err := readGroup.Wait(); err != nil {
		return nil, verrors.Pipeline("discovery", err)
	}

	var compact []*fileRecord
	paths := make([]string, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		compact = append(compact, r)
		paths = append(paths, r.path)
	}
	sort.Strings(paths)

	// Independent cross-file stages run concurrently: structure, coverage,
	// cohesion, clone detection. Each consumes the shared reader/AST cache
	// and produces its own result, step 5.
	var structureRes structure.Results
	var coveragePacks []coverage.CoveragePack
	var cohesionRes cohesion.Results
	var cloneCandidates []*clone.Candidate
	var clonePhaseCounts clone.PhaseCounts

	stageGroup, stageCtx := errgroup.WithContext(ctx)
	stageGroup.SetLimit(4)

	stageGroup.Go(func() error {
		if !o.cfg.Analysis.EnableStructureAnalysis {
			structureRes = structure.Results{StructureQualityScore: 100}
			return nil
		}
		det, err := structure.New(o.cfg.Graph, o.registry, reader)
		if err != nil {
			warn("pipeline: structure stage disabled: " + err.Error())
			return nil
		}
		res, err := det.AnalyzeFiles(paths)
		if err != nil {
			warn("pipeline: structure stage failed: " + err.Error())
			return nil
		}
		structureRes = res
		return nil
	})

	stageGroup.Go(func() error {
		if !o.cfg.Analysis.EnableCoverageAnalysis {
			return nil
		}
		packs, err := o.runCoverage(stageCtx, roots, reader)
		if err != nil {
			warn("pipeline: coverage stage failed: " + err.Error())
			return nil
		}
		coveragePacks = packs
		return nil
	})

	stageGroup.Go(func() error {
		if !o.cfg.Analysis.EnableCohesionAnalysis || !o.cfg.Cohesion.Enabled {
			return nil
		}
		det, err := cohesion.New(o.cfg.Cohesion, o.ast, reader, os.Getenv("OPENAI_API_KEY"))
		if err != nil {
			warn("pipeline: cohesion stage disabled: " + err.Error())
			return nil
		}
		res, err := det.AnalyzeFiles(paths)
		if err != nil {
			warn("pipeline: cohesion stage failed: " + err.Error())
			return nil
		}
		cohesionRes = res
		return nil
	})

	stageGroup.Go(func() error {
		if !o.cfg.Analysis.EnableLSHAnalysis || !o.cfg.Dedupe.Enabled {
			return nil
		}
		candidates, counts, err := o.runClone(compact)
		if err != nil {
			warn("pipeline: lsh stage failed: " + err.Error())
			return nil
		}
		cloneCandidates = candidates
		clonePhaseCounts = counts
		return nil
	})

	if err := stageGroup.Wait(); err != nil {
		return nil, verrors.Pipeline("stages", err)
	}

	cyclic := cyclicPaths(structureRes)

	// Refactoring/impact: scheduled after complexity, which is already
	// computed per-file above; step 5's dependency note.
	var vectors []*entity.FeatureVector
	locations := make(map[string]refactor.Location)
	issuesByEntity := make(map[string][]refactor.Issue)
	suggestionsByEntity := make(map[string][]refactor.Suggestion)
	var allComplexity []complexity.Metrics
	var allIssues []refactor.Issue
	var allSuggestions []refactor.Suggestion
	totalLOC := 0
	languageSet := make(map[string]bool)

	for _, rec := range compact {
		languageSet[rec.language] = true
		node := structureRes.Nodes[rec.path]
		inCycle := cyclic[rec.path]
		fileCoh := cohesionRes.FileScores[rec.path]

		for _, er := range rec.entities {
			totalLOC += er.metrics.LinesOfCode
			allComplexity = append(allComplexity, er.metrics)
			allIssues = append(allIssues, er.issues...)
			allSuggestions = append(allSuggestions, er.suggestions...)
			issuesByEntity[er.entity.ID] = er.issues
			suggestionsByEntity[er.entity.ID] = er.suggestions
			locations[er.entity.ID] = refactor.Location{
				Name: er.entity.Name, FilePath: er.entity.FilePath, LineRange: er.entity.LineRange,
			}
			vectors = append(vectors, buildFeatureVector(er.entity, er.metrics, er.paramCount, node, inCycle, fileCoh))
		}
	}

	registry := DefaultFeatureRegistry()
	scored := scoring.Score(vectors, registry, categoryOf, scoring.Scheme(o.cfg.Scoring.NormalizationScheme),
		scoring.CategoryWeights(o.cfg.Scoring.Weights), scoring.StatisticalParams(o.cfg.Scoring.StatisticalParams))

	candidates := refactor.BuildCandidates(scored, locations, issuesByEntity, suggestionsByEntity, 0)
	sortCandidates(candidates)

	summary := buildSummary(compact, scored, allIssues, languageSet, totalLOC, cohesionRes)
	health := computeHealth(allComplexity, structureRes, cohesionRes, complexity.DefaultThresholds())
	gate := EvaluateQualityGates(*health, DefaultQualityGates(), allIssues)

	cloneAnalysis := buildCloneAnalysis(cloneCandidates, clonePhaseCounts)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)
	mem := MemoryStats{
		PeakMemoryBytes:  endMem.Sys,
		FinalMemoryBytes: endMem.Alloc,
	}
	if mem.PeakMemoryBytes > 0 {
		mem.EfficiencyScore = float64(mem.FinalMemoryBytes) / float64(mem.PeakMemoryBytes)
	}

	elapsed := time.Since(start)
	result := &AnalysisResults{
		Summary: summary,
		Passes: StageResultsBundle{
			Structure:   structureRes,
			Coverage:    coveragePacks,
			Complexity:  allComplexity,
			Refactoring: allIssues,
			Impact:      allSuggestions,
			LSH:         cloneCandidates,
			Cohesion:    cohesionRes,
		},
		RefactoringCandidates: candidates,
		Statistics:            buildStatistics(runID, elapsed, len(compact), vectors, scored, allIssues, mem),
		HealthMetrics:         health,
		CloneAnalysis:         cloneAnalysis,
		CoveragePacks:         coveragePacks,
		Warnings:              warnings,
		CodeDictionary:        buildCodeDictionary(),
		QualityGate:           gate,
	}

	log.Info("run complete",
		zap.Duration("elapsed", elapsed),
		zap.Int("files_processed", len(compact)),
		zap.String("peak_memory", humanize.Bytes(mem.PeakMemoryBytes)),
		zap.String("final_memory", humanize.Bytes(mem.FinalMemoryBytes)),
	)
	if len(warnings) > 0 {
		log.Warn("run completed with warnings", zap.Int("count", len(warnings)))
	}
	return result, nil
}

func (o *Orchestrator) discoverFiles(roots []string) ([]discovery.File, error) {
	walker := discovery.New(o.cfg)
	var all []discovery.File
	seen := make(map[string]bool)
	for _, root := range roots {
		files, err := walker.Discover(root)
		if err != nil {
			return nil, verrors.Configuration("discover " + root + ": " + err.Error())
		}
		for _, f := range files {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			all = append(all, f)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all, nil
}

// processFile parses one file once, extracts its entities, and computes
// complexity + refactoring-detector findings for each, /row10.
func (o *Orchestrator) processFile(f discovery.File, content []byte) (*fileRecord, error) {
	ext := filepath.Ext(f.RelPath)
	adapter, ok := o.registry.Lookup(ext)
	if !ok {
		return nil, fmt.Errorf("no adapter for extension %q", ext)
	}

	ct, err := o.ast.GetAST(f.RelPath, ext, content)
	if err != nil {
		return nil, err
	}
	astCtx := o.ast.CreateContext(ct, f.RelPath)

	counter := entity.NewIDCounter()
	entities, err := adapter.ExtractCodeEntities(content, f.RelPath, counter)
	if err != nil {
		return nil, err
	}

	rec := &fileRecord{path: f.RelPath, language: f.Language, content: content}
	th := refactor.DefaultThresholds()
	for _, e := range entities {
		m := complexity.ComputeForEntity(astCtx, f.Language, e)
		issues, suggestions := refactor.DetectIssues(m, e.SourceCode, th)
		rec.entities = append(rec.entities, &entityRecord{
			entity: e, metrics: m, paramCount: refactor.CountParameters(e.SourceCode),
			issues: issues, suggestions: suggestions,
		})
	}
	return rec, nil
}
