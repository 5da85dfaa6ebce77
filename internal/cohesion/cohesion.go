package cohesion

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/sibyllinesoft/valknut/internal/astsvc"
	"github.com/sibyllinesoft/valknut/internal/config"
)

// Issue codes, closing line.
const (
	IssueDocMismatch    = "COH001"
	IssueDocTooShort    = "COH002"
	IssueDocGeneric     = "COH003"
	IssueSemanticOutlier = "COH004"
	IssueDocOutlier     = "COH005"
	IssueLowCohesion    = "COH006"
)

// EntityOutlier is an entity whose embedding sits far from its file
// centroid.
type EntityOutlier struct {
	Name       string
	Kind       string
	LineStart  int
	LineEnd    int
	Similarity float64
}

// FileOutlier is a file whose centroid sits far from its folder centroid.
type FileOutlier struct {
	Path       string
	Similarity float64
}

// Issue is one detected cohesion or documentation anomaly.
type Issue struct {
	Code        string
	Category    string
	Path        string
	Entity      string
	LineStart   int
	LineEnd     int
	Severity    float64
	Description string
}

// FileCohesionScore is one file's cohesion analysis result.
type FileCohesionScore struct {
	Path         string
	Cohesion     float64
	DocAlignment *float64
	EntityCount  int
	Outliers     []EntityOutlier
	RollupN      int

	rollup *RollupState
}

// FolderCohesionScore is one folder's cohesion analysis result, aggregated
// from its files' rollups.
type FolderCohesionScore struct {
	Path      string
	Cohesion  float64
	FileCount int
	Outliers  []FileOutlier
}

// Results is the full cohesion analysis output.
type Results struct {
	Enabled             bool
	FileScores          map[string]FileCohesionScore
	FolderScores        map[string]FolderCohesionScore
	Issues              []Issue
	IssuesCount         int
	FilesAnalyzed       int
	AverageCohesion     float64
	AverageDocAlignment float64
}

// disabledResults mirrors the original's Default impl: disabled, no issues,
// perfect scores (a disabled detector should never itself depress a health
// metric that folds cohesion in).
func disabledResults() Results {
	return Results{
		Enabled:             false,
		FileScores:          map[string]FileCohesionScore{},
		FolderScores:        map[string]FolderCohesionScore{},
		AverageCohesion:     1.0,
		AverageDocAlignment: 1.0,
	}
}

// SourceReader is the minimal file-access surface the detector needs, kept
// separate from any concrete filesystem so tests can supply an in-memory
// fake (the same shape as internal/coverage.SourceReader).
type SourceReader interface {
	ReadFile(path string) ([]byte, error)
	Language(path string) (string, bool)
}

// Detector runs the cohesion pipeline over a set of files.
type Detector struct {
	cfg        config.Cohesion
	ast        *astsvc.Service
	reader     SourceReader
	embeddings EmbeddingProvider
}

// New builds a Detector. apiKey is only consulted when cfg.Embedding.Provider
// is "openai"; it may be empty otherwise.
func New(cfg config.Cohesion, ast *astsvc.Service, reader SourceReader, apiKey string) (*Detector, error) {
	provider, err := NewEmbeddingProvider(cfg.Embedding, apiKey)
	if err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, ast: ast, reader: reader, embeddings: provider}, nil
}

// AnalyzeFiles runs the full pipeline over paths.
func (d *Detector) AnalyzeFiles(paths []string) (Results, error) {
	if !d.cfg.Enabled {
		return disabledResults(), nil
	}

	entitiesByFile, tfidf, err := d.extractEntitiesAndBuildCorpus(paths)
	if err != nil {
		return Results{}, err
	}

	fileScores := make(map[string]FileCohesionScore, len(entitiesByFile))
	var issues []Issue
	folderRollups := make(map[string]*RollupState)

	dim := d.embeddings.Dimension()

	paths = sortedKeys(entitiesByFile)
	for _, path := range paths {
		entities := entitiesByFile[path]
		if len(entities) == 0 {
			continue
		}
		score, fileIssues, rollup, err := d.processFile(path, entities, tfidf)
		if err != nil || score == nil {
			continue
		}
		d.aggregateToFolders(path, rollup, len(entities), folderRollups, dim)
		fileScores[path] = *score
		issues = append(issues, fileIssues...)
	}

	folderScores := d.calculateFolderScores(fileScores, folderRollups)

	avgCohesion, avgDocAlignment := calculateAverages(fileScores)

	return Results{
		Enabled:             true,
		FileScores:          fileScores,
		FolderScores:        folderScores,
		Issues:              issues,
		IssuesCount:         len(issues),
		FilesAnalyzed:       len(fileScores),
		AverageCohesion:     avgCohesion,
		AverageDocAlignment: avgDocAlignment,
	}, nil
}

func sortedKeys(m map[string][]Entity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func calculateAverages(fileScores map[string]FileCohesionScore) (float64, float64) {
	if len(fileScores) == 0 {
		return 1.0, 1.0
	}
	var cohSum float64
	var docSum float64
	var docCount int
	for _, f := range fileScores {
		cohSum += f.Cohesion
		if f.DocAlignment != nil {
			docSum += *f.DocAlignment
			docCount++
		}
	}
	avgCohesion := cohSum / float64(len(fileScores))
	avgDoc := 1.0
	if docCount > 0 {
		avgDoc = docSum / float64(docCount)
	}
	return avgCohesion, avgDoc
}

// extractEntitiesAndBuildCorpus is phase 1: parse every file, extract its
// entities, and accumulate a TF-IDF corpus over every entity's token bag.
func (d *Detector) extractEntitiesAndBuildCorpus(paths []string) (map[string][]Entity, *TfIdfCalculator, error) {
	tfidf := NewTfIdfCalculator(d.cfg.Symbols)
	byFile := make(map[string][]Entity, len(paths))

	for _, path := range paths {
		language, ok := d.reader.Language(path)
		if !ok {
			continue
		}
		source, err := d.reader.ReadFile(path)
		if err != nil {
			continue
		}
		ct, err := d.ast.GetAST(path, filepath.Ext(path), source)
		if err != nil {
			continue
		}
		ctx := d.ast.CreateContext(ct, path)
		entities := ExtractEntities(ctx, language, d.cfg.Symbols)
		if len(entities) == 0 {
			continue
		}
		for _, e := range entities {
			tfidf.AddDocument(e.Symbols.AllTokens())
		}
		byFile[path] = entities
	}
	return byFile, tfidf, nil
}

// processFile is phase 2: embed a file's entities, score cohesion and doc
// alignment, find outliers, and build the rollup state for folder
// aggregation.
func (d *Detector) processFile(path string, entities []Entity, tfidf *TfIdfCalculator) (*FileCohesionScore, []Issue, *RollupState, error) {
	texts := make([]string, len(entities))
	for i, e := range entities {
		texts[i] = buildEntityEmbeddingText(e, tfidf)
	}

	embeddings, err := d.embeddings.EmbedBatch(texts)
	if err != nil || len(embeddings) == 0 {
		return nil, nil, nil, err
	}

	centroid := RobustCentroid(embeddings)
	cohesion := CohesionScore(embeddings, centroid)

	var docAlignment *float64
	if align, ok := d.calculateDocAlignment(path, embeddings, centroid); ok {
		docAlignment = &align
	}

	outliers, issues := d.findFileOutliers(path, entities, embeddings, centroid)

	if cohesion < d.cfg.Thresholds.MinCohesion && len(entities) >= d.cfg.Rollup.MinFileEntities {
		issues = append(issues, Issue{
			Code: IssueLowCohesion, Category: "cohesion", Path: path,
			Severity:    1.0 - cohesion,
			Description: "file has low semantic cohesion; consider splitting into more focused modules",
		})
	}
	if docAlignment != nil && *docAlignment < d.cfg.Thresholds.MinDocAlignment {
		issues = append(issues, Issue{
			Code: IssueDocMismatch, Category: "documentation", Path: path,
			Severity:    1.0 - *docAlignment,
			Description: "module documentation doesn't align with code semantics",
		})
	}

	rollup := NewRollupState(len(centroid))
	for _, e := range embeddings {
		rollup.Add(e)
	}

	score := &FileCohesionScore{
		Path: path, Cohesion: cohesion, DocAlignment: docAlignment,
		EntityCount: len(entities), Outliers: outliers,
		RollupN: rollup.N, rollup: rollup,
	}
	return score, issues, rollup, nil
}

// buildEntityEmbeddingText assembles the embedding input text from an
// entity's kind, qualified name, and top informative symbols — 
// step 1/2.
func buildEntityEmbeddingText(e Entity, tfidf *TfIdfCalculator) string {
	top := tfidf.SelectTopSymbols(e.Symbols.AllTokens())
	parts := make([]string, 0, len(top)+2)
	parts = append(parts, e.Symbols.Kind, e.QualifiedName)
	parts = append(parts, top...)
	return strings.Join(parts, " ")
}

func (d *Detector) calculateDocAlignment(path string, embeddings [][]float32, centroid []float32) (float64, bool) {
	language, ok := d.reader.Language(path)
	if !ok {
		return 0, false
	}
	source, err := d.reader.ReadFile(path)
	if err != nil {
		return 0, false
	}
	ct, err := d.ast.GetAST(path, filepath.Ext(path), source)
	if err != nil {
		return 0, false
	}
	ctx := d.ast.CreateContext(ct, path)
	doc := ExtractModuleDocstring(ctx, language)
	if doc == "" {
		return 0, false
	}
	if len(strings.Fields(doc)) < d.cfg.Thresholds.MinDocTokens {
		return 0, false
	}
	docEmbedding, err := d.embeddings.EmbedOne(doc)
	if err != nil {
		return 0, false
	}
	return DocAlignment(docEmbedding, centroid), true
}

func (d *Detector) findFileOutliers(path string, entities []Entity, embeddings [][]float32, centroid []float32) ([]EntityOutlier, []Issue) {
	var outliers []EntityOutlier
	var issues []Issue

	for _, o := range FindOutliers(embeddings, centroid, d.cfg.Thresholds.OutlierPercentile, d.cfg.Thresholds.MinOutlierSimilarity) {
		if o.Index >= len(entities) {
			continue
		}
		entity := entities[o.Index]
		outliers = append(outliers, EntityOutlier{
			Name: entity.Name, Kind: entity.Kind,
			LineStart: entity.LineStart, LineEnd: entity.LineEnd,
			Similarity: o.Similarity,
		})
		if o.Similarity < d.cfg.Thresholds.MinOutlierSimilarity {
			issues = append(issues, Issue{
				Code: IssueSemanticOutlier, Category: "cohesion", Path: path,
				Entity: entity.Name, LineStart: entity.LineStart, LineEnd: entity.LineEnd,
				Severity:    1.0 - o.Similarity,
				Description: entity.Kind + " '" + entity.Name + "' appears semantically unrelated to the rest of the file",
			})
		}
	}
	return outliers, issues
}

// aggregateToFolders folds path's rollup into every ancestor directory's
// rollup, weighted by log(1+entity_count) — step 6.
func (d *Detector) aggregateToFolders(path string, rollup *RollupState, entityCount int, folderRollups map[string]*RollupState, dimension int) {
	weight := float32(FileWeight(entityCount))
	dir := filepath.Dir(path)

	for dir != "." && dir != "/" && dir != "" {
		fr, ok := folderRollups[dir]
		if !ok {
			fr = NewRollupState(dimension)
			folderRollups[dir] = fr
		}
		fr.AddRollup(rollup, weight)

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}

// calculateFolderScores is phase 3: turn accumulated folder rollups into
// FolderCohesionScore entries, filtered by min_folder_files.
func (d *Detector) calculateFolderScores(fileScores map[string]FileCohesionScore, folderRollups map[string]*RollupState) map[string]FolderCohesionScore {
	folderScores := make(map[string]FolderCohesionScore, len(folderRollups))

	for folder, rollup := range folderRollups {
		var filesInFolder []FileCohesionScore
		for _, f := range fileScores {
			if strings.HasPrefix(f.Path, folder+string(filepath.Separator)) || filepath.Dir(f.Path) == folder {
				filesInFolder = append(filesInFolder, f)
			}
		}
		if len(filesInFolder) < d.cfg.Rollup.MinFolderFiles {
			continue
		}

		centroid := rollup.Centroid()
		var fileOutliers []FileOutlier
		for _, f := range filesInFolder {
			if f.rollup == nil {
				continue
			}
			fileCentroid := f.rollup.Centroid()
			sim := CosineSimilarity(fileCentroid, centroid)
			if sim < d.cfg.Thresholds.MinOutlierSimilarity {
				rel, err := filepath.Rel(folder, f.Path)
				if err != nil {
					rel = f.Path
				}
				fileOutliers = append(fileOutliers, FileOutlier{Path: rel, Similarity: sim})
			}
		}
		sort.SliceStable(fileOutliers, func(i, j int) bool { return fileOutliers[i].Similarity < fileOutliers[j].Similarity })

		folderScores[folder] = FolderCohesionScore{
			Path: folder, Cohesion: rollup.Cohesion(),
			FileCount: len(filesInFolder), Outliers: fileOutliers,
		}
	}
	return folderScores
}
