// Package config loads and validates the valknut YAML configuration.
//
// Keeps a two-call Load()/Validate() contract, backed by gopkg.in/yaml.v3
// with KnownFields(true) so an unrecognized key fails loudly instead of
// being silently ignored.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	verrors "github.com/sibyllinesoft/valknut/internal/errors"
)

// Config is the root configuration object.
type Config struct {
	Analysis    Analysis    `yaml:"analysis"`
	Scoring     Scoring     `yaml:"scoring"`
	Graph       Graph       `yaml:"graph"`
	LSH         LSH         `yaml:"lsh"`
	Dedupe      Dedupe      `yaml:"dedupe"`
	Denoise     Denoise     `yaml:"denoise"`
	Languages   map[string]Language `yaml:"languages"`
	IO          IO          `yaml:"io"`
	Performance Performance `yaml:"performance"`
	Coverage    Coverage    `yaml:"coverage"`
	Docs        Docs        `yaml:"docs"`
	Cohesion    Cohesion    `yaml:"cohesion"`
}

type Analysis struct {
	EnableScoring             bool     `yaml:"enable_scoring"`
	EnableGraphAnalysis        bool     `yaml:"enable_graph_analysis"`
	EnableLSHAnalysis          bool     `yaml:"enable_lsh_analysis"`
	EnableRefactoringAnalysis  bool     `yaml:"enable_refactoring_analysis"`
	EnableCoverageAnalysis     bool     `yaml:"enable_coverage_analysis"`
	EnableStructureAnalysis    bool     `yaml:"enable_structure_analysis"`
	EnableNamesAnalysis        bool     `yaml:"enable_names_analysis"`
	EnableCohesionAnalysis     bool     `yaml:"enable_cohesion_analysis"`
	ConfidenceThreshold        float64  `yaml:"confidence_threshold" validate:"gte=0,lte=1"`
	MaxFiles                   int      `yaml:"max_files" validate:"gte=0"`
	IncludePatterns            []string `yaml:"include_patterns"`
	ExcludePatterns            []string `yaml:"exclude_patterns"`
	IgnorePatterns             []string `yaml:"ignore_patterns"`
	MaxFileSizeBytes           int64    `yaml:"max_file_size_bytes" validate:"gte=0"`
}

type Scoring struct {
	NormalizationScheme string              `yaml:"normalization_scheme" validate:"oneof=z_score min_max robust z_score_bayesian min_max_bayesian robust_bayesian"`
	Weights             CategoryWeights     `yaml:"weights"`
	StatisticalParams   StatisticalParams   `yaml:"statistical_params"`
}

type CategoryWeights struct {
	Complexity float64 `yaml:"complexity" validate:"gte=0,lte=10"`
	Graph      float64 `yaml:"graph" validate:"gte=0,lte=10"`
	Structure  float64 `yaml:"structure" validate:"gte=0,lte=10"`
	Style      float64 `yaml:"style" validate:"gte=0,lte=10"`
	Coverage   float64 `yaml:"coverage" validate:"gte=0,lte=10"`
}

type StatisticalParams struct {
	ConfidenceLevel  float64 `yaml:"confidence_level" validate:"gt=0,lt=1"`
	MinSampleSize    int     `yaml:"min_sample_size" validate:"gt=0"`
	OutlierThreshold float64 `yaml:"outlier_threshold" validate:"gt=0"`
}

type Graph struct {
	EnableBetweenness        bool    `yaml:"enable_betweenness"`
	EnableCloseness          bool    `yaml:"enable_closeness"`
	EnableCycleDetection     bool    `yaml:"enable_cycle_detection"`
	MaxExactSize             int     `yaml:"max_exact_size" validate:"gte=0"`
	UseApproximation         bool    `yaml:"use_approximation"`
	ApproximationSampleRate  float64 `yaml:"approximation_sample_rate" validate:"gte=0,lte=1"`
}

type LSH struct {
	NumHashes               int     `yaml:"num_hashes" validate:"gt=0"`
	NumBands                int     `yaml:"num_bands" validate:"gt=0"`
	ShingleSize             int     `yaml:"shingle_size" validate:"gte=1"`
	SimilarityThreshold     float64 `yaml:"similarity_threshold" validate:"gte=0,lte=1"`
	MaxCandidates           int     `yaml:"max_candidates" validate:"gte=0"`
	UseSemanticSimilarity   bool    `yaml:"use_semantic_similarity"`
	VerifyWithApted         bool    `yaml:"verify_with_apted"`
	AptedMaxNodes           int     `yaml:"apted_max_nodes" validate:"gt=0"`
	AptedMaxPairsPerEntity  int     `yaml:"apted_max_pairs_per_entity" validate:"gte=0"`
}

type Dedupe struct {
	Enabled               bool    `yaml:"enabled"`
	SimilarityThreshold   float64 `yaml:"similarity_threshold" validate:"gte=0,lte=1"`
	ShingleK              int     `yaml:"shingle_k" validate:"gte=1"`
	MinFunctionTokens     int     `yaml:"min_function_tokens" validate:"gte=0"`
	MinASTNodes           int     `yaml:"min_ast_nodes" validate:"gte=0"`
	RequireDistinctBlocks int     `yaml:"require_distinct_blocks" validate:"gte=0"`
	CacheEnabled          bool    `yaml:"cache_enabled"`
	CachePath             string  `yaml:"cache_path"`
	MinSavedTokens        int     `yaml:"min_saved_tokens" validate:"gte=0"`
	MinRarityGain         float64 `yaml:"min_rarity_gain" validate:"gte=0"`
}

type Denoise struct {
	Enabled             bool    `yaml:"enabled"`
	MaxAgeDays          float64 `yaml:"max_age_days" validate:"gt=0"`
	ChangeThresholdPct  float64 `yaml:"change_threshold_percent" validate:"gt=0,lte=100"`
	TopPercentileWeight float64 `yaml:"top_percentile_down_weight" validate:"gte=0,lte=1"`
	TopPercentile       float64 `yaml:"top_percentile" validate:"gt=0,lte=100"`
}

type Language struct {
	Enabled              bool     `yaml:"enabled"`
	FileExtensions       []string `yaml:"file_extensions"`
	TreeSitterLanguage   string   `yaml:"tree_sitter_language"`
	MaxFileSizeMB        float64  `yaml:"max_file_size_mb" validate:"gte=0"`
	ComplexityThreshold  float64  `yaml:"complexity_threshold" validate:"gte=0"`
	AdditionalSettings   map[string]any `yaml:"additional_settings"`
}

type IO struct {
	CacheDir          string `yaml:"cache_dir"`
	EnableCaching     bool   `yaml:"enable_caching"`
	CacheTTLSeconds   int64  `yaml:"cache_ttl_seconds" validate:"gte=0"`
	ReportDir         string `yaml:"report_dir"`
	ReportFormat      string `yaml:"report_format" validate:"oneof=json yaml html csv"`
}

type Performance struct {
	MaxThreads          int   `yaml:"max_threads" validate:"gte=0"`
	MemoryLimitMB       int64 `yaml:"memory_limit_mb" validate:"gte=0"`
	FileTimeoutSeconds  int64 `yaml:"file_timeout_seconds" validate:"gt=0"`
	TotalTimeoutSeconds int64 `yaml:"total_timeout_seconds" validate:"gte=0"`
	EnableSIMD          bool  `yaml:"enable_simd"`
	BatchSize           int   `yaml:"batch_size" validate:"gt=0"`
}

type Coverage struct {
	AutoDiscover        bool            `yaml:"auto_discover"`
	SearchPaths         []string        `yaml:"search_paths"`
	FilePatterns        []string        `yaml:"file_patterns"`
	MaxAgeDays          float64         `yaml:"max_age_days" validate:"gt=0"`
	CoverageFile        string          `yaml:"coverage_file"`
	MinGapLOC           int             `yaml:"min_gap_loc" validate:"gte=0"`
	SnippetContextLines int             `yaml:"snippet_context_lines" validate:"gte=0"`
	LongGapHeadTail     int             `yaml:"long_gap_head_tail" validate:"gte=0"`
	Weights             CoverageWeights `yaml:"weights"`
}

type CoverageWeights struct {
	Size       float64 `yaml:"size" validate:"gte=0"`
	Complexity float64 `yaml:"complexity" validate:"gte=0"`
	FanIn      float64 `yaml:"fan_in" validate:"gte=0"`
	Exports    float64 `yaml:"exports" validate:"gte=0"`
	Centrality float64 `yaml:"centrality" validate:"gte=0"`
	Docs       float64 `yaml:"docs" validate:"gte=0"`
}

type Docs struct {
	MinFnNodes      int `yaml:"min_fn_nodes" validate:"gte=0"`
	MinFileNodes    int `yaml:"min_file_nodes" validate:"gte=0"`
	MinFilesPerDir  int `yaml:"min_files_per_dir" validate:"gte=0"`
}

type Cohesion struct {
	Enabled   bool               `yaml:"enabled"`
	Embedding CohesionEmbedding  `yaml:"embedding"`
	Symbols   CohesionSymbols    `yaml:"symbols"`
	Thresholds CohesionThresholds `yaml:"thresholds"`
	Rollup    CohesionRollup     `yaml:"rollup"`
}

type CohesionEmbedding struct {
	Provider  string `yaml:"provider" validate:"omitempty,oneof=local openai"`
	Dimension int    `yaml:"dimension" validate:"gt=0"`
	Model     string `yaml:"model"`
}

type CohesionSymbols struct {
	MaxInformativeSymbols int `yaml:"max_informative_symbols" validate:"gt=0"`
	MinTokenLength        int `yaml:"min_token_length" validate:"gt=0"`
}

type CohesionThresholds struct {
	MinCohesion           float64 `yaml:"min_cohesion" validate:"gte=0,lte=1"`
	MinDocAlignment       float64 `yaml:"min_doc_alignment" validate:"gte=0,lte=1"`
	MinOutlierSimilarity  float64 `yaml:"min_outlier_similarity" validate:"gte=0,lte=1"`
	OutlierPercentile     float64 `yaml:"outlier_percentile" validate:"gt=0,lte=100"`
	MinDocTokens          int     `yaml:"min_doc_tokens" validate:"gte=0"`
}

type CohesionRollup struct {
	MinFileEntities int `yaml:"min_file_entities" validate:"gte=0"`
	MinFolderFiles  int `yaml:"min_folder_files" validate:"gte=0"`
}

// Default returns the configuration with every default applied.
func Default() *Config {
	return &Config{
		Analysis: Analysis{
			EnableScoring: true, EnableGraphAnalysis: true, EnableLSHAnalysis: true,
			EnableRefactoringAnalysis: true, EnableCoverageAnalysis: true,
			EnableStructureAnalysis: true, EnableNamesAnalysis: true, EnableCohesionAnalysis: true,
			ConfidenceThreshold: 0.7, MaxFiles: 0,
			IncludePatterns: []string{"**/*"},
			ExcludePatterns: []string{"**/node_modules/**", "**/venv/**", "**/target/**", "**/__pycache__/**", "**/*.min.js"},
			MaxFileSizeBytes: 512000,
		},
		Scoring: Scoring{
			NormalizationScheme: "z_score",
			Weights:             CategoryWeights{Complexity: 1.0, Graph: 0.8, Structure: 0.9, Style: 0.5, Coverage: 0.7},
			StatisticalParams:   StatisticalParams{ConfidenceLevel: 0.95, MinSampleSize: 3, OutlierThreshold: 2.0},
		},
		Graph: Graph{EnableBetweenness: true, EnableCloseness: true, EnableCycleDetection: true, MaxExactSize: 500, UseApproximation: false, ApproximationSampleRate: 0.1},
		LSH: LSH{
			NumHashes: 128, NumBands: 8, ShingleSize: 3, SimilarityThreshold: 0.7,
			MaxCandidates: 0, UseSemanticSimilarity: false, VerifyWithApted: true,
			AptedMaxNodes: 4000, AptedMaxPairsPerEntity: 25,
		},
		Dedupe: Dedupe{
			Enabled: true, SimilarityThreshold: 0.7, ShingleK: 9,
			MinFunctionTokens: 24, MinASTNodes: 20, RequireDistinctBlocks: 1,
			CacheEnabled: true, CachePath: "",
			MinSavedTokens: 100, MinRarityGain: 1.2,
		},
		Denoise: Denoise{Enabled: true, MaxAgeDays: 7, ChangeThresholdPct: 50, TopPercentileWeight: 0.2, TopPercentile: 0.75},
		Languages: map[string]Language{
			"python":     {Enabled: true, FileExtensions: []string{".py"}, TreeSitterLanguage: "python", MaxFileSizeMB: 2},
			"javascript": {Enabled: true, FileExtensions: []string{".js", ".jsx"}, TreeSitterLanguage: "javascript", MaxFileSizeMB: 2},
			"typescript": {Enabled: true, FileExtensions: []string{".ts", ".tsx"}, TreeSitterLanguage: "typescript", MaxFileSizeMB: 2},
			"rust":       {Enabled: true, FileExtensions: []string{".rs"}, TreeSitterLanguage: "rust", MaxFileSizeMB: 2},
			"go":         {Enabled: true, FileExtensions: []string{".go"}, TreeSitterLanguage: "go", MaxFileSizeMB: 2},
		},
		IO:          IO{EnableCaching: true, CacheTTLSeconds: 86400, ReportFormat: "json"},
		Performance: Performance{FileTimeoutSeconds: 30, EnableSIMD: false, BatchSize: 200},
		Coverage: Coverage{
			AutoDiscover: true, FilePatterns: []string{"**/coverage.*", "**/lcov.info", "**/cobertura.xml"},
			MaxAgeDays: 14, MinGapLOC: 3,
			SnippetContextLines: 3, LongGapHeadTail: 8,
			Weights: CoverageWeights{Size: 0.3, Complexity: 0.25, FanIn: 0.15, Exports: 0.15, Centrality: 0.1, Docs: 0.05},
		},
		Docs: Docs{MinFnNodes: 20, MinFileNodes: 80, MinFilesPerDir: 3},
		Cohesion: Cohesion{
			Enabled:   true,
			Embedding: CohesionEmbedding{Provider: "local", Dimension: 64},
			Symbols:   CohesionSymbols{MaxInformativeSymbols: 32, MinTokenLength: 2},
			Thresholds: CohesionThresholds{
				MinCohesion: 0.35, MinDocAlignment: 0.3, MinOutlierSimilarity: 0.2,
				OutlierPercentile: 10, MinDocTokens: 5,
			},
			Rollup: CohesionRollup{MinFileEntities: 2, MinFolderFiles: 2},
		},
	}
}

// Load reads and validates a YAML config file at path, rejecting unknown fields.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, verrors.Configuration("open config: " + err.Error())
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, verrors.Configuration("decode config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal serializes the config back to YAML (used by the round-trip law: Marshal then Load reproduces the same Config).
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

var structValidator = validator.New()

// Validate checks struct-tag rules via go-playground/validator plus relational
// rules a struct tag can't express (num_hashes % num_bands == 0, and so on).
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return verrors.Configuration("config validation: " + err.Error())
	}

	if c.LSH.NumHashes%c.LSH.NumBands != 0 {
		return verrors.Configuration("lsh.num_bands must evenly divide lsh.num_hashes")
	}
	for name, lang := range c.Languages {
		if lang.Enabled && len(lang.FileExtensions) == 0 {
			return verrors.Configuration("language " + name + " is enabled but declares no file_extensions")
		}
	}
	if c.Cohesion.Enabled && c.Cohesion.Embedding.Dimension <= 0 {
		return verrors.Configuration("cohesion.embedding.dimension must be positive when cohesion is enabled")
	}
	return nil
}
