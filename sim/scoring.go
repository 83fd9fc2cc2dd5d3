package sim

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Scorer computes a single scoring dimension for a resident pipeline. A
// higher score makes a pipeline a more attractive eviction target.
type Scorer interface {
	Score(ctx context.Context, view *PolicyDataView, id PipelineID) (float64, error)
}

// ScorerConfig names a scoring dimension and its weight in an AdditiveScorer.
// Age and status dimensions take extra tuning parameters; fields that don't
// apply to Name are ignored.
type ScorerConfig struct {
	Name      string  `yaml:"name"`
	Weight    float64 `yaml:"weight"`
	Threshold int64   `yaml:"threshold,omitempty"` // age
	Scale     float64 `yaml:"scale,omitempty"`     // age
	Running   float64 `yaml:"running,omitempty"`   // status
	Success   float64 `yaml:"success,omitempty"`   // status
	Failed    float64 `yaml:"failed,omitempty"`    // status
	Cancelled float64 `yaml:"cancelled,omitempty"` // status
	Bonus     float64 `yaml:"bonus,omitempty"`     // merged
}

// scorerConfigFile is the top-level shape of a scoring config YAML
// document, e.g.:
//
//	scorers:
//	  - name: status
//	    weight: 1
//	    success: 10
//	  - name: merged
//	    weight: 1
//	    bonus: 5
//	  - name: age
//	    weight: 1
//	    threshold: 172800
//	    scale: 30
type scorerConfigFile struct {
	Scorers []ScorerConfig `yaml:"scorers"`
}

// LoadScorerConfigs reads a scoring config YAML file from path.
func LoadScorerConfigs(path string) ([]ScorerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scoring config: %w", err)
	}
	var file scorerConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scoring config: %w", err)
	}
	if len(file.Scorers) == 0 {
		return nil, fmt.Errorf("scoring config %q names no scorers", path)
	}
	return file.Scorers, nil
}

// BuildAdditiveScorer assembles an AdditiveScorer from configs, resolving
// each entry's Name against the package's built-in scoring dimensions
// (age, status, merged). An age threshold or scale, or a merged bonus, left
// at zero falls back to the package default. A status entry uses the default
// status scorer only when all four status scores are zero; otherwise any
// status score left unset scores 0. Weight is used as given.
func BuildAdditiveScorer(configs []ScorerConfig) (*AdditiveScorer, error) {
	scorer := NewAdditiveScorer()
	for _, cfg := range configs {
		switch cfg.Name {
		case "age":
			threshold := cfg.Threshold
			if threshold == 0 {
				threshold = 60 * 60 * 24 * 2
			}
			scale := cfg.Scale
			if scale == 0 {
				scale = 30
			}
			scorer.Add(NewAgeScorer(threshold, scale), cfg.Weight)
		case "status":
			if cfg.Running == 0 && cfg.Success == 0 && cfg.Failed == 0 && cfg.Cancelled == 0 {
				scorer.Add(NewDefaultStatusScorer(), cfg.Weight)
			} else {
				scorer.Add(NewStatusScorer(cfg.Running, cfg.Success, cfg.Failed, cfg.Cancelled), cfg.Weight)
			}
		case "merged":
			bonus := cfg.Bonus
			if bonus == 0 {
				bonus = 5
			}
			scorer.Add(NewMergedScorer(bonus), cfg.Weight)
		default:
			return nil, fmt.Errorf("unknown scoring dimension %q", cfg.Name)
		}
	}
	return scorer, nil
}

// weightedScorer pairs a Scorer with its additive weight.
type weightedScorer struct {
	scorer Scorer
	weight float64
}

// AdditiveScorer is a TotalPolicy that sums weighted per-dimension scores
// for every resident pipeline and evicts the highest-scoring one. Ties are
// broken by insertion order: StoredPipelines is iterated oldest-first and a
// later candidate only replaces the current best on a strictly greater
// total, so the first-inserted maximum always wins.
type AdditiveScorer struct {
	scorers []weightedScorer
}

// NewAdditiveScorer builds an AdditiveScorer with no dimensions; register
// them with Add.
func NewAdditiveScorer() *AdditiveScorer {
	return &AdditiveScorer{}
}

// Add registers a scoring dimension with the given weight.
func (a *AdditiveScorer) Add(scorer Scorer, weight float64) *AdditiveScorer {
	a.scorers = append(a.scorers, weightedScorer{scorer: scorer, weight: weight})
	return a
}

func (a *AdditiveScorer) totalScore(ctx context.Context, view *PolicyDataView, id PipelineID) (float64, error) {
	var total float64
	for _, ws := range a.scorers {
		score, err := ws.scorer.Score(ctx, view, id)
		if err != nil {
			return 0, err
		}
		total += ws.weight * score
	}
	return total, nil
}

// SelectPipeline implements TotalPolicy.
func (a *AdditiveScorer) SelectPipeline(ctx context.Context, view *PolicyDataView) (PipelineID, error) {
	pipelines := view.StoredPipelines()
	if len(pipelines) == 0 {
		return 0, &noCandidatesError{policy: "additive_scorer"}
	}

	best := pipelines[0]
	bestScore, err := a.totalScore(ctx, view, best)
	if err != nil {
		return 0, err
	}
	for _, id := range pipelines[1:] {
		score, err := a.totalScore(ctx, view, id)
		if err != nil {
			return 0, err
		}
		if score > bestScore {
			best = id
			bestScore = score
		}
	}
	return best, nil
}

// AgeScorer scores a pipeline by how long it has been resident, ramping
// smoothly from 0 at age 0 to scale at age >= threshold via a cosine
// ease-in rather than a hard linear cutoff.
type AgeScorer struct {
	threshold int64
	scale     float64
}

// NewAgeScorer builds an AgeScorer reaching its full scale score once a
// pipeline's age reaches threshold.
func NewAgeScorer(threshold int64, scale float64) *AgeScorer {
	return &AgeScorer{threshold: threshold, scale: scale}
}

func (s *AgeScorer) Score(_ context.Context, view *PolicyDataView, id PipelineID) (float64, error) {
	if s.threshold <= 0 {
		return s.scale, nil
	}
	ratio := float64(view.Age(id)) / float64(s.threshold)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return math.Round(-0.5 * (math.Cos(math.Pi*ratio) - 1) * s.scale), nil
}

// StatusScorer scores a pipeline by its current PipelineStatus. Every
// status besides the four named ones scores 0.
type StatusScorer struct {
	running, success, failed, cancelled float64
}

// NewStatusScorer builds a StatusScorer with explicit per-status scores.
func NewStatusScorer(running, success, failed, cancelled float64) *StatusScorer {
	return &StatusScorer{running: running, success: success, failed: failed, cancelled: cancelled}
}

// NewDefaultStatusScorer builds a StatusScorer with the package default
// (running: -1, success: 10, failed: 1, cancelled: 3).
func NewDefaultStatusScorer() *StatusScorer {
	return NewStatusScorer(-1, 10, 1, 3)
}

func (s *StatusScorer) Score(ctx context.Context, view *PolicyDataView, id PipelineID) (float64, error) {
	status, err := view.Status(ctx, id)
	if err != nil {
		return 0, err
	}
	switch status {
	case Running:
		return s.running, nil
	case Success:
		return s.success, nil
	case Failed:
		return s.failed, nil
	case Cancelled:
		return s.cancelled, nil
	default:
		return 0, nil
	}
}

// MergedScorer scores merged pipelines with a positive bonus, encouraging
// their eviction once the branch that produced them has landed.
type MergedScorer struct {
	bonus float64
}

// NewMergedScorer builds a MergedScorer awarding bonus to merged pipelines.
func NewMergedScorer(bonus float64) *MergedScorer {
	return &MergedScorer{bonus: bonus}
}

func (s *MergedScorer) Score(_ context.Context, view *PolicyDataView, id PipelineID) (float64, error) {
	if view.IsMerged(id) {
		return s.bonus, nil
	}
	return 0, nil
}

// NewDefaultAdditiveScorer builds the "SCORE.DEFAULT" catalog entry: status,
// merged and age scorers at their package defaults, summed with equal
// weight.
func NewDefaultAdditiveScorer() *AdditiveScorer {
	return NewAdditiveScorer().
		Add(NewDefaultStatusScorer(), 1).
		Add(NewMergedScorer(5), 1).
		Add(NewAgeScorer(60*60*24*2, 30), 1)
}

// NewTunedAdditiveScorer builds the "SCORE" catalog entry: the same three
// dimensions as NewDefaultAdditiveScorer with a different tuning, favoring
// merged and aged-out pipelines over status alone.
func NewTunedAdditiveScorer() *AdditiveScorer {
	return NewAdditiveScorer().
		Add(NewStatusScorer(0, 45, -5, 0), 1).
		Add(NewMergedScorer(30), 1).
		Add(NewAgeScorer(60*60*24*3, 50), 1)
}
