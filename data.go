package han

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/jamesainslie/go-han/dataset"
	"github.com/jamesainslie/go-han/vocab"
)

// corpus bundles the vocabularies and per-phase loaders the configured
// mode touches.
type corpus struct {
	reviewVocab  *vocab.Vocab
	summaryVocab *vocab.Vocab
	datasets     map[string]*dataset.Dataset
	loaders      map[string]*dataset.Loader
}

// loadData loads vocabularies and datasets for every phase of the
// configured mode. When the review and summary vocabularies name the same
// file it is loaded once and shared.
func (e *Experiment) loadData() (*corpus, error) {
	reviewVocab, err := e.loadVocab(e.cfg.Data.ReviewVocab)
	if err != nil {
		return nil, err
	}
	summaryVocab := reviewVocab
	if e.cfg.Data.SummaryVocab != e.cfg.Data.ReviewVocab {
		summaryVocab, err = e.loadVocab(e.cfg.Data.SummaryVocab)
		if err != nil {
			return nil, err
		}
	}
	e.logger.Info("vocabularies loaded",
		"review_tokens", reviewVocab.Len(),
		"summary_tokens", summaryVocab.Len(),
		"embed_dim", reviewVocab.Dim())

	c := &corpus{
		reviewVocab:  reviewVocab,
		summaryVocab: summaryVocab,
		datasets:     make(map[string]*dataset.Dataset),
		loaders:      make(map[string]*dataset.Loader),
	}
	for _, phase := range e.cfg.phases() {
		pc := e.cfg.phase(phase)
		path := filepath.Join(e.cfg.Data.Dir, pc.JSONFile)
		ds, err := dataset.Load(path, reviewVocab, summaryVocab)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
			}
			return nil, fmt.Errorf("loading %s dataset: %w", phase, err)
		}

		sampler, err := e.samplerFor(phase, ds)
		if err != nil {
			return nil, err
		}
		loader, err := dataset.NewLoader(ds, sampler, pc.BatchSize, e.rng)
		if err != nil {
			return nil, fmt.Errorf("%w: data.%s: %v", ErrInvalidConfig, phase, err)
		}

		c.datasets[phase] = ds
		c.loaders[phase] = loader
		e.logger.Info("dataset loaded",
			"phase", phase,
			"examples", ds.Len(),
			"batches", loader.NumBatches(),
			"batch_size", pc.BatchSize)
	}
	return c, nil
}

func (e *Experiment) loadVocab(name string) (*vocab.Vocab, error) {
	path := filepath.Join(e.cfg.Data.Dir, name)
	v, err := vocab.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrVocabNotFound, path)
		}
		return nil, fmt.Errorf("loading vocabulary %s: %w", path, err)
	}
	return v, nil
}

// samplerFor picks the sampling strategy for one phase. Validation and
// test phases always iterate in corpus order; the training phase shuffles
// uniformly unless class weights are configured.
func (e *Experiment) samplerFor(phase string, ds *dataset.Dataset) (dataset.Sampler, error) {
	if phase != "train" {
		return dataset.Sequential{N: ds.Len()}, nil
	}

	w := e.cfg.Data.Weights
	switch {
	case w.IsZero():
		return dataset.Shuffled{N: ds.Len()}, nil
	case w.Auto:
		e.logger.Info("weighting training samples by inverse class frequency")
		return dataset.Weighted{Weights: dataset.InverseFrequencyWeights(ds.Labels)}, nil
	default:
		weights, err := dataset.ClassWeights(ds.Labels, w.Classes)
		if err != nil {
			return nil, fmt.Errorf("%w: data.weights: %v", ErrInvalidConfig, err)
		}
		e.logger.Info("weighting training samples by configured class weights", "classes", len(w.Classes))
		return dataset.Weighted{Weights: weights}, nil
	}
}
