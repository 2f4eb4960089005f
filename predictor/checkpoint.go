package predictor

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

const CheckpointExt = ".ckpt"

// CheckpointPath names a checkpoint by run and generation.
func CheckpointPath(dir, run string, generation int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", run, generation, CheckpointExt))
}

type checkpoint struct {
	Config Config
	Steps  int
	Params [][]byte
}

// Save writes the trainable parameters. The file is written next to its
// destination and renamed into place.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	ckpt := checkpoint{Config: m.cfg, Steps: m.steps}
	for _, p := range m.params.all() {
		blob, err := p.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal parameters: %w", err)
		}
		ckpt.Params = append(ckpt.Params, blob)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(ckpt); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move checkpoint into place: %w", err)
	}
	return nil
}

// Load replaces the parameters with those stored at path. The stored network
// must have the same shape. Optimizer state starts over.
func (m *Model) Load(path string) error {
	ckpt, p, err := readCheckpoint(path)
	if err != nil {
		return err
	}
	if ckpt.Config.Inputs != m.cfg.Inputs || ckpt.Config.Hidden != m.cfg.Hidden || ckpt.Config.Actions != m.cfg.Actions {
		return fmt.Errorf("checkpoint shape %dx%dx%d does not match model %dx%dx%d",
			ckpt.Config.Inputs, ckpt.Config.Hidden, ckpt.Config.Actions,
			m.cfg.Inputs, m.cfg.Hidden, m.cfg.Actions)
	}
	m.params = p
	m.steps = ckpt.Steps
	m.optimizer.reset(p.all())
	m.mode = Inference
	return nil
}

// LoadModel builds a model from a checkpoint, taking its shape from the file.
func LoadModel(path string) (*Model, error) {
	ckpt, p, err := readCheckpoint(path)
	if err != nil {
		return nil, err
	}
	m := NewModel(ckpt.Config)
	m.params = p
	m.steps = ckpt.Steps
	m.optimizer.reset(p.all())
	return m, nil
}

func readCheckpoint(path string) (checkpoint, *params, error) {
	f, err := os.Open(path)
	if err != nil {
		return checkpoint{}, nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	var ckpt checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return checkpoint{}, nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if len(ckpt.Params) != 6 {
		return checkpoint{}, nil, fmt.Errorf("checkpoint has %d parameter blocks, want 6", len(ckpt.Params))
	}

	blocks := make([]*mat.Dense, len(ckpt.Params))
	for i, blob := range ckpt.Params {
		var d mat.Dense
		if err := d.UnmarshalBinary(blob); err != nil {
			return checkpoint{}, nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
		}
		blocks[i] = &d
	}
	p := &params{w1: blocks[0], b1: blocks[1], wp: blocks[2], bp: blocks[3], wv: blocks[4], bv: blocks[5]}
	return ckpt, p, nil
}
