// Package checkpoint saves and restores trainable state keyed by iteration.
//
// A checkpoint is a serialization container named <dir>/weights-<iteration>.
// The iteration is recovered from the name alone, so a checkpoint renamed by
// hand resumes at the iteration its name states. The static architecture
// description (graph.json) is written on the first save of a process and
// omitted from later ones; Restore assumes the topology has not changed.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/model"
	"github.com/born-ml/superres/internal/serialization"
)

// File naming.
const (
	Prefix    = "weights"
	GraphFile = "graph.json"
)

// Info is the run context recorded with each checkpoint.
type Info struct {
	Epoch        int
	RunName      string
	TrainingMeta map[string]any
}

// Record describes a restored checkpoint.
type Record struct {
	Path      string
	Iteration int64
	Epoch     int
	RunName   string
}

// Store writes checkpoints. It remembers whether graph.json has been written.
type Store struct {
	mu           sync.Mutex
	graphWritten map[string]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{graphWritten: make(map[string]bool)}
}

// PathFor returns the checkpoint path for iteration in dir.
func PathFor(dir string, iteration int64) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%d", Prefix, iteration))
}

// Save writes the full state of m to dir and returns the checkpoint path.
// The write is synchronous and atomic.
func (s *Store) Save(m model.Trainable, dir string, iteration int64, info Info) (string, error) {
	if iteration < 0 {
		return "", fmt.Errorf("negative iteration %d", iteration)
	}
	arch := m.Architecture()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.graphWritten[dir] {
		if err := writeGraph(dir, arch); err != nil {
			return "", err
		}
		s.graphWritten[dir] = true
	}

	path := PathFor(dir, iteration)
	header := serialization.Header{
		Kind: serialization.KindCheckpoint,
		Checkpoint: &serialization.CheckpointMeta{
			Iteration:       iteration,
			Epoch:           info.Epoch,
			RunName:         info.RunName,
			ContentLoss:     arch.ContentLoss,
			GraphDigest:     arch.Digest(),
			OptimizerType:   arch.Optimizer,
			OptimizerConfig: arch.OptimizerConfig,
			TrainingMeta:    info.TrainingMeta,
		},
	}
	if err := serialization.WriteFile(path, header, m.StateDict()); err != nil {
		return "", err
	}
	return path, nil
}

func writeGraph(dir string, arch model.Architecture) error {
	b, err := json.MarshalIndent(arch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal architecture: %w", err)
	}
	path := filepath.Join(dir, GraphFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ParseIteration extracts the iteration from the text after the last '-'
// of the file name. Missing or malformed suffixes are ErrCheckpointFormat.
func ParseIteration(path string) (int64, error) {
	base := filepath.Base(path)
	idx := strings.LastIndex(base, "-")
	if idx < 0 || idx == len(base)-1 {
		return 0, fmt.Errorf("%w: %s has no -<iteration> suffix", fault.ErrCheckpointFormat, base)
	}
	n, err := strconv.ParseInt(base[idx+1:], 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s: suffix %q is not an iteration", fault.ErrCheckpointFormat, base, base[idx+1:])
	}
	return n, nil
}

// Restore loads the checkpoint at path into m. With model.ScopeGenerator
// only generator weights are loaded. Every failure wraps ErrCheckpointFormat.
func Restore(m model.Trainable, path string, scope model.Scope) (Record, error) {
	iteration, err := ParseIteration(path)
	if err != nil {
		return Record{}, err
	}

	r, err := serialization.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", fault.ErrCheckpointFormat, err)
	}
	defer r.Close()

	header := r.Header()
	if header.Kind != serialization.KindCheckpoint {
		return Record{}, fmt.Errorf("%w: %s holds a %s", fault.ErrCheckpointFormat, path, header.Kind)
	}
	sd, err := r.ReadAll()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", fault.ErrCheckpointFormat, err)
	}
	if err := m.LoadStateDict(sd, scope); err != nil {
		return Record{}, fmt.Errorf("%w: %w", fault.ErrCheckpointFormat, err)
	}

	rec := Record{Path: path, Iteration: iteration}
	if r.HasCheckpoint() {
		rec.Epoch = header.Checkpoint.Epoch
		rec.RunName = header.Checkpoint.RunName
	}
	return rec, nil
}

// Latest returns the highest-iteration checkpoint in dir.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	best, bestIter := "", int64(-1)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), Prefix+"-") {
			continue
		}
		n, err := ParseIteration(e.Name())
		if err != nil {
			continue
		}
		if n > bestIter {
			best, bestIter = filepath.Join(dir, e.Name()), n
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no %s-<iteration> file in %s", fault.ErrCheckpointFormat, Prefix, dir)
	}
	return best, nil
}

// Resolve returns path itself for a file, or Latest(path) for a directory.
func Resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fault.Configf("checkpoint %s does not exist", path)
		}
		return "", err
	}
	if info.IsDir() {
		return Latest(path)
	}
	return path, nil
}
