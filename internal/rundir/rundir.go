// Package rundir allocates the per-run output directory.
//
// A fresh run directory is log-root/<name>, or log-root/<UTC timestamp>-<id>
// when no name is given. A name that is already taken gets a short random
// suffix rather than mixing two runs in one directory. command.txt and
// config.yaml are written when the directory is created.
package rundir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/superres/internal/fault"
)

// Files written at creation.
const (
	CommandFile = "command.txt"
	ConfigFile  = "config.yaml"
)

// Dir is an allocated run directory.
type Dir struct {
	Path   string
	Name   string
	Reused bool
}

// Options controls Create.
type Options struct {
	Root   string   // Parent of all run directories
	Name   string   // Preferred directory name (optional)
	Argv   []string // Recorded in command.txt
	Config []byte   // Recorded as config.yaml
	Now    func() time.Time
}

// Create makes a new run directory.
func Create(opts Options) (*Dir, error) {
	if opts.Root == "" {
		return nil, fault.Configf("empty log root")
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	name := opts.Name
	if name == "" {
		name = now().UTC().Format("20060102-150405") + "-" + shortID()
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fault.Configf("invalid run name %q", name)
	}

	path := filepath.Join(opts.Root, name)
	err := os.Mkdir(path, 0o755)
	if errors.Is(err, fs.ErrExist) {
		name = name + "-" + shortID()
		path = filepath.Join(opts.Root, name)
		err = os.Mkdir(path, 0o755)
	}
	if err != nil {
		return nil, err
	}

	cmd := strings.Join(opts.Argv, " ") + "\n"
	if err := os.WriteFile(filepath.Join(path, CommandFile), []byte(cmd), 0o644); err != nil {
		return nil, err
	}
	if opts.Config != nil {
		if err := os.WriteFile(filepath.Join(path, ConfigFile), opts.Config, 0o644); err != nil {
			return nil, err
		}
	}
	return &Dir{Path: path, Name: name}, nil
}

// Reuse adopts an existing directory, typically the one holding the
// checkpoint being resumed. Nothing is written.
func Reuse(path string) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return &Dir{Path: path, Name: filepath.Base(path), Reused: true}, nil
}

func shortID() string {
	return uuid.New().String()[:8]
}
