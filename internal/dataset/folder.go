package dataset

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/imaging"
)

// FolderOptions configures LoadFolder.
type FolderOptions struct {
	CropSize int          // Center-crop size of every sample
	Workers  int          // Concurrent decoders (<= 0 means 1)
	Logger   *slog.Logger // Receives skip warnings (nil discards them)
}

// LoadFolder decodes every PNG/JPEG under dir (recursively), center-crops it
// to CropSize and returns the samples sorted by path. Images smaller than
// the crop are skipped with a warning.
func LoadFolder(ctx context.Context, dir string, opts FolderOptions) (*InMemory, error) {
	if opts.CropSize <= 0 {
		return nil, fault.Configf("image size must be positive, got %d", opts.CropSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && imaging.IsImageFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", fault.ErrDataset, dir, err)
	}
	if len(paths) == 0 {
		return nil, fault.Datasetf("no images found in %s", dir)
	}
	sort.Strings(paths)

	crops := make([]*imaging.Image, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			im, err := imaging.Load(path)
			if err != nil {
				return fmt.Errorf("%w: %w", fault.ErrDataset, err)
			}
			crop, err := im.CenterCrop(opts.CropSize)
			if err != nil {
				logger.Warn("skipping image", "path", path, "error", err)
				return nil
			}
			crops[i] = crop
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	samples := crops[:0]
	for _, c := range crops {
		if c != nil {
			samples = append(samples, c)
		}
	}
	if len(samples) == 0 {
		return nil, fault.Datasetf("no image in %s is at least %dx%d", dir, opts.CropSize, opts.CropSize)
	}
	logger.Info("loaded image folder", "dir", dir, "samples", len(samples), "skipped", len(paths)-len(samples))
	return NewInMemory(samples)
}
