package transfer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/3leaps/nimbrowse/pkg/output"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

// DeleteTree deletes every object under prefix, then the directory
// placeholder itself. prefix must name a directory ("a/b/"); the bucket
// root cannot be deleted this way.
func DeleteTree(ctx context.Context, p provider.Provider, bucket, prefix string, cfg Config) (*Summary, error) {
	cfg = cfg.withDefaults()
	if prefix == "" || !strings.HasSuffix(prefix, "/") {
		return nil, fmt.Errorf("delete tree: %q is not a directory prefix", prefix)
	}

	entries, err := ListAll(ctx, p, bucket, prefix)
	if err != nil {
		return nil, err
	}
	items := make([]item, 0, len(entries))
	for _, e := range entries {
		if e.Key == prefix {
			continue
		}
		items = append(items, item{source: e.Key, size: e.Size})
	}

	sum, err := run(ctx, cfg, output.OpDelete, bucket, items, func(ctx context.Context, it item) (int64, bool, error) {
		return it.size, false, p.DeleteObject(ctx, bucket, it.source)
	})
	if err != nil {
		return sum, err
	}
	if err := p.DeleteObject(ctx, bucket, prefix); err != nil {
		return sum, err
	}
	return sum, nil
}

// Delete removes a single key, or a whole tree when key is a directory.
func Delete(ctx context.Context, p provider.Provider, bucket string, obj provider.Object, cfg Config) (*Summary, error) {
	if obj.IsDirectory {
		return DeleteTree(ctx, p, bucket, obj.Key, cfg)
	}
	cfg = cfg.withDefaults()
	return run(ctx, cfg, output.OpDelete, bucket, []item{{source: obj.Key, size: obj.Size}}, func(ctx context.Context, it item) (int64, bool, error) {
		return it.size, false, p.DeleteObject(ctx, bucket, it.source)
	})
}

// Upload copies a local file to prefix+basename, or a local directory to
// prefix+dirname/... preserving its structure. Only regular files are
// uploaded; symlinks and special files are skipped.
func Upload(ctx context.Context, p provider.Provider, bucket, prefix, localPath string, cfg Config) (*Summary, error) {
	cfg = cfg.withDefaults()
	localPath = filepath.Clean(localPath)
	st, err := os.Stat(localPath)
	if err != nil {
		return nil, err
	}

	var items []item
	if !st.IsDir() {
		items = append(items, item{source: localPath, target: prefix + filepath.Base(localPath), size: st.Size()})
	} else {
		base := prefix + filepath.Base(localPath) + "/"
		err = filepath.WalkDir(localPath, func(full string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(localPath, full)
			if err != nil {
				return err
			}
			items = append(items, item{source: full, target: base + filepath.ToSlash(rel), size: info.Size()})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return run(ctx, cfg, output.OpUpload, bucket, items, func(ctx context.Context, it item) (int64, bool, error) {
		skip, err := targetExists(ctx, p, bucket, it.target, cfg.OnExists)
		if err != nil || skip {
			return 0, skip, err
		}
		data, err := os.ReadFile(it.source)
		if err != nil {
			return 0, false, err
		}
		if _, err := p.PutObject(ctx, bucket, it.target, data); err != nil {
			return 0, false, err
		}
		return int64(len(data)), false, nil
	})
}

// Download copies an object to a local file, or a directory prefix to a
// local directory tree.
//
// For a single object, localPath may be an existing directory, in which
// case the object's name is appended. For a directory, the tree is
// written under localPath/<dirname>/.
func Download(ctx context.Context, p provider.Provider, bucket string, obj provider.Object, localPath string, cfg Config) (*Summary, error) {
	cfg = cfg.withDefaults()
	localPath = filepath.Clean(localPath)

	var items []item
	if !obj.IsDirectory {
		target := localPath
		if st, err := os.Stat(localPath); err == nil && st.IsDir() {
			target = filepath.Join(localPath, obj.Name())
		}
		items = append(items, item{source: obj.Key, target: target, size: obj.Size})
	} else {
		entries, err := ListAll(ctx, p, bucket, obj.Key)
		if err != nil {
			return nil, err
		}
		root := filepath.Join(localPath, obj.Name())
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDirectory {
				continue
			}
			rel := strings.TrimPrefix(e.Key, obj.Key)
			local := filepath.FromSlash(path.Clean(rel))
			if !filepath.IsLocal(local) {
				return nil, fmt.Errorf("download: key %q escapes %s", e.Key, root)
			}
			items = append(items, item{source: e.Key, target: filepath.Join(root, local), size: e.Size})
		}
	}

	return run(ctx, cfg, output.OpDownload, bucket, items, func(ctx context.Context, it item) (int64, bool, error) {
		if _, err := os.Stat(it.target); err == nil {
			switch cfg.OnExists {
			case OnExistsSkip:
				return 0, true, nil
			case OnExistsFail:
				return 0, false, &ExistsError{Target: it.target}
			}
		}
		data, err := p.GetObject(ctx, bucket, it.source, provider.GetOptions{})
		if err != nil {
			return 0, false, err
		}
		if err := writeFile(it.target, data); err != nil {
			return 0, false, err
		}
		return int64(len(data)), false, nil
	})
}

// writeFile writes data via a temp file in the same directory so a
// failed download never leaves a partial file behind.
func writeFile(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".nimbrowse-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
