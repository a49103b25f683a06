package artifact

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"predictive-maintenance/internal/metrics"
)

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher сообщает об изменении файлов артефактов. Артефакты не
// перезагружаются: новая версия применяется только после рестарта.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]string
	logger   *zap.Logger
	onChange func(artifact string)
}

// NewWatcher наблюдает за каталогами файлов; files: путь -> имя артефакта
func NewWatcher(files map[string]string, logger *zap.Logger, onChange func(artifact string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]string, len(files)),
		logger:   logger,
		onChange: onChange,
	}

	dirs := make(map[string]struct{})
	for path, name := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = name
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run обрабатывает события до отмены контекста
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&changeOps == 0 {
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	name, ok := w.files[abs]
	if !ok {
		return
	}

	metrics.ArtifactChanges.WithLabelValues(name).Inc()
	w.logger.Warn("artifact changed on disk, restart required to load it",
		zap.String("artifact", name),
		zap.String("path", abs),
		zap.String("op", event.Op.String()),
	)
	if w.onChange != nil {
		w.onChange(name)
	}
}
