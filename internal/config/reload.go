package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/pkg/watcher"
)

const reloadDebounce = 200 * time.Millisecond

// Watch re-reads the file v was loaded from whenever it changes and passes
// the new configuration to onChange. Invalid edits are logged and skipped.
// onChange runs on the watcher goroutine.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(Config)) (*watcher.FileWatcher, error) {
	log = logger.For(log, logger.AreaConfig)
	file := v.ConfigFileUsed()
	if file == "" {
		return nil, nil
	}

	fw, err := watcher.NewFileWatcher(reloadDebounce, log)
	if err != nil {
		return nil, err
	}
	err = fw.Watch([]string{file}, func(path string) {
		if err := v.ReadInConfig(); err != nil {
			log.Warn("config reload failed", "file", path, "err", err)
			return
		}
		c, err := Decode(v)
		if err != nil {
			log.Warn("config reload rejected", "file", path, "err", err)
			return
		}
		log.Info("config reloaded", "file", path)
		onChange(c)
	})
	if err != nil {
		fw.Close()
		return nil, err
	}
	fw.Start()
	return fw, nil
}
