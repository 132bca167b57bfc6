package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
)

// registryCacheSize bounds the number of parsed configurations of a Registry.
const registryCacheSize = 512

// ConfigSelection selects the mapping configurations of a command.
type ConfigSelection struct {
	Configs []string `long:"config" short:"c" description:"Path of a mapping configuration. May be repeated"`
	Dir     string   `long:"config-dir" env:"CONFIG_DIR" description:"Directory of mapping configurations. Relative --config paths are resolved against it, and if no --config is given, all of its configurations are selected"`
}

// load the selected configurations. Configurations which fail to load are
// returned in a map of path to error, and don't prevent the loading of others.
func (s ConfigSelection) load() ([]*mapping.TableConfig, map[string]error, error) {
	if s.Dir == "" {
		if len(s.Configs) == 0 {
			return nil, nil, errors.New("no configurations selected (use --config or --config-dir)")
		}
		var out []*mapping.TableConfig
		var failed = make(map[string]error)

		for _, path := range s.Configs {
			if cfg, err := mapping.Load(path); err != nil {
				failed[path] = err
			} else {
				out = append(out, cfg)
			}
		}
		return out, failed, nil
	}

	var registry, err = mapping.NewRegistry(s.Dir, registryCacheSize)
	if err != nil {
		return nil, nil, err
	} else if len(s.Configs) == 0 {
		return registry.LoadAll()
	}

	var out []*mapping.TableConfig
	var failed = make(map[string]error)

	for _, path := range s.Configs {
		if cfg, err := registry.Load(path); err != nil {
			failed[path] = err
		} else {
			out = append(out, cfg)
		}
	}
	return out, failed, nil
}

// runAll invokes |fn| with each of |cfgs| in turn. A failure is logged and
// doesn't prevent the processing of remaining configurations. Configurations
// which |failed| to load count as failures of the run.
func runAll(ctx context.Context, op string, cfgs []*mapping.TableConfig, failed map[string]error,
	fn func(context.Context, *mapping.TableConfig) error) error {

	var started = time.Now()
	var errs = len(failed)

	for path, err := range failed {
		log.WithFields(log.Fields{"path": path, "err": err}).Error("failed to load configuration")
	}
	for _, cfg := range cfgs {
		if ctx.Err() != nil {
			errs += 1
			continue
		}
		if err := fn(ctx, cfg); err != nil {
			log.WithFields(log.Fields{
				"table":  cfg.TableName,
				"source": cfg.Source,
				"err":    err,
			}).Error(op + " failed")
			errs += 1
		}
	}

	var total = len(cfgs) + len(failed)
	log.WithFields(log.Fields{
		"configs": total,
		"failed":  errs,
		"elapsed": time.Since(started).Round(time.Millisecond),
	}).Info(op + " complete")

	if errs != 0 {
		return errors.Errorf("%d of %d configurations failed to %s", errs, total, op)
	}
	return nil
}
