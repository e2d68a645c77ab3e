package main

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-i2p/go-icp/lib/config"
	"github.com/go-i2p/go-icp/lib/icpmanager"
	"github.com/go-i2p/go-icp/lib/util"
	"github.com/go-i2p/go-icp/lib/util/signals"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ICP listener and follow configuration changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(viper.GetViper())
		},
	}
}

// reloader reapplies configuration snapshots to a Manager, passing the
// keys that changed since the last accepted snapshot.
type reloader struct {
	mu      sync.Mutex
	manager *icpmanager.Manager
	current *config.ICPConfig
}

// apply reads the ICP settings from v and hands them to the Manager.
func (r *reloader) apply(source string, v *viper.Viper) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := config.NewICPConfigFromViper(v)
	keys := config.ChangedKeys(r.current, next)
	if err := r.manager.SetConfig(next, r.current, keys); err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(reloader) apply",
			"source": source,
		}).Warn("keeping previous ICP configuration")
		return
	}
	r.current = next
	log.WithFields(logger.Fields{
		"at":           "(reloader) apply",
		"source":       source,
		"changed_keys": keys,
		"state":        r.manager.State().String(),
	}).Info("ICP configuration reloaded")
}

// reread loads path into a private viper instance and applies it. The
// instance watched by viper.WatchConfig is re-read by its own goroutine,
// so it is never touched from here.
func (r *reloader) reread(source, path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(reloader) reread",
			"source": source,
			"path":   path,
		}).Warn("failed to re-read configuration file")
		return
	}
	r.apply(source, v)
}

func serve(v *viper.Viper) error {
	manager := icpmanager.NewManager()
	initial := config.NewICPConfigFromViper(v)
	if err := manager.SetConfig(initial, nil, nil); err != nil {
		return err
	}
	util.RegisterCloser(manager)
	r := &reloader{manager: manager, current: initial}
	path := v.ConfigFileUsed()

	v.OnConfigChange(func(e fsnotify.Event) {
		r.apply("file:"+e.Name, v)
	})
	v.WatchConfig()

	signals.RegisterReloadHandler(func() {
		r.reread("SIGHUP", path)
	})

	done := make(chan struct{})
	var once sync.Once
	signals.RegisterInterruptHandler(func() {
		once.Do(func() {
			util.CloseAll()
			close(done)
		})
	})

	log.WithFields(logger.Fields{
		"at":    "serve",
		"state": manager.State().String(),
	}).Info("icpd running")

	go signals.Handle()
	<-done
	signals.StopHandle()
	return nil
}
