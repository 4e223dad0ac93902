package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkchat_conversations_created_total",
		Help: "Conversations created.",
	})
	messagesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkchat_messages_saved_total",
		Help: "Messages persisted (human and bot).",
	})
	messagesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkchat_messages_seen_total",
		Help: "Messages flipped from unseen to seen.",
	})
	activitiesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkchat_activities_saved_total",
		Help: "Activity records persisted.",
	})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sparkchat_store_disk_bytes",
		Help: "Best-effort on-disk size of the pebble database directory.",
	}, func() float64 { return float64(DiskUsage()) })
)

// DiskUsage returns the best-effort total size in bytes of the DB directory.
func DiskUsage() uint64 {
	if db == nil || dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
