package portfoliocms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serviceMetrics struct {
	sectionUpdates *prometheus.CounterVec
	listMutations  *prometheus.CounterVec
	versions       *prometheus.CounterVec
	recoveries     *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	mediaUploads   *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
}

var defaultMetrics = &serviceMetrics{
	sectionUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfoliocms_section_updates_total",
		Help: "Section writes by section and result.",
	}, []string{"section", "result"}),
	listMutations: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfoliocms_list_mutations_total",
		Help: "Successful list item mutations by section and operation.",
	}, []string{"section", "op"}),
	versions: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfoliocms_versions_total",
		Help: "Version lifecycle events by kind (created, restored, pruned, deleted).",
	}, []string{"event"}),
	recoveries: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfoliocms_recoveries_total",
		Help: "Automatic recovery attempts by outcome.",
	}, []string{"outcome"}),
	cacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfoliocms_cache_lookups_total",
		Help: "Read model cache lookups by result.",
	}, []string{"result"}),
	mediaUploads: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfoliocms_media_uploads_total",
		Help: "Media uploads by result.",
	}, []string{"result"}),
	updateDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfoliocms_section_update_duration_seconds",
		Help:    "Time spent in a section update including backup and pruning.",
		Buckets: prometheus.DefBuckets,
	}, []string{"section"}),
}
