package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"burning-text-bot/internal/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "burning_text"
	subsystem = "telegram_bot"
)

type BotMetrics struct {
	Registry *prometheus.Registry

	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	Generations        prometheus.Counter
	GenerationFailures *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	ChannelsCount      prometheus.Gauge
	MessagesPerChannel *prometheus.CounterVec

	channelsSet map[int64]string
	mutex       sync.Mutex
}

func NewBotMetrics() *BotMetrics {
	m := &BotMetrics{
		Registry: prometheus.NewRegistry(),
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generations",
			Help:      "The total number of successfully generated animations",
		}),
		GenerationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "generation_failures",
				Help:      "Failed generations by reason",
			},
			[]string{"reason"},
		),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generation_duration_seconds",
			Help:      "Time spent rendering and downloading an animation",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 12, 20},
		}),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique channels the bot is operating in",
		}),
		MessagesPerChannel: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_per_channel",
				Help:      "The total number of messages handled per channel",
			},
			[]string{"chat_id", "chat_name"},
		),
		channelsSet: make(map[int64]string),
	}

	m.Registry.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.Generations,
		m.GenerationFailures,
		m.GenerationDuration,
		m.ChannelsCount,
		m.MessagesPerChannel,
	)

	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *BotMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *BotMetrics) MessageHandled(chatID int64, chatName string) {
	m.MessagesHandled.Inc()

	if chatName == "" {
		chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
	}

	m.mutex.Lock()
	if _, exists := m.channelsSet[chatID]; !exists {
		m.channelsSet[chatID] = chatName
		m.ChannelsCount.Set(float64(len(m.channelsSet)))
	}
	m.mutex.Unlock()

	m.MessagesPerChannel.WithLabelValues(strconv.FormatInt(chatID, 10), chatName).Inc()
}

func (m *BotMetrics) CommandProcessed() {
	m.CommandsProcessed.Inc()
}

// GenerationObserved records one generation attempt. An empty reason means success.
func (m *BotMetrics) GenerationObserved(d time.Duration, reason string) {
	m.GenerationDuration.Observe(d.Seconds())
	if reason == "" {
		m.Generations.Inc()
		return
	}
	m.GenerationFailures.WithLabelValues(reason).Inc()
}

// Load restores counters saved by a previous run.
func (m *BotMetrics) Load(store *database.Store) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for name, counter := range map[string]prometheus.Counter{
		"commands_processed": m.CommandsProcessed,
		"messages_handled":   m.MessagesHandled,
		"generations":        m.Generations,
	} {
		value, err := store.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		counter.Add(value)
	}

	loadLabeledMetrics(store, "generation_failures", func(_, reason string, value float64) {
		m.GenerationFailures.WithLabelValues(reason).Add(value)
	})

	loadLabeledMetrics(store, "messages_per_channel", func(chatIDStr, chatName string, value float64) {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			log.Errorf("Failed to parse chatID %s: %v", chatIDStr, err)
			return
		}
		m.channelsSet[chatID] = chatName
		m.MessagesPerChannel.WithLabelValues(chatIDStr, chatName).Add(value)
	})
	m.ChannelsCount.Set(float64(len(m.channelsSet)))

	log.Info("Metrics loaded from database.")
}

func loadLabeledMetrics(store *database.Store, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := store.GetMetricsWithLabels(metricName)
	if err != nil {
		log.Errorf("Failed to load metric %s: %v", metricName, err)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// Save writes the current counter values to store.
func (m *BotMetrics) Save(store *database.Store) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	saveMetric(store, "commands_processed", "", "", GetMetricValue(m.CommandsProcessed))
	saveMetric(store, "messages_handled", "", "", GetMetricValue(m.MessagesHandled))
	saveMetric(store, "generations", "", "", GetMetricValue(m.Generations))

	collectLabeled(m.GenerationFailures, func(labels map[string]string, value float64) {
		saveMetric(store, "generation_failures", "reason", labels["reason"], value)
	})
	collectLabeled(m.MessagesPerChannel, func(labels map[string]string, value float64) {
		saveMetric(store, "messages_per_channel", labels["chat_id"], labels["chat_name"], value)
	})

	log.Info("Metrics saved to database.")
}

func saveMetric(store *database.Store, name, labelKey, labelValue string, value float64) {
	if err := store.SaveMetricWithLabels(name, labelKey, labelValue, value); err != nil {
		log.Errorf("Failed to save metric %s: %v", name, err)
	}
}

func collectLabeled(vec *prometheus.CounterVec, callback func(labels map[string]string, value float64)) {
	metricChan := make(chan prometheus.Metric)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read labelled metric: %v", err)
			continue
		}
		labels := make(map[string]string, len(metricProto.Label))
		for _, label := range metricProto.Label {
			labels[label.GetName()] = label.GetValue()
		}
		callback(labels, metricProto.GetCounter().GetValue())
	}
}

func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
