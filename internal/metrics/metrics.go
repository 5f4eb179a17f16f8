// Package metrics eksportuje liczniki runów ETL w formacie Prometheusa
// (plik dla textfile collectora node_exportera albo własny rejestr).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/dq"
)

const namespace = "olap_etl"

type Recorder struct {
	reg         *prometheus.Registry
	anomalies   *prometheus.CounterVec
	rows        *prometheus.CounterVec
	runs        *prometheus.CounterVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Data quality anomalies by error type.",
		}, []string{"error_type"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to the warehouse by table and operation.",
		}, []string{"table", "op"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by status.",
		}, []string{"status"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the most recent run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_source_date_seconds",
			Help:      "Source date of the most recent successful run, as a unix timestamp.",
		}),
	}
	r.reg.MustRegister(r.anomalies, r.rows, r.runs, r.duration, r.lastSuccess)

	// zera dla całej taksonomii, żeby serie istniały od pierwszego scrape'a
	for _, k := range dq.Kinds() {
		r.anomalies.WithLabelValues(k.String())
	}
	for _, s := range []string{db.StatusSuccess, db.StatusFailed} {
		r.runs.WithLabelValues(s)
	}
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveRun dolicza zamknięty run.
func (r *Recorder) ObserveRun(rec *db.RunRecord, summary dq.Summary) {
	for _, k := range dq.Kinds() {
		if n := summary.Count(k); n > 0 {
			r.anomalies.WithLabelValues(k.String()).Add(float64(n))
		}
	}

	rows := rec.Rows
	for _, c := range []struct {
		table, op string
		n         int
	}{
		{"dim_user", "insert", rows.DimUserInserted},
		{"dim_user", "update", rows.DimUserUpdated},
		{"dim_product", "insert", rows.DimProductInserted},
		{"dim_product", "update", rows.DimProductUpdated},
		{"dim_date", "insert", rows.DimDateInserted},
		{"fact_transactions", "insert", rows.FactTransactionsInserted},
		{"fact_stock_history", "insert", rows.FactStockHistoryInserted},
	} {
		r.rows.WithLabelValues(c.table, c.op).Add(float64(c.n))
	}

	r.runs.WithLabelValues(rec.Status).Inc()
	r.duration.Set(float64(rec.DurationMS) / 1000)
	if rec.Status == db.StatusSuccess {
		r.lastSuccess.Set(float64(rec.SourceDate.Unix()))
	}
}

// WriteTextfile zapisuje stan rejestru do pliku (atomowo, przez plik tymczasowy).
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
