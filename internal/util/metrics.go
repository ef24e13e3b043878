package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsReconciledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listings_reconciled_total",
		Help: "Total number of scraped listings merged into the store",
	}, []string{"result"})

	ListingsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_rejected_total",
		Help: "Total number of scraped listings rejected by validation",
	})

	ListingsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_removed_total",
		Help: "Total number of listings marked as removed after a full pass",
	})

	DetailsSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "details_saved_total",
		Help: "Total number of detail records received",
	}, []string{"result"})

	CatalogExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_exports_total",
		Help: "Total number of product synchronizations by outcome",
	}, []string{"outcome"})

	CatalogExportLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_export_latency_seconds",
		Help:    "Latency of a single product synchronization",
		Buckets: prometheus.DefBuckets,
	})

	CatalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Latency of remote catalog requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	CatalogRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_request_errors_total",
		Help: "Total number of failed remote catalog requests",
	}, []string{"operation"})

	ReferenceCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reference_cache_lookups_total",
		Help: "Reference data id lookups by kind and cache result",
	}, []string{"kind", "result"})

	CoverImageFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cover_image_fetch_total",
		Help: "Cover image downloads by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
