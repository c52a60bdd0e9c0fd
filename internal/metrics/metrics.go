// Package metrics exposes Prometheus instrumentation for the browsing
// engine.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CatalogLoads counts bucket and object list loads by result.
	CatalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objbrowse_catalog_loads_total",
		Help: "Catalog load attempts by result.",
	}, []string{"result"})

	// BatchOperations counts batch executions by action and terminal state.
	BatchOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "objbrowse_batch_operations_total",
		Help: "Batch operations by action and terminal state.",
	}, []string{"action", "state"})

	// UploadedFiles counts successfully uploaded files.
	UploadedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "objbrowse_uploaded_files_total",
		Help: "Files uploaded successfully.",
	})

	// UploadedBytes counts bytes of successfully uploaded files.
	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "objbrowse_uploaded_bytes_total",
		Help: "Bytes uploaded successfully.",
	})
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
