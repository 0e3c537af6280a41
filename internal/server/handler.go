// Package server implements the HTTP front end for a tile pyramid:
// one handler per tile request, a bounded worker pool, request-scoped
// logging, and Prometheus metrics. It contains no WMTS/WMS XML
// handling — requests are already-parsed (tileMatrixID, x, y) triples
// by the time they reach this package.
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/pspoerri/rastertiles/internal/errs"
	"github.com/pspoerri/rastertiles/internal/pyramid"
)

// PyramidSet resolves a layer name to the pyramid backing it, so one
// server process can serve several layers from one listener.
type PyramidSet map[string]*pyramid.Pyramid

// Handler serves raw tile bytes straight out of a pyramid's
// containers, synthesizing a standalone header per request and never
// decoding pixels.
type Handler struct {
	pyramids PyramidSet
	pool     *workerPool
	metrics  *metrics
	logger   *zap.Logger
}

// Options configures a Handler.
type Options struct {
	Concurrency    int
	Logger         *zap.Logger
	MetricsReg     prometheus.Registerer
	AllowedOrigins []string
}

// NewHandler wires the worker pool, metrics, and CORS policy around a
// set of pyramids and returns the composed http.Handler.
func NewHandler(pyramids PyramidSet, opts Options) http.Handler {
	h := &Handler{
		pyramids: pyramids,
		pool:     newWorkerPool(opts.Concurrency),
		logger:   opts.Logger,
	}
	if opts.MetricsReg != nil {
		h.metrics = newMetrics(opts.MetricsReg)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/tiles/", h.serveTile)
	mux.HandleFunc("/healthz", h.serveHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	return c.Handler(mux)
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// serveTile implements the URL shape /tiles/{layer}/{matrixID}/{x}/{y}.
// Each request is handled start to finish by one acquired worker slot;
// there is no suspension point within a single request beyond the
// container read itself.
func (h *Handler) serveTile(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	start := time.Now()

	layer, matrixID, x, y, err := parseTilePath(r.URL.Path)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	p, ok := h.pyramids[layer]
	if !ok {
		h.writeError(w, requestID, errs.New(errs.NotFound, "server.serveTile", nil))
		return
	}

	release, err := h.pool.acquire(r.Context())
	if err != nil {
		h.writeError(w, requestID, errs.Wrap(errs.Io, "server.serveTile", "%v", err))
		return
	}
	defer release()

	tile, status, err := p.ReadRawTile(matrixID, x, y)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	if h.logger != nil {
		h.logger.Debug("served tile",
			zap.String("request_id", requestID),
			zap.String("layer", layer),
			zap.String("matrix_id", matrixID),
			zap.Int("x", x),
			zap.Int("y", y),
			zap.String("status", status.String()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	if h.metrics != nil {
		h.metrics.requests.WithLabelValues(status.String()).Inc()
		if status == pyramid.NodataFallback {
			h.metrics.nodataFallback.Inc()
		}
	}

	w.Header().Set("Content-Type", tile.MimeType)
	w.Header().Set("X-Request-Id", requestID)
	w.Header().Set("X-Tile-Status", status.String())
	w.WriteHeader(http.StatusOK)
	w.Write(tile.Header)
	w.Write(tile.Payload)
}

// writeError maps an error's errs.Kind to an HTTP status per the
// server's stated propagation rule: NotFound degrades to a nodata
// response upstream in ReadRawTile already, so anything reaching here
// is a genuine failure.
func (h *Handler) writeError(w http.ResponseWriter, requestID string, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errs.NotFound:
		status = http.StatusNotFound
	case errs.Config, errs.OutOfRange:
		status = http.StatusBadRequest
	case errs.Corrupt, errs.GeometryMismatch, errs.MaskMismatch, errs.UnsupportedCombination:
		status = http.StatusUnprocessableEntity
	}

	if h.logger != nil {
		h.logger.Error("tile request failed",
			zap.String("request_id", requestID),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
	if h.metrics != nil {
		h.metrics.errors.WithLabelValues(kind.String()).Inc()
	}

	w.Header().Set("X-Request-Id", requestID)
	http.Error(w, err.Error(), status)
}

func parseTilePath(path string) (layer, matrixID string, x, y int, err error) {
	const prefix = "/tiles/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return "", "", 0, 0, errs.New(errs.NotFound, "server.parseTilePath", nil)
	}
	parts := strings.Split(path[len(prefix):], "/")
	if len(parts) != 4 {
		return "", "", 0, 0, errs.Wrap(errs.Config, "server.parseTilePath", "expected /tiles/{layer}/{matrixID}/{x}/{y}")
	}

	xi, err1 := strconv.Atoi(parts[2])
	yi, err2 := strconv.Atoi(parts[3])
	if err1 != nil || err2 != nil {
		return "", "", 0, 0, errs.Wrap(errs.Config, "server.parseTilePath", "x and y must be integers")
	}

	return parts[0], parts[1], xi, yi, nil
}
