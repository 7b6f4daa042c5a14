// Package api exposes the gateway's batch operations as JSON endpoints under
// /api/geo.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/observability"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/gateway"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/logger"
)

const Prefix = "/api/geo"

// Service is the subset of *gateway.Gateway the handlers call.
type Service interface {
	EncodeGeohash(ctx context.Context, reqs []gateway.EncodeRequest) ([]gateway.Result[gateway.Encoded], error)
	DecodeGeohash(ctx context.Context, tokens []string) ([]gateway.Result[gateway.Decoded], error)
	EncodeH3(ctx context.Context, reqs []gateway.EncodeRequest) ([]gateway.Result[gateway.Encoded], error)
	DecodeH3(ctx context.Context, tokens []string) ([]gateway.Result[gateway.Decoded], error)
	EncodeS2(ctx context.Context, reqs []gateway.EncodeRequest) ([]gateway.Result[gateway.Encoded], error)
	DecodeS2(ctx context.Context, tokens []string) ([]gateway.Result[gateway.Decoded], error)
}

var _ Service = (*gateway.Gateway)(nil)

type Handler struct {
	svc     Service
	logger  *slog.Logger
	maxBody int64
}

func New(svc Service, logger *slog.Logger, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = 8 << 20
	}
	return &Handler{svc: svc, logger: logger, maxBody: maxBody}
}

// Routes returns a router meant to be mounted at Prefix.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/geohash", h.observe("/geohash", h.encodeGeohash))
	r.Post("/decode-geohash", h.observe("/decode-geohash", h.decodeGeohash))
	r.Post("/h3", h.observe("/h3", h.encodeH3))
	r.Post("/decode-h3", h.observe("/decode-h3", h.decodeH3))
	r.Post("/s2", h.observe("/s2", h.encodeS2))
	r.Post("/decode-s2", h.observe("/decode-s2", h.decodeS2))
	return r
}

func (h *Handler) encodeGeohash(w http.ResponseWriter, r *http.Request) {
	var in []geohashEncodeRequest
	if !h.readBatch(w, r, &in) {
		return
	}
	reqs := make([]gateway.EncodeRequest, len(in))
	for i, v := range in {
		reqs[i] = gateway.EncodeRequest{Lat: v.Lat, Lon: v.Lon, Precision: v.Precision}
	}
	res, err := h.svc.EncodeGeohash(r.Context(), reqs)
	writeResults(h, w, r, res, err, func(i int, x gateway.Result[gateway.Encoded]) geohashEncodeResponse {
		out := geohashEncodeResponse{
			Latitude:  formatDouble(in[i].Lat),
			Longitude: formatDouble(in[i].Lon),
			Precision: strconv.Itoa(in[i].Precision),
			Geohash:   x.Value.Token,
		}
		if x.Err != nil {
			out.Error = itemMessage(x.Err)
		}
		return out
	})
}

func (h *Handler) decodeGeohash(w http.ResponseWriter, r *http.Request) {
	var in []string
	if !h.readBatch(w, r, &in) {
		return
	}
	res, err := h.svc.DecodeGeohash(r.Context(), in)
	writeResults(h, w, r, res, err, func(i int, x gateway.Result[gateway.Decoded]) geohashDecodeResponse {
		out := geohashDecodeResponse{Geohash: in[i]}
		if x.Err != nil {
			out.Error = itemMessage(x.Err)
			return out
		}
		out.Latitude, out.Longitude, out.Precision = ptr(x.Value.Lat), ptr(x.Value.Lon), ptr(x.Value.Precision)
		return out
	})
}

func (h *Handler) encodeH3(w http.ResponseWriter, r *http.Request) {
	var in []h3EncodeRequest
	if !h.readBatch(w, r, &in) {
		return
	}
	reqs := make([]gateway.EncodeRequest, len(in))
	for i, v := range in {
		reqs[i] = gateway.EncodeRequest{Lat: v.Lat, Lon: v.Lon, Precision: v.Resolution}
	}
	res, err := h.svc.EncodeH3(r.Context(), reqs)
	writeResults(h, w, r, res, err, func(i int, x gateway.Result[gateway.Encoded]) h3EncodeResponse {
		out := h3EncodeResponse{
			Latitude:   formatDouble(in[i].Lat),
			Longitude:  formatDouble(in[i].Lon),
			Resolution: strconv.Itoa(in[i].Resolution),
			H3Index:    x.Value.Token,
		}
		if x.Err != nil {
			out.Error = itemMessage(x.Err)
		}
		return out
	})
}

func (h *Handler) decodeH3(w http.ResponseWriter, r *http.Request) {
	var in []string
	if !h.readBatch(w, r, &in) {
		return
	}
	res, err := h.svc.DecodeH3(r.Context(), in)
	writeResults(h, w, r, res, err, func(i int, x gateway.Result[gateway.Decoded]) h3DecodeResponse {
		out := h3DecodeResponse{H3Index: in[i]}
		if x.Err != nil {
			out.Error = itemMessage(x.Err)
			return out
		}
		out.Latitude, out.Longitude, out.Precision = ptr(x.Value.Lat), ptr(x.Value.Lon), ptr(x.Value.Precision)
		return out
	})
}

func (h *Handler) encodeS2(w http.ResponseWriter, r *http.Request) {
	var in []s2EncodeRequest
	if !h.readBatch(w, r, &in) {
		return
	}
	reqs := make([]gateway.EncodeRequest, len(in))
	for i, v := range in {
		reqs[i] = gateway.EncodeRequest{Lat: v.Lat, Lon: v.Lon}
	}
	res, err := h.svc.EncodeS2(r.Context(), reqs)
	writeResults(h, w, r, res, err, func(i int, x gateway.Result[gateway.Encoded]) s2EncodeResponse {
		out := s2EncodeResponse{
			Latitude:  formatDouble(in[i].Lat),
			Longitude: formatDouble(in[i].Lon),
			S2CellID:  x.Value.Token,
		}
		if x.Err != nil {
			out.Error = itemMessage(x.Err)
		}
		return out
	})
}

func (h *Handler) decodeS2(w http.ResponseWriter, r *http.Request) {
	var in []string
	if !h.readBatch(w, r, &in) {
		return
	}
	res, err := h.svc.DecodeS2(r.Context(), in)
	writeResults(h, w, r, res, err, func(i int, x gateway.Result[gateway.Decoded]) s2DecodeResponse {
		out := s2DecodeResponse{S2CellID: in[i]}
		if x.Err != nil {
			out.Error = itemMessage(x.Err)
			return out
		}
		out.Latitude, out.Longitude = ptr(x.Value.Lat), ptr(x.Value.Lon)
		return out
	})
}

// readBatch decodes a single JSON array body into dst; a null body is an
// empty batch and anything after the array is rejected.
func (h *Handler) readBatch(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	err := dec.Decode(dst)
	if err == nil {
		var extra json.RawMessage
		switch terr := dec.Decode(&extra); {
		case errors.Is(terr, io.EOF):
		case isMaxBytes(terr):
			err = terr
		default:
			err = errors.New("unexpected data after JSON value")
		}
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("request body exceeds %d bytes", mbe.Limit),
				Kind:  "request",
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error(), Kind: "request"})
		return false
	}
	return true
}

func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// writeResults applies the batch policy: by default the first failed item
// fails the whole request; with ?partial=true every item is returned and
// failures carry an "error" field.
func writeResults[T, R any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	res []gateway.Result[T],
	err error,
	shape func(int, gateway.Result[T]) R,
) {
	if err != nil {
		h.writeBatchError(w, r, err)
		return
	}
	if !partial(r) {
		if ferr := gateway.FirstError(res); ferr != nil {
			h.writeItemError(w, r, ferr)
			return
		}
	}
	out := make([]R, len(res))
	for i, x := range res {
		out[i] = shape(i, x)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeBatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gateway.ErrBatchTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error(), Kind: "batch_too_large"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(r.Context(), "batch aborted", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request canceled", Kind: "canceled"})
	default:
		h.logger.ErrorContext(r.Context(), "batch failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: "internal"})
	}
}

func (h *Handler) writeItemError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: itemMessage(err), Kind: codec.Kind(err)}
	var ie *gateway.ItemError
	if errors.As(err, &ie) {
		resp.Index = ptr(ie.Index)
	}
	if resp.Kind == "" {
		h.logger.ErrorContext(r.Context(), "codec failure", "err", err)
		resp.Kind = "internal"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	h.logger.DebugContext(r.Context(), "rejected batch item", "kind", resp.Kind, "err", err)
	writeJSON(w, http.StatusBadRequest, resp)
}

// itemMessage drops the "item N:" prefix; the index is reported separately.
func itemMessage(err error) string {
	var ie *gateway.ItemError
	if errors.As(err, &ie) {
		return ie.Err.Error()
	}
	return err.Error()
}

func partial(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("partial"))
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) observe(route string, fn http.HandlerFunc) http.HandlerFunc {
	full := Prefix + route
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		ctx := logger.WithRoute(r.Context(), full)
		fn(sw, r.WithContext(ctx))
		observability.ObserveHTTP(r.Method, full, sw.code, time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
