package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/metrics"
)

type Server struct {
	server *http.Server
}

// NewRouter wires the payment routes. Exposed so tests can drive it without a listener.
func NewRouter(controller *PaymentController, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	router.Use(instrument)

	router.HandleFunc("/api/payments/qr", controller.CreateQRPayment).Methods("POST")
	router.HandleFunc("/api/payments/{paymentId}/watch", controller.Watch).Methods("POST")
	router.HandleFunc("/api/payments/{paymentId}", controller.GetStatus).Methods("GET")
	router.HandleFunc("/api/payments/{paymentId}", controller.Disconnect).Methods("DELETE")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "traceparent"}),
	)
	return handlers.CombinedLoggingHandler(log.Writer(), cors(router))
}

func NewServer(port int, controller *PaymentController, allowedOrigins []string) *Server {
	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: NewRouter(controller, allowedOrigins),
		},
	}
}

// Start serves in the background. Listener errors other than a shutdown are logged.
func (s *Server) Start() {
	go func() {
		log.Infof("payment api listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("payment api stopped: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m := httpsnoop.CaptureMetrics(next, w, r)
		metrics.HttpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).Inc()
		metrics.HttpRequestDuration.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
	})
}
