package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/resort-booking/internal/auth"
	"github.com/example/resort-booking/internal/booking"
	"github.com/example/resort-booking/internal/catalog"
	"github.com/example/resort-booking/internal/payment"
)

//go:embed templates/*.html static/*
var fs embed.FS

type Server struct {
	Booking *booking.Service
	Auth    *auth.Store
	Log     *slog.Logger
	// Limiter guards the form POSTs that create or pay for bookings and
	// the admin login. Nil disables rate limiting.
	Limiter *RateLimiter

	BaseURL string
}

type tmplData struct {
	Title string
	User  int64

	Flash    string
	FieldErr string

	Rooms   []catalog.RoomType
	AddOns  []catalog.AddOn
	Methods []payment.MethodInfo

	Form     bookingForm
	Booking  booking.Reservation
	Bookings []booking.Reservation
	Filter   listFilter
	Paid     bool
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.FileServer(http.FS(fs)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /rooms", s.handleRooms)
	mux.HandleFunc("GET /book", s.handleBookForm)
	mux.Handle("POST /book", s.limit(http.HandlerFunc(s.handleBookSubmit)))
	mux.HandleFunc("GET /payment/{id}", s.handlePaymentForm)
	mux.Handle("POST /payment/{id}", s.limit(http.HandlerFunc(s.handlePaymentSubmit)))

	mux.HandleFunc("GET /api/rooms", s.handleAPIRooms)
	mux.HandleFunc("GET /api/availability", s.handleAPIAvailability)

	mux.HandleFunc("GET /admin/login", s.handleLoginForm)
	mux.Handle("POST /admin/login", s.limit(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /admin/logout", s.handleLogout)

	admin := func(h http.HandlerFunc) http.Handler { return s.Auth.RequireAdmin(h) }
	mux.Handle("GET /admin", admin(s.handleAdminList))
	mux.Handle("GET /admin/walkin", admin(s.handleWalkInForm))
	mux.Handle("POST /admin/walkin", admin(s.handleWalkInSubmit))
	mux.Handle("GET /admin/bookings/{id}", admin(s.handleAdminView))
	mux.Handle("GET /admin/bookings/{id}/edit", admin(s.handleAdminEditForm))
	mux.Handle("POST /admin/bookings/{id}/edit", admin(s.handleAdminEdit))
	mux.Handle("POST /admin/bookings/{id}/status", admin(s.handleAdminStatus))
	mux.Handle("POST /admin/bookings/{id}/payment", admin(s.handleAdminPayment))
	mux.Handle("POST /admin/bookings/{id}/delete", admin(s.handleAdminDelete))

	return s.logRequests(mux)
}

func (s *Server) limit(h http.Handler) http.Handler {
	if s.Limiter == nil {
		return h
	}
	return s.Limiter.Middleware(h)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/healthz" || strings.HasPrefix(r.URL.Path, "/static/") {
			return
		}
		s.logger().InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(booking.DateLayout)
	},
	"datetime": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	"has": func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	},
	"join": strings.Join,
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	s.renderStatus(w, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data tmplData) {
	t, err := template.New("").Funcs(funcs).ParseFS(fs,
		"templates/base.html",
		"templates/fields.html",
		name,
	)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// failure maps a booking error to a status code, the offending form field
// and a message fit for a guest.
func failure(err error) (status int, field, msg string) {
	var (
		ve *booking.ValidationError
		ce *booking.ConflictError
		nf *booking.NotFoundError
		it *booking.InvalidTransitionError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Field, "Please check " + strings.ReplaceAll(ve.Field, "_", " ") + ": " + ve.Reason + "."
	case errors.As(err, &ce):
		return http.StatusConflict, "check_in", "Sorry, " + ce.RoomTypeID + " is already booked for " + ce.Range.CheckIn.Format("Jan 2") +
			" to " + ce.Range.CheckOut.Format("Jan 2, 2006") + ". Please choose other dates or another room."
	case errors.As(err, &nf):
		return http.StatusNotFound, "", "That booking could not be found."
	case errors.As(err, &it):
		return http.StatusConflict, "", "This booking is " + string(it.From) + " and cannot be changed that way."
	case errors.Is(err, payment.ErrDeclined):
		return http.StatusPaymentRequired, "", "Your payment was declined. Please try another method."
	case errors.Is(err, booking.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "", "We could not save your booking right now. Please try again in a moment."
	}
	return http.StatusInternalServerError, "", "Something went wrong. Please try again."
}

func Start(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
