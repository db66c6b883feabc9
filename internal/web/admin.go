package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/resort-booking/internal/auth"
	"github.com/example/resort-booking/internal/booking"
	"github.com/example/resort-booking/internal/payment"
)

// listFilter is the admin list's query string as typed.
type listFilter struct {
	Q       string
	Type    string
	Payment string
	Date    string
}

func (f listFilter) filter() (booking.Filter, error) {
	out := booking.Filter{Query: f.Q}
	var err error
	if f.Type != "" && f.Type != "all" {
		if out.Origin, err = booking.ParseOrigin(f.Type); err != nil {
			return out, err
		}
	}
	if f.Payment != "" && f.Payment != "all" {
		if out.PaymentStatus, err = booking.ParsePaymentStatus(f.Payment); err != nil {
			return out, err
		}
	}
	if f.Date != "" {
		if out.CheckIn, err = booking.ParseDate(f.Date); err != nil {
			return out, &booking.ValidationError{Field: "date", Reason: "want YYYY-MM-DD"}
		}
	}
	return out, nil
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/admin_login.html", tmplData{Title: "Admin login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	id, err := s.Auth.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger().ErrorContext(r.Context(), "login failed", "username", username, "err", err)
		}
		s.renderStatus(w, http.StatusUnauthorized, "templates/admin_login.html", tmplData{Title: "Admin login", Flash: "Invalid username/password"})
		return
	}
	admin, err := s.Auth.IsAdmin(r.Context(), id)
	if err != nil || !admin {
		s.renderStatus(w, http.StatusForbidden, "templates/admin_login.html", tmplData{Title: "Admin login", Flash: "This account has no admin access"})
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger().InfoContext(r.Context(), "admin signed in", "user_id", id)
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}

func (s *Server) adminPage(r *http.Request, title string) tmplData {
	uid, _ := auth.UserIDFromContext(r.Context())
	return tmplData{Title: title, User: uid}
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := s.adminPage(r, "Bookings")
	data.Filter = listFilter{
		Q:       strings.TrimSpace(q.Get("q")),
		Type:    q.Get("type"),
		Payment: q.Get("payment"),
		Date:    strings.TrimSpace(q.Get("date")),
	}
	data.Flash = q.Get("flash")

	f, err := data.Filter.filter()
	if err == nil {
		data.Bookings, err = s.Booking.List(r.Context(), f)
	}
	if err != nil {
		status, field, msg := failure(err)
		data.Flash, data.FieldErr = msg, field
		s.renderStatus(w, status, "templates/admin_list.html", data)
		return
	}
	s.render(w, "templates/admin_list.html", data)
}

func (s *Server) handleWalkInForm(w http.ResponseWriter, r *http.Request) {
	data := s.bookingPage("Walk-in booking", bookingForm{Guests: "1", CheckIn: s.today()})
	data.User, _ = auth.UserIDFromContext(r.Context())
	data.Methods = s.paymentMethods(booking.OriginWalkIn)
	s.render(w, "templates/admin_walkin.html", data)
}

func (s *Server) today() string {
	return s.Booking.Today().Format(booking.DateLayout)
}

func (s *Server) handleWalkInSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := readBookingForm(r)
	req, err := form.request(booking.OriginWalkIn)
	if err == nil {
		var rec booking.Reservation
		rec, err = s.Booking.Reserve(r.Context(), req)
		if err == nil {
			http.Redirect(w, r, "/admin/bookings/"+rec.ID, http.StatusSeeOther)
			return
		}
		if rec.ID != "" {
			s.logger().ErrorContext(r.Context(), "walk-in held without payment", "id", rec.ID, "err", err)
			msg := "Room held, but the payment could not be recorded. Mark it paid from here."
			http.Redirect(w, r, "/admin/bookings/"+rec.ID+"?flash="+url.QueryEscape(msg), http.StatusSeeOther)
			return
		}
	}

	status, field, msg := failure(err)
	data := s.bookingPage("Walk-in booking", form)
	data.User, _ = auth.UserIDFromContext(r.Context())
	data.Methods = s.paymentMethods(booking.OriginWalkIn)
	data.Flash, data.FieldErr = msg, field
	s.renderStatus(w, status, "templates/admin_walkin.html", data)
}

func (s *Server) loadBooking(w http.ResponseWriter, r *http.Request) (booking.Reservation, bool) {
	rec, err := s.Booking.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status, _, msg := failure(err)
		http.Error(w, msg, status)
		return booking.Reservation{}, false
	}
	return rec, true
}

func (s *Server) handleAdminView(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	data := s.adminPage(r, "Booking "+rec.Name)
	data.Booking = rec
	data.Methods = payment.Methods()
	data.Flash = r.URL.Query().Get("flash")
	s.render(w, "templates/admin_view.html", data)
}

// addOnIDs maps stored add-on labels back to catalog ids for the edit form.
func (s *Server) addOnIDs(labels []string) []string {
	var ids []string
	for _, a := range s.Booking.Catalog().AddOns() {
		for _, l := range labels {
			if l == a.Label {
				ids = append(ids, a.ID)
			}
		}
	}
	return ids
}

func (s *Server) handleAdminEditForm(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	data := s.bookingPage("Edit booking", bookingForm{
		Name:            rec.Name,
		Email:           rec.Email,
		Phone:           rec.Phone,
		RoomType:        rec.RoomType,
		CheckIn:         rec.Range.CheckIn.Format(booking.DateLayout),
		CheckOut:        rec.Range.CheckOut.Format(booking.DateLayout),
		Guests:          strconv.Itoa(rec.Guests),
		AddOns:          s.addOnIDs(rec.AddOns),
		SpecialRequests: rec.SpecialRequests,
	})
	data.User, _ = auth.UserIDFromContext(r.Context())
	data.Booking = rec
	s.render(w, "templates/admin_edit.html", data)
}

func (s *Server) handleAdminEdit(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := readBookingForm(r)
	req, err := form.request(rec.Origin)
	if err == nil {
		rng := booking.DateRange{CheckIn: req.CheckIn, CheckOut: req.CheckOut}
		addOns := form.AddOns
		a := booking.Amendment{
			Name:            &req.Name,
			Phone:           &req.Phone,
			RoomType:        &req.RoomType,
			Range:           &rng,
			Guests:          &req.Guests,
			AddOns:          &addOns,
			SpecialRequests: &req.SpecialRequests,
		}
		if req.Email != "" {
			a.Email = &req.Email
		}
		_, err = s.Booking.Amend(r.Context(), rec.ID, a)
	}
	if err == nil {
		http.Redirect(w, r, "/admin/bookings/"+rec.ID+"?flash=Booking+updated", http.StatusSeeOther)
		return
	}

	status, field, msg := failure(err)
	data := s.bookingPage("Edit booking", form)
	data.User, _ = auth.UserIDFromContext(r.Context())
	data.Booking = rec
	data.Flash, data.FieldErr = msg, field
	s.renderStatus(w, status, "templates/admin_edit.html", data)
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	to, err := booking.ParseStatus(r.FormValue("status"))
	if err == nil {
		_, err = s.Booking.SetStatus(r.Context(), id, to)
	}
	s.afterAction(w, r, id, err, "Status updated")
}

func (s *Server) handleAdminPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	to, err := booking.ParsePaymentStatus(r.FormValue("payment_status"))
	if err == nil {
		_, err = s.Booking.SetPaymentStatus(r.Context(), id, to, r.FormValue("payment_method"))
	}
	s.afterAction(w, r, id, err, "Payment updated")
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Booking.Delete(r.Context(), r.PathValue("id")); err != nil {
		status, _, msg := failure(err)
		http.Error(w, msg, status)
		return
	}
	http.Redirect(w, r, "/admin?flash=Booking+deleted", http.StatusSeeOther)
}

// afterAction sends the admin back to the booking page with a flash line
// describing the outcome.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request, id string, err error, ok string) {
	if err == nil {
		http.Redirect(w, r, "/admin/bookings/"+id+"?flash="+url.QueryEscape(ok), http.StatusSeeOther)
		return
	}
	status, _, msg := failure(err)
	if status == http.StatusNotFound || status >= http.StatusInternalServerError {
		http.Error(w, msg, status)
		return
	}
	http.Redirect(w, r, "/admin/bookings/"+id+"?flash="+url.QueryEscape(msg), http.StatusSeeOther)
}
