package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/resort-booking/internal/booking"
	"github.com/example/resort-booking/internal/catalog"
	"github.com/example/resort-booking/internal/payment"
)

// bookingForm keeps the raw form input so a rejected submission can be
// shown again exactly as typed.
type bookingForm struct {
	Name            string
	Email           string
	Phone           string
	RoomType        string
	CheckIn         string
	CheckOut        string
	Guests          string
	AddOns          []string
	SpecialRequests string
	PaymentMethod   string
}

func readBookingForm(r *http.Request) bookingForm {
	return bookingForm{
		Name:            strings.TrimSpace(r.FormValue("name")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Phone:           strings.TrimSpace(r.FormValue("phone")),
		RoomType:        strings.TrimSpace(r.FormValue("room_type")),
		CheckIn:         strings.TrimSpace(r.FormValue("check_in")),
		CheckOut:        strings.TrimSpace(r.FormValue("check_out")),
		Guests:          strings.TrimSpace(r.FormValue("guests")),
		AddOns:          r.Form["add_ons"],
		SpecialRequests: strings.TrimSpace(r.FormValue("special_requests")),
		PaymentMethod:   strings.TrimSpace(r.FormValue("payment_method")),
	}
}

func (f bookingForm) request(origin booking.Origin) (booking.Request, error) {
	req := booking.Request{
		Name:            f.Name,
		Email:           f.Email,
		Phone:           f.Phone,
		RoomType:        f.RoomType,
		Origin:          origin,
		PaymentMethod:   f.PaymentMethod,
		AddOns:          f.AddOns,
		SpecialRequests: f.SpecialRequests,
	}
	var err error
	if f.CheckIn != "" {
		if req.CheckIn, err = booking.ParseDate(f.CheckIn); err != nil {
			return req, &booking.ValidationError{Field: "check_in", Reason: "want YYYY-MM-DD"}
		}
	}
	if f.CheckOut != "" {
		if req.CheckOut, err = booking.ParseDate(f.CheckOut); err != nil {
			return req, &booking.ValidationError{Field: "check_out", Reason: "want YYYY-MM-DD"}
		}
	}
	if f.Guests != "" {
		if req.Guests, err = strconv.Atoi(f.Guests); err != nil {
			return req, &booking.ValidationError{Field: "guests", Reason: "must be a number"}
		}
	}
	return req, nil
}

func (s *Server) bookingPage(title string, form bookingForm) tmplData {
	cat := s.Booking.Catalog()
	return tmplData{
		Title:   title,
		Rooms:   cat.List(),
		AddOns:  cat.AddOns(),
		Methods: payment.Methods(),
		Form:    form,
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/home.html", tmplData{Title: "Isla Mare Resort", Rooms: s.Booking.Catalog().List()})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/rooms.html", tmplData{
		Title:  "Rooms & Packages",
		Rooms:  s.Booking.Catalog().List(),
		AddOns: s.Booking.Catalog().AddOns(),
	})
}

func (s *Server) handleBookForm(w http.ResponseWriter, r *http.Request) {
	form := bookingForm{RoomType: r.URL.Query().Get("room"), Guests: "1"}
	s.render(w, "templates/book.html", s.bookingPage("Book your stay", form))
}

func (s *Server) handleBookSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := readBookingForm(r)
	req, err := form.request(booking.OriginOnline)
	if err == nil {
		var rec booking.Reservation
		rec, err = s.Booking.Reserve(r.Context(), req)
		if err == nil {
			http.Redirect(w, r, "/payment/"+rec.ID, http.StatusSeeOther)
			return
		}
	}

	status, field, msg := failure(err)
	if status >= http.StatusInternalServerError {
		s.logger().ErrorContext(r.Context(), "booking failed", "err", err)
	}
	data := s.bookingPage("Book your stay", form)
	data.Flash = msg
	data.FieldErr = field
	s.renderStatus(w, status, "templates/book.html", data)
}

func (s *Server) paymentMethods(origin booking.Origin) []payment.MethodInfo {
	var out []payment.MethodInfo
	for _, m := range payment.Methods() {
		if m.WalkInOnly && origin != booking.OriginWalkIn {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Server) handlePaymentForm(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Booking.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status, _, msg := failure(err)
		http.Error(w, msg, status)
		return
	}
	s.render(w, "templates/payment.html", tmplData{
		Title:   "Payment",
		Booking: rec,
		Methods: s.paymentMethods(rec.Origin),
		Paid:    rec.PaymentStatus == booking.PaymentPaid,
	})
}

func (s *Server) handlePaymentSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	sub := payment.Submission{
		Method:       payment.Method(strings.ToLower(strings.TrimSpace(r.FormValue("payment_method")))),
		CardNumber:   r.FormValue("card_number"),
		Expiry:       r.FormValue("expiry"),
		CVV:          r.FormValue("cvv"),
		CardName:     r.FormValue("card_name"),
		GiftCardCode: r.FormValue("gift_card_code"),
	}

	rec, err := s.Booking.CompletePayment(r.Context(), id, sub)
	if err == nil {
		s.render(w, "templates/payment.html", tmplData{
			Title:   "Booking confirmed",
			Booking: rec,
			Paid:    true,
		})
		return
	}

	status, field, msg := failure(err)
	if status == http.StatusNotFound {
		http.Error(w, msg, status)
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger().ErrorContext(r.Context(), "payment failed", "id", id, "err", err)
	}
	s.renderStatus(w, status, "templates/payment.html", tmplData{
		Title:    "Payment",
		Booking:  rec,
		Methods:  s.paymentMethods(rec.Origin),
		Flash:    msg,
		FieldErr: field,
	})
}

type roomJSON struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Capacity    int      `json:"capacity"`
	Price       string   `json:"price"`
	Amount      int64    `json:"amount_minor"`
	Currency    string   `json:"currency"`
	Amenities   []string `json:"amenities"`
}

func toRoomJSON(rt catalog.RoomType) roomJSON {
	return roomJSON{
		ID:          rt.ID,
		Description: rt.Description,
		Capacity:    rt.Capacity,
		Price:       rt.PriceLabel(),
		Amount:      rt.Price.Amount,
		Currency:    rt.Price.Currency,
		Amenities:   rt.Amenities,
	}
}

func (s *Server) handleAPIRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.Booking.Catalog().List()
	out := make([]roomJSON, 0, len(rooms))
	for _, rt := range rooms {
		out = append(out, toRoomJSON(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

type rangeJSON struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type availabilityJSON struct {
	Room      string      `json:"room"`
	CheckIn   string      `json:"check_in"`
	CheckOut  string      `json:"check_out"`
	Available bool        `json:"available"`
	Taken     []rangeJSON `json:"taken"`
}

func (s *Server) handleAPIAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	room := strings.TrimSpace(q.Get("room"))
	var holds []booking.Reservation
	rng, err := booking.ParseDateRange(q.Get("check_in"), q.Get("check_out"))
	if err == nil {
		if _, cerr := s.Booking.Catalog().Get(room); cerr != nil {
			err = &booking.ValidationError{Field: "room", Reason: "unknown room type"}
		}
	}
	if err == nil {
		holds, err = s.Booking.Availability().Holds(r.Context(), room, rng)
	}
	if err != nil {
		status, field, msg := failure(err)
		writeJSON(w, status, map[string]string{"error": msg, "field": field})
		return
	}

	out := availabilityJSON{
		Room:      room,
		CheckIn:   rng.CheckIn.Format(booking.DateLayout),
		CheckOut:  rng.CheckOut.Format(booking.DateLayout),
		Available: len(holds) == 0,
		Taken:     []rangeJSON{},
	}
	for _, h := range holds {
		out.Taken = append(out.Taken, rangeJSON{
			CheckIn:  h.Range.CheckIn.Format(booking.DateLayout),
			CheckOut: h.Range.CheckOut.Format(booking.DateLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
