package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/resort-booking/internal/booking"
	"github.com/spf13/cobra"
)

func newBookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Manage reservations from the command line",
	}
	cmd.AddCommand(newBookingListCmd())
	cmd.AddCommand(newBookingCreateCmd())
	cmd.AddCommand(newBookingCancelCmd())
	cmd.AddCommand(newBookingPayCmd())
	cmd.AddCommand(newBookingDeleteCmd())
	cmd.AddCommand(newBookingExpireCmd())
	return cmd
}

// withBookings opens the Postgres-backed service for one command.
func withBookings(fn func(ctx context.Context, svc *booking.Service) error) error {
	ctx := context.Background()
	a, err := openApp(ctx, false, false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.bookings())
}

func newBookingListCmd() *cobra.Command {
	var q, origin, pay, status, date string

	c := &cobra.Command{
		Use:   "list",
		Short: "List reservations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := booking.Filter{Query: q}
			var err error
			if origin != "" {
				if f.Origin, err = booking.ParseOrigin(origin); err != nil {
					return err
				}
			}
			if pay != "" {
				if f.PaymentStatus, err = booking.ParsePaymentStatus(pay); err != nil {
					return err
				}
			}
			if status != "" {
				if f.Status, err = booking.ParseStatus(status); err != nil {
					return err
				}
			}
			if date != "" {
				if f.CheckIn, err = booking.ParseDate(date); err != nil {
					return fmt.Errorf("invalid --check-in (want YYYY-MM-DD)")
				}
			}
			return withBookings(func(ctx context.Context, svc *booking.Service) error {
				rs, err := svc.List(ctx, f)
				if err != nil {
					return err
				}
				return printBookings(cmd.OutOrStdout(), rs)
			})
		},
	}

	c.Flags().StringVar(&q, "q", "", "search name, phone or email")
	c.Flags().StringVar(&origin, "type", "", "online or walkin")
	c.Flags().StringVar(&pay, "payment", "", "pending, paid or failed")
	c.Flags().StringVar(&status, "status", "", "pending, confirmed or cancelled")
	c.Flags().StringVar(&date, "check-in", "", "exact check-in date YYYY-MM-DD")
	return c
}

func printBookings(w io.Writer, rs []booking.Reservation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGUEST\tROOM\tDATES\tTYPE\tSTATUS\tPAYMENT\tCREATED")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Name, r.RoomType, r.Range, r.Origin, r.Status, r.PaymentStatus, r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func newBookingCreateCmd() *cobra.Command {
	var (
		req          booking.Request
		checkIn, out string
		addOns       string
		walkIn       bool
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Reserve a room (online hold, or a walk-in with --walk-in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.CheckIn, err = booking.ParseDate(checkIn); err != nil {
				return fmt.Errorf("invalid --check-in (want YYYY-MM-DD)")
			}
			if req.CheckOut, err = booking.ParseDate(out); err != nil {
				return fmt.Errorf("invalid --check-out (want YYYY-MM-DD)")
			}
			req.AddOns = splitCSV(addOns)
			req.Origin = booking.OriginOnline
			if walkIn {
				req.Origin = booking.OriginWalkIn
			}
			return withBookings(func(ctx context.Context, svc *booking.Service) error {
				rec, err := svc.Reserve(ctx, req)
				if err != nil {
					if rec.ID != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "held booking id=%s without payment; run `resortd booking pay %s`\n", rec.ID, rec.ID)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created booking id=%s room=%q dates=%s status=%s payment=%s\n",
					rec.ID, rec.RoomType, rec.Range, rec.Status, rec.PaymentStatus)
				return nil
			})
		},
	}

	c.Flags().StringVar(&req.Name, "name", "", "guest name")
	c.Flags().StringVar(&req.Email, "email", "", "guest email (optional for walk-ins)")
	c.Flags().StringVar(&req.Phone, "phone", "", "guest phone")
	c.Flags().StringVar(&req.RoomType, "room", "", "room type, as listed by `resortd rooms`")
	c.Flags().StringVar(&checkIn, "check-in", "", "check-in date YYYY-MM-DD")
	c.Flags().StringVar(&out, "check-out", "", "check-out date YYYY-MM-DD")
	c.Flags().IntVar(&req.Guests, "guests", 1, "number of guests")
	c.Flags().StringVar(&addOns, "add-ons", "", "comma-separated add-on ids")
	c.Flags().StringVar(&req.SpecialRequests, "special-requests", "", "notes for the front desk")
	c.Flags().StringVar(&req.PaymentMethod, "payment-method", "", "walk-ins paid on the spot (e.g. cash)")
	c.Flags().BoolVar(&walkIn, "walk-in", false, "record a front-desk walk-in")

	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("phone")
	_ = c.MarkFlagRequired("room")
	_ = c.MarkFlagRequired("check-in")
	_ = c.MarkFlagRequired("check-out")
	return c
}

func newBookingCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a reservation and release its dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBookings(func(ctx context.Context, svc *booking.Service) error {
				rec, err := svc.Cancel(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "booking %s is %s\n", rec.ID, rec.Status)
				return nil
			})
		},
	}
}

func newBookingPayCmd() *cobra.Command {
	var method string

	c := &cobra.Command{
		Use:   "pay <id>",
		Short: "Mark a reservation paid (confirms a pending one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBookings(func(ctx context.Context, svc *booking.Service) error {
				rec, err := svc.MarkPaid(ctx, args[0], method)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "booking %s is %s, payment %s (%s)\n", rec.ID, rec.Status, rec.PaymentStatus, rec.PaymentMethod)
				return nil
			})
		},
	}
	c.Flags().StringVar(&method, "method", "cash", "payment method received")
	return c
}

func newBookingDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reservation record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBookings(func(ctx context.Context, svc *booking.Service) error {
				if err := svc.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted booking %s\n", args[0])
				return nil
			})
		},
	}
}

func newBookingExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark unpaid holds older than HOLD_TTL as cancelled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBookings(func(ctx context.Context, svc *booking.Service) error {
				n, err := svc.SweepExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "released %d expired holds\n", n)
				return nil
			})
		},
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
