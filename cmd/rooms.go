package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/resort-booking/internal/catalog"
	"github.com/spf13/cobra"
)

func newRoomsCmd() *cobra.Command {
	var addOns bool

	c := &cobra.Command{
		Use:   "rooms",
		Short: "List the room types and packages on offer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRooms(cmd.OutOrStdout(), catalog.Default(), addOns)
		},
	}
	c.Flags().BoolVar(&addOns, "add-ons", false, "also list the add-ons")
	return c
}

func printRooms(w io.Writer, cat *catalog.Catalog, addOns bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOM\tSLEEPS\tPRICE\tAMENITIES")
	for _, r := range cat.List() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.ID, r.Capacity, r.PriceLabel(), strings.Join(r.Amenities, ", "))
	}
	if addOns {
		fmt.Fprintln(tw, "\nADD-ON\tID\tPRICE\t")
		for _, a := range cat.AddOns() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", a.Label, a.ID, a.PriceLabel)
		}
	}
	return tw.Flush()
}
