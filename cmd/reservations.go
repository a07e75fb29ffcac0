package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/resy-sniper/internal/snipe"
	"github.com/example/resy-sniper/internal/store"
)

func newReservationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "Inspect booked reservations",
	}
	cmd.AddCommand(newReservationsListCmd())
	cmd.AddCommand(newReservationsCancelCmd())
	cmd.AddCommand(newReservationsDeleteCmd())
	return cmd
}

func newReservationsListCmd() *cobra.Command {
	var (
		platform string
		status   string
		from     string
		to       string
		upcoming int
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List reservations with optional filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			var (
				list []snipe.Reservation
			)
			if upcoming > 0 {
				list, err = d.store.UpcomingReservations(ctx, time.Now().UTC(), upcoming)
			} else {
				list, err = d.store.ListReservations(ctx, store.ReservationFilters{
					Platform: platform,
					Status:   status,
					DateFrom: from,
					DateTo:   to,
				})
			}
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Fprintln(os.Stdout, "no reservations found")
				return nil
			}
			for _, r := range list {
				confirmation := "-"
				if r.ConfirmationNumber != nil {
					confirmation = *r.ConfirmationNumber
				}
				fmt.Fprintf(os.Stdout, "id=%d platform=%s restaurant=%s date=%s time=%s party=%d status=%s confirmation=%s\n",
					r.ID, r.Platform, r.RestaurantName, r.Date, r.Time, r.PartySize, r.Status, confirmation)
			}
			return nil
		},
	}

	c.Flags().StringVar(&platform, "platform", "", "filter by platform (e.g. resy)")
	c.Flags().StringVar(&status, "status", "", "filter by status")
	c.Flags().StringVar(&from, "from", "", "earliest date YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "latest date YYYY-MM-DD")
	c.Flags().IntVar(&upcoming, "upcoming", 0, "list confirmed reservations within the next N days")
	return c
}

func newReservationsCancelCmd() *cobra.Command {
	var notes string

	c := &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Mark a reservation as cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reservation id %q", args[0])
			}

			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			r, err := d.store.GetReservation(ctx, id)
			if err != nil {
				return err
			}
			if r.Status == snipe.ReservationCancelled {
				return fmt.Errorf("reservation #%d is already cancelled", id)
			}

			var n *string
			if notes != "" {
				n = &notes
			}
			if _, err := d.store.UpdateReservationStatus(ctx, id, snipe.ReservationCancelled, n); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "reservation #%d cancelled\n", id)
			return nil
		},
	}

	c.Flags().StringVar(&notes, "notes", "", "note to record with the cancellation")
	return c
}

func newReservationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <reservation-id>",
		Short: "Delete a reservation record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reservation id %q", args[0])
			}

			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			ok, err := d.store.DeleteReservation(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("reservation #%d not found", id)
			}
			fmt.Fprintf(os.Stdout, "reservation #%d deleted\n", id)
			return nil
		},
	}
}
