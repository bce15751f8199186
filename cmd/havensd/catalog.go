package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"headroom-havens-backend/internal/catalog"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List seeded havens, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			minRating, _ := cmd.Flags().GetInt("min-rating")
			tier, _ := cmd.Flags().GetInt("price-tier")
			lowHeadroom, _ := cmd.Flags().GetBool("low-headroom")
			query, _ := cmd.Flags().GetString("query")

			c, err := catalog.Seed()
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			listings := c.Filter(catalog.Filter{
				MinSafetyRating: minRating,
				PriceTier:       catalog.PriceTier(tier),
				LowHeadroomOnly: lowHeadroom,
				Query:           query,
			})
			writeCatalogTable(cmd.OutOrStdout(), listings)
			return nil
		},
	}

	cmd.Flags().Int("min-rating", 0, "Minimum safety rating in cm")
	cmd.Flags().Int("price-tier", 0, "Keep listings in the same price bucket as this tier (1-5)")
	cmd.Flags().Bool("low-headroom", false, "Only listings rated below the low-headroom cutoff")
	cmd.Flags().String("query", "", "Case-insensitive name or location search")
	return cmd
}

func writeCatalogTable(w io.Writer, listings []catalog.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No havens match.")
		return
	}

	fmt.Fprintf(w, "%-3s  %-20s  %-22s  %-9s  %-7s  %s\n", "ID", "Name", "Location", "Price", "Rating", "Imperial")
	for _, l := range listings {
		rating := catalog.SafetyRating(l)
		fmt.Fprintf(w, "%-3s  %-20s  %-22s  %-9s  %-7s  %s\n",
			strconv.FormatInt(l.ID, 10),
			l.Name,
			l.Location,
			catalog.PriceLabel(l.PriceTier),
			fmt.Sprintf("%d cm", rating),
			catalog.CmToFeetInches(float64(rating)),
		)
	}
}
