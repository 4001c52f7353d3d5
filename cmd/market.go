package cmd

import (
	"matchpool/core"
	"matchpool/pkg/number"

	"github.com/fox-one/pkg/store/db"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var addMarketCmd = &cobra.Command{
	Use:     "add-market",
	Aliases: []string{"am"},
	Short:   "list a new market",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		if database == nil {
			cmd.PrintErrln("no database configured")
			return
		}
		defer database.Close()

		assetID, _ := cmd.Flags().GetString("asset")
		if assetID == "" {
			cmd.PrintErrln("asset id required")
			return
		}

		pool := providePool()
		asset, err := pool.Asset(ctx, assetID)
		if err != nil {
			cmd.PrintErrln("pool does not list this asset:", err)
			return
		}

		indexes, err := pool.Indexes(ctx, assetID)
		if err != nil {
			cmd.PrintErrln("fetch pool indexes error:", err)
			return
		}

		cursor, _ := cmd.Flags().GetString("cursor")
		reserveFactor, _ := cmd.Flags().GetString("reserve-factor")

		market := &core.Market{
			AssetID:             asset.AssetID,
			Symbol:              asset.Symbol,
			Decimals:            asset.Decimals,
			Cursor:              number.Decimal(cursor),
			ReserveFactor:       number.Decimal(reserveFactor),
			MaxSortedUsers:      cfg.App.MaxSortedUsers,
			MatchBudget:         cfg.App.MatchBudget,
			P2PSupplyIndex:      number.Decimal("1"),
			P2PBorrowIndex:      number.Decimal("1"),
			LastPoolSupplyIndex: indexes.SupplyIndex,
			LastPoolBorrowIndex: indexes.BorrowIndex,
		}

		marketStore := provideMarketStore(database)
		err = database.Tx(func(tx *db.DB) error {
			return marketStore.Save(ctx, tx, market)
		})
		if err != nil {
			cmd.PrintErrln("save market error:", err)
			return
		}

		cmd.Println("market listed:", market.Symbol, market.AssetID)
	},
}

var listMarketsCmd = &cobra.Command{
	Use:     "markets",
	Aliases: []string{"lm"},
	Short:   "list all markets",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		if database == nil {
			cmd.PrintErrln("no database configured")
			return
		}
		defer database.Close()

		markets, err := provideMarketStore(database).All(ctx)
		if err != nil {
			cmd.PrintErrln("fetch markets error:", err)
			return
		}

		for _, m := range markets {
			cmd.Println(m.Symbol, m.AssetID,
				"status:", cast.ToString(int(m.Status)),
				"p2p supply:", m.SupplyP2PAmount.String(),
				"p2p borrow:", m.BorrowP2PAmount.String())
		}
	},
}

var pauseMarketCmd = &cobra.Command{
	Use:   "pause-market",
	Short: "pause matching on a market",
	Run: func(cmd *cobra.Command, args []string) {
		setMarketStatus(cmd, core.MarketStatusPaused)
	},
}

var resumeMarketCmd = &cobra.Command{
	Use:   "resume-market",
	Short: "resume matching on a market",
	Run: func(cmd *cobra.Command, args []string) {
		setMarketStatus(cmd, core.MarketStatusOpen)
	},
}

func setMarketStatus(cmd *cobra.Command, status core.MarketStatus) {
	ctx := cmd.Context()

	database := provideDatabase()
	if database == nil {
		cmd.PrintErrln("no database configured")
		return
	}
	defer database.Close()

	assetID, _ := cmd.Flags().GetString("asset")

	marketStore := provideMarketStore(database)
	market, err := marketStore.Find(ctx, assetID)
	if err != nil {
		cmd.PrintErrln("market not found:", err)
		return
	}

	market.Status = status
	err = database.Tx(func(tx *db.DB) error {
		return marketStore.Update(ctx, tx, market)
	})
	if err != nil {
		cmd.PrintErrln("update market error:", err)
		return
	}

	cmd.Println("market", market.Symbol, "status:", cast.ToString(int(status)))
}

var pauseMatchingCmd = &cobra.Command{
	Use:   "pause-matching",
	Short: "pause matching on every market",
	Run: func(cmd *cobra.Command, args []string) {
		setMatchingPaused(cmd, true)
	},
}

var resumeMatchingCmd = &cobra.Command{
	Use:   "resume-matching",
	Short: "resume matching on every market",
	Run: func(cmd *cobra.Command, args []string) {
		setMatchingPaused(cmd, false)
	},
}

func setMatchingPaused(cmd *cobra.Command, paused bool) {
	ctx := cmd.Context()

	database := provideDatabase()
	if database == nil {
		cmd.PrintErrln("no database configured")
		return
	}
	defer database.Close()

	if err := providePropertyStore(database).Save(ctx, core.MatchingPausedKey, paused); err != nil {
		cmd.PrintErrln("save property error:", err)
		return
	}

	cmd.Println("matching paused:", paused)
}

func init() {
	rootCmd.AddCommand(addMarketCmd)
	rootCmd.AddCommand(listMarketsCmd)
	rootCmd.AddCommand(pauseMarketCmd)
	rootCmd.AddCommand(resumeMarketCmd)
	rootCmd.AddCommand(pauseMatchingCmd)
	rootCmd.AddCommand(resumeMatchingCmd)

	addMarketCmd.Flags().StringP("asset", "a", "", "asset id")
	addMarketCmd.Flags().String("cursor", "0.5", "p2p rate position between supply and borrow rates")
	addMarketCmd.Flags().String("reserve-factor", "0", "share of the p2p spread kept by the reserve")

	pauseMarketCmd.Flags().StringP("asset", "a", "", "asset id")
	resumeMarketCmd.Flags().StringP("asset", "a", "", "asset id")
}
