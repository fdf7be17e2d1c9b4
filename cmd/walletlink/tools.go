package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/AlexZinkM/walletlink/internal/client"
	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/database"
	"github.com/AlexZinkM/walletlink/internal/events"
	"github.com/AlexZinkM/walletlink/internal/fees"
	"github.com/AlexZinkM/walletlink/internal/model"

	"github.com/spf13/cobra"
)

var (
	withUSD       bool
	receiptArtist string
	receiptLimit  int
)

var feesCmd = &cobra.Command{
	Use:   "fees <amount>",
	Short: "Print the fee breakdown of a tip in SOL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil || amount < 0 {
			return fmt.Errorf("amount must be a non-negative number")
		}
		quote := fees.QuoteTip(amount)
		if withUSD {
			rate, err := client.NewCoinGeckoClient(config.Get().HTTPTimeout).GetSOLToUSDRate(cmd.Context())
			if err != nil {
				return err
			}
			usd := fmt.Sprintf("%.2f", quote.ArtistShare*rate)
			quote.ArtistShareUSD = &usd
		}
		return printJSON(quote)
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Follow the station event channel and print what it sends",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		station := events.NewClient(config.Get().StationWSURL, func(ev events.Event) {
			switch e := ev.(type) {
			case events.StationInfo:
				if e.CurrentTrack != nil {
					fmt.Printf("now playing: %s (artist %s)\n", e.CurrentTrack.Title, e.TipTarget())
				}
			case events.Chat:
				fmt.Printf("%s: %s\n", e.ChatMessage.User.Name, e.ChatMessage.Content)
			case events.LoadChat:
				fmt.Printf("chat history: %d messages\n", len(e.ChatHistory))
			case events.OnlineUsers:
				fmt.Printf("online: %d\n", len(e.Users))
			case events.UserProfile:
				fmt.Printf("profile: %s\n", e.UserInfo.Name)
			case events.Notice:
				fmt.Printf("[%s] %s\n", e.Kind, e.Message)
			}
		}, logger)

		if err := station.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var receiptsCmd = &cobra.Command{
	Use:   "receipts",
	Short: "List confirmed tips from the receipt ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewSQLiteManager(config.Get().ReceiptsDBPath, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		req := &model.ReceiptsRequest{Limit: receiptLimit}
		if receiptArtist != "" {
			req.ArtistID = &receiptArtist
		}
		if err := req.Validate(); err != nil {
			return err
		}
		resp, err := db.ListReceipts(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show which wallet the stored session file belongs to, without decrypting it",
	RunE: func(cmd *cobra.Command, args []string) error {
		sealed, err := crypto.ReadSessionFile(config.GetSessionFilePath())
		if err != nil {
			return err
		}
		owner := sealed.PublicKey
		if owner == "" {
			owner = "(no wallet session)"
		}
		fmt.Printf("session file: %s\nversion: %d\nwallet: %s\n", config.GetSessionFilePath(), sealed.Version, owner)
		return nil
	},
}

func init() {
	feesCmd.Flags().BoolVar(&withUSD, "usd", false, "also show the artist share in USD")
	receiptsCmd.Flags().StringVar(&receiptArtist, "artist", "", "only this artist")
	receiptsCmd.Flags().IntVar(&receiptLimit, "limit", 20, "max receipts")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

