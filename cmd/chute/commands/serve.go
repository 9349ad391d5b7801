package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/bytechute/chute/internal/announce"
	"github.com/bytechute/chute/internal/logger"
	"github.com/bytechute/chute/internal/relay"
	"github.com/bytechute/chute/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Serve() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve host [filename]",
		Short: "Serve a one-shot relay and print the commands for both peers",
		Long: "The serve command starts the relay: it prints copy-paste commands for the sender and " +
			"the receiver, pairs the first two connections on the port as sender and receiver, " +
			"pipes the bytes across, and exits.",
		Args: cobra.RangeArgs(1, 2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("port", cmd.Flags().Lookup("port")); err != nil {
				return fmt.Errorf("binding port flag: %w", err)
			}
			if err := viper.BindPFlag("pairing_timeout", cmd.Flags().Lookup("timeout")); err != nil {
				return fmt.Errorf("binding timeout flag: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			host := args[0]
			if err := validateAddress(host); err != nil {
				return fmt.Errorf("%w: (%s) is not a valid public host", err, host)
			}
			var filename string
			if len(args) == 2 {
				filename = args[1]
			}
			pass, _ := cmd.Flags().GetString("password")

			sess, err := session.New(host, viper.GetInt("port"), filename, pass)
			if err != nil {
				return err
			}

			lgr := logger.New()
			defer func() {
				_ = lgr.Sync()
			}()

			srv := relay.New(relay.Config{
				BindAddress:    viper.GetString("bind_address"),
				Port:           sess.Port(),
				PairingTimeout: viper.GetDuration("pairing_timeout"),
				BufferSize:     viper.GetInt("buffer_size"),
			}, lgr)
			if err := srv.Listen(); err != nil {
				return err
			}
			defer srv.Close()

			// Announce before accepting so the operator can distribute the
			// commands before either peer connects.
			fmt.Println(announce.Render(sess.Announcement()))
			if clipboard.WriteAll(sess.Password()) == nil {
				fmt.Println(announce.HelpStyle("(password copied to clipboard)"))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	serveCmd.Flags().IntP("port", "p", 0, "port for the relay to listen on")
	serveCmd.Flags().String("password", "", "password for the encrypted mode (generated when omitted)")
	serveCmd.Flags().Duration("timeout", 0, "bounded wait for the second peer after the first connects")
	return serveCmd
}
