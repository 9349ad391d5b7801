package commands

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/bytechute/chute/internal/framing"
	"github.com/bytechute/chute/internal/mode"
	"github.com/spf13/cobra"
)

// ------------------------------------------------------- Push --------------------------------------------------------

func Push() *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push address file",
		Short: "Send one file through a chute relay",
		Long: "The push command connects to a running relay as the sending peer and streams the " +
			"file under the selected mode's framing. The relay never interprets the bytes; " +
			"checksumming and encryption happen here.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, path := args[0], args[1]
			if err := validateAddress(addr); err != nil {
				return fmt.Errorf("%w: (%s) is not a valid relay address", err, addr)
			}
			m, pass, err := modeAndPassword(cmd)
			if err != nil {
				return err
			}

			logFile, err := setupLoggingFromViper("push")
			if err != nil {
				return err
			}
			defer logFile.Close()

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("unable to open file %q: %w", path, err)
			}
			defer f.Close()

			conn, err := net.Dial("tcp", addr)
			if err != nil {
				return fmt.Errorf("connecting to relay: %w", err)
			}
			defer conn.Close()

			if err := writeFramed(conn, f, m, pass); err != nil {
				return fmt.Errorf("sending %q: %w", path, err)
			}
			// Half-close to signal end of stream; the relay forwards it.
			if tc, ok := conn.(*net.TCPConn); ok {
				if err := tc.CloseWrite(); err != nil {
					return fmt.Errorf("closing stream: %w", err)
				}
			}
			fmt.Printf("sent %q in %s mode\n", path, m)
			return nil
		},
	}
	pushCmd.Flags().StringP("mode", "m", mode.Plain.String(), modeFlagDesc)
	pushCmd.Flags().String("password", "", passwordFlagDesc)
	return pushCmd
}

// modeAndPassword resolves the mode flag and, for the encrypted mode, a
// password from the flag or an interactive prompt.
func modeAndPassword(cmd *cobra.Command) (mode.Mode, string, error) {
	modeName, _ := cmd.Flags().GetString("mode")
	m, err := mode.Parse(modeName)
	if err != nil {
		return 0, "", err
	}
	pass, _ := cmd.Flags().GetString("password")
	if m.Describe().Enciphered && pass == "" {
		pass, err = promptPassword()
		if err != nil {
			return 0, "", err
		}
	}
	return m, pass, nil
}

// writeFramed streams src into conn under the given mode's framing.
func writeFramed(conn net.Conn, src io.Reader, m mode.Mode, password string) error {
	switch m {
	case mode.Integrity:
		tw := framing.NewTrailerWriter(conn)
		if _, err := io.Copy(tw, src); err != nil {
			return err
		}
		return tw.Close()
	case mode.EncryptedIntegrity:
		// The trailer digest covers the transmitted cipher bytes.
		tw := framing.NewTrailerWriter(conn)
		enc, err := framing.NewEncrypter(tw, password)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, src); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		return tw.Close()
	default:
		_, err := io.Copy(conn, src)
		return err
	}
}
