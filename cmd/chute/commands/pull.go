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

// ------------------------------------------------------- Pull --------------------------------------------------------

func Pull() *cobra.Command {
	pullCmd := &cobra.Command{
		Use:   "pull address file",
		Short: "Receive one file through a chute relay",
		Long: "The pull command connects to a running relay as the receiving peer, reads the " +
			"stream to its end and unwraps the selected mode's framing. A checksum mismatch or " +
			"decryption failure removes the partial file and exits non-zero.",
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

			logFile, err := setupLoggingFromViper("pull")
			if err != nil {
				return err
			}
			defer logFile.Close()

			conn, err := net.Dial("tcp", addr)
			if err != nil {
				return fmt.Errorf("connecting to relay: %w", err)
			}
			defer conn.Close()

			out, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("unable to create file %q: %w", path, err)
			}

			if err := readFramed(out, conn, m, pass); err != nil {
				out.Close()
				os.Remove(path)
				return fmt.Errorf("receiving %q: %w", path, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("closing %q: %w", path, err)
			}
			fmt.Printf("received %q in %s mode\n", path, m)
			return nil
		},
	}
	pullCmd.Flags().StringP("mode", "m", mode.Plain.String(), modeFlagDesc)
	pullCmd.Flags().String("password", "", passwordFlagDesc)
	return pullCmd
}

// readFramed drains conn into dst, unwrapping the given mode's framing.
func readFramed(dst io.Writer, conn net.Conn, m mode.Mode, password string) error {
	switch m {
	case mode.Integrity:
		tr := framing.NewTrailerReader(conn)
		if _, err := io.Copy(dst, tr); err != nil {
			return err
		}
		return tr.Verify()
	case mode.EncryptedIntegrity:
		tr := framing.NewTrailerReader(conn)
		dec := framing.NewDecrypter(tr, password)
		if _, err := io.Copy(dst, dec); err != nil {
			// Drain the rest and check the trailer first: a checksum
			// mismatch explains a garbled stream better than a padding
			// error does.
			if _, derr := io.Copy(io.Discard, tr); derr != nil {
				return derr
			}
			if verr := tr.Verify(); verr != nil {
				return verr
			}
			return err
		}
		return tr.Verify()
	default:
		_, err := io.Copy(dst, conn)
		return err
	}
}
