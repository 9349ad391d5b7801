package main

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"fmt"
	math_rand "math/rand"
	"os"

	"github.com/bytechute/chute/cmd/chute/commands"
	"github.com/bytechute/chute/cmd/chute/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is injected at build time.
var version = "v0.0.0-dev"

// rootCmd is the top level `chute` command on which the other subcommands are attached to.
var rootCmd = &cobra.Command{
	Use:   "chute",
	Short: "Chute relays a single file between two peers through one TCP port, then exits.",
	PreRun: func(cmd *cobra.Command, args []string) {
		_ = viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	},
}

// Entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Initialization of cobra and viper.
func init() {
	randomSeed()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug information to a file on the format `.chute-[command].log` in the current directory")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(commands.Serve())
	rootCmd.AddCommand(commands.Push())
	rootCmd.AddCommand(commands.Pull())
	rootCmd.AddCommand(commands.Config())
	rootCmd.AddCommand(commands.Version(version))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Println("Could not initialize config:", err)
		os.Exit(1)
	}
}

func randomSeed() {
	var b [8]byte
	_, err := crypto_rand.Read(b[:])
	if err != nil {
		panic("failed to seed math/rand")
	}
	math_rand.Seed(int64(binary.LittleEndian.Uint64(b[:])))
}
