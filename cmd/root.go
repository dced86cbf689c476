package cmd

import (
	"os"

	"github.com/mezonai/cubix/logx"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cubix",
	Short: "Cubix stack engine CLI",
	Long:  "Command line interface for submitting transactions to, inspecting and running the Cubix stack engine.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&engineFlags.ConfigPath, "config", "c", "config/cubix.yml", "engine yaml config")
	rootCmd.PersistentFlags().StringVar(&engineFlags.IniPath, "ini", "config/config.ini", "tunables ini file")
	rootCmd.PersistentFlags().StringVarP(&engineFlags.DataDir, "data-dir", "d", "", "override the store directory")
	rootCmd.PersistentFlags().StringVar(&engineFlags.StoreType, "store", "", "override the store type (bolt, leveldb, redis)")
}
