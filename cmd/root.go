package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigtrail/sigtrail/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sigtrail",
	Short: "Browse signals and their revision history from the command line.",
	Long: `sigtrail talks to a signals backend: it keeps your session, fetches and submits
signals, and rebuilds the changelog of a signal from its stored revisions.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		levelString, _ := cmd.Flags().GetString("loglevel")
		return utils.SetLogLevel(levelString)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sigtrail.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to the session database (default ~/.config/sigtrail/session.sqlite)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-request timeout (default from config, 30s)")

	viper.BindPFlag("session.dbpath", rootCmd.PersistentFlags().Lookup("dbpath"))
	viper.BindPFlag("client.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func setDefaults() {
	viper.SetDefault("server.address", "")
	viper.SetDefault("server.resource", "history-signals")
	viper.SetDefault("client.timeout", "30s")
	viper.SetDefault("client.withtoken", true)
	viper.SetDefault("session.dbpath", "")
	viper.SetDefault("display.timezone", "Local")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".sigtrail")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("sigtrail")
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.sigtrail.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Debugf("Could not create config file: %s", err)
			}
		} else {
			utils.Log.Warnf("Could not read config file: %s", err)
		}
	}
}
