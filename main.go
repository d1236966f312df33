package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/waflow/waflow/agent"
	"github.com/waflow/waflow/config"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "waflow", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("badger-path", "/tmp/waflow", "data directory for badger storage")
	cmd.Flags().Int("max-node-visits", 1000, "node visit cap per run invocation")
	cmd.Flags().Int("max-input-attempts", 3, "re-prompt budget of input nodes")
	cmd.Flags().Int("delay-poll-interval", 1, "delay queue poll interval in seconds")
	cmd.Flags().Int("delay-partitions", 4, "number of delay queue partitions")
	cmd.Flags().String("sender-webhook-url", "", "webhook of the outbound message gateway")
	cmd.Flags().Int("send-timeout", 10, "outbound send timeout in seconds")
	cmd.Flags().String("analytics-log-file", "", "optional node outcome log file")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.BadgerConfig.Path = viper.GetString("badger-path")
	c.cfg.BadgerConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.MaxNodeVisits = viper.GetInt("max-node-visits")
	c.cfg.MaxInputAttempts = viper.GetInt("max-input-attempts")
	c.cfg.DelayPollInterval = viper.GetInt("delay-poll-interval")
	c.cfg.DelayPartitions = viper.GetInt("delay-partitions")
	c.cfg.SenderWebhookUrl = viper.GetString("sender-webhook-url")
	c.cfg.SendTimeoutSecs = viper.GetInt("send-timeout")
	c.cfg.AnalyticsLogFile = viper.GetString("analytics-log-file")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "waflow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
