// goLexicon builds word vectors from dictionary definitions: it scrapes a dictionary,
// tabularizes the definitions with POS and inflection tags, encodes them with a
// recurrent definition encoder and evaluates the resulting vector-space model.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/computerphysicslab/goPackages/goDebug"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"goLexicon/configlib"
	"goLexicon/loglib"
)

/***************************************************************************************************************
****************************************************************************************************************
* APP **********************************************************************************************************
****************************************************************************************************************
****************************************************************************************************************/

// app is the state shared by every subcommand once the configuration is loaded
type app struct {
	v       *viper.Viper
	cfg     *configlib.Config
	log     *logrus.Logger
	cfgName string
	debug   bool

	bindings []binding
}

// binding maps a subcommand flag onto a configuration key. Several subcommands share
// keys, so only the bindings of the running command are applied.
type binding struct {
	cmd       *cobra.Command
	key, flag string
}

func (a *app) init(cmd *cobra.Command) error {
	for _, b := range a.bindings {
		if b.cmd != cmd {
			continue
		}
		if err := a.v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return fmt.Errorf("bind %s to --%s: %w", b.key, b.flag, err)
		}
	}
	if err := configlib.ReadInConfig(a.v, a.cfgName); err != nil {
		return err
	}
	cfg, err := configlib.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = loglib.New(cfg.Log, cmd.ErrOrStderr())
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.WithField("file", used).Debug("config loaded")
	}
	if a.debug {
		goDebug.Print("config", *cfg)
	}
	return nil
}

func (a *app) bind(cmd *cobra.Command, key, flag string) {
	a.bindings = append(a.bindings, binding{cmd: cmd, key: key, flag: flag})
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	configlib.SetDefaults(a.v)

	cmd := &cobra.Command{
		Use:   "goLexicon",
		Short: "Dictionary scraping, definition encoding and word vector evaluation",
		Long: `goLexicon turns dictionary definitions into word vectors.

  wordlist    build the list of words to look up
  scrape      download and parse their dictionary entries
  tabularize  flatten entries into word / POS / tag / definition rows
  encode      encode the definitions into a vector-space model
  wordsim     evaluate a VSM on word-similarity benchmarks
  analogy     evaluate a VSM on analogy problems`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgName, "config", "lexicon", "config file name, without extension, looked up in . and ./config")
	pf.BoolVar(&a.debug, "debug", false, "dump the effective configuration")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("log-dir", "./logs", "directory of the per-concern log files")
	for key, flag := range map[string]string{"log.level": "log-level", "log.format": "log-format", "log.dir": "log-dir"} {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(
		a.wordlistCmd(),
		a.scrapeCmd(),
		a.tabularizeCmd(),
		a.encodeCmd(),
		a.wordsimCmd(),
		a.analogyCmd(),
	)
	return cmd
}

// signalContext is cancelled on the first interrupt
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func execute(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
