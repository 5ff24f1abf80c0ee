package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cory-johannsen/azdice/internal/config"
	"github.com/cory-johannsen/azdice/internal/dice"
	"github.com/cory-johannsen/azdice/internal/observability"
	"github.com/cory-johannsen/azdice/internal/preset"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	roller  *dice.Roller
	presets *preset.Library
}

var (
	totalColor = color.New(color.FgGreen, color.Bold)
	rangeColor = color.New(color.FgCyan)
	errColor   = color.New(color.FgRed, color.Bold)
)

func newRootCmd() *cobra.Command {
	a := &app{}
	v := viper.New()

	root := &cobra.Command{
		Use:           "azdice",
		Short:         "Dice notation roller",
		Long:          `azdice parses dice notation such as "4d6dl1+3", computes ranges and rolls it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, v)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to configuration file")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("log-level", "", "override logging.level")
	pf.String("source", "", "override roller.source (crypto|math|seeded)")
	pf.Uint64("seed", 0, "override roller.seed")
	pf.String("presets", "", "override presets.path")

	for flag, key := range map[string]string{
		"log-level": "logging.level",
		"source":    "roller.source",
		"seed":      "roller.seed",
		"presets":   "presets.path",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newRollCmd(a),
		newDistCmd(a),
		newRangeCmd(a),
		newScriptCmd(a),
		newHistoryCmd(a),
		newPresetsCmd(a),
		newServeCmd(a),
	)
	return root
}

// init loads configuration with flag overrides and builds the shared logger,
// roller and preset library.
func (a *app) init(cmd *cobra.Command, v *viper.Viper) error {
	colorFlag, _ := cmd.Flags().GetString("color")
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
	}

	path, _ := cmd.Flags().GetString("config")
	v.SetEnvPrefix("AZDICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	config.SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	cfg, err := config.LoadFromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.roller = dice.NewLoggedRoller(newSource(cfg.Roller), a.logger)

	if cfg.Presets.Path != "" {
		a.presets, err = preset.Load(cfg.Presets.Path)
		if err != nil {
			return fmt.Errorf("loading presets: %w", err)
		}
		a.logger.Debug("presets loaded", zap.Int("count", a.presets.Len()))
	}
	return nil
}

// resolve turns an argument into a bag via presets, falling back to the
// configured default expression when args is empty.
func (a *app) resolve(args []string) (*dice.Bag, error) {
	expr := a.cfg.Roller.DefaultExpression
	if len(args) > 0 {
		expr = strings.Join(args, " ")
	}
	return a.presets.Resolve(expr)
}
