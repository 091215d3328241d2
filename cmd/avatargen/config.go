package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/maxhully/mosaic/avatargen"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type config struct {
	Avatar    avatargen.Config
	OutDir    string
	DB        string
	LogLevel  string
	Addr      string
	SecretKey []byte
	Workers   int
}

// Keys shared by every command. Flag names double as viper keys, and as environment
// variables with a MOSAIC_ prefix (MOSAIC_MIN_SIDE and so on).
var avatarFlags = []string{
	"width", "height", "planes", "attempts", "min_side", "max_side", "background",
	"palette", "hue", "out_dir", "db", "log_level",
}

var serveFlags = []string{"addr", "secret_key", "workers"}

func defineFlags(rootCmd *cobra.Command) {
	defaults := avatargen.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.Float64("width", defaults.Width, "canvas width")
	flags.Float64("height", defaults.Height, "canvas height")
	flags.Int("planes", defaults.TargetPlanes, "number of tiles in each avatar, background included")
	flags.Int("attempts", defaults.MaxAttempts, "attempts allowed for each new tile before giving up")
	flags.Float64("min_side", defaults.MinSide, "smallest allowed tile side")
	flags.Float64("max_side", defaults.MaxSide, "largest allowed tile side")
	flags.Int("background", defaults.BackgroundColour, "palette index of the background colour")
	flags.StringSlice("palette", defaults.Palette, "hex colours to paint tiles with")
	flags.Float64("hue", -1, "build the palette around this hue (degrees) instead of using --palette")
	flags.String("out_dir", ".", "directory generated PNGs are written to")
	flags.String("db", "mosaic.db", "SQLite database with users and uploads")
	flags.String("log_level", "info", "log level: trace, debug, info, warn, error or disabled")
}

func defineServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", ":7777", "address to listen on")
	cmd.Flags().String("secret_key", "", "secret key for CSRF cookies (hex encoded, 32 bytes)")
	cmd.Flags().Int("workers", 1, "number of avatar workers")
}

func newViper(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("MOSAIC")
	v.AutomaticEnv()
	for _, flag := range append(avatarFlags, serveFlags...) {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(flag, f); err != nil {
				return nil, err
			}
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		Avatar: avatargen.Config{
			Width:            v.GetFloat64("width"),
			Height:           v.GetFloat64("height"),
			TargetPlanes:     v.GetInt("planes"),
			MaxAttempts:      v.GetInt("attempts"),
			MinSide:          v.GetFloat64("min_side"),
			MaxSide:          v.GetFloat64("max_side"),
			BackgroundColour: v.GetInt("background"),
			Palette:          avatargen.Palette(v.GetStringSlice("palette")),
		},
		OutDir:   v.GetString("out_dir"),
		DB:       v.GetString("db"),
		LogLevel: v.GetString("log_level"),
		Addr:     v.GetString("addr"),
		Workers:  v.GetInt("workers"),
	}
	if hue := v.GetFloat64("hue"); hue >= 0 {
		cfg.Avatar.Palette = avatargen.PaletteFromHue(hue, 8)
	}
	if err := cfg.Avatar.Validate(); err != nil {
		return config{}, err
	}
	if secretKeyHex := v.GetString("secret_key"); secretKeyHex != "" {
		secretKey, err := hex.DecodeString(secretKeyHex)
		if err != nil {
			return config{}, errors.New("secret_key must be hex-encoded")
		}
		if len(secretKey) != 32 {
			return config{}, errors.New("secret_key must be 32 bytes")
		}
		cfg.SecretKey = secretKey
	}
	return cfg, nil
}

func setUpLogging(level string) {
	if isatty.IsTerminal(os.Stdout.Fd()) && runtime.GOOS != "windows" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}
	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
}
