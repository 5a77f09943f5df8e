// Package main is the entry point for the textseq CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/james-see/textseq/pkg/api"
	"github.com/james-see/textseq/pkg/app"
	"github.com/james-see/textseq/pkg/audio"
	"github.com/james-see/textseq/pkg/config"
	"github.com/james-see/textseq/pkg/engine"
	"github.com/james-see/textseq/pkg/logging"
	"github.com/james-see/textseq/pkg/midiout"
	"github.com/james-see/textseq/pkg/samples"
	"github.com/james-see/textseq/pkg/session"
	"github.com/james-see/textseq/pkg/transport"
	"github.com/james-see/textseq/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string
	outputMode string

	serverPort  int
	playSteps   int
	renderStep  int
	bounceSteps int
	sessionCode string
	pianoText   string
	beatText    string
	syncFlag    bool
	outputFile  string
	samplesDir  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "textseq",
	Short: "A step sequencer driven by plain text",
	Long: `textseq turns two blocks of text into a looping piano and drum pattern.

Every line is a step sequence. Piano characters come from three keyboard
rows (zxcvbnm, asdfghj, qwertyu = octaves 3, 4, 5); Shift plays forte.
Beat characters a-z trigger drum samples. Anything else is a rest.

Examples:
  textseq tui
  textseq play --piano "a s d f" --beat "a  c" --steps 16
  textseq render --beat "abcd" --step 2
  textseq share encode --piano "qwe" --beat "x x"
  textseq samples generate
  textseq bounce -o loop.wav --piano "asdf" --steps 32
  textseq serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive editor",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	RunE:  runServe,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a pattern and print each step",
	RunE:  runPlay,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the highlighted pattern at a step without playing it",
	RunE:  runRender,
}

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Encode or decode share codes",
}

var shareEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the share code for a pattern",
	RunE:  runShareEncode,
}

var shareDecodeCmd = &cobra.Command{
	Use:   "decode <code>",
	Short: "Print the pattern stored in a share code",
	Args:  cobra.ExactArgs(1),
	RunE:  runShareDecode,
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Manage the sample directory",
}

var samplesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write synthesized placeholder samples for every sound",
	RunE:  runSamplesGenerate,
}

var bounceCmd = &cobra.Command{
	Use:   "bounce",
	Short: "Render a pattern offline to a stereo WAV file",
	RunE:  runBounce,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range midiout.Ports() {
			fmt.Println(p)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/textseq/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&outputMode, "output", "", "Sound output: audio, midi or none")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config)")

	for _, c := range []*cobra.Command{tuiCmd, serveCmd, playCmd, renderCmd, bounceCmd} {
		c.Flags().StringVar(&sessionCode, "session", "", "Start from a share code")
		c.Flags().StringVar(&pianoText, "piano", "", "Piano track text")
		c.Flags().StringVar(&beatText, "beat", "", "Beat track text")
		c.Flags().BoolVar(&syncFlag, "sync", false, "Cycle every line over the longest line")
	}
	shareEncodeCmd.Flags().StringVar(&pianoText, "piano", "", "Piano track text")
	shareEncodeCmd.Flags().StringVar(&beatText, "beat", "", "Beat track text")
	shareEncodeCmd.Flags().BoolVar(&syncFlag, "sync", false, "Store the sync flag")

	playCmd.Flags().IntVarP(&playSteps, "steps", "n", 0, "Stop after this many steps (0 = until interrupted)")
	renderCmd.Flags().IntVar(&renderStep, "step", 0, "Step to render")
	bounceCmd.Flags().IntVarP(&bounceSteps, "steps", "n", 16, "Number of steps to render")
	bounceCmd.Flags().StringVarP(&outputFile, "output-file", "o", "textseq.wav", "Output WAV file")
	samplesGenerateCmd.Flags().StringVar(&samplesDir, "dir", "", "Target directory (default from config)")

	shareCmd.AddCommand(shareEncodeCmd, shareDecodeCmd)
	samplesCmd.AddCommand(samplesGenerateCmd)
	rootCmd.AddCommand(tuiCmd, serveCmd, playCmd, renderCmd, shareCmd, samplesCmd, bounceCmd, portsCmd)
}

// loadConfig reads the config file and applies persistent flag overrides
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if outputMode != "" {
		cfg.Output = config.Output(outputMode)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initialState() session.State {
	return session.State{Piano: pianoText, Beat: beatText, Sync: syncFlag}
}

// setup builds the app and applies --session. A malformed code is logged and ignored.
func setup(ctx context.Context, cfg *config.Config, logger *log.Logger, offline bool) (*app.App, error) {
	a, err := app.Setup(ctx, cfg, logger, app.Options{Initial: initialState(), Offline: offline})
	if err != nil {
		return nil, err
	}
	if sessionCode != "" {
		_ = a.Engine.Load(sessionCode)
	}
	return a, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	logger, f, err := logging.OpenFile(filepath.Join(dir, "textseq.log"), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	a, err := setup(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	a.Start(cmd.Context())

	return tui.Run(a.Engine)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	a, err := setup(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	a.Start(cmd.Context())

	port := cfg.Server.Port
	if serverPort != 0 {
		port = serverPort
	}
	fmt.Printf("Starting textseq API server on port %d...\n", port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", port)
	return api.StartServer(a.Engine, port)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	a, err := setup(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	a.Start(ctx)
	a.Engine.SetPlaying(true)

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.Engine.Updates():
			f := a.Engine.Render()
			if f.Step == last {
				continue
			}
			last = f.Step
			fmt.Printf("step %d\n%s", f.Step, f)
			if playSteps > 0 && f.Step >= uint64(playSteps) {
				a.Engine.SetPlaying(false)
				return nil
			}
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)
	pitched, percussion, err := app.Mappers(cfg)
	if err != nil {
		return err
	}

	e := engine.New(pitched, percussion, session.NewStore(initialState(), logger), audio.Nop{}, logger)
	if sessionCode != "" {
		if err := e.Load(sessionCode); err != nil {
			return err
		}
	}
	for i := 0; i < renderStep; i++ {
		e.Step()
	}
	fmt.Print(e.Render())
	return nil
}

func runShareEncode(cmd *cobra.Command, args []string) error {
	code, err := session.Encode(initialState())
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}

func runShareDecode(cmd *cobra.Command, args []string) error {
	st, err := session.Decode(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("sync: %v\n", st.Sync)
	fmt.Printf("piano:\n%s\n", st.Piano)
	fmt.Printf("beat:\n%s\n", st.Beat)
	return nil
}

func runSamplesGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := samplesDir
	if dir == "" {
		dir = cfg.SamplesDir
	}
	if dir == "" {
		return fmt.Errorf("no samples directory: pass --dir or set samplesDir in the config")
	}
	pitched, percussion, err := app.Mappers(cfg)
	if err != nil {
		return err
	}

	handles := engine.Handles(pitched, percussion)
	fmt.Printf("Generating %d samples in %s...\n", len(handles), dir)
	if err := samples.Generate(dir, handles, cfg.SampleRate); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	fmt.Println("✓ Samples generated")
	return nil
}

func runBounce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	a, err := setup(cmd.Context(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Printf("Bouncing %d steps to %s...\n", bounceSteps, outputFile)
	data := audio.Bounce(a.Mixer, bounceSteps, transport.Interval, func() { a.Engine.Step() })
	if err := samples.WriteStereoWAV(outputFile, data, cfg.SampleRate); err != nil {
		return fmt.Errorf("bounce failed: %w", err)
	}
	fmt.Printf("✓ Wrote %s\n", outputFile)
	return nil
}
